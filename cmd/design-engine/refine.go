// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/design-engine/internal/console"
	"github.com/pdiddy/design-engine/internal/history"
	"github.com/pdiddy/design-engine/internal/plantuml"
	"github.com/pdiddy/design-engine/internal/refine"
	"github.com/pdiddy/design-engine/internal/srs"
	"github.com/pdiddy/design-engine/pkg/types"
)

var refineCmd = &cobra.Command{
	Use:   "refine [requirements-file]",
	Short: "Iteratively refine UML diagrams for a requirements document",
	Long: `Refine slices a Markdown requirements document at its headings and runs
the refinement loop for each slice: generate class, sequence, and activity
diagrams, compile them with PlantUML, validate the set with a second model
pass, and fold the validation feedback into the next iteration's prompts.

A run stops when the validation score reaches the target, when the
iteration budget runs out, or on Ctrl-C. Every run is persisted to the
runs database with per-iteration QA reports alongside.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefine,
}

func runRefine(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading requirements file: %w", err)
	}

	slices := srs.SliceDocument(string(content))
	if only, _ := cmd.Flags().GetString("slice"); only != "" {
		slices = filterSlices(slices, only)
		if len(slices) == 0 {
			return fmt.Errorf("no slice named %q in %s", only, args[0])
		}
	}
	if len(slices) == 0 {
		return fmt.Errorf("no requirements slices found in %s", args[0])
	}

	cfg, renderCfg := refineConfig(cmd)

	kinds, err := parseKinds(cfg.Kinds)
	if err != nil {
		return err
	}

	generator, err := newGenerator(cfg.Model, cfg.APIKey, cfg.MaxRetries)
	if err != nil {
		return err
	}

	renderer, err := newRenderer(renderCfg)
	if err != nil {
		return err
	}

	store, err := history.NewStore(cfg.RunsDir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctrl := &refine.Controller{
		Generator:     generator,
		Renderer:      renderer,
		Recorder:      &history.Journal{Store: store, ReportsDir: cfg.ReportsDir},
		Kinds:         kinds,
		MaxIterations: cfg.MaxIterations,
		TargetScore:   cfg.TargetScore,
		DiagramsDir:   renderCfg.OutputDir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var failed int
	for _, slice := range slices {
		run, err := ctrl.Run(ctx, slice, os.Stdout)
		if err != nil {
			return err
		}
		fmt.Println(console.RunScorecard(run))
		if run.Outcome == types.OutcomeAborted {
			return fmt.Errorf("refinement aborted")
		}
		if _, ok := run.FinalScore(); !ok || run.Outcome != types.OutcomeTargetReached {
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d slice(s) did not reach the target score\n", failed)
	}
	return nil
}

func filterSlices(slices []types.RequirementsSlice, name string) []types.RequirementsSlice {
	var out []types.RequirementsSlice
	for _, s := range slices {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

// refineConfig merges the config file (refine: and render: sections) with
// command-line flags; an explicitly set flag wins.
func refineConfig(cmd *cobra.Command) (types.RefineConfig, types.RenderConfig) {
	var pipe types.PipelineConfig
	_ = viper.Unmarshal(&pipe)
	cfg, render := pipe.Refine, pipe.Render

	flags := cmd.Flags()
	if v, _ := flags.GetInt("max-iterations"); flags.Changed("max-iterations") || cfg.MaxIterations == 0 {
		cfg.MaxIterations = v
	}
	if v, _ := flags.GetFloat64("target-score"); flags.Changed("target-score") || cfg.TargetScore == 0 {
		cfg.TargetScore = v
	}
	if v, _ := flags.GetStringSlice("kinds"); flags.Changed("kinds") {
		cfg.Kinds = v
	}
	if v, _ := flags.GetString("model"); flags.Changed("model") || cfg.Model == "" {
		cfg.Model = v
	}
	if v, _ := flags.GetString("api-key"); flags.Changed("api-key") {
		cfg.APIKey = v
	}
	if v, _ := flags.GetInt("max-retries"); flags.Changed("max-retries") || cfg.MaxRetries == 0 {
		cfg.MaxRetries = v
	}
	if v, _ := flags.GetString("reports-dir"); flags.Changed("reports-dir") || cfg.ReportsDir == "" {
		cfg.ReportsDir = v
	}
	if v, _ := flags.GetString("runs-dir"); flags.Changed("runs-dir") || cfg.RunsDir == "" {
		cfg.RunsDir = v
	}
	if v, _ := flags.GetString("render"); flags.Changed("render") || render.Backend == "" {
		render.Backend = types.RenderBackend(v)
	}
	if v, _ := flags.GetString("image"); flags.Changed("image") || render.Image == "" {
		render.Image = v
	}
	if v, _ := flags.GetString("diagrams-dir"); flags.Changed("diagrams-dir") || render.OutputDir == "" {
		render.OutputDir = v
	}
	return cfg, render
}

func parseKinds(raw []string) ([]types.ArtifactKind, error) {
	if len(raw) == 0 {
		return types.AllKinds(), nil
	}
	kinds := make([]types.ArtifactKind, 0, len(raw))
	for _, s := range raw {
		k, err := types.ParseKind(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func newRenderer(cfg types.RenderConfig) (plantuml.Renderer, error) {
	switch cfg.Backend {
	case types.RenderLocal:
		r := plantuml.NewLocal()
		if !r.Available() {
			return nil, fmt.Errorf("plantuml binary not found on PATH")
		}
		return r, nil
	case types.RenderContainer:
		return plantuml.DetectContainer(cfg.Image)
	case types.RenderAuto, "":
		return plantuml.Detect(cfg.Image)
	default:
		return nil, fmt.Errorf("unknown render backend %q: use auto, local, or container", cfg.Backend)
	}
}

func init() {
	refineCmd.Flags().String("slice", "", "refine only the named slice")
	refineCmd.Flags().StringSlice("kinds", nil, "diagram kinds per iteration: class, sequence, activity (default all)")
	refineCmd.Flags().Int("max-iterations", 5, "iteration budget per slice")
	refineCmd.Flags().Float64("target-score", 8, "validation score at which a slice is done")
	refineCmd.Flags().String("model", "", "Gemini model identifier")
	refineCmd.Flags().String("api-key", "", "Gemini API key (overrides .secrets/ and environment)")
	refineCmd.Flags().Int("max-retries", 3, "retries per model call")
	refineCmd.Flags().String("render", "auto", "PlantUML backend: auto, local, or container")
	refineCmd.Flags().String("image", plantuml.DefaultImage, "container image for the container backend")
	refineCmd.Flags().String("diagrams-dir", "diagrams", "directory for .puml sources and rendered images")
	refineCmd.Flags().String("reports-dir", "reports", "directory for per-iteration QA reports")
	refineCmd.Flags().String("runs-dir", "runs", "directory for the run history database")

	rootCmd.AddCommand(refineCmd)
}
