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

	"github.com/pdiddy/design-engine/internal/srs"
	"github.com/pdiddy/design-engine/pkg/types"
)

var srsCmd = &cobra.Command{
	Use:   "srs",
	Short: "Author and audit SRS documents",
	Long: `SRS covers requirements-document workflows: improve drafts an SRS from a
user requirements document and revises it until an audit pass finds no
problems; slice previews how a document splits into refinement slices.`,
}

// --- improve subcommand ---

var srsImproveCmd = &cobra.Command{
	Use:   "improve [urd-file]",
	Short: "Draft an SRS from a URD and revise it until the audit is clean",
	Long: `Improve drafts an SRS from the user requirements document, audits it
against the URD (and optionally a reference standard), and revises it to
address the audit findings. The loop repeats until the audit reports the
target problem count or the version budget runs out.

Each version is written to the output directory as SRS_vN.md with its
audit report as SRSVR_vN.md. The URD path may come from the argument or
the config file's srs.urd_file key.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSRSImprove,
}

func runSRSImprove(cmd *cobra.Command, args []string) error {
	cfg := srsConfig(cmd)
	if len(args) > 0 {
		cfg.URDFile = args[0]
	}
	if cfg.URDFile == "" {
		return fmt.Errorf("no URD: pass a file argument or set srs.urd_file in the config")
	}

	urd, err := os.ReadFile(cfg.URDFile)
	if err != nil {
		return fmt.Errorf("reading URD: %w", err)
	}

	reference := ""
	if cfg.ReferenceFile != "" {
		data, err := os.ReadFile(cfg.ReferenceFile)
		if err != nil {
			return fmt.Errorf("reading reference standard: %w", err)
		}
		reference = string(data)
	}

	generator, err := newGenerator(cfg.Model, cfg.APIKey, cfg.MaxRetries)
	if err != nil {
		return err
	}

	im := &srs.Improver{
		Generator:     generator,
		MaxIterations: cfg.MaxIterations,
		TargetErrors:  cfg.TargetErrors,
		OutputDir:     cfg.OutputDir,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := im.Run(ctx, string(urd), reference, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("final SRS: %s (v%d, %d problem(s))\n", res.SRSPath, res.FinalVersion, res.FinalErrors)
	if !res.TargetReached {
		return fmt.Errorf("audit target not reached: %d problem(s) remain after v%d", res.FinalErrors, res.FinalVersion)
	}
	return nil
}

// srsConfig merges the config file's srs: section with command-line flags;
// an explicitly set flag wins.
func srsConfig(cmd *cobra.Command) types.SRSConfig {
	var pipe types.PipelineConfig
	_ = viper.Unmarshal(&pipe)
	cfg := pipe.SRS

	flags := cmd.Flags()
	if v, _ := flags.GetString("reference"); flags.Changed("reference") {
		cfg.ReferenceFile = v
	}
	if v, _ := flags.GetInt("max-iterations"); flags.Changed("max-iterations") || cfg.MaxIterations == 0 {
		cfg.MaxIterations = v
	}
	if v, _ := flags.GetInt("target-errors"); flags.Changed("target-errors") {
		cfg.TargetErrors = v
	}
	if v, _ := flags.GetString("output-dir"); flags.Changed("output-dir") || cfg.OutputDir == "" {
		cfg.OutputDir = v
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
	return cfg
}

// --- slice subcommand ---

var srsSliceCmd = &cobra.Command{
	Use:   "slice [requirements-file]",
	Short: "Preview how a requirements document splits into slices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading requirements file: %w", err)
		}
		slices := srs.SliceDocument(string(content))
		if len(slices) == 0 {
			return fmt.Errorf("no requirements slices found in %s", args[0])
		}
		for _, s := range slices {
			fmt.Printf("%-40s %d bytes\n", s.Name, len(s.Text))
		}
		return nil
	},
}

func init() {
	srsImproveCmd.Flags().String("reference", "", "path to a reference requirements standard")
	srsImproveCmd.Flags().Int("max-iterations", 10, "maximum SRS versions to produce")
	srsImproveCmd.Flags().Int("target-errors", 0, "audit problem count at which the loop stops")
	srsImproveCmd.Flags().String("output-dir", "output", "directory for SRS versions and audit reports")
	srsImproveCmd.Flags().String("model", "", "Gemini model identifier")
	srsImproveCmd.Flags().String("api-key", "", "Gemini API key (overrides .secrets/ and environment)")
	srsImproveCmd.Flags().Int("max-retries", 3, "retries per model call")

	srsCmd.AddCommand(srsImproveCmd)
	srsCmd.AddCommand(srsSliceCmd)
	rootCmd.AddCommand(srsCmd)
}
