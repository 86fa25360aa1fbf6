// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refine drives the iterative diagram refinement loop: generate one
// artifact per kind, render each, validate them jointly, fold the feedback
// into the next iteration's prompts, and stop on target score, iteration
// budget, or cancellation.
// Implements: prd001-refinement (R1-R6);
//
//	docs/ARCHITECTURE § Refinement Controller.
package refine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/pdiddy/design-engine/internal/plantuml"
	"github.com/pdiddy/design-engine/internal/prompt"
	"github.com/pdiddy/design-engine/internal/score"
	"github.com/pdiddy/design-engine/pkg/types"
)

const (
	defaultMaxIterations = 5
	defaultTargetScore   = 8.0
)

// TextGenerator abstracts the generative model so tests can supply a mock.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// DiagramRenderer compiles diagram source text to an image on disk.
type DiagramRenderer interface {
	Render(dir, name, source string) (plantuml.Rendered, error)
}

// Recorder persists run state as the loop progresses. Implementations must
// tolerate being called once per iteration plus once at sealing.
type Recorder interface {
	// Append stores one completed iteration of the given run.
	Append(ctx context.Context, run *types.RefinementRun, rec types.IterationRecord) error

	// Finalize stores the sealed run's terminal state.
	Finalize(ctx context.Context, run *types.RefinementRun) error
}

// Controller owns a refinement run exclusively: it is the only writer of the
// run's history, and each run is sealed exactly once.
type Controller struct {
	Generator TextGenerator
	Renderer  DiagramRenderer
	Recorder  Recorder // optional; nil disables persistence

	// Kinds requested each iteration; defaults to all supported kinds.
	Kinds []types.ArtifactKind

	// MaxIterations bounds the loop; zero means the default budget.
	MaxIterations int

	// TargetScore stops the run early when reached; zero means the default.
	TargetScore float64

	// DiagramsDir receives the .puml and .png files for every attempt.
	DiagramsDir string
}

// Run refines diagrams for one requirements slice until the target score is
// reached, the iteration budget runs out, or ctx is cancelled. The returned
// run is always sealed; cancellation seals it as aborted with history ending
// at the last fully completed iteration. A non-nil error means persistence
// failed, never that the loop converged slowly.
func (c *Controller) Run(ctx context.Context, slice types.RequirementsSlice, w io.Writer) (*types.RefinementRun, error) {
	kinds := c.Kinds
	if len(kinds) == 0 {
		kinds = types.AllKinds()
	}
	maxIter := c.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	target := c.TargetScore
	if target <= 0 {
		target = defaultTargetScore
	}

	started := time.Now().UTC()
	run := &types.RefinementRun{
		ID:            fmt.Sprintf("%s-%s", slice.Name, started.Format("20060102-150405")),
		Slice:         slice,
		Kinds:         kinds,
		MaxIterations: maxIter,
		TargetScore:   target,
		Started:       started,
	}

	for iter := 1; iter <= maxIter; iter++ {
		if ctx.Err() != nil {
			return c.seal(ctx, run, types.OutcomeAborted, w)
		}

		// Feedback comes from the most recent scored iteration, so a wasted
		// (unparseable) iteration does not blank out the corrections.
		prior := run.LastMetrics()

		fmt.Fprintf(w, "iteration %d/%d: generating %d diagrams for %s\n", iter, maxIter, len(kinds), slice.Name)

		attempts := make([]types.ArtifactAttempt, len(kinds))
		var wg conc.WaitGroup
		for i, kind := range kinds {
			wg.Go(func() {
				attempts[i] = c.attempt(ctx, slice, kind, prior, iter)
			})
		}
		wg.Wait()

		if ctx.Err() != nil {
			return c.seal(ctx, run, types.OutcomeAborted, w)
		}

		for _, a := range attempts {
			switch {
			case !a.Generated():
				fmt.Fprintf(w, "  %s: generation failed: %s\n", a.Kind, a.FailureReason)
			case !a.Compiled():
				fmt.Fprintf(w, "  %s: compile failed: %s\n", a.Kind, a.FailureReason)
			default:
				fmt.Fprintf(w, "  %s: rendered %s\n", a.Kind, a.RenderedPath)
			}
		}

		rec := types.IterationRecord{Index: iter, Attempts: attempts}
		rec.Metrics = c.validate(ctx, slice, attempts, w)

		// Cancellation that cut the validation short discards the partial
		// iteration; a fully scored iteration is kept even when cancellation
		// lands immediately after it.
		if ctx.Err() != nil && rec.Metrics == nil {
			return c.seal(ctx, run, types.OutcomeAborted, w)
		}

		if rec.Metrics != nil {
			if prev := lastIterationMetrics(run); prev != nil {
				d := rec.Metrics.Overall - prev.Overall
				rec.Delta = &d
			}
		}

		run.History = append(run.History, rec)
		if c.Recorder != nil {
			if err := c.Recorder.Append(ctx, run, rec); err != nil {
				return run, fmt.Errorf("recording iteration %d: %w", iter, err)
			}
		}

		if rec.Metrics != nil {
			fmt.Fprintf(w, "  score %.1f/%.1f%s\n", rec.Metrics.Overall, target, deltaSuffix(rec.Delta))
			if rec.Metrics.Overall >= target {
				return c.seal(ctx, run, types.OutcomeTargetReached, w)
			}
		}
	}

	return c.seal(ctx, run, types.OutcomeMaxIterations, w)
}

// attempt generates and renders one artifact kind. Failures are captured in
// the attempt rather than aborting the iteration; the validator is told about
// them so its score reflects the full picture.
func (c *Controller) attempt(ctx context.Context, slice types.RequirementsSlice, kind types.ArtifactKind, prior *types.MetricsRecord, iter int) types.ArtifactAttempt {
	a := types.ArtifactAttempt{Kind: kind, Status: types.CompileFailed}

	resp, err := c.Generator.Generate(ctx, prompt.Synthesize(slice, kind, prior))
	if err != nil {
		a.FailureReason = err.Error()
		return a
	}
	a.Source = plantuml.ExtractBlock(resp)

	name := fmt.Sprintf("%s_v%d_%s_diagram", slice.Name, iter, kind)
	rendered, err := c.Renderer.Render(c.DiagramsDir, name, a.Source)
	a.SourcePath = rendered.SourcePath
	if err != nil {
		a.FailureReason = err.Error()
		return a
	}

	a.Status = types.CompileSucceeded
	a.RenderedPath = rendered.ImagePath
	return a
}

// validate runs the joint validation call and parses its report. A failed
// call or an unparseable report yields nil metrics; the iteration still
// counts against the budget.
func (c *Controller) validate(ctx context.Context, slice types.RequirementsSlice, attempts []types.ArtifactAttempt, w io.Writer) *types.MetricsRecord {
	report, err := c.Generator.Generate(ctx, prompt.Validation(slice, attempts))
	if err != nil {
		fmt.Fprintf(w, "  validation call failed: %v\n", err)
		return nil
	}

	m, err := score.Extract(report)
	if err != nil {
		fmt.Fprintf(w, "  validation report unparseable: %v\n", err)
		return nil
	}

	m = score.ApplyAttemptPenalties(m, attempts)
	return &m
}

// seal marks the run terminal, persists it, and reports the outcome.
func (c *Controller) seal(ctx context.Context, run *types.RefinementRun, outcome types.Outcome, w io.Writer) (*types.RefinementRun, error) {
	run.Outcome = outcome
	run.Completed = time.Now().UTC()

	switch outcome {
	case types.OutcomeTargetReached:
		s, _ := run.FinalScore()
		fmt.Fprintf(w, "target reached: %.1f after %d iteration(s)\n", s, len(run.History))
	case types.OutcomeMaxIterations:
		if s, ok := run.FinalScore(); ok {
			fmt.Fprintf(w, "iteration budget exhausted: best score %.1f\n", s)
		} else {
			fmt.Fprintf(w, "iteration budget exhausted without a scored iteration\n")
		}
	case types.OutcomeAborted:
		fmt.Fprintf(w, "run aborted after %d completed iteration(s)\n", len(run.History))
	}

	if c.Recorder != nil {
		// Persist the terminal state even when sealing on cancellation.
		if err := c.Recorder.Finalize(context.WithoutCancel(ctx), run); err != nil {
			return run, fmt.Errorf("finalizing run %s: %w", run.ID, err)
		}
	}
	return run, nil
}

// lastIterationMetrics returns the metrics of the immediately preceding
// iteration, nil when it was unscored. Distinct from RefinementRun.LastMetrics:
// the delta compares adjacent iterations only.
func lastIterationMetrics(run *types.RefinementRun) *types.MetricsRecord {
	if len(run.History) == 0 {
		return nil
	}
	return run.History[len(run.History)-1].Metrics
}

func deltaSuffix(d *float64) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf(" (%+.1f)", *d)
}
