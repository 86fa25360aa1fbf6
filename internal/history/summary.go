// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/design-engine/pkg/types"
)

// ScorePoint is one iteration's place in a run's score progression.
type ScorePoint struct {
	Iteration int
	Score     *float64 // nil when the iteration was unscored
	Delta     *float64
}

// Summary condenses a sealed run: how the score moved, where it ended, and
// what feedback was still open at the end.
type Summary struct {
	RunID       string
	SliceName   string
	Outcome     types.Outcome
	Iterations  int
	FinalScore  *float64
	Progression []ScorePoint

	// ResidualGaps and ResidualRecommendations come from the last scored
	// iteration: the feedback the run ended on.
	ResidualGaps            []string
	ResidualRecommendations []string
}

// Summarize derives a summary from a run. Pure: calling it twice on the same
// run yields the same summary.
func Summarize(run *types.RefinementRun) Summary {
	s := Summary{
		RunID:      run.ID,
		SliceName:  run.Slice.Name,
		Outcome:    run.Outcome,
		Iterations: len(run.History),
	}

	for _, rec := range run.History {
		point := ScorePoint{Iteration: rec.Index, Delta: rec.Delta}
		if rec.Metrics != nil {
			v := rec.Metrics.Overall
			point.Score = &v
		}
		s.Progression = append(s.Progression, point)
	}

	if m := run.LastMetrics(); m != nil {
		v := m.Overall
		s.FinalScore = &v
		s.ResidualGaps = append([]string(nil), m.Gaps...)
		s.ResidualRecommendations = append([]string(nil), m.Recommendations...)
	}
	return s
}

// WriteRunSummary renders the summary as Markdown into
// reportsDir/<runID>_summary.md.
func WriteRunSummary(reportsDir string, run *types.RefinementRun) (string, error) {
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}
	path := filepath.Join(reportsDir, run.ID+"_summary.md")
	if err := os.WriteFile(path, []byte(renderSummary(Summarize(run))), 0o644); err != nil {
		return "", fmt.Errorf("writing summary %s: %w", path, err)
	}
	return path, nil
}

func renderSummary(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Refinement Run Summary: %s\n", s.SliceName)
	fmt.Fprintf(&b, "**Run:** %s\n", s.RunID)
	fmt.Fprintf(&b, "**Outcome:** %s\n", s.Outcome)
	fmt.Fprintf(&b, "**Iterations:** %d\n", s.Iterations)
	if s.FinalScore != nil {
		fmt.Fprintf(&b, "**Final Score:** %.1f/10\n", *s.FinalScore)
	} else {
		b.WriteString("**Final Score:** none (no iteration produced a parseable report)\n")
	}

	b.WriteString("\n## Score Progression\n")
	for _, p := range s.Progression {
		if p.Score == nil {
			fmt.Fprintf(&b, "- v%d: unscored\n", p.Iteration)
			continue
		}
		if p.Delta != nil {
			fmt.Fprintf(&b, "- v%d: %.1f (%+.1f)\n", p.Iteration, *p.Score, *p.Delta)
		} else {
			fmt.Fprintf(&b, "- v%d: %.1f\n", p.Iteration, *p.Score)
		}
	}

	if len(s.ResidualGaps) > 0 {
		b.WriteString("\n## Remaining Gaps\n")
		for _, g := range s.ResidualGaps {
			fmt.Fprintf(&b, "- %s\n", g)
		}
	}
	if len(s.ResidualRecommendations) > 0 {
		b.WriteString("\n## Open Recommendations\n")
		for i, r := range s.ResidualRecommendations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
	}
	return b.String()
}
