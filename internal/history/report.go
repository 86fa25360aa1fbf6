// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/design-engine/pkg/types"
)

// knownSubScores orders the standard sub-score labels in reports; any other
// labels follow alphabetically.
var knownSubScores = []string{"overall", "scope_adherence", "consistency", "completeness", "quality"}

// WriteIterationReport renders one iteration's QA report as Markdown and
// writes it to reportsDir/qa_report_<slice>_v<n>.md. Unscored iterations get
// a stub report so the file sequence stays dense.
func WriteIterationReport(reportsDir, sliceName string, rec types.IterationRecord) (string, error) {
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating reports directory: %w", err)
	}

	path := filepath.Join(reportsDir, fmt.Sprintf("qa_report_%s_v%d.md", sliceName, rec.Index))
	content := renderIterationReport(sliceName, rec)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing report %s: %w", path, err)
	}
	return path, nil
}

func renderIterationReport(sliceName string, rec types.IterationRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# QA Validation Report - Iteration %d\n", rec.Index)
	fmt.Fprintf(&b, "**Slice:** %s\n", sliceName)
	fmt.Fprintf(&b, "**Version:** v%d\n\n", rec.Index)

	b.WriteString("## Artifacts\n")
	for _, a := range rec.Attempts {
		switch {
		case !a.Generated():
			fmt.Fprintf(&b, "- %s: not generated (%s)\n", a.Kind, a.FailureReason)
		case !a.Compiled():
			fmt.Fprintf(&b, "- %s: compile failed (%s)\n", a.Kind, a.FailureReason)
		default:
			fmt.Fprintf(&b, "- %s: %s\n", a.Kind, a.RenderedPath)
		}
	}

	m := rec.Metrics
	if m == nil {
		b.WriteString("\n## Validation Scores\nThe validation report for this iteration could not be parsed; the iteration counted against the budget without a score.\n")
		return b.String()
	}

	b.WriteString("\n## Validation Scores\n")
	fmt.Fprintf(&b, "- **Overall Score:** %.1f/10\n", m.Overall)
	for _, key := range subScoreOrder(m.SubScores) {
		fmt.Fprintf(&b, "- **%s Score:** %.1f/10\n", titleize(key), m.SubScores[key])
	}
	if rec.Delta != nil {
		fmt.Fprintf(&b, "- **Change vs previous iteration:** %+.1f\n", *rec.Delta)
	}

	if p := m.Penalty; p != nil && p.Deducted > 0 {
		b.WriteString("\n## Penalty System Applied\n")
		fmt.Fprintf(&b, "- **Reported Score:** %.1f/10\n", p.ReportedScore)
		fmt.Fprintf(&b, "- **Penalties Applied:** -%.1f points\n", p.Deducted)
		fmt.Fprintf(&b, "- **Final Score:** %.1f/10\n", m.Overall)
		b.WriteString("\n### Penalty Breakdown\n")
		for _, note := range p.Notes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}

	b.WriteString("\n## Gap Analysis\n")
	if len(m.Gaps) == 0 {
		b.WriteString("No gaps identified.\n")
	}
	for _, gap := range m.Gaps {
		fmt.Fprintf(&b, "- %s\n", gap)
	}

	b.WriteString("\n## Recommendations\n")
	if len(m.Recommendations) == 0 {
		b.WriteString("No specific recommendations provided.\n")
	}
	for i, rec := range m.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}

	return b.String()
}

// subScoreOrder lists sub-score keys with the standard labels first.
func subScoreOrder(subs map[string]float64) []string {
	rank := make(map[string]int, len(knownSubScores))
	for i, k := range knownSubScores {
		rank[k] = i
	}

	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iKnown := rank[keys[i]]
		rj, jKnown := rank[keys[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// titleize turns a normalized label key back into a display label
// ("scope_adherence" -> "Scope Adherence").
func titleize(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
