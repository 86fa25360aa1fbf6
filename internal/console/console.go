// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package console renders refinement results as styled terminal output.
// Implements: prd005-history (R6);
//
//	docs/ARCHITECTURE § Console Output.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pdiddy/design-engine/internal/history"
	"github.com/pdiddy/design-engine/pkg/types"
)

const barWidth = 20

var (
	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("6"))

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RunScorecard renders a sealed run: score progression with bars, outcome,
// and the feedback the run ended on.
func RunScorecard(run *types.RefinementRun) string {
	s := history.Summarize(run)
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(fmt.Sprintf("REFINEMENT RUN: %s", s.SliceName)))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("Run: %s    Outcome: %s    Target: %.1f/10", s.RunID, s.Outcome, run.TargetScore)))
	sb.WriteString("\n\n")

	sb.WriteString(headerStyle.Render("SCORE PROGRESSION"))
	sb.WriteString("\n")
	for _, p := range s.Progression {
		if p.Score == nil {
			sb.WriteString(mutedStyle.Render(fmt.Sprintf("  v%-2d %s  unscored", p.Iteration, strings.Repeat("░", barWidth))))
			sb.WriteString("\n")
			continue
		}
		line := fmt.Sprintf("  v%-2d %s  %4.1f/10%s", p.Iteration, scoreBar(*p.Score), *p.Score, deltaLabel(p.Delta))
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if s.FinalScore != nil {
		sb.WriteString("\n")
		label := fmt.Sprintf("FINAL SCORE: %.1f/10", *s.FinalScore)
		if *s.FinalScore >= run.TargetScore {
			sb.WriteString(successStyle.Render(label))
		} else {
			sb.WriteString(warningStyle.Render(label))
		}
		sb.WriteString("\n")
	}

	if len(s.ResidualGaps) > 0 {
		sb.WriteString("\n")
		sb.WriteString(headerStyle.Render("REMAINING GAPS"))
		sb.WriteString("\n")
		for _, g := range s.ResidualGaps {
			sb.WriteString(warningStyle.Render("  ! " + g))
			sb.WriteString("\n")
		}
	}
	if len(s.ResidualRecommendations) > 0 {
		sb.WriteString("\n")
		sb.WriteString(headerStyle.Render("OPEN RECOMMENDATIONS"))
		sb.WriteString("\n")
		for i, r := range s.ResidualRecommendations {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, r)
		}
	}

	return boxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

// RunList renders stored runs as a compact table, most recent first.
func RunList(listings []history.RunListing) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render("STORED RUNS"))
	sb.WriteString("\n")
	if len(listings) == 0 {
		sb.WriteString(mutedStyle.Render("  none"))
		return boxStyle.Render(sb.String())
	}

	fmt.Fprintf(&sb, "  %-40s %-24s %5s %6s\n", "RUN", "OUTCOME", "ITERS", "SCORE")
	for _, l := range listings {
		score := "  -"
		if l.FinalScore != nil {
			score = fmt.Sprintf("%.1f", *l.FinalScore)
		}
		fmt.Fprintf(&sb, "  %-40s %-24s %5d %6s\n", l.ID, l.Outcome, l.Iterations, score)
	}

	return boxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}

// scoreBar renders a 0-10 score as a colored bar.
func scoreBar(score float64) string {
	filled := int(score / 10 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	switch {
	case score >= 9:
		return successStyle.Render(bar)
	case score >= 7:
		return warningStyle.Render(bar)
	default:
		return errorStyle.Render(bar)
	}
}

func deltaLabel(d *float64) string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("  (%+.1f)", *d)
}
