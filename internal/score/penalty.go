// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package score

import (
	"fmt"
	"strings"

	"github.com/pdiddy/design-engine/pkg/types"
)

// Penalty points per artifact, floor 0 on the adjusted score (R4.1).
const (
	missingPenalty = 5.0
	failedPenalty  = 3.0
)

// ApplyAttemptPenalties deducts points from a parsed metrics record for
// artifacts that were never generated (no source text) or failed to
// compile. The validator's reported score and the deduction breakdown are
// preserved on the returned record, and a summary note is prepended to the
// gaps so the next generation prompt restates it. The input record is not
// modified; with nothing to deduct it is returned unchanged.
func ApplyAttemptPenalties(m types.MetricsRecord, attempts []types.ArtifactAttempt) types.MetricsRecord {
	var missing, failed []string
	for _, a := range attempts {
		switch {
		case !a.Generated():
			missing = append(missing, string(a.Kind))
		case !a.Compiled():
			failed = append(failed, string(a.Kind))
		}
	}

	deducted := missingPenalty*float64(len(missing)) + failedPenalty*float64(len(failed))
	if deducted == 0 {
		return m
	}

	var notes []string
	if len(missing) > 0 {
		notes = append(notes, fmt.Sprintf("-%g points: %d missing diagram(s) - %s",
			missingPenalty*float64(len(missing)), len(missing), strings.Join(missing, ", ")))
	}
	if len(failed) > 0 {
		notes = append(notes, fmt.Sprintf("-%g points: %d diagram(s) failed to compile - %s",
			failedPenalty*float64(len(failed)), len(failed), strings.Join(failed, ", ")))
	}

	adjusted := m.Overall - deducted
	if adjusted < 0 {
		adjusted = 0
	}

	out := m
	out.Overall = adjusted
	out.Penalty = &types.PenaltyAdjustment{
		ReportedScore: m.Overall,
		Deducted:      deducted,
		Notes:         notes,
	}
	out.Gaps = append(
		[]string{fmt.Sprintf("[penalties applied: %s]", strings.Join(notes, "; "))},
		m.Gaps...,
	)
	return out
}
