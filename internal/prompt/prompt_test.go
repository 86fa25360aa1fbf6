// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"strings"
	"testing"

	"github.com/pdiddy/design-engine/pkg/types"
)

var testSlice = types.RequirementsSlice{
	Name: "charging-management",
	Text: "The app shall schedule charging sessions and notify the user on completion.",
}

func TestSynthesizeBaseline(t *testing.T) {
	tests := []struct {
		kind     types.ArtifactKind
		wantSubs []string
	}{
		{types.KindClass, []string{"Class Diagram", "multiplicity", "@startuml"}},
		{types.KindSequence, []string{"Sequence Diagram", "autonumber", "alt/else"}},
		{types.KindActivity, []string{"Activity Diagram", "start", "endif"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := Synthesize(testSlice, tt.kind, nil)
			for _, sub := range tt.wantSubs {
				if !strings.Contains(got, sub) {
					t.Errorf("prompt missing %q", sub)
				}
			}
			if !strings.Contains(got, testSlice.Text) {
				t.Error("prompt does not embed the slice text")
			}
			// The scoping instruction names the slice boundary.
			if !strings.Contains(got, `"charging-management"`) {
				t.Error("prompt does not name the slice boundary")
			}
			if !strings.Contains(got, "other requirement slices") {
				t.Error("prompt lacks the slice-scoping instruction")
			}
		})
	}
}

func TestSynthesizeEmptySliceText(t *testing.T) {
	// Synthesis has no validation responsibility; an empty slice still
	// produces a prompt.
	got := Synthesize(types.RequirementsSlice{Name: "empty"}, types.KindClass, nil)
	if got == "" {
		t.Fatal("expected a prompt for an empty slice")
	}
}

func TestSynthesizeCarriesAllFeedback(t *testing.T) {
	prior := &types.MetricsRecord{
		Overall: 6.5,
		Gaps: []string{
			"PaymentProcessor class is missing",
			"No error path for declined cards",
			"ChargingSession lacks a state attribute",
		},
		Recommendations: []string{
			"Add multiplicity to the User-Session relationship",
			"Model the notification flow",
		},
	}

	got := Synthesize(testSlice, types.KindClass, prior)

	// Completeness round-trip: every gap and recommendation appears verbatim.
	for _, item := range append(append([]string{}, prior.Gaps...), prior.Recommendations...) {
		if !strings.Contains(got, item) {
			t.Errorf("prompt dropped feedback item %q", item)
		}
	}
	if !strings.Contains(got, "6.5/10") {
		t.Error("prompt does not state the prior score")
	}

	// Ordering must match the record's (assumed priority) order.
	last := -1
	for _, item := range prior.Gaps {
		idx := strings.Index(got, item)
		if idx < last {
			t.Errorf("gap %q out of order", item)
		}
		last = idx
	}
}

func TestSynthesizeWithoutPriorOmitsCorrections(t *testing.T) {
	got := Synthesize(testSlice, types.KindClass, nil)
	if strings.Contains(got, "MANDATORY CORRECTIONS") {
		t.Error("baseline prompt must not contain a corrections section")
	}
}

func TestValidationIncludesAllAttempts(t *testing.T) {
	attempts := []types.ArtifactAttempt{
		{Kind: types.KindClass, Source: "@startuml\nclass A\n@enduml", Status: types.CompileSucceeded},
		{Kind: types.KindSequence, Source: "@startuml\nbroken", Status: types.CompileFailed, FailureReason: "syntax error at line 2"},
		{Kind: types.KindActivity, Status: types.CompileFailed, FailureReason: "generation call failed"},
	}

	got := Validation(testSlice, attempts)

	if !strings.Contains(got, "class A") {
		t.Error("successful diagram source missing from validation prompt")
	}
	if !strings.Contains(got, "syntax error at line 2") {
		t.Error("compile failure reason missing from validation prompt")
	}
	if !strings.Contains(got, "Not generated (generation failed: generation call failed)") {
		t.Error("failed generation not annotated in validation prompt")
	}
	// Failed sources are still submitted as evidence.
	if !strings.Contains(got, "broken") {
		t.Error("failed compile source text missing from validation prompt")
	}
	for _, marker := range []string{"OVERALL SCORE:", "GAPS:", "RECOMMENDATIONS:"} {
		if !strings.Contains(got, marker) {
			t.Errorf("validation prompt missing output marker %q", marker)
		}
	}
}

func TestSRSPrompts(t *testing.T) {
	gen := SRSGeneration("users want X", "standard text")
	if !strings.Contains(gen, "users want X") || !strings.Contains(gen, "standard text") {
		t.Error("generation prompt missing inputs")
	}

	val := SRSValidation("urd text", "srs text", "", "old report")
	for _, sub := range []string{"urd text", "srs text", "old report", "<errors: N>"} {
		if !strings.Contains(val, sub) {
			t.Errorf("validation prompt missing %q", sub)
		}
	}

	valFirst := SRSValidation("urd", "srs", "", "")
	if strings.Contains(valFirst, "PREVIOUS VALIDATION REPORT") {
		t.Error("first-pass validation prompt must omit the previous-report section")
	}

	rev := SRSReview("srs body", "report body")
	if !strings.Contains(rev, "srs body") || !strings.Contains(rev, "report body") {
		t.Error("review prompt missing inputs")
	}
}
