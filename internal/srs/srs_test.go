// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package srs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSliceDocument(t *testing.T) {
	doc := `Some introductory text.

## User Authentication
Users shall register and log in.

### Password Reset
Users can reset passwords via email.

## Vehicle Monitoring
The system shall display battery level.
`
	slices := SliceDocument(doc)
	if len(slices) != 4 {
		t.Fatalf("slices = %d, want 4", len(slices))
	}

	wantNames := []string{"preamble", "user-authentication", "password-reset", "vehicle-monitoring"}
	for i, want := range wantNames {
		if slices[i].Name != want {
			t.Errorf("slice %d name = %q, want %q", i, slices[i].Name, want)
		}
	}
	if !strings.Contains(slices[1].Text, "register and log in") {
		t.Errorf("slice text = %q", slices[1].Text)
	}
}

func TestSliceDocumentDuplicateHeadings(t *testing.T) {
	doc := "## Billing\nfirst\n## Billing\nsecond\n"
	slices := SliceDocument(doc)
	if len(slices) != 2 {
		t.Fatalf("slices = %d, want 2", len(slices))
	}
	if slices[0].Name != "billing" || slices[1].Name != "billing-2" {
		t.Errorf("names = %q, %q", slices[0].Name, slices[1].Name)
	}
}

func TestSliceDocumentSkipsEmptySections(t *testing.T) {
	doc := "## Empty Section\n\n## Real Section\ncontent\n"
	slices := SliceDocument(doc)
	if len(slices) != 1 {
		t.Fatalf("slices = %d, want 1", len(slices))
	}
	if slices[0].Name != "real-section" {
		t.Errorf("name = %q", slices[0].Name)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"User Authentication", "user-authentication"},
		{"3.2 Charging / Billing!", "3-2-charging-billing"},
		{"  Spaces  Everywhere  ", "spaces-everywhere"},
	}
	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractErrorCount(t *testing.T) {
	tests := []struct {
		name    string
		report  string
		want    int
		wantErr bool
	}{
		{name: "plain tag", report: "analysis...\n<errors: 3>", want: 3},
		{name: "zero", report: "clean audit\n<errors:0>", want: 0},
		{name: "extra spacing", report: "<errors:  12>", want: 12},
		{name: "missing tag", report: "I found several problems.", wantErr: true},
		{name: "empty report", report: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractErrorCount(tt.report)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("count = %d, want %d", got, tt.want)
			}
		})
	}
}

// srsScript answers drafting, audit, and revision prompts from queues.
type srsScript struct {
	drafts  []string
	reports []string
}

func (s *srsScript) Generate(_ context.Context, p string) (string, error) {
	switch {
	case strings.Contains(p, "Generate the SRS Validation Report"):
		if len(s.reports) == 0 {
			return "", errors.New("report script exhausted")
		}
		r := s.reports[0]
		s.reports = s.reports[1:]
		return r, nil
	default: // drafting and revision both emit an SRS
		if len(s.drafts) == 0 {
			return "", errors.New("draft script exhausted")
		}
		d := s.drafts[0]
		s.drafts = s.drafts[1:]
		return d, nil
	}
}

func TestImproverConverges(t *testing.T) {
	dir := t.TempDir()
	im := &Improver{
		Generator: &srsScript{
			drafts:  []string{"SRS draft one", "SRS draft two"},
			reports: []string{"two problems found\n<errors: 2>", "clean\n<errors: 0>"},
		},
		MaxIterations: 5,
		OutputDir:     dir,
	}

	res, err := im.Run(context.Background(), "the urd", "", io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TargetReached {
		t.Error("target should be reached")
	}
	if res.FinalVersion != 2 || res.FinalErrors != 0 {
		t.Errorf("result = %+v, want version 2 errors 0", res)
	}

	for _, name := range []string{"SRS_v1.md", "SRSVR_v1.md", "SRS_v2.md", "SRSVR_v2.md"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	data, _ := os.ReadFile(res.SRSPath)
	if string(data) != "SRS draft two" {
		t.Errorf("final SRS content = %q", data)
	}
}

func TestImproverExhaustsBudget(t *testing.T) {
	im := &Improver{
		Generator: &srsScript{
			drafts:  []string{"v1", "v2"},
			reports: []string{"<errors: 4>", "<errors: 3>"},
		},
		MaxIterations: 2,
		OutputDir:     t.TempDir(),
	}

	res, err := im.Run(context.Background(), "urd", "ref", io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TargetReached {
		t.Error("target should not be reached")
	}
	if res.FinalVersion != 2 || res.FinalErrors != 3 {
		t.Errorf("result = %+v, want version 2 errors 3", res)
	}
}

func TestImproverMissingTagFailsLoudly(t *testing.T) {
	im := &Improver{
		Generator: &srsScript{
			drafts:  []string{"v1"},
			reports: []string{"a report without the tag"},
		},
		OutputDir: t.TempDir(),
	}

	_, err := im.Run(context.Background(), "urd", "", io.Discard)
	if err == nil {
		t.Fatal("expected error for missing tag")
	}
	if !strings.Contains(err.Error(), "<errors: N> tag") {
		t.Errorf("error should name the missing tag, got: %v", err)
	}
}

func TestImproverNonZeroTarget(t *testing.T) {
	im := &Improver{
		Generator: &srsScript{
			drafts:  []string{"v1"},
			reports: []string{"<errors: 2>"},
		},
		TargetErrors: 3,
		OutputDir:    t.TempDir(),
	}

	res, err := im.Run(context.Background(), "urd", "", io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.TargetReached || res.FinalVersion != 1 {
		t.Errorf("result = %+v, want target reached at v1", res)
	}
}
