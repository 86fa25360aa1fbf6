// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package srs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/pdiddy/design-engine/internal/prompt"
)

const (
	defaultMaxIterations = 10
)

// errorTagPattern matches the machine-readable problem count the validation
// prompt mandates at the end of every audit report.
var errorTagPattern = regexp.MustCompile(`<errors:\s*(\d+)>`)

// ExtractErrorCount reads the <errors: N> tag from a validation report. A
// report without the tag is an error: the loop must not guess at
// convergence.
func ExtractErrorCount(report string) (int, error) {
	m := errorTagPattern.FindStringSubmatch(report)
	if m == nil {
		return 0, fmt.Errorf("validation report has no <errors: N> tag")
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("parsing error count %q: %w", m[1], err)
	}
	return n, nil
}

// TextGenerator abstracts the generative model so tests can supply a mock.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Improver drives the SRS authoring loop: draft an SRS from a URD, audit it,
// and revise until the audit's problem count reaches the target or the
// iteration budget runs out. Every version and audit report is written to
// OutputDir as SRS_vN.md and SRSVR_vN.md.
type Improver struct {
	Generator TextGenerator

	// MaxIterations bounds the loop; zero means the default budget.
	MaxIterations int

	// TargetErrors is the problem count at which the loop stops. Zero (the
	// useful default) demands a clean audit.
	TargetErrors int

	// OutputDir receives the versioned SRS and report files.
	OutputDir string
}

// Result summarizes an improvement run.
type Result struct {
	FinalVersion  int
	FinalErrors   int
	TargetReached bool
	SRSPath       string
	ReportPath    string
}

// Run executes the improvement loop for one URD. reference optionally
// carries a requirements standard the SRS should follow; empty disables it.
func (im *Improver) Run(ctx context.Context, urd, reference string, w io.Writer) (Result, error) {
	maxIter := im.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}
	if err := os.MkdirAll(im.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating output directory: %w", err)
	}

	fmt.Fprintf(w, "drafting SRS v1 (target %d problem(s), budget %d version(s))\n", im.TargetErrors, maxIter)
	current, err := im.Generator.Generate(ctx, prompt.SRSGeneration(urd, reference))
	if err != nil {
		return Result{}, fmt.Errorf("drafting SRS: %w", err)
	}

	version := 1
	srsPath, err := im.writeVersion("SRS", version, current)
	if err != nil {
		return Result{}, err
	}

	var res Result
	previousReport := ""

	for {
		fmt.Fprintf(w, "auditing SRS v%d\n", version)
		report, err := im.Generator.Generate(ctx, prompt.SRSValidation(urd, current, reference, previousReport))
		if err != nil {
			return Result{}, fmt.Errorf("auditing SRS v%d: %w", version, err)
		}
		reportPath, err := im.writeVersion("SRSVR", version, report)
		if err != nil {
			return Result{}, err
		}

		count, err := ExtractErrorCount(report)
		if err != nil {
			return Result{}, fmt.Errorf("audit of SRS v%d: %w", version, err)
		}
		fmt.Fprintf(w, "audit found %d problem(s)\n", count)

		res = Result{
			FinalVersion: version,
			FinalErrors:  count,
			SRSPath:      srsPath,
			ReportPath:   reportPath,
		}

		if count <= im.TargetErrors {
			res.TargetReached = true
			fmt.Fprintf(w, "target reached at v%d\n", version)
			return res, nil
		}
		if version >= maxIter {
			fmt.Fprintf(w, "iteration budget exhausted at v%d with %d problem(s) remaining\n", version, count)
			return res, nil
		}

		version++
		fmt.Fprintf(w, "revising SRS v%d -> v%d\n", version-1, version)
		current, err = im.Generator.Generate(ctx, prompt.SRSReview(current, report))
		if err != nil {
			return res, fmt.Errorf("revising SRS to v%d: %w", version, err)
		}
		if srsPath, err = im.writeVersion("SRS", version, current); err != nil {
			return res, err
		}
		previousReport = report
	}
}

func (im *Improver) writeVersion(kind string, version int, content string) (string, error) {
	path := filepath.Join(im.OutputDir, fmt.Sprintf("%s_v%d.md", kind, version))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
