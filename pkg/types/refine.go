// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"time"
)

// RequirementsSlice is a named, bounded fragment of a requirements document.
// It is the unit of diagram generation and validation: one refinement run
// operates on exactly one slice. Per prd001-refinement R1.1.
type RequirementsSlice struct {
	// Name identifies the slice within a run (e.g. "charging-management").
	Name string `json:"name" yaml:"name"`

	// Text is the raw requirements content for this slice.
	Text string `json:"text" yaml:"text"`
}

// ArtifactKind identifies a diagram type requested per iteration.
// The set is closed; new kinds are a code change. Per prd001-refinement R1.2.
type ArtifactKind string

const (
	// KindClass is the structural view (class diagram).
	KindClass ArtifactKind = "class"

	// KindSequence is the interaction view (sequence diagram).
	KindSequence ArtifactKind = "sequence"

	// KindActivity is the workflow view (activity diagram).
	KindActivity ArtifactKind = "activity"
)

// AllKinds returns every supported artifact kind in canonical order.
func AllKinds() []ArtifactKind {
	return []ArtifactKind{KindClass, KindSequence, KindActivity}
}

// ParseKind converts a string to an ArtifactKind, rejecting unknown values.
func ParseKind(s string) (ArtifactKind, error) {
	switch ArtifactKind(s) {
	case KindClass, KindSequence, KindActivity:
		return ArtifactKind(s), nil
	}
	return "", fmt.Errorf("unknown artifact kind %q (want class, sequence, or activity)", s)
}

// CompileStatus is the outcome of rendering one artifact's source text.
type CompileStatus string

const (
	CompileSucceeded CompileStatus = "succeeded"
	CompileFailed    CompileStatus = "failed"
)

// ArtifactAttempt is the outcome of generating and compiling one artifact
// kind within one iteration. Immutable after creation; each fan-out task
// writes only its own attempt. Per prd001-refinement R2.
type ArtifactAttempt struct {
	// Kind is the diagram type this attempt produced.
	Kind ArtifactKind `json:"kind" yaml:"kind"`

	// Source is the generated diagram description text. Empty when the
	// generation call itself failed.
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// Status records whether the source compiled to an image.
	Status CompileStatus `json:"status" yaml:"status"`

	// FailureReason explains a failed generation or compile.
	FailureReason string `json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`

	// SourcePath is where the source text was written, when it was.
	SourcePath string `json:"source_path,omitempty" yaml:"source_path,omitempty"`

	// RenderedPath is the rendered image location on success.
	RenderedPath string `json:"rendered_path,omitempty" yaml:"rendered_path,omitempty"`
}

// Generated reports whether the generation call produced any source text.
func (a ArtifactAttempt) Generated() bool { return a.Source != "" }

// Compiled reports whether the attempt rendered successfully.
func (a ArtifactAttempt) Compiled() bool { return a.Status == CompileSucceeded }

// PenaltyAdjustment records a score deduction applied for missing or failed
// artifacts, keeping the validator's reported score for audit.
// Per prd003-scoring R4.
type PenaltyAdjustment struct {
	// ReportedScore is the overall score as stated by the validator,
	// before deductions.
	ReportedScore float64 `json:"reported_score" yaml:"reported_score"`

	// Deducted is the total points subtracted.
	Deducted float64 `json:"deducted" yaml:"deducted"`

	// Notes itemizes each deduction.
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// MetricsRecord is the structured result of parsing one validation report.
// Created once per iteration by the score extractor; never mutated.
// Per prd003-scoring R1-R3.
type MetricsRecord struct {
	// Overall is the single 0-10 convergence signal. Always populated on a
	// successful parse; a report without it is a parse failure, not a zero.
	Overall float64 `json:"overall" yaml:"overall"`

	// SubScores maps normalized label keys (consistency, completeness,
	// quality, scope_adherence, ...) to their 0-10 values. Sub-scores are
	// optional metadata; absent labels are simply not present.
	SubScores map[string]float64 `json:"sub_scores,omitempty" yaml:"sub_scores,omitempty"`

	// Gaps is the ordered list of findings, highest priority first.
	Gaps []string `json:"gaps,omitempty" yaml:"gaps,omitempty"`

	// Recommendations is the ordered list of action items.
	Recommendations []string `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`

	// RawText is the untouched validation report, kept for audit.
	RawText string `json:"raw_text,omitempty" yaml:"raw_text,omitempty"`

	// Penalty is set when missing or failed artifacts reduced the score.
	Penalty *PenaltyAdjustment `json:"penalty,omitempty" yaml:"penalty,omitempty"`
}

// IterationRecord is one pass through the refinement loop. Immutable once
// appended to a run's history. Per prd001-refinement R3.
type IterationRecord struct {
	// Index is 1-based and strictly increasing within a run.
	Index int `json:"index" yaml:"index"`

	// Attempts holds one entry per requested artifact kind, in request order.
	Attempts []ArtifactAttempt `json:"attempts" yaml:"attempts"`

	// Metrics is nil only when the validation call failed or its report
	// could not be parsed.
	Metrics *MetricsRecord `json:"metrics,omitempty" yaml:"metrics,omitempty"`

	// Delta is the overall-score change versus the previous iteration.
	// Nil for iteration 1 and whenever either side lacks metrics.
	Delta *float64 `json:"delta,omitempty" yaml:"delta,omitempty"`
}

// Outcome is the terminal state of a refinement run.
type Outcome string

const (
	// OutcomeTargetReached means an iteration met or exceeded the target score.
	OutcomeTargetReached Outcome = "target_reached"

	// OutcomeMaxIterations means the iteration budget ran out first.
	// This is a normal terminal outcome, not an error.
	OutcomeMaxIterations Outcome = "max_iterations_exhausted"

	// OutcomeAborted means the run was cancelled mid-iteration; history ends
	// at the last fully completed iteration.
	OutcomeAborted Outcome = "aborted"
)

// RefinementRun is the top-level aggregate: one slice refined over a bounded
// number of iterations toward a target score. The controller owns the run
// exclusively; history is append-only and sealed exactly once.
// Per prd001-refinement R4.
type RefinementRun struct {
	// ID identifies the run for persistence (slice name + start timestamp).
	ID string `json:"id" yaml:"id"`

	// Slice is the requirements fragment this run refines.
	Slice RequirementsSlice `json:"slice" yaml:"slice"`

	// Kinds is the set of artifact kinds requested each iteration.
	Kinds []ArtifactKind `json:"kinds" yaml:"kinds"`

	// MaxIterations bounds the loop; a wasted iteration still counts.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// TargetScore is the overall score at which the run stops early.
	TargetScore float64 `json:"target_score" yaml:"target_score"`

	// History is the ordered sequence of iteration records.
	History []IterationRecord `json:"history" yaml:"history"`

	// Outcome is empty until the run is sealed.
	Outcome Outcome `json:"outcome,omitempty" yaml:"outcome,omitempty"`

	// Started and Completed bracket the run lifetime.
	Started   time.Time `json:"started" yaml:"started"`
	Completed time.Time `json:"completed,omitempty" yaml:"completed,omitempty"`
}

// Sealed reports whether the run has reached a terminal state.
func (r *RefinementRun) Sealed() bool { return r.Outcome != "" }

// LastMetrics returns the most recent iteration's metrics, or nil when no
// iteration produced a parseable report.
func (r *RefinementRun) LastMetrics() *MetricsRecord {
	for i := len(r.History) - 1; i >= 0; i-- {
		if m := r.History[i].Metrics; m != nil {
			return m
		}
	}
	return nil
}

// FinalScore returns the last scored iteration's overall value.
// The second result is false when no iteration was scored.
func (r *RefinementRun) FinalScore() (float64, bool) {
	m := r.LastMetrics()
	if m == nil {
		return 0, false
	}
	return m.Overall, true
}
