// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AIConfig holds shared settings for stages that call the generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "gemini-2.0-flash-exp").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// RenderBackend identifies the diagram rendering strategy.
// Per prd002-rendering R5.1.
type RenderBackend string

const (
	// RenderAuto picks a local binary when available, container otherwise.
	RenderAuto RenderBackend = "auto"

	// RenderLocal requires the plantuml binary on PATH.
	RenderLocal RenderBackend = "local"

	// RenderContainer runs the renderer image via docker or podman.
	RenderContainer RenderBackend = "container"
)

// RenderConfig holds settings for the diagram renderer.
// Per prd002-rendering R5.
type RenderConfig struct {
	// Backend selects the rendering strategy: auto, local, or container.
	Backend RenderBackend `json:"backend" yaml:"backend"`

	// Image is the container image used when rendering in a container.
	Image string `json:"image" yaml:"image"`

	// OutputDir is the base directory for rendered diagrams (contains one
	// subdirectory per artifact kind).
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// RefineConfig holds settings for the iterative refinement stage.
// MaxIterations, TargetScore, and Kinds are the entire tunable surface of
// the refinement core. Per prd001-refinement R5.
type RefineConfig struct {
	AIConfig `yaml:",inline"`

	// MaxIterations bounds the refinement loop (default 5).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// TargetScore stops the loop early once reached (default 10).
	TargetScore float64 `json:"target_score" yaml:"target_score"`

	// Kinds lists the artifact kinds generated each iteration.
	// Empty means all supported kinds.
	Kinds []string `json:"kinds,omitempty" yaml:"kinds,omitempty"`

	// ReportsDir is where per-iteration QA reports are written.
	ReportsDir string `json:"reports_dir" yaml:"reports_dir"`

	// RunsDir is where the run history database lives.
	RunsDir string `json:"runs_dir" yaml:"runs_dir"`
}

// SRSConfig holds settings for the requirements-document authoring stage.
// Per prd006-authoring R5.
type SRSConfig struct {
	AIConfig `yaml:",inline"`

	// URDFile is the user requirements document the SRS is generated from.
	URDFile string `json:"urd_file" yaml:"urd_file"`

	// ReferenceFile is an optional standard or template the validator
	// checks the SRS against.
	ReferenceFile string `json:"reference_file,omitempty" yaml:"reference_file,omitempty"`

	// MaxIterations bounds the improvement loop (default 10).
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// TargetErrors is the validation error count at which the loop stops
	// (default 0).
	TargetErrors int `json:"target_errors" yaml:"target_errors"`

	// OutputDir is where versioned SRS and validation report files go.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Refine RefineConfig `json:"refine" yaml:"refine"`
	Render RenderConfig `json:"render" yaml:"render"`
	SRS    SRSConfig    `json:"srs" yaml:"srs"`
}
