// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"fmt"

	"github.com/pdiddy/design-engine/pkg/types"
)

// Journal couples the SQLite store with the per-iteration Markdown reports so
// a single recorder hands the controller both persistence paths. A nil Store
// keeps the Markdown side working without a database.
type Journal struct {
	Store      *Store
	ReportsDir string
}

// Append stores the iteration and writes its QA report.
func (j *Journal) Append(ctx context.Context, run *types.RefinementRun, rec types.IterationRecord) error {
	if j.Store != nil {
		if err := j.Store.Append(ctx, run, rec); err != nil {
			return err
		}
	}
	if j.ReportsDir != "" {
		if _, err := WriteIterationReport(j.ReportsDir, run.Slice.Name, rec); err != nil {
			return fmt.Errorf("writing iteration report: %w", err)
		}
	}
	return nil
}

// Finalize stores the sealed run and writes the run summary.
func (j *Journal) Finalize(ctx context.Context, run *types.RefinementRun) error {
	if j.Store != nil {
		if err := j.Store.Finalize(ctx, run); err != nil {
			return err
		}
	}
	if j.ReportsDir != "" {
		if _, err := WriteRunSummary(j.ReportsDir, run); err != nil {
			return fmt.Errorf("writing run summary: %w", err)
		}
	}
	return nil
}
