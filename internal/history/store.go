// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists refinement runs to SQLite and renders QA reports
// and run summaries from them.
// Implements: prd005-history (R1-R5);
//
//	docs/ARCHITECTURE § Run History.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/design-engine/pkg/types"
)

const dbFile = "runs.db"

// Store manages the run history SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at runsDir/runs.db,
// creating the schema if it does not exist.
func NewStore(runsDir string) (*Store, error) {
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating runs directory: %w", err)
	}

	dbPath := filepath.Join(runsDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			slice_name TEXT NOT NULL,
			slice_text TEXT,
			kinds TEXT,
			max_iterations INTEGER,
			target_score REAL,
			outcome TEXT,
			started TEXT,
			completed TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS iterations (
			run_id TEXT NOT NULL REFERENCES runs(id),
			idx INTEGER NOT NULL,
			delta REAL,
			metrics TEXT,
			PRIMARY KEY (run_id, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS attempts (
			run_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			kind TEXT NOT NULL,
			status TEXT,
			failure_reason TEXT,
			source TEXT,
			source_path TEXT,
			rendered_path TEXT,
			PRIMARY KEY (run_id, iteration, kind)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_iterations_run ON iterations(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Append stores one completed iteration, upserting the run row first so a
// run becomes visible as soon as its first iteration lands.
func (s *Store) Append(ctx context.Context, run *types.RefinementRun, rec types.IterationRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertRun(ctx, tx, run); err != nil {
		return err
	}

	var metricsJSON sql.NullString
	if rec.Metrics != nil {
		data, err := json.Marshal(rec.Metrics)
		if err != nil {
			return fmt.Errorf("marshaling metrics: %w", err)
		}
		metricsJSON = sql.NullString{String: string(data), Valid: true}
	}
	var delta sql.NullFloat64
	if rec.Delta != nil {
		delta = sql.NullFloat64{Float64: *rec.Delta, Valid: true}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO iterations (run_id, idx, delta, metrics) VALUES (?, ?, ?, ?)`,
		run.ID, rec.Index, delta, metricsJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting iteration %d: %w", rec.Index, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO attempts (run_id, iteration, kind, status, failure_reason, source, source_path, rendered_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing attempt insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range rec.Attempts {
		_, err := stmt.ExecContext(ctx,
			run.ID, rec.Index, string(a.Kind), string(a.Status),
			a.FailureReason, a.Source, a.SourcePath, a.RenderedPath,
		)
		if err != nil {
			return fmt.Errorf("inserting attempt %s: %w", a.Kind, err)
		}
	}

	return tx.Commit()
}

// Finalize stores the sealed run's outcome and completion time.
func (s *Store) Finalize(ctx context.Context, run *types.RefinementRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// An aborted run may seal before its first Append.
	if err := upsertRun(ctx, tx, run); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertRun(ctx context.Context, tx *sql.Tx, run *types.RefinementRun) error {
	kindsJSON, _ := json.Marshal(run.Kinds)
	completed := ""
	if !run.Completed.IsZero() {
		completed = run.Completed.Format(time.RFC3339Nano)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, slice_name, slice_text, kinds, max_iterations, target_score, outcome, started, completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET outcome=excluded.outcome, completed=excluded.completed`,
		run.ID, run.Slice.Name, run.Slice.Text, string(kindsJSON),
		run.MaxIterations, run.TargetScore, string(run.Outcome),
		run.Started.Format(time.RFC3339Nano), completed,
	)
	if err != nil {
		return fmt.Errorf("upserting run %s: %w", run.ID, err)
	}
	return nil
}

// LoadRun reconstructs a run with its full history.
func (s *Store) LoadRun(ctx context.Context, id string) (*types.RefinementRun, error) {
	run := &types.RefinementRun{ID: id}
	var kindsJSON, outcome, started, completed string

	err := s.db.QueryRowContext(ctx,
		`SELECT slice_name, slice_text, kinds, max_iterations, target_score, outcome, started, completed
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.Slice.Name, &run.Slice.Text, &kindsJSON,
		&run.MaxIterations, &run.TargetScore, &outcome, &started, &completed)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("run %s not found", id)
		}
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}

	run.Outcome = types.Outcome(outcome)
	if err := json.Unmarshal([]byte(kindsJSON), &run.Kinds); err != nil {
		return nil, fmt.Errorf("parsing kinds for run %s: %w", id, err)
	}
	if run.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return nil, fmt.Errorf("parsing start time for run %s: %w", id, err)
	}
	if completed != "" {
		if run.Completed, err = time.Parse(time.RFC3339Nano, completed); err != nil {
			return nil, fmt.Errorf("parsing completion time for run %s: %w", id, err)
		}
	}

	if run.History, err = s.loadIterations(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) loadIterations(ctx context.Context, runID string) ([]types.IterationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, delta, metrics FROM iterations WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading iterations for %s: %w", runID, err)
	}
	defer rows.Close()

	var history []types.IterationRecord
	for rows.Next() {
		var rec types.IterationRecord
		var delta sql.NullFloat64
		var metricsJSON sql.NullString
		if err := rows.Scan(&rec.Index, &delta, &metricsJSON); err != nil {
			return nil, fmt.Errorf("scanning iteration: %w", err)
		}
		if delta.Valid {
			d := delta.Float64
			rec.Delta = &d
		}
		if metricsJSON.Valid {
			var m types.MetricsRecord
			if err := json.Unmarshal([]byte(metricsJSON.String), &m); err != nil {
				return nil, fmt.Errorf("parsing metrics for iteration %d: %w", rec.Index, err)
			}
			rec.Metrics = &m
		}
		history = append(history, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	for i := range history {
		attempts, err := s.loadAttempts(ctx, runID, history[i].Index)
		if err != nil {
			return nil, err
		}
		history[i].Attempts = attempts
	}
	return history, nil
}

func (s *Store) loadAttempts(ctx context.Context, runID string, iteration int) ([]types.ArtifactAttempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, status, failure_reason, source, source_path, rendered_path
		 FROM attempts WHERE run_id = ? AND iteration = ? ORDER BY rowid`, runID, iteration)
	if err != nil {
		return nil, fmt.Errorf("loading attempts for %s iteration %d: %w", runID, iteration, err)
	}
	defer rows.Close()

	var attempts []types.ArtifactAttempt
	for rows.Next() {
		var a types.ArtifactAttempt
		var kind, status string
		if err := rows.Scan(&kind, &status, &a.FailureReason, &a.Source, &a.SourcePath, &a.RenderedPath); err != nil {
			return nil, fmt.Errorf("scanning attempt: %w", err)
		}
		a.Kind = types.ArtifactKind(kind)
		a.Status = types.CompileStatus(status)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// RunListing is one row of ListRuns output.
type RunListing struct {
	ID         string
	SliceName  string
	Outcome    types.Outcome
	Iterations int
	FinalScore *float64
	Started    time.Time
}

// ListRuns returns all runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]RunListing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.slice_name, r.outcome, r.started, count(i.idx)
		 FROM runs r LEFT JOIN iterations i ON i.run_id = r.id
		 GROUP BY r.id ORDER BY r.started DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var listings []RunListing
	for rows.Next() {
		var l RunListing
		var outcome, started string
		if err := rows.Scan(&l.ID, &l.SliceName, &outcome, &started, &l.Iterations); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		l.Outcome = types.Outcome(outcome)
		if l.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parsing start time for run %s: %w", l.ID, err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for i := range listings {
		score, err := s.finalScore(ctx, listings[i].ID)
		if err != nil {
			return nil, err
		}
		listings[i].FinalScore = score
	}
	return listings, nil
}

// finalScore returns the overall score of the last scored iteration.
func (s *Store) finalScore(ctx context.Context, runID string) (*float64, error) {
	var metricsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT metrics FROM iterations
		 WHERE run_id = ? AND metrics IS NOT NULL ORDER BY idx DESC LIMIT 1`, runID,
	).Scan(&metricsJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading final score for %s: %w", runID, err)
	}

	var m types.MetricsRecord
	if err := json.Unmarshal([]byte(metricsJSON), &m); err != nil {
		return nil, fmt.Errorf("parsing final metrics for %s: %w", runID, err)
	}
	return &m.Overall, nil
}
