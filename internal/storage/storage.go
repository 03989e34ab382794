// Package storage persists run history: one row per batch run with the
// counts reported at the end (records read, dropped per reason, written)
// so past runs can be inspected with `mopctl runs`.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Run is one recorded batch run.
type Run struct {
	ID             string         `json:"id"`
	Kind           string         `json:"kind"` // clean, report-crm, report-survey, glossary
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
	Status         string         `json:"status"`
	RecordsRead    int            `json:"records_read"`
	RecordsWritten int            `json:"records_written"`
	Dropped        map[string]int `json:"dropped,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// NewRun starts a run record of the given kind.
func NewRun(kind string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the run with an outcome. A nil err marks success.
func (r *Run) Finish(err error) {
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = StatusSuccess
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	kind            TEXT NOT NULL,
	started_at      TIMESTAMP NOT NULL,
	finished_at     TIMESTAMP NOT NULL,
	status          TEXT NOT NULL,
	records_read    INTEGER NOT NULL DEFAULT 0,
	records_written INTEGER NOT NULL DEFAULT 0,
	dropped         TEXT NOT NULL DEFAULT '{}',
	error           TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// Store is the SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the run-history database.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun persists a finished run.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	dropped, err := json.Marshal(run.Dropped)
	if err != nil {
		return fmt.Errorf("failed to encode drop counts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, kind, started_at, finished_at, status,
			records_read, records_written, dropped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.StartedAt, run.FinishedAt, run.Status,
		run.RecordsRead, run.RecordsWritten, string(dropped), run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, started_at, finished_at, status,
			records_read, records_written, dropped, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, started_at, finished_at, status,
			records_read, records_written, dropped, error
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var dropped string
	err := row.Scan(&run.ID, &run.Kind, &run.StartedAt, &run.FinishedAt,
		&run.Status, &run.RecordsRead, &run.RecordsWritten, &dropped, &run.Error)
	if err != nil {
		return nil, err
	}
	if dropped != "" && dropped != "null" {
		if err := json.Unmarshal([]byte(dropped), &run.Dropped); err != nil {
			return nil, fmt.Errorf("failed to decode drop counts: %w", err)
		}
	}
	return &run, nil
}
