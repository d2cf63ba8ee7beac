// Package journal records processing runs in a SQLite database so past
// runs stay inspectable: when each ran, what triggered it, and what
// happened to every file it touched.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases must be deleted and re-created.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match
// the expected version.
var ErrSchemaMismatch = errors.New("journal: schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store persists run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("journal: ensure directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("journal: check schema_version table: %w", err)
	}

	if tableExists == 0 {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("journal: begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("journal: create schema: %w", err)
		}
		return tx.Commit()
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("journal: read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one recorded processing pass.
type Run struct {
	ID            string
	Trigger       string
	Status        string
	StartedAt     time.Time
	FinishedAt    *time.Time
	FilesTotal    int
	FilesComputed int
	FilesSkipped  int
	FilesFailed   int
	Error         string
}

// Duration returns the wall-clock span of the run, zero while running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FileEvent is one file handled during a run.
type FileEvent struct {
	RunID    string
	Filename string
	Action   string
	Duration time.Duration
	Error    string
}

// Counts summarizes per-file outcomes of a run.
type Counts struct {
	Total    int
	Computed int
	Skipped  int
	Failed   int
}

// BeginRun records the start of a processing pass.
func (s *Store) BeginRun(ctx context.Context, id, trigger string, startedAt time.Time) error {
	return s.execWithRetry(ctx,
		`INSERT INTO runs (id, triggered_by, status, started_at) VALUES (?, ?, ?, ?)`,
		id, trigger, StatusRunning, startedAt.UTC().Format(time.RFC3339Nano))
}

// RecordFile records the outcome for one file within a run.
func (s *Store) RecordFile(ctx context.Context, runID, filename, action string, elapsed time.Duration, fileErr error) error {
	var errText any
	if fileErr != nil {
		errText = fileErr.Error()
	}
	return s.execWithRetry(ctx,
		`INSERT INTO run_files (run_id, filename, action, duration_ms, error) VALUES (?, ?, ?, ?, ?)`,
		runID, filename, action, elapsed.Milliseconds(), errText)
}

// FinishRun closes out a run with its final status and counts.
func (s *Store) FinishRun(ctx context.Context, id string, counts Counts, runErr error) error {
	status := StatusCompleted
	var errText any
	if runErr != nil {
		status = StatusFailed
		errText = runErr.Error()
	}
	return s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, files_total = ?, files_computed = ?,
			files_skipped = ?, files_failed = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC().Format(time.RFC3339Nano),
		counts.Total, counts.Computed, counts.Skipped, counts.Failed, errText, id)
}

// RecentRuns lists the newest runs first, up to limit.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, triggered_by, status, started_at, finished_at, files_total, files_computed,
			files_skipped, files_failed, COALESCE(error, '')
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Trigger, &run.Status, &startedAt, &finishedAt,
			&run.FilesTotal, &run.FilesComputed, &run.FilesSkipped, &run.FilesFailed, &run.Error); err != nil {
			return nil, fmt.Errorf("journal: scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			run.StartedAt = t
		}
		if finishedAt.Valid {
			if t, err := time.Parse(time.RFC3339Nano, finishedAt.String); err == nil {
				run.FinishedAt = &t
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunFiles lists the file events recorded for a run, in insertion order.
func (s *Store) RunFiles(ctx context.Context, runID string) ([]FileEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, filename, action, duration_ms, COALESCE(error, '')
		FROM run_files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("journal: query run files: %w", err)
	}
	defer rows.Close()

	var events []FileEvent
	for rows.Next() {
		var (
			event      FileEvent
			durationMs int64
		)
		if err := rows.Scan(&event.RunID, &event.Filename, &event.Action, &durationMs, &event.Error); err != nil {
			return nil, fmt.Errorf("journal: scan run file: %w", err)
		}
		event.Duration = time.Duration(durationMs) * time.Millisecond
		events = append(events, event)
	}
	return events, rows.Err()
}
