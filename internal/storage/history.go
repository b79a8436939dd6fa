package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"nbtp/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// HistoryStore keeps every run in SQLite, WAL mode, one writer
type HistoryStore struct {
	db *sql.DB
}

// RunRecord is one row of run history
type RunRecord struct {
	ID               string
	StartedAt        string
	DurationSeconds  float64
	Workers          int
	TotalFiles       int
	FailedFiles      int
	TotalItems       int
	PassedItems      int
	FailedItems      int
	CollectionErrors int
}

// Failed reports whether the run had failures or collection errors
func (r RunRecord) Failed() bool {
	return r.FailedItems > 0 || r.CollectionErrors > 0
}

// OpenHistory creates or opens the history database at path and applies the
// schema. Safe to call repeatedly
func OpenHistory(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close closes the database connection
func (h *HistoryStore) Close() error {
	if h.db == nil {
		return nil
	}
	return h.db.Close()
}

// Record stores a finished run and its failures. Recording the same run id
// again replaces it
func (h *HistoryStore) Record(ctx context.Context, output *domain.ResultsOutput) error {
	m := output.Meta
	if m.RunID == "" {
		return fmt.Errorf("record run: missing run id")
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, m.RunID); err != nil {
		return fmt.Errorf("replace run %s: %w", m.RunID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, duration_seconds, workers, total_files, failed_files,
		                  total_items, passed_items, failed_items, collection_errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RunID, m.Timestamp, m.DurationSeconds, m.Workers, m.TotalFiles, m.FailedFiles,
		m.TotalItems, m.PassedItems, m.FailedItems, m.CollectionErrors)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", m.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO failures (run_id, test_name, file_path, kind, message, cell, ename)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare failures: %w", err)
	}
	defer stmt.Close()
	for _, f := range output.Details {
		if _, err := stmt.ExecContext(ctx, m.RunID, f.TestName, f.FilePath, f.Kind, f.Message, f.Cell, f.EName); err != nil {
			return fmt.Errorf("insert failure %s: %w", f.TestName, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit runs, newest first
func (h *HistoryStore) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, started_at, duration_seconds, workers, total_files, failed_files,
		       total_items, passed_items, failed_items, collection_errors
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.DurationSeconds, &r.Workers, &r.TotalFiles,
			&r.FailedFiles, &r.TotalItems, &r.PassedItems, &r.FailedItems, &r.CollectionErrors); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Failures returns the failures recorded for a run, in recorded order
func (h *HistoryStore) Failures(ctx context.Context, runID string) ([]domain.Failure, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT test_name, file_path, kind, message, cell, ename
		FROM failures
		WHERE run_id = ?
		ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []domain.Failure
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.TestName, &f.FilePath, &f.Kind, &f.Message, &f.Cell, &f.EName); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
