// Package storage provides SQLite-backed persistence for import run
// history.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for import run records.
type Storage struct {
	db *sql.DB
}

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS import_runs (
		id            TEXT PRIMARY KEY,
		file_path     TEXT NOT NULL,
		format        TEXT NOT NULL,
		account_id    TEXT NOT NULL,
		total         INTEGER NOT NULL,
		matched       INTEGER NOT NULL,
		probable      INTEGER NOT NULL,
		unmatched     INTEGER NOT NULL,
		created_count INTEGER NOT NULL,
		dropped_rows  INTEGER NOT NULL,
		dry_run       INTEGER NOT NULL,
		started_at    TIMESTAMP NOT NULL,
		duration_ms   INTEGER NOT NULL,
		report_json   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_import_runs_account ON import_runs(account_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate storage: %w", err)
	}
	return nil
}

// SaveRun persists one import run record.
func (s *Storage) SaveRun(run *ImportRun) error {
	query := `
	INSERT OR REPLACE INTO import_runs
	(id, file_path, format, account_id, total, matched, probable, unmatched,
	 created_count, dropped_rows, dry_run, started_at, duration_ms, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.ID,
		run.FilePath,
		run.Format,
		run.AccountID,
		run.Total,
		run.Matched,
		run.Probable,
		run.Unmatched,
		run.Created,
		run.DroppedRows,
		run.DryRun,
		run.StartedAt,
		run.DurationMS,
		run.ReportJSON,
	)
	return err
}

// GetRun retrieves a run by id.
func (s *Storage) GetRun(id string) (*ImportRun, error) {
	row := s.db.QueryRow(`
	SELECT id, file_path, format, account_id, total, matched, probable, unmatched,
	       created_count, dropped_rows, dry_run, started_at, duration_ms, report_json
	FROM import_runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns up to limit runs, newest first.
func (s *Storage) ListRuns(limit int) ([]*ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
	SELECT id, file_path, format, account_id, total, matched, probable, unmatched,
	       created_count, dropped_rows, dry_run, started_at, duration_ms, report_json
	FROM import_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*ImportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetStats aggregates totals across all recorded runs.
func (s *Storage) GetStats() (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRow(`
	SELECT COUNT(*),
	       COALESCE(SUM(total), 0),
	       COALESCE(SUM(created_count), 0),
	       COALESCE(SUM(dry_run), 0)
	FROM import_runs`).Scan(
		&stats.TotalRuns,
		&stats.TotalTransactions,
		&stats.TotalCreated,
		&stats.DryRunCount,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*ImportRun, error) {
	run := &ImportRun{}
	var startedAt time.Time
	err := row.Scan(
		&run.ID,
		&run.FilePath,
		&run.Format,
		&run.AccountID,
		&run.Total,
		&run.Matched,
		&run.Probable,
		&run.Unmatched,
		&run.Created,
		&run.DroppedRows,
		&run.DryRun,
		&startedAt,
		&run.DurationMS,
		&run.ReportJSON,
	)
	if err != nil {
		return nil, err
	}
	run.StartedAt = startedAt
	return run, nil
}
