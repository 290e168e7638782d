package storage

import "time"

// ImportRun records one completed statement import for later inspection.
type ImportRun struct {
	ID           string    `json:"id"`
	FilePath     string    `json:"file_path"`
	Format       string    `json:"format"`
	AccountID    string    `json:"account_id"`
	Total        int       `json:"total"`
	Matched      int       `json:"matched"`
	Probable     int       `json:"probable"`
	Unmatched    int       `json:"unmatched"`
	Created      int       `json:"created"`
	DroppedRows  int       `json:"dropped_rows"`
	DryRun       bool      `json:"dry_run"`
	StartedAt    time.Time `json:"started_at"`
	DurationMS   int64     `json:"duration_ms"`
	ReportJSON   string    `json:"-"` // full report, stored verbatim
}

// Stats aggregates across all recorded runs.
type Stats struct {
	TotalRuns         int `json:"total_runs"`
	TotalTransactions int `json:"total_transactions"`
	TotalCreated      int `json:"total_created"`
	DryRunCount       int `json:"dry_run_count"`
}
