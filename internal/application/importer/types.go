package importer

import (
	"context"

	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
	"github.com/ledgersync/ledgersync/internal/adapters/statement"
	"github.com/ledgersync/ledgersync/internal/domain/matcher"
)

// CandidateFetcher is the slice of the ledger gateway the importer needs.
type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, docTypes []string, start, end string) ([]ledger.Record, []ledger.TypeResult)
}

// DocumentCreator creates new ledger documents for unmatched statement
// lines.
type DocumentCreator interface {
	Create(ctx context.Context, docType string, body any) (ledger.Record, error)
}

// Options holds one import invocation's parameters.
type Options struct {
	FilePath      string
	AccountID     string
	Format        statement.Format
	DateColumn    string
	AmountColumn  string
	DescColumn    string
	SkipHeader    bool
	ToleranceDays int
	DryRun        bool
}

// CreatedItem records one attempted document creation. Error is set when
// the attempt failed; failures never abort the rest of the batch.
type CreatedItem struct {
	Txn      statement.Transaction `json:"txn"`
	DocType  string                `json:"doc_type,omitempty"`
	LedgerID string                `json:"ledger_id,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// Details breaks out every bucket of the import outcome.
type Details struct {
	Matched   []matcher.Pair          `json:"matched"`
	Probable  []matcher.Pair          `json:"probable"`
	Unmatched []statement.Transaction `json:"unmatched"`
	Created   []CreatedItem           `json:"created"`
}

// Report is the structured outcome of one import run. It is always
// produced on partial failure; only an unreadable input file aborts.
type Report struct {
	Status      string           `json:"status"` // ok or empty
	File        string           `json:"file"`
	Format      statement.Format `json:"format,omitempty"`
	Total       int              `json:"total_imported"`
	Matched     int              `json:"matched"`
	Probable    int              `json:"probable_matches"`
	Unmatched   int              `json:"unmatched"`
	Created     int              `json:"created"`
	DroppedRows int              `json:"dropped_rows"`
	DryRun      bool             `json:"dry_run"`
	Details     Details          `json:"details"`
}
