package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
	"github.com/ledgersync/ledgersync/internal/adapters/statement"
	"github.com/ledgersync/ledgersync/internal/domain/matcher"
)

// ErrNoSession is returned when no reconciliation session exists for the
// requested account.
var ErrNoSession = errors.New("no reconciliation session for account")

// AccountGetter fetches a single ledger account.
type AccountGetter interface {
	GetAccount(ctx context.Context, accountID string) (ledger.Account, error)
}

// Fetcher is the slice of the ledger gateway the session needs.
type Fetcher interface {
	FetchCandidates(ctx context.Context, docTypes []string, start, end string) ([]ledger.Record, []ledger.TypeResult)
	FetchThrough(ctx context.Context, docTypes []string, end string, maxResults int) ([]ledger.Record, []ledger.TypeResult)
}

// Session is the persisted state of one reconciliation, keyed by account
// and statement date. Sessions are append-only artifacts: a new Start for
// the same key overwrites the file, and nothing ever mutates one in place.
type Session struct {
	AccountID        string          `json:"account_id"`
	AccountName      string          `json:"account_name"`
	StatementDate    string          `json:"statement_date"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	LedgerBalance    decimal.Decimal `json:"ledger_balance"`
	Difference       decimal.Decimal `json:"difference"`
	Status           string          `json:"status"` // balanced or unbalanced
	TransactionCount int             `json:"transaction_count"`
	StartedAt        time.Time       `json:"started_at"`
}

// StartResult is the outcome of starting a session.
type StartResult struct {
	Session
	SessionFile        string          `json:"session_file"`
	RecentTransactions []ledger.Record `json:"recent_transactions"`
}

// MatchReport is the outcome of a session-level statement match. Unlike a
// plain import it also reports ledger records in the queried window that
// no statement line claimed ("outstanding in ledger").
type MatchReport struct {
	Status              string                  `json:"status"` // ok or empty
	StatementFile       string                  `json:"statement_file"`
	StatementCount      int                     `json:"statement_transactions"`
	LedgerCount         int                     `json:"ledger_transactions"`
	Matched             int                     `json:"matched"`
	Probable            int                     `json:"probable_matches"`
	UnmatchedStatement  int                     `json:"unmatched_on_statement"`
	OutstandingInLedger int                     `json:"outstanding_in_ledger"`
	Details             MatchDetails            `json:"details"`
}

// MatchDetails breaks out every bucket of a session match.
type MatchDetails struct {
	Matched             []matcher.Pair          `json:"matched"`
	Probable            []matcher.Pair          `json:"probable"`
	UnmatchedStatement  []statement.Transaction `json:"unmatched_on_statement"`
	OutstandingInLedger []ledger.Record         `json:"outstanding_in_ledger"`
}
