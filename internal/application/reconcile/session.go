// Package reconcile implements bank reconciliation sessions: book-versus-
// statement balance accounting with on-disk session state, plus a
// session-level statement match that also reports ledger records no
// statement line covers.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
	"github.com/ledgersync/ledgersync/internal/adapters/statement"
	"github.com/ledgersync/ledgersync/internal/domain/matcher"
)

// balancedBand: a session is balanced iff |difference| is strictly under
// one cent. A difference of exactly 0.01 is unbalanced.
var balancedBand = decimal.New(1, -2)

const snapshotMaxResults = 1000
const recentTransactionLimit = 20

// Service manages reconciliation sessions for ledger accounts.
//
// The on-disk session file is the only state crossing invocations. Two
// concurrent Starts for the same (account, statement date) are not
// supported; last writer wins, which is documented behavior rather than a
// bug.
type Service struct {
	accounts     AccountGetter
	gateway      Fetcher
	workspaceDir string
	logger       *slog.Logger
	now          func() time.Time
}

// NewService creates a reconciliation service persisting sessions under
// workspaceDir.
func NewService(accounts AccountGetter, gateway Fetcher, workspaceDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:     accounts,
		gateway:      gateway,
		workspaceDir: workspaceDir,
		logger:       logger.With("system", "reconcile"),
		now:          time.Now,
	}
}

// Start opens a reconciliation session: it fetches the account's current
// ledger balance, takes a best-effort snapshot of bank-affecting documents
// through the statement date, computes the balance difference, and
// persists the session. Snapshot query failures degrade the snapshot but
// never fail the call.
func (s *Service) Start(ctx context.Context, accountID, statementDate string, statementBalance decimal.Decimal) (*StartResult, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("fetch account %s: %w", accountID, err)
	}
	name := acct.Name
	if name == "" {
		name = "Account " + accountID
	}

	snapshot, typeResults := s.gateway.FetchThrough(ctx, ledger.SnapshotDocTypes, statementDate, snapshotMaxResults)
	for _, tr := range typeResults {
		if tr.Err != nil {
			s.logger.Warn("snapshot query degraded", "doc_type", tr.DocType, "error", tr.Err)
		}
	}

	difference := statementBalance.Sub(acct.CurrentBalance).Round(2)
	status := "unbalanced"
	if difference.Abs().LessThan(balancedBand) {
		status = "balanced"
	}

	session := Session{
		AccountID:        accountID,
		AccountName:      name,
		StatementDate:    statementDate,
		StatementBalance: statementBalance,
		LedgerBalance:    acct.CurrentBalance,
		Difference:       difference,
		Status:           status,
		TransactionCount: len(snapshot),
		StartedAt:        s.now(),
	}

	path, err := s.writeSession(session)
	if err != nil {
		return nil, err
	}

	recent := snapshot
	if len(recent) > recentTransactionLimit {
		recent = recent[:recentTransactionLimit]
	}

	return &StartResult{
		Session:            session,
		SessionFile:        path,
		RecentTransactions: recent,
	}, nil
}

// Status returns the most recently started session for the account,
// newest statement date first. ErrNoSession when the account has none.
func (s *Service) Status(accountID string) (*Session, error) {
	pattern := filepath.Join(s.workspaceDir, sessionFileName(accountID, "*"))
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("account %s: %w", accountID, ErrNoSession)
	}

	// Statement dates are ISO formatted, so lexicographic order is
	// chronological order.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))

	data, err := os.ReadFile(paths[0])
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", paths[0], err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", paths[0], err)
	}
	return &session, nil
}

// MatchStatement cross-references a statement file against ledger records
// in the statement's date span and reports the three-way partition plus
// the ledger records no statement line claimed.
func (s *Service) MatchStatement(ctx context.Context, accountID, statementFile string, toleranceDays int) (*MatchReport, error) {
	stmt, err := statement.Parse(statementFile, statement.DefaultOptions())
	if err != nil {
		return nil, err
	}

	report := &MatchReport{
		Status:         "ok",
		StatementFile:  statementFile,
		StatementCount: len(stmt.Transactions),
	}
	if len(stmt.Transactions) == 0 {
		report.Status = "empty"
		return report, nil
	}

	// The session match queries the statement's raw date span; unlike an
	// import it does not widen the window by the tolerance.
	min, max := stmt.DateRange()
	records, typeResults := s.gateway.FetchCandidates(ctx, ledger.MatchDocTypes, min, max)
	for _, tr := range typeResults {
		if tr.Err != nil {
			s.logger.Warn("match query degraded", "doc_type", tr.DocType, "error", tr.Err)
		}
	}

	result := matcher.Match(stmt.Transactions, records, toleranceDays)

	claimed := result.ClaimedIDs()
	var outstanding []ledger.Record
	for _, rec := range records {
		if !claimed[rec.ID] {
			outstanding = append(outstanding, rec)
		}
	}

	report.LedgerCount = len(records)
	report.Matched = len(result.Exact)
	report.Probable = len(result.Probable)
	report.UnmatchedStatement = len(result.Unmatched)
	report.OutstandingInLedger = len(outstanding)
	report.Details = MatchDetails{
		Matched:             result.Exact,
		Probable:            result.Probable,
		UnmatchedStatement:  result.Unmatched,
		OutstandingInLedger: outstanding,
	}
	return report, nil
}

func (s *Service) writeSession(session Session) (string, error) {
	if err := os.MkdirAll(s.workspaceDir, 0o755); err != nil {
		return "", fmt.Errorf("create workspace dir: %w", err)
	}

	path := filepath.Join(s.workspaceDir, sessionFileName(session.AccountID, session.StatementDate))
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write session: %w", err)
	}

	s.logger.Debug("session persisted", "path", path, "status", session.Status)
	return path, nil
}

func sessionFileName(accountID, statementDate string) string {
	return fmt.Sprintf("reconcile_%s_%s.json", accountID, statementDate)
}
