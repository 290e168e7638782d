// Package importer drives the statement import pipeline: parse the file,
// query the ledger over the statement's date window, match, and create
// ledger documents for whatever the ledger is missing.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
	"github.com/ledgersync/ledgersync/internal/adapters/statement"
	"github.com/ledgersync/ledgersync/internal/domain/matcher"
)

// Orchestrator runs the import process.
type Orchestrator struct {
	gateway          CandidateFetcher
	creator          DocumentCreator
	expenseAccountID string
	incomeAccountID  string
	logger           *slog.Logger
}

// NewOrchestrator creates an import orchestrator. expenseAccountID and
// incomeAccountID are the default category accounts that created documents
// post against.
func NewOrchestrator(gateway CandidateFetcher, creator DocumentCreator, expenseAccountID, incomeAccountID string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gateway:          gateway,
		creator:          creator,
		expenseAccountID: expenseAccountID,
		incomeAccountID:  incomeAccountID,
		logger:           logger.With("system", "importer"),
	}
}

// Run executes one import. The returned report accounts for every statement
// transaction; per-record creation failures are recorded in the report,
// not raised.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Report, error) {
	stmt, err := statement.Parse(opts.FilePath, statement.Options{
		Format:            opts.Format,
		DateColumn:        opts.DateColumn,
		AmountColumn:      opts.AmountColumn,
		DescriptionColumn: opts.DescColumn,
		SkipHeader:        opts.SkipHeader,
	})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Status:      "ok",
		File:        opts.FilePath,
		Format:      stmt.Format,
		Total:       len(stmt.Transactions),
		DroppedRows: stmt.DroppedRows,
		DryRun:      opts.DryRun,
	}

	if len(stmt.Transactions) == 0 {
		report.Status = "empty"
		return report, nil
	}

	start, end := queryWindow(stmt, opts.ToleranceDays)
	o.logger.Debug("querying ledger candidates", "start", start, "end", end)

	candidates, typeResults := o.gateway.FetchCandidates(ctx, ledger.ImportDocTypes, start, end)
	for _, tr := range typeResults {
		if tr.Err != nil {
			o.logger.Warn("candidate query degraded", "doc_type", tr.DocType, "error", tr.Err)
		}
	}

	result := matcher.Match(stmt.Transactions, candidates, opts.ToleranceDays)
	report.Matched = len(result.Exact)
	report.Probable = len(result.Probable)
	report.Unmatched = len(result.Unmatched)
	report.Details.Matched = result.Exact
	report.Details.Probable = result.Probable
	report.Details.Unmatched = result.Unmatched

	if !opts.DryRun {
		report.Details.Created = o.createUnmatched(ctx, opts.AccountID, result.Unmatched)
		for _, item := range report.Details.Created {
			if item.Error == "" {
				report.Created++
			}
		}
	}

	return report, nil
}

// createUnmatched creates one ledger document per unmatched statement
// transaction: a Purchase for debits, a Deposit for credits. Each attempt
// is independent; partial success is the normal case.
func (o *Orchestrator) createUnmatched(ctx context.Context, accountID string, unmatched []statement.Transaction) []CreatedItem {
	items := make([]CreatedItem, 0, len(unmatched))
	for _, txn := range unmatched {
		var (
			docType string
			body    any
		)
		if txn.Amount.IsNegative() {
			docType = ledger.DocPurchase
			body = o.purchaseBody(accountID, txn)
		} else {
			docType = ledger.DocDeposit
			body = o.depositBody(accountID, txn)
		}

		rec, err := o.creator.Create(ctx, docType, body)
		if err != nil {
			o.logger.Warn("document creation failed", "doc_type", docType, "error", err)
			items = append(items, CreatedItem{Txn: txn, DocType: docType, Error: err.Error()})
			continue
		}
		items = append(items, CreatedItem{Txn: txn, DocType: docType, LedgerID: rec.ID})
	}
	return items
}

type accountRef struct {
	Value string `json:"value"`
}

type expenseLine struct {
	Amount     float64 `json:"Amount"`
	DetailType string  `json:"DetailType"`
	Detail     struct {
		AccountRef accountRef `json:"AccountRef"`
	} `json:"AccountBasedExpenseLineDetail"`
}

type depositLine struct {
	Amount     float64 `json:"Amount"`
	DetailType string  `json:"DetailType"`
	Detail     struct {
		AccountRef accountRef `json:"AccountRef"`
	} `json:"DepositLineDetail"`
}

func (o *Orchestrator) purchaseBody(accountID string, txn statement.Transaction) map[string]any {
	line := expenseLine{
		Amount:     txn.Amount.Abs().InexactFloat64(),
		DetailType: "AccountBasedExpenseLineDetail",
	}
	line.Detail.AccountRef = accountRef{Value: o.expenseAccountID}

	body := map[string]any{
		"AccountRef":  accountRef{Value: accountID},
		"PaymentType": "Cash",
		"TxnDate":     txn.Date,
		"Line":        []expenseLine{line},
		"PrivateNote": fmt.Sprintf("Imported: %s", txn.Name),
	}
	if txn.CheckNumber != "" {
		body["DocNumber"] = txn.CheckNumber
	}
	return body
}

func (o *Orchestrator) depositBody(accountID string, txn statement.Transaction) map[string]any {
	line := depositLine{
		Amount:     txn.Amount.InexactFloat64(),
		DetailType: "DepositLineDetail",
	}
	line.Detail.AccountRef = accountRef{Value: o.incomeAccountID}

	return map[string]any{
		"DepositToAccountRef": accountRef{Value: accountID},
		"TxnDate":             txn.Date,
		"Line":                []depositLine{line},
		"PrivateNote":         fmt.Sprintf("Imported: %s", txn.Name),
	}
}

// queryWindow expands the statement's date range by the tolerance on both
// sides. Statement transactions without a date are excluded from min/max;
// when every date is empty or unparseable the raw (possibly empty) range
// is returned unexpanded.
func queryWindow(stmt *statement.Statement, toleranceDays int) (string, string) {
	min, max := stmt.DateRange()

	minDate, okMin := statement.ParseDate(min)
	maxDate, okMax := statement.ParseDate(max)
	if !okMin || !okMax {
		return min, max
	}

	start := minDate.AddDate(0, 0, -toleranceDays).Format("2006-01-02")
	end := maxDate.AddDate(0, 0, toleranceDays).Format("2006-01-02")
	return start, end
}
