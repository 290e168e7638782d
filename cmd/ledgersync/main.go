package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
	"github.com/ledgersync/ledgersync/internal/adapters/statement"
	"github.com/ledgersync/ledgersync/internal/application/importer"
	"github.com/ledgersync/ledgersync/internal/application/reconcile"
	"github.com/ledgersync/ledgersync/internal/infrastructure/config"
	"github.com/ledgersync/ledgersync/internal/infrastructure/logging"
	"github.com/ledgersync/ledgersync/internal/infrastructure/storage"
)

const usage = `Usage: ledgersync <command> [flags]

Commands:
  import    <file>  Import a bank statement and match/create ledger documents
  preview   <file>  Parse a statement file and show a summary without importing
  reconcile start   Start a reconciliation session
  reconcile status  Show the latest reconciliation session for an account
  reconcile match   Match a statement file against ledger records
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg := config.LoadOrEnv()
	logger := logging.NewLogger(cfg.Observability.Logging)

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(cfg, logger, os.Args[2:])
	case "preview":
		err = runPreview(cfg, os.Args[2:])
	case "reconcile":
		err = runReconcile(cfg, logger, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// statementFlags registers the flags shared by every command that parses a
// statement file.
func statementFlags(fs *flag.FlagSet) (format, dateCol, amountCol, descCol *string, skipHeader *bool) {
	format = fs.String("format", "auto", "File format: auto, ofx, csv")
	dateCol = fs.String("date-col", "Date", "CSV date column name")
	amountCol = fs.String("amount-col", "Amount", "CSV amount column name")
	descCol = fs.String("desc-col", "Description", "CSV description column name")
	skipHeader = fs.Bool("skip-header", false, "Skip one leading row before the CSV column header")
	return
}

func runImport(cfg *config.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	accountID := fs.String("account-id", "", "Ledger bank/CC account ID to import into")
	format, dateCol, amountCol, descCol, skipHeader := statementFlags(fs)
	dryRun := fs.Bool("dry-run", false, "Report without creating ledger documents")
	tolerance := fs.Int("tolerance", cfg.Import.ToleranceDays, "Date matching tolerance in days")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("import: statement file argument required")
	}
	if *accountID == "" {
		return fmt.Errorf("import: --account-id is required")
	}

	client := ledger.NewClient(cfg.Ledger, logger)
	gateway := ledger.NewGateway(client, logger)
	orch := importer.NewOrchestrator(gateway, client,
		cfg.Import.ExpenseAccountID, cfg.Import.IncomeAccountID, logger)

	started := time.Now()
	report, err := orch.Run(context.Background(), importer.Options{
		FilePath:      fs.Arg(0),
		AccountID:     *accountID,
		Format:        statement.Format(*format),
		DateColumn:    *dateCol,
		AmountColumn:  *amountCol,
		DescColumn:    *descCol,
		SkipHeader:    *skipHeader,
		ToleranceDays: *tolerance,
		DryRun:        *dryRun,
	})
	if err != nil {
		return err
	}

	recordRun(cfg, logger, report, *accountID, started)
	return printJSON(report)
}

// recordRun appends the run to local history. History is observability,
// not part of the import contract, so failures only log.
func recordRun(cfg *config.Config, logger *slog.Logger, report *importer.Report, accountID string, started time.Time) {
	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Warn("run history unavailable", "error", err)
		return
	}
	defer store.Close()

	reportJSON, _ := json.Marshal(report)
	err = store.SaveRun(&storage.ImportRun{
		ID:          uuid.NewString(),
		FilePath:    report.File,
		Format:      string(report.Format),
		AccountID:   accountID,
		Total:       report.Total,
		Matched:     report.Matched,
		Probable:    report.Probable,
		Unmatched:   report.Unmatched,
		Created:     report.Created,
		DroppedRows: report.DroppedRows,
		DryRun:      report.DryRun,
		StartedAt:   started,
		DurationMS:  time.Since(started).Milliseconds(),
		ReportJSON:  string(reportJSON),
	})
	if err != nil {
		logger.Warn("failed to record import run", "error", err)
	}
}

func runPreview(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	format, dateCol, amountCol, descCol, skipHeader := statementFlags(fs)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("preview: statement file argument required")
	}

	stmt, err := statement.Parse(fs.Arg(0), statement.Options{
		Format:            statement.Format(*format),
		DateColumn:        *dateCol,
		AmountColumn:      *amountCol,
		DescriptionColumn: *descCol,
		SkipHeader:        *skipHeader,
	})
	if err != nil {
		return err
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, txn := range stmt.Transactions {
		if txn.Amount.IsNegative() {
			debits = debits.Add(txn.Amount)
		} else {
			credits = credits.Add(txn.Amount)
		}
	}
	min, max := stmt.DateRange()

	return printJSON(map[string]any{
		"file":              fs.Arg(0),
		"format":            stmt.Format,
		"transaction_count": len(stmt.Transactions),
		"dropped_rows":      stmt.DroppedRows,
		"total_debits":      debits,
		"total_credits":     credits,
		"date_range":        map[string]string{"start": min, "end": max},
		"transactions":      stmt.Transactions,
	})
}

func runReconcile(cfg *config.Config, logger *slog.Logger, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("reconcile: subcommand required (start, status, match)")
	}

	client := ledger.NewClient(cfg.Ledger, logger)
	gateway := ledger.NewGateway(client, logger)
	svc := reconcile.NewService(client, gateway, cfg.Workspace.Dir, logger)

	switch args[0] {
	case "start":
		fs := flag.NewFlagSet("reconcile start", flag.ExitOnError)
		accountID := fs.String("account-id", "", "Bank/CC account ID")
		statementDate := fs.String("statement-date", "", "Statement ending date (YYYY-MM-DD)")
		statementBalance := fs.String("statement-balance", "", "Statement ending balance")
		_ = fs.Parse(args[1:])

		if *accountID == "" || *statementDate == "" || *statementBalance == "" {
			return fmt.Errorf("reconcile start: --account-id, --statement-date and --statement-balance are required")
		}
		balance, err := decimal.NewFromString(*statementBalance)
		if err != nil {
			return fmt.Errorf("invalid statement balance %q: %w", *statementBalance, err)
		}

		result, err := svc.Start(context.Background(), *accountID, *statementDate, balance)
		if err != nil {
			return err
		}
		return printJSON(result)

	case "status":
		fs := flag.NewFlagSet("reconcile status", flag.ExitOnError)
		accountID := fs.String("account-id", "", "Bank/CC account ID")
		_ = fs.Parse(args[1:])

		if *accountID == "" {
			return fmt.Errorf("reconcile status: --account-id is required")
		}
		session, err := svc.Status(*accountID)
		if errors.Is(err, reconcile.ErrNoSession) {
			return fmt.Errorf("no reconciliation in progress for account %s", *accountID)
		}
		if err != nil {
			return err
		}
		return printJSON(session)

	case "match":
		fs := flag.NewFlagSet("reconcile match", flag.ExitOnError)
		accountID := fs.String("account-id", "", "Bank/CC account ID")
		statementFile := fs.String("statement-file", "", "Bank statement file (OFX/CSV)")
		tolerance := fs.Int("tolerance", cfg.Import.ToleranceDays, "Date matching tolerance in days")
		_ = fs.Parse(args[1:])

		if *accountID == "" || *statementFile == "" {
			return fmt.Errorf("reconcile match: --account-id and --statement-file are required")
		}
		report, err := svc.MatchStatement(context.Background(), *accountID, *statementFile, *tolerance)
		if err != nil {
			return err
		}
		return printJSON(report)

	default:
		return fmt.Errorf("reconcile: unknown subcommand %q", args[0])
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
