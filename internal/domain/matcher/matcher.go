// Package matcher correlates normalized statement transactions with ledger
// records.
//
// Matching criteria:
//   - Amount magnitudes must agree within one cent; sign is ignored because
//     the ledger stores direction via document type, not sign.
//   - Dates must be within the tolerance window (whole days).
//   - A ledger record claimed by one outcome is never offered to a later
//     statement transaction in the same run.
//
// Exact matches require a same-day candidate whose FITID or check number
// lines up; everything else that passes the gates is at best probable.
package matcher

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
	"github.com/ledgersync/ledgersync/internal/adapters/statement"
)

// amountTolerance is the currency-grade comparison band: magnitudes within
// one cent of each other are treated as equal.
var amountTolerance = decimal.New(1, -2)

// infiniteDays stands in for "unparseable date" so such candidates always
// fail the date gate.
const infiniteDays = 1 << 30

// Match partitions stmts into exact, probable, and unmatched outcomes
// against records. It is pure and deterministic given identical inputs in
// identical order; candidates are considered in the order records arrives,
// and ties on date distance go to the earliest-seen candidate.
func Match(stmts []statement.Transaction, records []ledger.Record, toleranceDays int) Result {
	var result Result
	claimed := make(map[string]bool)

	for _, stmt := range stmts {
		pair, exact := findMatch(stmt, records, claimed, toleranceDays)
		switch {
		case pair == nil:
			result.Unmatched = append(result.Unmatched, stmt)
		case exact:
			claimed[pair.Ledger.ID] = true
			result.Exact = append(result.Exact, *pair)
		default:
			claimed[pair.Ledger.ID] = true
			result.Probable = append(result.Probable, *pair)
		}
	}

	return result
}

// findMatch scans records for the best candidate for one statement
// transaction. It returns nil when nothing passes the amount and date
// gates, and reports whether the returned pair is an exact match.
func findMatch(stmt statement.Transaction, records []ledger.Record, claimed map[string]bool, toleranceDays int) (*Pair, bool) {
	stmtDate, stmtDateOK := statement.ParseDate(stmt.Date)
	stmtAmt := stmt.Amount.Abs()

	var best *Pair
	bestDiff := infiniteDays

	for i := range records {
		rec := &records[i]
		if claimed[rec.ID] {
			continue
		}

		if stmtAmt.Sub(rec.Amount.Abs()).Abs().Cmp(amountTolerance) > 0 {
			continue
		}

		diff := infiniteDays
		if recDate, ok := statement.ParseDate(rec.Date); ok && stmtDateOK {
			diff = dayDistance(stmtDate, recDate)
		}
		if diff > toleranceDays {
			continue
		}

		// Same-day candidate with a matching identifier wins outright.
		if diff == 0 && identifiersMatch(stmt, rec) {
			return &Pair{Statement: stmt, Ledger: *rec, DateDiff: diff}, true
		}

		if diff < bestDiff {
			best = &Pair{Statement: stmt, Ledger: *rec, DateDiff: diff}
			bestDiff = diff
		}
	}

	return best, false
}

// identifiersMatch reports whether the statement transaction carries an
// identifier that lines up with the ledger record: the FITID against the
// record's correlation token, or the check number against its document or
// reference number. Empty identifiers never match.
func identifiersMatch(stmt statement.Transaction, rec *ledger.Record) bool {
	if stmt.FITID != "" && stmt.FITID == rec.FITID {
		return true
	}
	if stmt.CheckNumber != "" && (stmt.CheckNumber == rec.DocNumber || stmt.CheckNumber == rec.RefNumber) {
		return true
	}
	return false
}

// dayDistance returns the absolute calendar-day distance between two dates.
func dayDistance(a, b time.Time) int {
	hours := a.Sub(b).Hours()
	if hours < 0 {
		hours = -hours
	}
	return int(hours / 24)
}
