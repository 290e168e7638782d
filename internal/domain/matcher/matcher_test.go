package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
	"github.com/ledgersync/ledgersync/internal/adapters/statement"
)

func stmtTxn(date, amount string) statement.Transaction {
	return statement.Transaction{
		Date:   date,
		Amount: decimal.RequireFromString(amount),
	}
}

func ledgerRec(id, date, amount string) ledger.Record {
	return ledger.Record{
		DocType: ledger.DocPurchase,
		ID:      id,
		Date:    date,
		Amount:  decimal.RequireFromString(amount),
	}
}

func TestMatch_ExactByCheckNumber(t *testing.T) {
	// Same-day candidate whose check number lines up with the document
	// number is an exact match.
	stmt := stmtTxn("2026-03-01", "-42.50")
	stmt.CheckNumber = "1001"

	rec := ledgerRec("p1", "2026-03-01", "42.50")
	rec.DocNumber = "1001"
	rec.RefNumber = "1001"

	result := Match([]statement.Transaction{stmt}, []ledger.Record{rec}, 3)

	require.Len(t, result.Exact, 1)
	assert.Empty(t, result.Probable)
	assert.Empty(t, result.Unmatched)
	assert.Equal(t, "p1", result.Exact[0].Ledger.ID)
	assert.Equal(t, 0, result.Exact[0].DateDiff)
}

func TestMatch_ExactByFITID(t *testing.T) {
	stmt := stmtTxn("2026-03-01", "100.00")
	stmt.FITID = "F-77"

	rec := ledgerRec("d1", "2026-03-01", "100.00")
	rec.FITID = "F-77"

	result := Match([]statement.Transaction{stmt}, []ledger.Record{rec}, 3)

	require.Len(t, result.Exact, 1)
	assert.Equal(t, "d1", result.Exact[0].Ledger.ID)
}

func TestMatch_ProbablePicksSmallestDateDistance(t *testing.T) {
	stmt := stmtTxn("2026-03-01", "100.00")
	records := []ledger.Record{
		ledgerRec("far", "2026-03-04", "100.00"),
		ledgerRec("near", "2026-03-02", "100.00"),
	}

	result := Match([]statement.Transaction{stmt}, records, 3)

	require.Len(t, result.Probable, 1)
	assert.Empty(t, result.Exact)
	assert.Equal(t, "near", result.Probable[0].Ledger.ID)
	assert.Equal(t, 1, result.Probable[0].DateDiff)
}

func TestMatch_ProbableTieBreakIsFirstSeen(t *testing.T) {
	stmt := stmtTxn("2026-03-01", "100.00")
	records := []ledger.Record{
		ledgerRec("first", "2026-03-02", "100.00"),
		ledgerRec("second", "2026-03-02", "100.00"),
	}

	result := Match([]statement.Transaction{stmt}, records, 3)

	require.Len(t, result.Probable, 1)
	assert.Equal(t, "first", result.Probable[0].Ledger.ID)
}

func TestMatch_UnmatchedWhenNoAmountCandidate(t *testing.T) {
	stmt := stmtTxn("2026-03-01", "75.00")
	records := []ledger.Record{
		ledgerRec("p1", "2026-03-01", "75.02"),
		ledgerRec("p2", "2026-03-01", "74.98"),
	}

	result := Match([]statement.Transaction{stmt}, records, 3)

	require.Len(t, result.Unmatched, 1)
	assert.Empty(t, result.Exact)
	assert.Empty(t, result.Probable)
}

func TestMatch_AmountGateIgnoresSign(t *testing.T) {
	// Statement debits are negative; the ledger stores absolute totals.
	stmt := stmtTxn("2026-03-01", "-42.50")
	records := []ledger.Record{ledgerRec("p1", "2026-03-01", "42.50")}

	result := Match([]statement.Transaction{stmt}, records, 3)
	assert.Len(t, result.Probable, 1)
}

func TestMatch_AmountGateWithinOneCent(t *testing.T) {
	tests := []struct {
		name       string
		stmtAmount string
		recAmount  string
		want       bool
	}{
		{"identical", "10.00", "10.00", true},
		{"one cent under", "10.00", "9.99", true},
		{"one cent over", "10.00", "10.01", true},
		{"two cents off", "10.00", "10.02", false},
		{"zero matches zero", "0.00", "0.00", true},
		{"zero against one cent", "0.00", "0.01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Match(
				[]statement.Transaction{stmtTxn("2026-03-01", tt.stmtAmount)},
				[]ledger.Record{ledgerRec("r1", "2026-03-01", tt.recAmount)},
				3,
			)
			matched := len(result.Probable) == 1
			assert.Equal(t, tt.want, matched)
		})
	}
}

func TestMatch_DateToleranceExcludes(t *testing.T) {
	stmt := stmtTxn("2026-03-01", "50.00")
	records := []ledger.Record{ledgerRec("p1", "2026-03-05", "50.00")}

	result := Match([]statement.Transaction{stmt}, records, 3)
	assert.Len(t, result.Unmatched, 1)
}

func TestMatch_UnparseableDateIsExcluded(t *testing.T) {
	// An unparseable date counts as infinite distance on either side.
	stmt := stmtTxn("not-a-date", "50.00")
	stmt.CheckNumber = "9"
	rec := ledgerRec("p1", "2026-03-01", "50.00")
	rec.DocNumber = "9"

	result := Match([]statement.Transaction{stmt}, []ledger.Record{rec}, 3)
	assert.Len(t, result.Unmatched, 1)

	result = Match(
		[]statement.Transaction{stmtTxn("2026-03-01", "50.00")},
		[]ledger.Record{ledgerRec("p1", "", "50.00")},
		3,
	)
	assert.Len(t, result.Unmatched, 1)
}

func TestMatch_ExactnessPrecedence(t *testing.T) {
	// An identifier-matching same-day candidate wins over an earlier
	// unidentified same-day candidate; it is never relegated to probable.
	stmt := stmtTxn("2026-03-01", "100.00")
	stmt.CheckNumber = "555"

	unidentified := ledgerRec("plain", "2026-03-01", "100.00")
	identified := ledgerRec("tagged", "2026-03-01", "100.00")
	identified.DocNumber = "555"

	result := Match([]statement.Transaction{stmt}, []ledger.Record{unidentified, identified}, 3)

	require.Len(t, result.Exact, 1)
	assert.Equal(t, "tagged", result.Exact[0].Ledger.ID)
	assert.Empty(t, result.Probable)
}

func TestMatch_ClaimUniqueness(t *testing.T) {
	// Two statement lines with the same amount cannot both consume the
	// single ledger record.
	stmts := []statement.Transaction{
		stmtTxn("2026-03-01", "-20.00"),
		stmtTxn("2026-03-01", "-20.00"),
	}
	records := []ledger.Record{ledgerRec("only", "2026-03-01", "20.00")}

	result := Match(stmts, records, 3)

	assert.Len(t, result.Probable, 1)
	assert.Len(t, result.Unmatched, 1)

	claimed := result.ClaimedIDs()
	assert.Len(t, claimed, 1)
}

func TestMatch_PartitionTotality(t *testing.T) {
	stmts := []statement.Transaction{
		stmtTxn("2026-03-01", "-42.50"),
		stmtTxn("2026-03-02", "100.00"),
		stmtTxn("2026-03-03", "7.77"),
		stmtTxn("", "1.00"),
	}
	records := []ledger.Record{
		ledgerRec("a", "2026-03-01", "42.50"),
		ledgerRec("b", "2026-03-03", "100.00"),
	}

	result := Match(stmts, records, 3)
	total := len(result.Exact) + len(result.Probable) + len(result.Unmatched)
	assert.Equal(t, len(stmts), total)
}

func TestMatch_Deterministic(t *testing.T) {
	stmts := []statement.Transaction{
		stmtTxn("2026-03-01", "10.00"),
		stmtTxn("2026-03-02", "10.00"),
	}
	records := []ledger.Record{
		ledgerRec("r1", "2026-03-01", "10.00"),
		ledgerRec("r2", "2026-03-02", "10.00"),
	}

	first := Match(stmts, records, 3)
	second := Match(stmts, records, 3)
	assert.Equal(t, first, second)
}
