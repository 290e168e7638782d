package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
)

type fakeGateway struct {
	records []ledger.Record
	start   string
	end     string
	calls   int
}

func (f *fakeGateway) FetchCandidates(_ context.Context, docTypes []string, start, end string) ([]ledger.Record, []ledger.TypeResult) {
	f.calls++
	f.start, f.end = start, end
	results := make([]ledger.TypeResult, len(docTypes))
	for i, dt := range docTypes {
		results[i] = ledger.TypeResult{DocType: dt}
	}
	return f.records, results
}

type fakeCreator struct {
	created []string // doc types, in order
	bodies  []any
	failOn  map[int]error // index -> error
	nextID  int
}

func (f *fakeCreator) Create(_ context.Context, docType string, body any) (ledger.Record, error) {
	call := f.nextID
	f.nextID++
	if err, ok := f.failOn[call]; ok {
		return ledger.Record{}, err
	}
	f.created = append(f.created, docType)
	f.bodies = append(f.bodies, body)
	return ledger.Record{DocType: docType, ID: fmt.Sprintf("created-%d", call)}, nil
}

func writeCSV(t *testing.T, rows string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte("Date,Amount,Description\n"+rows), 0o644))
	return path
}

func newTestOrchestrator(gw *fakeGateway, cr *fakeCreator) *Orchestrator {
	return NewOrchestrator(gw, cr, "31", "32", nil)
}

func defaultOptions(path string) Options {
	return Options{
		FilePath:      path,
		AccountID:     "77",
		Format:        "auto",
		DateColumn:    "Date",
		AmountColumn:  "Amount",
		DescColumn:    "Description",
		ToleranceDays: 3,
	}
}

func TestRun_MatchedAndUnmatched(t *testing.T) {
	path := writeCSV(t, "2026-03-01,-42.50,Hardware\n2026-03-02,100.00,Client payment\n2026-03-03,-9.99,Subscription\n")
	gw := &fakeGateway{records: []ledger.Record{
		{DocType: ledger.DocPurchase, ID: "p1", Date: "2026-03-01", Amount: decimal.RequireFromString("42.50")},
	}}
	cr := &fakeCreator{failOn: map[int]error{}}

	report, err := newTestOrchestrator(gw, cr).Run(context.Background(), defaultOptions(path))
	require.NoError(t, err)

	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Probable) // same-day amount match without identifier
	assert.Equal(t, 2, report.Unmatched)
	assert.Equal(t, 2, report.Created)

	// Debits become purchases, credits become deposits.
	assert.Equal(t, []string{ledger.DocDeposit, ledger.DocPurchase}, cr.created)
}

func TestRun_QueryWindowExpandedByTolerance(t *testing.T) {
	path := writeCSV(t, "2026-03-05,-10.00,a\n2026-03-10,-20.00,b\n")
	gw := &fakeGateway{}
	cr := &fakeCreator{failOn: map[int]error{}}

	opts := defaultOptions(path)
	opts.DryRun = true
	_, err := newTestOrchestrator(gw, cr).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-02", gw.start)
	assert.Equal(t, "2026-03-13", gw.end)
}

func TestRun_UndatedStatementQueriesRawWindow(t *testing.T) {
	// Every row lacks a date, so the window cannot be expanded and the
	// raw empty range goes to the gateway as-is.
	path := writeCSV(t, ",-10.00,a\n,-20.00,b\n")
	gw := &fakeGateway{}
	cr := &fakeCreator{failOn: map[int]error{}}

	opts := defaultOptions(path)
	opts.DryRun = true
	report, err := newTestOrchestrator(gw, cr).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, "ok", report.Status)
	assert.Equal(t, 2, report.Unmatched)
	assert.Equal(t, 1, gw.calls)
	assert.Empty(t, gw.start)
	assert.Empty(t, gw.end)
}

func TestRun_EmptyFileSkipsLedger(t *testing.T) {
	path := writeCSV(t, "")
	gw := &fakeGateway{}
	cr := &fakeCreator{failOn: map[int]error{}}

	report, err := newTestOrchestrator(gw, cr).Run(context.Background(), defaultOptions(path))
	require.NoError(t, err)

	assert.Equal(t, "empty", report.Status)
	assert.Zero(t, gw.calls)
	assert.Empty(t, cr.created)
}

func TestRun_DryRunNeverCreates(t *testing.T) {
	path := writeCSV(t, "2026-03-01,-42.50,Hardware\n")
	gw := &fakeGateway{}
	cr := &fakeCreator{failOn: map[int]error{}}

	opts := defaultOptions(path)
	opts.DryRun = true
	report, err := newTestOrchestrator(gw, cr).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Unmatched)
	assert.Zero(t, report.Created)
	assert.Empty(t, cr.created)
}

func TestRun_DryRunIsIdempotent(t *testing.T) {
	path := writeCSV(t, "2026-03-01,-42.50,Hardware\n2026-03-02,5.00,Refund\n")
	gw := &fakeGateway{records: []ledger.Record{
		{DocType: ledger.DocPurchase, ID: "p1", Date: "2026-03-01", Amount: decimal.RequireFromString("42.50")},
	}}
	cr := &fakeCreator{failOn: map[int]error{}}
	orch := newTestOrchestrator(gw, cr)

	opts := defaultOptions(path)
	opts.DryRun = true

	first, err := orch.Run(context.Background(), opts)
	require.NoError(t, err)
	second, err := orch.Run(context.Background(), opts)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON)
}

func TestRun_CreationFailureDoesNotAbortBatch(t *testing.T) {
	path := writeCSV(t, "2026-03-01,-1.00,a\n2026-03-02,-2.00,b\n2026-03-03,-3.00,c\n")
	gw := &fakeGateway{}
	cr := &fakeCreator{failOn: map[int]error{1: fmt.Errorf("rate limited")}}

	report, err := newTestOrchestrator(gw, cr).Run(context.Background(), defaultOptions(path))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Unmatched)
	assert.Equal(t, 2, report.Created)
	require.Len(t, report.Details.Created, 3)
	assert.Empty(t, report.Details.Created[0].Error)
	assert.Equal(t, "rate limited", report.Details.Created[1].Error)
	assert.Empty(t, report.Details.Created[2].Error)
	assert.Equal(t, "created-0", report.Details.Created[0].LedgerID)
}

func TestRun_PurchaseBodyShape(t *testing.T) {
	path := writeCSV(t, "2026-03-01,-42.50,Hardware run\n")
	gw := &fakeGateway{}
	cr := &fakeCreator{failOn: map[int]error{}}

	_, err := newTestOrchestrator(gw, cr).Run(context.Background(), defaultOptions(path))
	require.NoError(t, err)
	require.Len(t, cr.bodies, 1)

	body, ok := cr.bodies[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, accountRef{Value: "77"}, body["AccountRef"])
	assert.Equal(t, "Cash", body["PaymentType"])
	assert.Equal(t, "2026-03-01", body["TxnDate"])
	assert.Equal(t, "Imported: Hardware run", body["PrivateNote"])

	lines, ok := body["Line"].([]expenseLine)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.InDelta(t, 42.50, lines[0].Amount, 0.001)
	assert.Equal(t, "31", lines[0].Detail.AccountRef.Value)
}

func TestRun_DroppedRowsSurface(t *testing.T) {
	path := writeCSV(t, "2026-03-01,N/A,Pending\n2026-03-02,-2.00,Real\n")
	gw := &fakeGateway{}
	cr := &fakeCreator{failOn: map[int]error{}}

	opts := defaultOptions(path)
	opts.DryRun = true
	report, err := newTestOrchestrator(gw, cr).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.DroppedRows)
}

func TestRun_UnreadableFileFails(t *testing.T) {
	gw := &fakeGateway{}
	cr := &fakeCreator{failOn: map[int]error{}}

	opts := defaultOptions(filepath.Join(t.TempDir(), "missing.csv"))
	_, err := newTestOrchestrator(gw, cr).Run(context.Background(), opts)
	assert.Error(t, err)
}
