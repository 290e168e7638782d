package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Document types the gateway knows how to flatten. The ledger exposes more
// types than these; anything else fails closed (skipped and logged) rather
// than crashing on an unexpected shape.
const (
	DocPurchase     = "Purchase"
	DocDeposit      = "Deposit"
	DocTransfer     = "Transfer"
	DocPayment      = "Payment"
	DocSalesReceipt = "SalesReceipt"
	DocJournalEntry = "JournalEntry"
	DocBillPayment  = "BillPayment"
)

// ImportDocTypes is the document set queried when importing a bank
// statement.
var ImportDocTypes = []string{DocPurchase, DocDeposit, DocTransfer, DocJournalEntry}

// SnapshotDocTypes is the bank-affecting document set used for a
// reconciliation snapshot.
var SnapshotDocTypes = []string{DocPurchase, DocDeposit, DocTransfer, DocPayment, DocSalesReceipt, DocBillPayment}

// MatchDocTypes is the document set queried for a statement-vs-ledger
// match within a reconciliation session.
var MatchDocTypes = []string{DocPurchase, DocDeposit, DocTransfer, DocPayment, DocSalesReceipt, DocJournalEntry}

// Record is the uniform shape every ledger document type flattens into.
// Amount is the document's absolute total; the ledger stores direction
// implicitly via document type, so no sign is carried.
type Record struct {
	DocType   string          `json:"doc_type"`
	ID        string          `json:"id"`
	Date      string          `json:"date"`
	Amount    decimal.Decimal `json:"amount"`
	DocNumber string          `json:"doc_number"`
	RefNumber string          `json:"ref_number"`
	Memo      string          `json:"memo"`
	// FITID is the statement correlation token carried on documents the
	// importer created from a statement line, when present.
	FITID string `json:"fitid,omitempty"`
}

// document is the wire shape shared by the ledger document types we
// flatten. Fields missing from a given type simply decode to zero values.
type document struct {
	ID            string          `json:"Id"`
	TxnDate       string          `json:"TxnDate"`
	TotalAmt      decimal.Decimal `json:"TotalAmt"`
	Amount        decimal.Decimal `json:"Amount"`
	DocNumber     string          `json:"DocNumber"`
	PaymentRefNum string          `json:"PaymentRefNum"`
	PrivateNote   string          `json:"PrivateNote"`
	FITID         string          `json:"FITID"`
}

var knownDocTypes = map[string]bool{
	DocPurchase:     true,
	DocDeposit:      true,
	DocTransfer:     true,
	DocPayment:      true,
	DocSalesReceipt: true,
	DocJournalEntry: true,
	DocBillPayment:  true,
}

// flatten maps one wire document of the given type to the common Record
// shape. Unknown document types are rejected.
func flatten(docType string, doc document) (Record, error) {
	if !knownDocTypes[docType] {
		return Record{}, fmt.Errorf("unknown ledger document type %q", docType)
	}

	// Transfers and a few older types report Amount instead of TotalAmt.
	amount := doc.TotalAmt
	if amount.IsZero() {
		amount = doc.Amount
	}

	ref := doc.PaymentRefNum
	if ref == "" {
		ref = doc.DocNumber
	}

	return Record{
		DocType:   docType,
		ID:        doc.ID,
		Date:      doc.TxnDate,
		Amount:    amount.Abs(),
		DocNumber: doc.DocNumber,
		RefNumber: ref,
		Memo:      doc.PrivateNote,
		FITID:     doc.FITID,
	}, nil
}

// Account is the subset of the ledger account document the reconciliation
// session needs.
type Account struct {
	ID             string          `json:"Id"`
	Name           string          `json:"Name"`
	CurrentBalance decimal.Decimal `json:"CurrentBalance"`
}
