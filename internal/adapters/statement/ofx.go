package statement

import (
	"fmt"
	"os"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

// parseOFX flattens every account statement in the file (bank and credit
// card alike) into one transaction sequence. Amounts arrive signed from the
// file and are carried verbatim.
func parseOFX(path string) (*Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open statement file: %w", err)
	}
	defer f.Close()

	resp, err := ofxgo.ParseResponse(f)
	if err != nil {
		return nil, fmt.Errorf("parse ofx %s: %w", path, err)
	}

	stmt := &Statement{Format: FormatOFX}
	for _, msg := range append(resp.Bank, resp.CreditCard...) {
		var trns []ofxgo.Transaction
		switch acct := msg.(type) {
		case *ofxgo.StatementResponse:
			if acct.BankTranList != nil {
				trns = acct.BankTranList.Transactions
			}
		case *ofxgo.CCStatementResponse:
			if acct.BankTranList != nil {
				trns = acct.BankTranList.Transactions
			}
		default:
			continue
		}

		for _, trn := range trns {
			txn, ok := ofxTransaction(trn)
			if !ok {
				// A transaction without a usable amount cannot be
				// reconciled; skip it rather than failing the file.
				continue
			}
			stmt.Transactions = append(stmt.Transactions, txn)
		}
	}

	return stmt, nil
}

// ofxTransaction normalizes one OFX transaction. ok is false when the
// amount is unusable.
func ofxTransaction(trn ofxgo.Transaction) (Transaction, bool) {
	amount, err := decimal.NewFromString(trn.TrnAmt.String())
	if err != nil {
		return Transaction{}, false
	}

	// Missing posted date becomes an empty string. Downstream consumers
	// treat that as "unknown" and exclude the record from min/max date
	// computations.
	date := ""
	if !trn.DtPosted.IsZero() {
		date = trn.DtPosted.Format("2006-01-02")
	}

	name := string(trn.Name)
	if name == "" {
		name = string(trn.Memo)
	}

	return Transaction{
		Date:        date,
		Amount:      amount,
		FITID:       string(trn.FiTID),
		Name:        name,
		Memo:        string(trn.Memo),
		Type:        trn.TrnType.String(),
		CheckNumber: string(trn.CheckNum),
	}, true
}
