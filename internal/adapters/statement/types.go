package statement

import (
	"time"

	"github.com/shopspring/decimal"
)

// Format identifies a statement file format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatOFX  Format = "ofx"
	FormatCSV  Format = "csv"
)

// Transaction is one normalized statement line, regardless of source format.
// Negative amounts are debits (money out), non-negative are credits.
type Transaction struct {
	Date        string          `json:"date"` // YYYY-MM-DD, empty when the source omits it
	Amount      decimal.Decimal `json:"amount"`
	FITID       string          `json:"fitid"`
	Name        string          `json:"name"`
	Memo        string          `json:"memo"`
	Type        string          `json:"type"`
	CheckNumber string          `json:"check_number"`
}

// Statement is the parsed contents of one statement file.
// Transactions keep the file's native order; the parser never sorts.
type Statement struct {
	Transactions []Transaction `json:"transactions"`
	Format       Format        `json:"format"`
	// DroppedRows counts CSV rows discarded because their amount
	// failed to parse. Dropping is deliberate leniency, but the count
	// is surfaced so silent data loss stays visible.
	DroppedRows int `json:"dropped_rows"`
}

// Options controls parsing. Column names and SkipHeader only apply to the
// CSV backend.
type Options struct {
	Format            Format
	DateColumn        string
	AmountColumn      string
	DescriptionColumn string
	// SkipHeader discards one leading row before the column header, for
	// exports that prepend a title or account line.
	SkipHeader bool
}

// DefaultOptions returns options matching common bank CSV exports.
func DefaultOptions() Options {
	return Options{
		Format:            FormatAuto,
		DateColumn:        "Date",
		AmountColumn:      "Amount",
		DescriptionColumn: "Description",
	}
}

// ParseDate parses a statement or ledger date into a comparable value.
// Anything beyond the first ten characters (time suffixes, offsets) is
// ignored. The second return is false when the date is absent or
// unparseable.
func ParseDate(s string) (time.Time, bool) {
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateRange returns the min and max non-empty dates in the statement.
// Both are empty strings when no transaction carries a date.
func (s *Statement) DateRange() (min, max string) {
	for _, txn := range s.Transactions {
		if txn.Date == "" {
			continue
		}
		if min == "" || txn.Date < min {
			min = txn.Date
		}
		if max == "" || txn.Date > max {
			max = txn.Date
		}
	}
	return min, max
}
