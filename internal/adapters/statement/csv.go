package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// parseCSV reads a delimited statement using the caller-named columns.
// Rows whose amount does not parse are dropped silently but counted;
// banks export all manner of "N/A" and balance rows and aborting on them
// would make most real files unreadable.
func parseCSV(path string, opts Options) (*Statement, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open statement file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if opts.SkipHeader {
		if _, err := reader.Read(); err == io.EOF {
			return &Statement{Format: FormatCSV}, nil
		} else if err != nil {
			return nil, fmt.Errorf("read csv header: %w", err)
		}
	}

	header, err := reader.Read()
	if err == io.EOF {
		return &Statement{Format: FormatCSV}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	stmt := &Statement{Format: FormatCSV}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		amount, err := parseAmount(field(row, opts.AmountColumn))
		if err != nil {
			stmt.DroppedRows++
			continue
		}

		txnType := "credit"
		if amount.IsNegative() {
			txnType = "debit"
		}

		stmt.Transactions = append(stmt.Transactions, Transaction{
			Date:   field(row, opts.DateColumn),
			Amount: amount,
			Name:   field(row, opts.DescriptionColumn),
			Type:   txnType,
		})
	}

	return stmt, nil
}

// parseAmount cleans thousands separators and currency symbols before
// numeric parsing ("$1,234.56" -> 1234.56).
func parseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer(",", "", "$", "").Replace(s)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(cleaned)
}
