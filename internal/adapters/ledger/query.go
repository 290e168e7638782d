package ledger

import (
	"fmt"
	"strings"
)

// BuildQuery assembles a ledger query string.
//
//	BuildQuery("Purchase", "TxnDate >= '2026-03-01'", 500)
//	=> "SELECT * FROM Purchase WHERE TxnDate >= '2026-03-01' MAXRESULTS 500"
func BuildQuery(entity, where string, maxResults int) string {
	parts := []string{fmt.Sprintf("SELECT * FROM %s", entity)}
	if where != "" {
		parts = append(parts, "WHERE "+where)
	}
	parts = append(parts, fmt.Sprintf("MAXRESULTS %d", maxResults))
	return strings.Join(parts, " ")
}

// DateRangeWhere builds a TxnDate window predicate. Values are escaped
// before embedding.
func DateRangeWhere(start, end string) string {
	return fmt.Sprintf("TxnDate >= '%s' AND TxnDate <= '%s'", EscapeValue(start), EscapeValue(end))
}

// EscapeValue escapes a string value for embedding in a ledger query.
// The query language uses single quotes and escapes them by doubling.
func EscapeValue(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}
