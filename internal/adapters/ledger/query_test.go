package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQuery(t *testing.T) {
	got := BuildQuery("Purchase", "TxnDate >= '2026-03-01'", 500)
	assert.Equal(t, "SELECT * FROM Purchase WHERE TxnDate >= '2026-03-01' MAXRESULTS 500", got)
}

func TestBuildQuery_NoWhere(t *testing.T) {
	got := BuildQuery("Deposit", "", 100)
	assert.Equal(t, "SELECT * FROM Deposit MAXRESULTS 100", got)
}

func TestDateRangeWhere(t *testing.T) {
	got := DateRangeWhere("2026-03-01", "2026-03-31")
	assert.Equal(t, "TxnDate >= '2026-03-01' AND TxnDate <= '2026-03-31'", got)
}

func TestEscapeValue(t *testing.T) {
	assert.Equal(t, "O''Brien", EscapeValue("O'Brien"))
	assert.Equal(t, "plain", EscapeValue("plain"))
	assert.Equal(t, "''''", EscapeValue("''"))
}
