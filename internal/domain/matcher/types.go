package matcher

import (
	"github.com/ledgersync/ledgersync/internal/adapters/ledger"
	"github.com/ledgersync/ledgersync/internal/adapters/statement"
)

// Pair correlates one statement transaction with one ledger record.
type Pair struct {
	Statement statement.Transaction `json:"statement"`
	Ledger    ledger.Record         `json:"ledger"`
	// DateDiff is the whole-day distance between the two dates.
	DateDiff int `json:"date_diff_days"`
}

// Result is the three-way partition of a match run. Every input statement
// transaction lands in exactly one bucket, and no ledger record id appears
// in more than one pair.
type Result struct {
	Exact     []Pair                  `json:"exact"`
	Probable  []Pair                  `json:"probable"`
	Unmatched []statement.Transaction `json:"unmatched"`
}

// ClaimedIDs returns the set of ledger record ids consumed by exact or
// probable pairs.
func (r *Result) ClaimedIDs() map[string]bool {
	claimed := make(map[string]bool, len(r.Exact)+len(r.Probable))
	for _, p := range r.Exact {
		claimed[p.Ledger.ID] = true
	}
	for _, p := range r.Probable {
		claimed[p.Ledger.ID] = true
	}
	return claimed
}
