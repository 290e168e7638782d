package ledger

import (
	"context"
	"log/slog"
)

// DefaultMaxResults bounds each per-type query. Very large ledgers may be
// under-sampled; that is a documented limitation of the bounded query, not
// something the gateway papers over.
const DefaultMaxResults = 500

// Querier is the query surface the gateway needs from the client.
type Querier interface {
	QueryDocuments(ctx context.Context, docType, where string, maxResults int) ([]document, error)
}

// TypeResult records the outcome of querying one document type. A failed
// type contributes zero records; the error is kept here so the ignore-
// failures policy stays explicit and testable instead of hiding in
// swallowed exceptions.
type TypeResult struct {
	DocType string `json:"doc_type"`
	Count   int    `json:"count"`
	Err     error  `json:"-"`
}

// Gateway issues bounded queries across multiple ledger document types and
// flattens the results into the uniform Record shape.
//
// Per-type failures are deliberately non-fatal: partial ledger visibility
// beats aborting a reconciliation, so the overall fetch never fails.
type Gateway struct {
	querier    Querier
	maxResults int
	logger     *slog.Logger
}

// NewGateway creates a gateway over the given querier.
func NewGateway(querier Querier, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		querier:    querier,
		maxResults: DefaultMaxResults,
		logger:     logger.With("system", "gateway"),
	}
}

// FetchCandidates queries each document type over [start, end] and returns
// the flattened records plus a per-type outcome list. Records carry no
// ordering guarantee beyond type-iteration order.
func (g *Gateway) FetchCandidates(ctx context.Context, docTypes []string, start, end string) ([]Record, []TypeResult) {
	return g.fetch(ctx, docTypes, DateRangeWhere(start, end), g.maxResults)
}

// FetchThrough queries each document type for documents dated on or before
// the given date. Used for reconciliation snapshots, where the bound is
// looser than an import window.
func (g *Gateway) FetchThrough(ctx context.Context, docTypes []string, end string, maxResults int) ([]Record, []TypeResult) {
	return g.fetch(ctx, docTypes, "TxnDate <= '"+EscapeValue(end)+"'", maxResults)
}

func (g *Gateway) fetch(ctx context.Context, docTypes []string, where string, maxResults int) ([]Record, []TypeResult) {
	var records []Record
	results := make([]TypeResult, 0, len(docTypes))

	for _, docType := range docTypes {
		docs, err := g.querier.QueryDocuments(ctx, docType, where, maxResults)
		if err != nil {
			g.logger.Warn("ledger query failed, continuing without this type",
				"doc_type", docType, "error", err)
			results = append(results, TypeResult{DocType: docType, Err: err})
			continue
		}

		count := 0
		for _, doc := range docs {
			rec, err := flatten(docType, doc)
			if err != nil {
				g.logger.Warn("skipping unflattenable document", "doc_type", docType, "error", err)
				continue
			}
			records = append(records, rec)
			count++
		}
		results = append(results, TypeResult{DocType: docType, Count: count})
	}

	return records, results
}
