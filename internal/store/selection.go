package store

import (
	"context"

	"github.com/candidatesuite/shortlist/internal/ingest"
	"github.com/candidatesuite/shortlist/internal/schema"
)

// SelectionQueue is the read-only view over candidates awaiting a decision.
type SelectionQueue struct {
	fetcher *ingest.Fetcher
}

// NewSelectionQueue builds the queue facade over its CSV export URL.
func NewSelectionQueue(csvURL string, opts ...ingest.Option) *SelectionQueue {
	return &SelectionQueue{fetcher: ingest.NewFetcher(csvURL, opts...)}
}

// List re-ingests and normalizes the selection sheet. On parse failure no
// partial list is returned; the error blocks the listing. Warnings are the
// caller's to log.
func (q *SelectionQueue) List(ctx context.Context) ([]schema.Candidate, []ingest.Warning, error) {
	records, warnings, err := q.fetcher.Fetch(ctx)
	if err != nil {
		return nil, nil, err
	}
	return schema.NormalizeAll(records), warnings, nil
}
