// Package ledger serves the enriched, integrity-checked transaction view.
package ledger

import (
	"context"
	"fmt"
	"time"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/observability"
	"coin-ledger/internal/storage"
	"coin-ledger/internal/verification"
)

// Query reads enriched transactions and re-derives every coin identity.
// It holds no mutable state and is safe for concurrent use.
type Query struct {
	store storage.LedgerStore
}

// NewQuery creates a Query over store.
func NewQuery(store storage.LedgerStore) *Query {
	return &Query{store: store}
}

// FetchEnrichedTransactions returns all transactions, newest first, with
// ComputedValue filled from the coin components. If any row's stored value
// cannot be reproduced the call fails with storage.ErrIdentityMismatch and
// returns no rows.
func (q *Query) FetchEnrichedTransactions(ctx context.Context) ([]*domain.EnrichedTransaction, error) {
	start := time.Now()

	rows, err := q.store.ListTransactionsEnriched(ctx)
	if err != nil {
		observability.RecordEnrichedQuery(0, time.Since(start), err)
		return nil, fmt.Errorf("list enriched transactions: %w", err)
	}

	for _, row := range rows {
		computed, err := verification.CompareCoinIdentity(row)
		if err != nil {
			observability.RecordIntegrityMismatch()
			observability.RecordEnrichedQuery(0, time.Since(start), err)
			return nil, err
		}
		row.ComputedValue = computed
	}

	observability.RecordEnrichedQuery(len(rows), time.Since(start), nil)
	return rows, nil
}

// Counts returns the ledger row counts.
func (q *Query) Counts(ctx context.Context) (domain.LedgerCounts, error) {
	return q.store.Counts(ctx)
}
