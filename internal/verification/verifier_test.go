package verification

import (
	"context"
	"errors"
	"testing"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
	"coin-ledger/internal/storage"
	"coin-ledger/internal/storage/memory"
)

func enrichedRow(id int64, c1, c2, c3 int, stored int64) *domain.EnrichedTransaction {
	return &domain.EnrichedTransaction{
		ID:          id,
		CoinID:      id * 10,
		BuyerName:   "buyer",
		Component1:  c1,
		Component2:  c2,
		Component3:  c3,
		StoredValue: stored,
	}
}

func TestCompareCoinIdentity(t *testing.T) {
	good, _ := identity.Compute(1, 2, 3)

	tests := []struct {
		name         string
		row          *domain.EnrichedTransaction
		wantComputed int64
		wantErr      error
	}{
		{name: "match", row: enrichedRow(1, 1, 2, 3, good), wantComputed: good},
		{name: "tampered value", row: enrichedRow(2, 1, 2, 3, good+1), wantComputed: good, wantErr: storage.ErrIdentityMismatch},
		{name: "invalid component", row: enrichedRow(3, identity.MaxComponent+1, 0, 0, 0), wantErr: identity.ErrInvalidComponent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			computed, err := CompareCoinIdentity(tt.row)
			if computed != tt.wantComputed {
				t.Errorf("computed = %d, want %d", computed, tt.wantComputed)
			}
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, storage.ErrIdentityMismatch) {
				t.Errorf("every failure should wrap ErrIdentityMismatch, got %v", err)
			}
		})
	}
}

// fixedLedger serves a fixed enriched listing.
type fixedLedger struct {
	storage.LedgerStore
	rows []*domain.EnrichedTransaction
	err  error
}

func (f *fixedLedger) ListTransactionsEnriched(context.Context) ([]*domain.EnrichedTransaction, error) {
	return f.rows, f.err
}

func TestAuditor_CollectsEveryDivergence(t *testing.T) {
	good, _ := identity.Compute(4, 5, 6)
	ledger := &fixedLedger{rows: []*domain.EnrichedTransaction{
		enrichedRow(1, 4, 5, 6, good),
		enrichedRow(2, 4, 5, 6, good+7),
		enrichedRow(3, -1, 5, 6, 0),
		enrichedRow(4, 4, 5, 6, good),
	}}
	audits := memory.NewAuditStore()

	run, err := NewAuditor(AuditorOptions{Ledger: ledger, Audits: audits}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if run.Total != 4 || run.Matched != 2 || run.Divergent != 2 {
		t.Errorf("run = %+v, want total 4 matched 2 divergent 2", run)
	}
	if run.Clean() {
		t.Error("run should not be clean")
	}
	if run.RunID == "" {
		t.Error("expected run ID")
	}
	if len(run.Divergences) != 2 {
		t.Fatalf("Expected 2 divergences, got %d", len(run.Divergences))
	}
	if d := run.Divergences[0]; d.TransactionID != 2 || d.Reason != ReasonValueMismatch || d.ComputedValue != good {
		t.Errorf("divergence[0] = %+v", d)
	}
	if d := run.Divergences[1]; d.TransactionID != 3 || d.Reason != ReasonInvalidComponent || d.ComputedValue != 0 {
		t.Errorf("divergence[1] = %+v", d)
	}

	stored, err := audits.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(stored) != 1 || stored[0].RunID != run.RunID {
		t.Errorf("audit run not persisted: %+v", stored)
	}
}

func TestAuditor_CleanLedger(t *testing.T) {
	store := memory.NewLedgerStore()
	ctx := context.Background()

	alice := &domain.Client{Name: "Alice", Contact: "alice@example.test"}
	if err := store.CreateClient(ctx, alice); err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	v, _ := identity.Compute(7, 8, 9)
	coin := &domain.Coin{Component1: 7, Component2: 8, Component3: 9, Value: v}
	if err := store.MintCoin(ctx, coin); err != nil {
		t.Fatalf("MintCoin failed: %v", err)
	}
	if err := store.RecordTransaction(ctx, &domain.Transaction{CoinID: coin.ID, BuyerID: alice.ID}); err != nil {
		t.Fatalf("RecordTransaction failed: %v", err)
	}

	auditor := NewAuditor(AuditorOptions{Ledger: store})
	run, err := auditor.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !run.Clean() || run.Total != 1 || run.Matched != 1 {
		t.Errorf("run = %+v, want clean 1/1", run)
	}

	recent, err := auditor.Recent(ctx, 5)
	if err != nil || len(recent) != 0 {
		t.Errorf("Recent without audit store = %v, %v", recent, err)
	}
}

func TestAuditor_StoreError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewAuditor(AuditorOptions{Ledger: &fixedLedger{err: boom}}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped store error, got %v", err)
	}
}
