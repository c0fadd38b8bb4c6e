package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
	"coin-ledger/internal/storage"
)

func mustCoin(t *testing.T, c1, c2, c3 int) *domain.Coin {
	t.Helper()
	v, err := identity.Compute(c1, c2, c3)
	if err != nil {
		t.Fatalf("identity.Compute(%d, %d, %d): %v", c1, c2, c3, err)
	}
	return &domain.Coin{Component1: c1, Component2: c2, Component3: c3, Value: v}
}

func seedPair(t *testing.T, store *LedgerStore) (alice, bob *domain.Client, coin *domain.Coin) {
	t.Helper()
	ctx := context.Background()

	alice = &domain.Client{Name: "Alice", Contact: "alice@example.test"}
	bob = &domain.Client{Name: "Bob", Contact: "bob@example.test"}
	for _, c := range []*domain.Client{alice, bob} {
		if err := store.CreateClient(ctx, c); err != nil {
			t.Fatalf("CreateClient(%s) failed: %v", c.Name, err)
		}
	}

	coin = mustCoin(t, 1, 2, 3)
	if err := store.MintCoin(ctx, coin); err != nil {
		t.Fatalf("MintCoin failed: %v", err)
	}
	return alice, bob, coin
}

func TestLedgerStore_CreateClient(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	c := &domain.Client{Name: "Alice", Contact: "alice@example.test"}
	if err := store.CreateClient(ctx, c); err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	if c.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := store.GetClient(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetClient failed: %v", err)
	}
	if got.Name != "Alice" || got.Contact != "alice@example.test" {
		t.Errorf("GetClient mismatch: got %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestLedgerStore_CreateClientDuplicateContact(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	if err := store.CreateClient(ctx, &domain.Client{Name: "Alice", Contact: "same@example.test"}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.CreateClient(ctx, &domain.Client{Name: "Alicia", Contact: "same@example.test"})
	if !errors.Is(err, storage.ErrDuplicateContact) {
		t.Errorf("Expected ErrDuplicateContact, got %v", err)
	}

	counts, _ := store.Counts(ctx)
	if counts.Clients != 1 {
		t.Errorf("Expected 1 client, got %d", counts.Clients)
	}
}

func TestLedgerStore_MintCoinDuplicateComponents(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	first := mustCoin(t, 1, 2, 3)
	if err := store.MintCoin(ctx, first); err != nil {
		t.Fatalf("First mint failed: %v", err)
	}

	err := store.MintCoin(ctx, mustCoin(t, 1, 2, 3))
	if !errors.Is(err, storage.ErrDuplicateComponents) {
		t.Errorf("Expected ErrDuplicateComponents, got %v", err)
	}

	counts, _ := store.Counts(ctx)
	if counts.Coins != 1 {
		t.Errorf("Expected coin count unchanged at 1, got %d", counts.Coins)
	}

	// Permutation is a different coin
	if err := store.MintCoin(ctx, mustCoin(t, 3, 2, 1)); err != nil {
		t.Errorf("Mint of permuted triple failed: %v", err)
	}
}

func TestLedgerStore_MintCoinIdentityMismatch(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()

	coin := mustCoin(t, 4, 5, 6)
	coin.Value++

	err := store.MintCoin(ctx, coin)
	if !errors.Is(err, storage.ErrIdentityMismatch) {
		t.Errorf("Expected ErrIdentityMismatch, got %v", err)
	}

	counts, _ := store.Counts(ctx)
	if counts.Coins != 0 {
		t.Errorf("Expected no coins, got %d", counts.Coins)
	}
}

func TestLedgerStore_MintCoinInvalidComponent(t *testing.T) {
	store := NewLedgerStore()

	err := store.MintCoin(context.Background(), &domain.Coin{Component1: identity.MaxComponent + 1})
	if !errors.Is(err, identity.ErrInvalidComponent) {
		t.Errorf("Expected ErrInvalidComponent, got %v", err)
	}
}

func TestLedgerStore_RecordTransaction(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()
	alice, bob, coin := seedPair(t, store)

	mint := &domain.Transaction{
		CoinID:          coin.ID,
		BuyerID:         alice.ID,
		Amount:          decimal.RequireFromString("10.50"),
		TransactionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := store.RecordTransaction(ctx, mint); err != nil {
		t.Fatalf("RecordTransaction (mint) failed: %v", err)
	}
	if !mint.IsMint() {
		t.Error("expected mint transaction")
	}

	resale := &domain.Transaction{
		CoinID:          coin.ID,
		BuyerID:         bob.ID,
		SellerID:        &alice.ID,
		Amount:          decimal.RequireFromString("12.00"),
		TransactionDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := store.RecordTransaction(ctx, resale); err != nil {
		t.Fatalf("RecordTransaction (resale) failed: %v", err)
	}

	if mint.ID == 0 || resale.ID == 0 || mint.ID == resale.ID {
		t.Errorf("expected distinct assigned IDs, got %d and %d", mint.ID, resale.ID)
	}
}

func TestLedgerStore_RecordTransactionUnknownReference(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()
	alice, _, coin := seedPair(t, store)
	missing := int64(999)

	tests := []struct {
		name string
		tx   *domain.Transaction
	}{
		{
			name: "unknown coin",
			tx:   &domain.Transaction{CoinID: missing, BuyerID: alice.ID},
		},
		{
			name: "unknown buyer",
			tx:   &domain.Transaction{CoinID: coin.ID, BuyerID: missing},
		},
		{
			name: "unknown seller",
			tx:   &domain.Transaction{CoinID: coin.ID, BuyerID: alice.ID, SellerID: &missing},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.tx.TransactionDate = time.Now()
			err := store.RecordTransaction(ctx, tt.tx)
			if !errors.Is(err, storage.ErrUnknownReference) {
				t.Errorf("Expected ErrUnknownReference, got %v", err)
			}

			counts, _ := store.Counts(ctx)
			if counts.Transactions != 0 {
				t.Errorf("Expected transaction count unchanged at 0, got %d", counts.Transactions)
			}
		})
	}
}

func TestLedgerStore_RecordTransactionInvalidAmount(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()
	alice, _, coin := seedPair(t, store)

	err := store.RecordTransaction(ctx, &domain.Transaction{
		CoinID:          coin.ID,
		BuyerID:         alice.ID,
		Amount:          decimal.NewFromInt(-1),
		TransactionDate: time.Now(),
	})
	if !errors.Is(err, storage.ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}

	// Zero is allowed
	err = store.RecordTransaction(ctx, &domain.Transaction{
		CoinID:          coin.ID,
		BuyerID:         alice.ID,
		Amount:          decimal.Zero,
		TransactionDate: time.Now(),
	})
	if err != nil {
		t.Errorf("Zero amount rejected: %v", err)
	}
}

func TestLedgerStore_RecordTransactionAmountPrecision(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()
	alice, _, coin := seedPair(t, store)

	tests := []struct {
		amount string
		valid  bool
	}{
		{amount: "0.005", valid: false},
		{amount: "12.345", valid: false},
		{amount: "10000000000000000", valid: false},
		{amount: "12.5", valid: true},
		{amount: "99.990", valid: true},
		{amount: "9999999999999999.99", valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			tx := &domain.Transaction{
				CoinID:          coin.ID,
				BuyerID:         alice.ID,
				Amount:          decimal.RequireFromString(tt.amount),
				TransactionDate: time.Now(),
			}
			err := store.RecordTransaction(ctx, tx)
			if !tt.valid {
				if !errors.Is(err, storage.ErrInvalidAmount) {
					t.Fatalf("Expected ErrInvalidAmount, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("RecordTransaction(%s) failed: %v", tt.amount, err)
			}
		})
	}

	// Rejected amounts leave nothing behind, accepted ones are stored exactly.
	rows, err := store.ListTransactionsEnriched(ctx)
	if err != nil {
		t.Fatalf("ListTransactionsEnriched failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 stored transactions, got %d", len(rows))
	}
	for _, row := range rows {
		if !row.Amount.Equal(row.Amount.Round(2)) {
			t.Errorf("transaction %d stored amount %s with more than two places", row.ID, row.Amount)
		}
	}
}

func TestLedgerStore_ListTransactionsEnriched(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()
	alice, bob, coin := seedPair(t, store)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := []*domain.Transaction{
		{CoinID: coin.ID, BuyerID: alice.ID, Amount: decimal.NewFromInt(1), TransactionDate: base},
		{CoinID: coin.ID, BuyerID: bob.ID, SellerID: &alice.ID, Amount: decimal.NewFromInt(2), TransactionDate: base.Add(2 * time.Hour)},
		{CoinID: coin.ID, BuyerID: alice.ID, SellerID: &bob.ID, Amount: decimal.NewFromInt(3), TransactionDate: base.Add(time.Hour)},
	}
	for _, tx := range txs {
		if err := store.RecordTransaction(ctx, tx); err != nil {
			t.Fatalf("RecordTransaction failed: %v", err)
		}
	}

	rows, err := store.ListTransactionsEnriched(ctx)
	if err != nil {
		t.Fatalf("ListTransactionsEnriched failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	// Sorted by transaction_date DESC
	wantOrder := []int64{txs[1].ID, txs[2].ID, txs[0].ID}
	for i, want := range wantOrder {
		if rows[i].ID != want {
			t.Errorf("rows[%d].ID = %d, want %d", i, rows[i].ID, want)
		}
	}

	latest := rows[0]
	if latest.BuyerName != "Bob" {
		t.Errorf("BuyerName = %s, want Bob", latest.BuyerName)
	}
	if latest.SellerName == nil || *latest.SellerName != "Alice" {
		t.Errorf("SellerName = %v, want Alice", latest.SellerName)
	}
	if latest.Component1 != 1 || latest.Component2 != 2 || latest.Component3 != 3 {
		t.Errorf("components = (%d, %d, %d), want (1, 2, 3)", latest.Component1, latest.Component2, latest.Component3)
	}
	if latest.StoredValue != coin.Value {
		t.Errorf("StoredValue = %d, want %d", latest.StoredValue, coin.Value)
	}

	oldest := rows[2]
	if oldest.SellerID != nil || oldest.SellerName != nil {
		t.Errorf("mint row should have no seller, got %v / %v", oldest.SellerID, oldest.SellerName)
	}
}

func TestLedgerStore_ExclusiveRollsBackOnError(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()
	seedPair(t, store)

	boom := errors.New("boom")
	err := store.Exclusive(ctx, func(ctx context.Context, w storage.LedgerWriter) error {
		if err := w.Clear(ctx); err != nil {
			return err
		}
		if err := w.CreateClient(ctx, &domain.Client{Name: "Carol", Contact: "carol@example.test"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	counts, _ := store.Counts(ctx)
	if counts.Clients != 2 || counts.Coins != 1 {
		t.Errorf("Expected original 2 clients / 1 coin after rollback, got %+v", counts)
	}
}

func TestLedgerStore_ExclusiveCommits(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()
	seedPair(t, store)

	err := store.Exclusive(ctx, func(ctx context.Context, w storage.LedgerWriter) error {
		if err := w.Clear(ctx); err != nil {
			return err
		}
		// A retryable failure inside the unit does not abort it
		if err := w.MintCoin(ctx, mustCoin(t, 7, 7, 7)); err != nil {
			return err
		}
		if err := w.MintCoin(ctx, mustCoin(t, 7, 7, 7)); !errors.Is(err, storage.ErrDuplicateComponents) {
			t.Errorf("Expected ErrDuplicateComponents inside Exclusive, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Exclusive failed: %v", err)
	}

	counts, _ := store.Counts(ctx)
	if counts.Clients != 0 || counts.Coins != 1 || counts.Transactions != 0 {
		t.Errorf("unexpected counts after Exclusive: %+v", counts)
	}
}

func TestLedgerStore_ConcurrentAccess(t *testing.T) {
	store := NewLedgerStore()
	ctx := context.Background()
	alice, _, coin := seedPair(t, store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.RecordTransaction(ctx, &domain.Transaction{
				CoinID:          coin.ID,
				BuyerID:         alice.ID,
				Amount:          decimal.NewFromInt(1),
				TransactionDate: time.Now(),
			})
		}()
		go func() {
			defer wg.Done()
			rows, err := store.ListTransactionsEnriched(ctx)
			if err != nil {
				t.Errorf("ListTransactionsEnriched failed: %v", err)
				return
			}
			for _, r := range rows {
				if r.BuyerName == "" {
					t.Errorf("row %d observed without buyer name", r.ID)
				}
			}
		}()
	}
	wg.Wait()

	counts, _ := store.Counts(ctx)
	if counts.Transactions != 50 {
		t.Errorf("Expected 50 transactions, got %d", counts.Transactions)
	}
}
