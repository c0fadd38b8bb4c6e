package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
	"coin-ledger/internal/storage"
)

// LedgerStore is an in-memory implementation of storage.LedgerStore.
// A single RWMutex serializes writers; readers share the lock.
type LedgerStore struct {
	mu    sync.RWMutex
	state ledgerState
}

// ledgerState holds all tables. Stored records are never mutated after
// insert, so a clone only needs to copy the maps.
type ledgerState struct {
	clients      map[int64]*domain.Client
	contacts     map[string]int64 // contact -> client id
	coins        map[int64]*domain.Coin
	triples      map[[3]int]int64 // components -> coin id
	transactions map[int64]*domain.Transaction

	lastClientID int64
	lastCoinID   int64
	lastTxID     int64
}

// NewLedgerStore creates a new in-memory ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{state: newLedgerState()}
}

// Verify interface compliance at compile time.
var _ storage.LedgerStore = (*LedgerStore)(nil)

func newLedgerState() ledgerState {
	return ledgerState{
		clients:      make(map[int64]*domain.Client),
		contacts:     make(map[string]int64),
		coins:        make(map[int64]*domain.Coin),
		triples:      make(map[[3]int]int64),
		transactions: make(map[int64]*domain.Transaction),
	}
}

func (st *ledgerState) clone() ledgerState {
	return ledgerState{
		clients:      maps.Clone(st.clients),
		contacts:     maps.Clone(st.contacts),
		coins:        maps.Clone(st.coins),
		triples:      maps.Clone(st.triples),
		transactions: maps.Clone(st.transactions),
		lastClientID: st.lastClientID,
		lastCoinID:   st.lastCoinID,
		lastTxID:     st.lastTxID,
	}
}

// CreateClient inserts a client. Returns ErrDuplicateContact if the contact exists.
func (s *LedgerStore) CreateClient(_ context.Context, c *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createClient(c)
}

// MintCoin inserts a coin after re-deriving its identity.
func (s *LedgerStore) MintCoin(_ context.Context, c *domain.Coin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.mintCoin(c)
}

// RecordTransaction inserts a transaction after resolving its references.
func (s *LedgerStore) RecordTransaction(_ context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.recordTransaction(t)
}

// Clear deletes all ledger rows.
func (s *LedgerStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.clear()
	return nil
}

// Exclusive runs fn under the write lock. On error the state captured before
// fn started is restored.
func (s *LedgerStore) Exclusive(ctx context.Context, fn func(ctx context.Context, w storage.LedgerWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &exclusiveWriter{state: &s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// GetClient retrieves a client by ID. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetClient(_ context.Context, id int64) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.state.clients[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	clientCopy := *c
	return &clientCopy, nil
}

// GetCoin retrieves a coin by ID. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetCoin(_ context.Context, id int64) (*domain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.state.coins[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	coinCopy := *c
	return &coinCopy, nil
}

// ListTransactionsEnriched joins every transaction with its coin and clients.
func (s *LedgerStore) ListTransactionsEnriched(_ context.Context) ([]*domain.EnrichedTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.EnrichedTransaction, 0, len(s.state.transactions))
	for _, t := range s.state.transactions {
		coin, ok := s.state.coins[t.CoinID]
		if !ok {
			return nil, fmt.Errorf("transaction %d coin %d: %w", t.ID, t.CoinID, storage.ErrUnknownReference)
		}
		buyer, ok := s.state.clients[t.BuyerID]
		if !ok {
			return nil, fmt.Errorf("transaction %d buyer %d: %w", t.ID, t.BuyerID, storage.ErrUnknownReference)
		}

		row := &domain.EnrichedTransaction{
			ID:              t.ID,
			CoinID:          t.CoinID,
			Amount:          t.Amount,
			TransactionDate: t.TransactionDate,
			BuyerID:         buyer.ID,
			BuyerName:       buyer.Name,
			Component1:      coin.Component1,
			Component2:      coin.Component2,
			Component3:      coin.Component3,
			StoredValue:     coin.Value,
		}
		if t.SellerID != nil {
			seller, ok := s.state.clients[*t.SellerID]
			if !ok {
				return nil, fmt.Errorf("transaction %d seller %d: %w", t.ID, *t.SellerID, storage.ErrUnknownReference)
			}
			sellerID := seller.ID
			sellerName := seller.Name
			row.SellerID = &sellerID
			row.SellerName = &sellerName
		}
		result = append(result, row)
	}

	// Sort by transaction_date DESC, id DESC
	sort.Slice(result, func(i, j int) bool {
		if !result[i].TransactionDate.Equal(result[j].TransactionDate) {
			return result[i].TransactionDate.After(result[j].TransactionDate)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// Counts returns the number of rows per ledger table.
func (s *LedgerStore) Counts(_ context.Context) (domain.LedgerCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return domain.LedgerCounts{
		Clients:      len(s.state.clients),
		Coins:        len(s.state.coins),
		Transactions: len(s.state.transactions),
	}, nil
}

// exclusiveWriter writes straight to the state; the caller holds the lock.
type exclusiveWriter struct {
	state *ledgerState
}

func (w *exclusiveWriter) CreateClient(_ context.Context, c *domain.Client) error {
	return w.state.createClient(c)
}

func (w *exclusiveWriter) MintCoin(_ context.Context, c *domain.Coin) error {
	return w.state.mintCoin(c)
}

func (w *exclusiveWriter) RecordTransaction(_ context.Context, t *domain.Transaction) error {
	return w.state.recordTransaction(t)
}

func (w *exclusiveWriter) Clear(_ context.Context) error {
	w.state.clear()
	return nil
}

func (st *ledgerState) createClient(c *domain.Client) error {
	if c == nil || c.Contact == "" {
		return storage.ErrInvalidInput
	}
	if _, exists := st.contacts[c.Contact]; exists {
		return storage.ErrDuplicateContact
	}

	st.lastClientID++
	c.ID = st.lastClientID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	// Store a copy to prevent external mutation
	clientCopy := *c
	st.clients[c.ID] = &clientCopy
	st.contacts[c.Contact] = c.ID
	return nil
}

func (st *ledgerState) mintCoin(c *domain.Coin) error {
	if c == nil {
		return storage.ErrInvalidInput
	}

	want, err := identity.Compute(c.Component1, c.Component2, c.Component3)
	if err != nil {
		return fmt.Errorf("mint coin: %w", err)
	}
	if c.Value != want {
		return fmt.Errorf("mint coin %v: value %d, identity %d: %w",
			c.Components(), c.Value, want, storage.ErrIdentityMismatch)
	}

	key := c.Components()
	if _, exists := st.triples[key]; exists {
		return storage.ErrDuplicateComponents
	}

	st.lastCoinID++
	c.ID = st.lastCoinID

	coinCopy := *c
	st.coins[c.ID] = &coinCopy
	st.triples[key] = c.ID
	return nil
}

func (st *ledgerState) recordTransaction(t *domain.Transaction) error {
	if t == nil {
		return storage.ErrInvalidInput
	}
	if err := storage.ValidateAmount(t.Amount); err != nil {
		return err
	}
	if _, ok := st.coins[t.CoinID]; !ok {
		return fmt.Errorf("coin %d: %w", t.CoinID, storage.ErrUnknownReference)
	}
	if _, ok := st.clients[t.BuyerID]; !ok {
		return fmt.Errorf("buyer %d: %w", t.BuyerID, storage.ErrUnknownReference)
	}
	if t.SellerID != nil {
		if _, ok := st.clients[*t.SellerID]; !ok {
			return fmt.Errorf("seller %d: %w", *t.SellerID, storage.ErrUnknownReference)
		}
	}

	st.lastTxID++
	t.ID = st.lastTxID

	txCopy := *t
	if t.SellerID != nil {
		sellerID := *t.SellerID
		txCopy.SellerID = &sellerID
	}
	st.transactions[t.ID] = &txCopy
	return nil
}

// clear drops rows in dependency order; identity counters keep increasing.
func (st *ledgerState) clear() {
	clear(st.transactions)
	clear(st.coins)
	clear(st.triples)
	clear(st.clients)
	clear(st.contacts)
}
