package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
type AccountStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Account // keyed by lower-cased email
	lastID int64
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		data: make(map[string]*domain.Account),
	}
}

// Create inserts an account. Returns ErrDuplicateContact if the e-mail exists.
func (s *AccountStore) Create(_ context.Context, a *domain.Account) error {
	if a == nil || a.Email == "" {
		return storage.ErrInvalidInput
	}
	key := strings.ToLower(a.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateContact
	}

	s.lastID++
	a.ID = s.lastID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	accountCopy := *a
	s.data[key] = &accountCopy
	return nil
}

// GetByEmail retrieves an account by e-mail. Returns ErrNotFound if not exists.
func (s *AccountStore) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, exists := s.data[strings.ToLower(email)]
	if !exists {
		return nil, storage.ErrNotFound
	}
	accountCopy := *a
	return &accountCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.AccountStore = (*AccountStore)(nil)
