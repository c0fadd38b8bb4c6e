package postgres

import (
	"context"
	"fmt"
	"time"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
// E-mail uniqueness is case-insensitive (unique index on lower(email)).
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Create inserts an account. Returns ErrDuplicateContact if the e-mail exists.
func (s *AccountStore) Create(ctx context.Context, a *domain.Account) error {
	if a == nil || a.Email == "" {
		return storage.ErrInvalidInput
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO accounts (name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	start := time.Now()
	err := s.pool.QueryRow(ctx, query, a.Name, a.Email, a.PasswordHash, a.CreatedAt).Scan(&a.ID)
	observe("create_account", start, err)
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByEmail retrieves an account by e-mail. Returns ErrNotFound if not exists.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `
		SELECT id, name, email, password_hash, created_at
		FROM accounts
		WHERE lower(email) = lower($1)
	`

	var a domain.Account
	err := s.pool.QueryRow(ctx, query, email).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return &a, nil
}
