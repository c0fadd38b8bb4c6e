package storage

import (
	"context"

	"coin-ledger/internal/domain"
)

// LedgerWriter holds the mutating ledger operations.
// Every call is atomic: a failed call leaves no partial state.
type LedgerWriter interface {
	// CreateClient inserts a client and assigns c.ID.
	// Returns ErrDuplicateContact if the contact handle exists.
	CreateClient(ctx context.Context, c *domain.Client) error

	// MintCoin inserts a coin and assigns c.ID.
	// Returns identity.ErrInvalidComponent for out-of-range components,
	// ErrIdentityMismatch if c.Value is not the identity of its components,
	// and ErrDuplicateComponents if the triple already exists.
	MintCoin(ctx context.Context, c *domain.Coin) error

	// RecordTransaction inserts a transaction and assigns t.ID.
	// Returns ErrInvalidAmount for any amount ValidateAmount rejects (amounts
	// are stored as given, never rounded) and ErrUnknownReference if the coin,
	// buyer or (present) seller does not exist.
	RecordTransaction(ctx context.Context, t *domain.Transaction) error

	// Clear deletes all transactions, coins and clients, in that order.
	Clear(ctx context.Context) error
}

// LedgerStore provides access to clients, coins and transactions.
type LedgerStore interface {
	LedgerWriter

	// GetClient retrieves a client by ID. Returns ErrNotFound if not exists.
	GetClient(ctx context.Context, id int64) (*domain.Client, error)

	// GetCoin retrieves a coin by ID. Returns ErrNotFound if not exists.
	GetCoin(ctx context.Context, id int64) (*domain.Coin, error)

	// ListTransactionsEnriched returns every transaction joined with its coin
	// and client names, ordered by transaction_date DESC, id DESC.
	// ComputedValue is left zero.
	ListTransactionsEnriched(ctx context.Context) ([]*domain.EnrichedTransaction, error)

	// Counts returns the number of rows per ledger table.
	Counts(ctx context.Context) (domain.LedgerCounts, error)

	// Exclusive runs fn as a single all-or-nothing unit that excludes other
	// writers. If fn returns an error every write made through w is undone
	// and readers never observe any of them.
	Exclusive(ctx context.Context, fn func(ctx context.Context, w LedgerWriter) error) error
}

// AccountStore provides access to login accounts.
type AccountStore interface {
	// Create inserts an account and assigns a.ID.
	// Returns ErrDuplicateContact if the e-mail is registered.
	Create(ctx context.Context, a *domain.Account) error

	// GetByEmail retrieves an account by e-mail. Returns ErrNotFound if not exists.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// AuditStore provides access to integrity audit history. Append-only.
type AuditStore interface {
	// Insert stores a run with its divergences. Returns ErrInvalidInput if
	// the run ID is empty and ErrDuplicateKey if it already exists.
	Insert(ctx context.Context, run *domain.AuditRun) error

	// ListRecent returns up to limit runs, newest first (ties by run ID,
	// descending), with divergences. A non-positive limit returns every run.
	ListRecent(ctx context.Context, limit int) ([]*domain.AuditRun, error)
}
