package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
	"coin-ledger/internal/storage"
)

// LedgerStore implements storage.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *Pool
}

// NewLedgerStore creates a new LedgerStore.
func NewLedgerStore(pool *Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerStore = (*LedgerStore)(nil)

// CreateClient inserts a client. Returns ErrDuplicateContact if the contact exists.
func (s *LedgerStore) CreateClient(ctx context.Context, c *domain.Client) error {
	return (&ledgerWriter{db: s.pool}).CreateClient(ctx, c)
}

// MintCoin inserts a coin after re-deriving its identity.
func (s *LedgerStore) MintCoin(ctx context.Context, c *domain.Coin) error {
	return (&ledgerWriter{db: s.pool}).MintCoin(ctx, c)
}

// RecordTransaction inserts a transaction. Unknown references fail with ErrUnknownReference.
func (s *LedgerStore) RecordTransaction(ctx context.Context, t *domain.Transaction) error {
	return (&ledgerWriter{db: s.pool}).RecordTransaction(ctx, t)
}

// Clear deletes transactions, coins and clients in one transaction.
func (s *LedgerStore) Clear(ctx context.Context) error {
	return (&ledgerWriter{db: s.pool}).Clear(ctx)
}

// Exclusive runs fn inside one transaction that holds EXCLUSIVE locks on the
// ledger tables. Plain SELECTs proceed; other writers wait until commit.
// Each writer call inside fn runs in its own savepoint.
func (s *LedgerStore) Exclusive(ctx context.Context, fn func(ctx context.Context, w storage.LedgerWriter) error) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin exclusive tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `LOCK TABLE transactions, coins, clients IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock ledger tables: %w", err)
	}

	if err := fn(ctx, &ledgerWriter{db: tx}); err != nil {
		observe("exclusive", start, err)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		observe("exclusive", start, err)
		return fmt.Errorf("commit exclusive tx: %w", err)
	}
	observe("exclusive", start, nil)
	return nil
}

// GetClient retrieves a client by ID. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	query := `SELECT id, name, contact, created_at FROM clients WHERE id = $1`

	var c domain.Client
	err := s.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Contact, &c.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return &c, nil
}

// GetCoin retrieves a coin by ID. Returns ErrNotFound if not exists.
func (s *LedgerStore) GetCoin(ctx context.Context, id int64) (*domain.Coin, error) {
	query := `SELECT id, component1, component2, component3, value FROM coins WHERE id = $1`

	var c domain.Coin
	err := s.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Component1, &c.Component2, &c.Component3, &c.Value)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get coin: %w", err)
	}
	return &c, nil
}

// ListTransactionsEnriched joins every transaction with its coin and clients
// in a single statement, newest first.
func (s *LedgerStore) ListTransactionsEnriched(ctx context.Context) ([]*domain.EnrichedTransaction, error) {
	start := time.Now()
	query := `
		SELECT
			t.id, t.coin_id, t.amount::text, t.transaction_date,
			t.seller_id, seller.name,
			t.buyer_id, buyer.name,
			c.component1, c.component2, c.component3, c.value
		FROM transactions t
		JOIN coins c ON c.id = t.coin_id
		JOIN clients buyer ON buyer.id = t.buyer_id
		LEFT JOIN clients seller ON seller.id = t.seller_id
		ORDER BY t.transaction_date DESC, t.id DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		observe("list_enriched", start, err)
		return nil, fmt.Errorf("list enriched transactions: %w", err)
	}
	defer rows.Close()

	result, err := scanEnrichedTransactions(rows)
	observe("list_enriched", start, err)
	return result, err
}

// Counts returns the number of rows per ledger table.
func (s *LedgerStore) Counts(ctx context.Context) (domain.LedgerCounts, error) {
	query := `
		SELECT
			(SELECT count(*) FROM clients),
			(SELECT count(*) FROM coins),
			(SELECT count(*) FROM transactions)
	`

	var counts domain.LedgerCounts
	if err := s.pool.QueryRow(ctx, query).Scan(&counts.Clients, &counts.Coins, &counts.Transactions); err != nil {
		return domain.LedgerCounts{}, fmt.Errorf("count ledger rows: %w", err)
	}
	return counts, nil
}

// ledgerWriter runs each write in its own transaction (on the pool) or
// savepoint (inside Exclusive).
type ledgerWriter struct {
	db dbtx
}

func (w *ledgerWriter) CreateClient(ctx context.Context, c *domain.Client) error {
	if c == nil || c.Contact == "" {
		return storage.ErrInvalidInput
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	start := time.Now()
	err := inTx(ctx, w.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO clients (name, contact, created_at)
			VALUES ($1, $2, $3)
			RETURNING id
		`
		return tx.QueryRow(ctx, query, c.Name, c.Contact, c.CreatedAt).Scan(&c.ID)
	})
	observe("create_client", start, err)
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (w *ledgerWriter) MintCoin(ctx context.Context, c *domain.Coin) error {
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

	start := time.Now()
	err = inTx(ctx, w.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO coins (component1, component2, component3, value)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		return tx.QueryRow(ctx, query, c.Component1, c.Component2, c.Component3, c.Value).Scan(&c.ID)
	})
	observe("mint_coin", start, err)
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert coin: %w", err)
	}
	return nil
}

func (w *ledgerWriter) RecordTransaction(ctx context.Context, t *domain.Transaction) error {
	if t == nil {
		return storage.ErrInvalidInput
	}
	if err := storage.ValidateAmount(t.Amount); err != nil {
		return err
	}

	start := time.Now()
	err := inTx(ctx, w.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO transactions (coin_id, seller_id, buyer_id, amount, transaction_date)
			VALUES ($1, $2, $3, $4::numeric, $5)
			RETURNING id
		`
		return tx.QueryRow(ctx, query,
			t.CoinID,
			t.SellerID,
			t.BuyerID,
			t.Amount.StringFixed(2),
			t.TransactionDate,
		).Scan(&t.ID)
	})
	observe("record_transaction", start, err)
	if err != nil {
		if mapped := constraintError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (w *ledgerWriter) Clear(ctx context.Context) error {
	start := time.Now()
	err := inTx(ctx, w.db, func(tx pgx.Tx) error {
		for _, table := range []string{"transactions", "coins", "clients"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
	observe("clear", start, err)
	return err
}

// scanEnrichedTransactions scans joined rows into EnrichedTransaction.
func scanEnrichedTransactions(rows pgx.Rows) ([]*domain.EnrichedTransaction, error) {
	result := make([]*domain.EnrichedTransaction, 0)

	for rows.Next() {
		var (
			row    domain.EnrichedTransaction
			amount string
		)

		err := rows.Scan(
			&row.ID,
			&row.CoinID,
			&amount,
			&row.TransactionDate,
			&row.SellerID,
			&row.SellerName,
			&row.BuyerID,
			&row.BuyerName,
			&row.Component1,
			&row.Component2,
			&row.Component3,
			&row.StoredValue,
		)
		if err != nil {
			return nil, fmt.Errorf("scan enriched transaction row: %w", err)
		}

		row.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount of transaction %d: %w", row.ID, err)
		}

		result = append(result, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enriched transaction rows: %w", err)
	}

	return result, nil
}
