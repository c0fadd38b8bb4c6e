package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"coin-ledger/internal/identity"
	"coin-ledger/internal/observability"
	"coin-ledger/internal/storage"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// ReportStats publishes the pool's connection gauges.
func (p *Pool) ReportStats() {
	st := p.Stat()
	observability.UpdateDBConnections("postgres", st.IdleConns(), st.AcquiredConns())
}

// dbtx is satisfied by *Pool and pgx.Tx. Begin on a pgx.Tx opens a savepoint.
type dbtx interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ dbtx = (*Pool)(nil)
	_ dbtx = (pgx.Tx)(nil)
)

// inTx runs fn in a transaction on db, or in a savepoint when db is already a
// transaction. Any error rolls the unit back without touching the outer one.
func inTx(ctx context.Context, db dbtx, fn func(tx pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// observe records duration and error status of one store operation.
func observe(operation string, start time.Time, err error) {
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), err)
}

// PostgreSQL error codes
const (
	pgErrForeignKeyViolation = "23503" // foreign_key_violation
	pgErrUniqueViolation     = "23505" // unique_violation
	pgErrCheckViolation      = "23514" // check_violation
	pgErrNumericOutOfRange   = "22003" // numeric_value_out_of_range
)

// Constraint names from the embedded migrations.
const (
	constraintClientContact  = "clients_contact_key"
	constraintAccountEmail   = "accounts_email_key"
	constraintCoinComponents = "coins_components_key"
	constraintCoinRange      = "coins_component_range_check"
	constraintCoinValue      = "coins_value_check"
	constraintTxAmount       = "transactions_amount_check"
)

// constraintError maps a constraint violation to the storage error taxonomy.
// It returns nil for anything that is not a recognised violation.
func constraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}

	switch pgErr.Code {
	case pgErrUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintClientContact, constraintAccountEmail:
			return storage.ErrDuplicateContact
		case constraintCoinComponents:
			return storage.ErrDuplicateComponents
		}
		return storage.ErrDuplicateKey
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, storage.ErrUnknownReference)
	case pgErrCheckViolation:
		switch pgErr.ConstraintName {
		case constraintTxAmount:
			return storage.ErrInvalidAmount
		case constraintCoinValue:
			return storage.ErrIdentityMismatch
		case constraintCoinRange:
			return identity.ErrInvalidComponent
		}
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, storage.ErrInvalidInput)
	case pgErrNumericOutOfRange:
		// amount is the only numeric column
		return fmt.Errorf("%s: %w", pgErr.Message, storage.ErrInvalidAmount)
	}
	return nil
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
