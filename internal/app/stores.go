// Package app wires stores for the command-line tools.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"coin-ledger/internal/config"
	"coin-ledger/internal/storage"
	chstore "coin-ledger/internal/storage/clickhouse"
	"coin-ledger/internal/storage/memory"
	"coin-ledger/internal/storage/migrations"
	pgstore "coin-ledger/internal/storage/postgres"
)

// Stores holds the store handles shared by one process.
type Stores struct {
	Ledger   storage.LedgerStore
	Accounts storage.AccountStore
	Audits   storage.AuditStore

	pool   *pgstore.Pool
	chConn *chstore.Conn
}

// OpenStores creates the stores selected by cfg and applies migrations.
// Audit history goes to ClickHouse when a DSN is set, otherwise to memory.
func OpenStores(ctx context.Context, cfg config.StorageConfig, logger logrus.FieldLogger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Backend {
	case config.BackendMemory:
		s.Ledger = memory.NewLedgerStore()
		s.Accounts = memory.NewAccountStore()
	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		s.pool = pool
		s.Ledger = pgstore.NewLedgerStore(pool)
		s.Accounts = pgstore.NewAccountStore(pool)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		s.chConn = conn
		s.Audits = chstore.NewAuditStore(conn)
	} else {
		s.Audits = memory.NewAuditStore()
	}

	return s, nil
}

// ReportStats publishes connection pool gauges. No-op for memory stores.
func (s *Stores) ReportStats() {
	if s.pool != nil {
		s.pool.ReportStats()
	}
}

// Close releases database connections.
func (s *Stores) Close() {
	if s.chConn != nil {
		s.chConn.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}
