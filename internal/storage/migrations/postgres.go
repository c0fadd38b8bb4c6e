package migrations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"coin-ledger/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded ledger schema in lexical order.
// Every file uses IF NOT EXISTS, so reruns are no-ops.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, logger logrus.FieldLogger) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		if logger != nil {
			logger.WithField("migration", m.name).Debug("applied postgres migration")
		}
	}
	return nil
}
