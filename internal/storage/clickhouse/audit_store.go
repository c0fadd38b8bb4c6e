package clickhouse

import (
	"context"
	"fmt"
	"time"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/storage"
)

// AuditStore implements storage.AuditStore using ClickHouse.
type AuditStore struct {
	conn *Conn
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(conn *Conn) *AuditStore {
	return &AuditStore{conn: conn}
}

// Compile-time interface check.
var _ storage.AuditStore = (*AuditStore)(nil)

// Insert stores a run and its divergences. Returns ErrDuplicateKey if the run ID exists.
// Divergences are written first, so a run row is only visible once its
// divergences are.
func (s *AuditStore) Insert(ctx context.Context, run *domain.AuditRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}
	start := time.Now()

	// MergeTree does not enforce uniqueness; check explicitly.
	exists, err := s.exists(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	if len(run.Divergences) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `
			INSERT INTO audit_divergences (
				run_id, transaction_id, coin_id,
				component1, component2, component3,
				stored_value, computed_value, reason
			)
		`)
		if err != nil {
			return fmt.Errorf("prepare divergence batch: %w", err)
		}

		for _, d := range run.Divergences {
			err = batch.Append(
				run.RunID, d.TransactionID, d.CoinID,
				int32(d.Component1), int32(d.Component2), int32(d.Component3),
				d.StoredValue, d.ComputedValue, d.Reason,
			)
			if err != nil {
				return fmt.Errorf("append divergence: %w", err)
			}
		}

		if err := batch.Send(); err != nil {
			return fmt.Errorf("send divergence batch: %w", err)
		}
	}

	query := `
		INSERT INTO audit_runs (run_id, started_at, duration_ms, total, matched, divergent)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	err = s.conn.Exec(ctx, query,
		run.RunID,
		run.StartedAt.UTC(),
		run.DurationMs,
		uint32(run.Total),
		uint32(run.Matched),
		uint32(run.Divergent),
	)
	observe("insert_audit_run", start, err)
	if err != nil {
		return fmt.Errorf("insert audit run: %w", err)
	}
	return nil
}

// ListRecent returns up to limit runs, newest first, with their divergences.
// A non-positive limit returns every run.
func (s *AuditStore) ListRecent(ctx context.Context, limit int) ([]*domain.AuditRun, error) {
	start := time.Now()

	query := `
		SELECT run_id, started_at, duration_ms, total, matched, divergent
		FROM audit_runs FINAL
		ORDER BY started_at DESC, run_id DESC
	`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		observe("list_audit_runs", start, err)
		return nil, fmt.Errorf("query audit runs: %w", err)
	}

	runs, err := scanAuditRuns(rows)
	rows.Close()
	if err != nil {
		observe("list_audit_runs", start, err)
		return nil, err
	}

	for _, run := range runs {
		if run.Divergent == 0 {
			continue
		}
		if run.Divergences, err = s.divergences(ctx, run.RunID); err != nil {
			observe("list_audit_runs", start, err)
			return nil, err
		}
	}

	observe("list_audit_runs", start, nil)
	return runs, nil
}

func (s *AuditStore) divergences(ctx context.Context, runID string) ([]domain.AuditDivergence, error) {
	query := `
		SELECT transaction_id, coin_id, component1, component2, component3,
			stored_value, computed_value, reason
		FROM audit_divergences
		WHERE run_id = ?
		ORDER BY transaction_id DESC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query divergences for run %s: %w", runID, err)
	}
	defer rows.Close()

	var result []domain.AuditDivergence
	for rows.Next() {
		var (
			d          domain.AuditDivergence
			c1, c2, c3 int32
		)
		if err := rows.Scan(&d.TransactionID, &d.CoinID, &c1, &c2, &c3,
			&d.StoredValue, &d.ComputedValue, &d.Reason); err != nil {
			return nil, fmt.Errorf("scan divergence row: %w", err)
		}
		d.Component1, d.Component2, d.Component3 = int(c1), int(c2), int(c3)
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate divergence rows: %w", err)
	}
	return result, nil
}

// exists checks if a run with the given ID exists.
func (s *AuditStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count() FROM audit_runs WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows used for scanning.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanAuditRuns(rows chRows) ([]*domain.AuditRun, error) {
	var runs []*domain.AuditRun

	for rows.Next() {
		var (
			run                       domain.AuditRun
			total, matched, divergent uint32
		)
		err := rows.Scan(&run.RunID, &run.StartedAt, &run.DurationMs, &total, &matched, &divergent)
		if err != nil {
			return nil, fmt.Errorf("scan audit run row: %w", err)
		}
		run.Total, run.Matched, run.Divergent = int(total), int(matched), int(divergent)
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit run rows: %w", err)
	}

	return runs, nil
}
