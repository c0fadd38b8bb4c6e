package verification

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/observability"
	"coin-ledger/internal/storage"
)

// Auditor checks every ledger row and keeps a history of runs.
// Unlike the query path it does not stop at the first bad row.
type Auditor struct {
	ledger storage.LedgerStore
	audits storage.AuditStore
	log    logrus.FieldLogger
	now    func() time.Time
}

// AuditorOptions contains configuration for creating an Auditor.
type AuditorOptions struct {
	Ledger storage.LedgerStore
	Audits storage.AuditStore // optional; runs are not persisted when nil
	Logger logrus.FieldLogger
}

// NewAuditor creates a new Auditor.
func NewAuditor(opts AuditorOptions) *Auditor {
	log := opts.Logger
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}
	return &Auditor{
		ledger: opts.Ledger,
		audits: opts.Audits,
		log:    log.WithField("component", "auditor"),
		now:    time.Now,
	}
}

// Run audits all transactions. Divergent rows are reported in the returned
// run, not as an error; errors mean the audit itself could not complete.
func (a *Auditor) Run(ctx context.Context) (*domain.AuditRun, error) {
	started := a.now().UTC()

	rows, err := a.ledger.ListTransactionsEnriched(ctx)
	if err != nil {
		observability.RecordAuditRun(0, err)
		return nil, fmt.Errorf("list enriched transactions: %w", err)
	}

	run := &domain.AuditRun{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Total:     len(rows),
	}
	for _, row := range rows {
		computed, err := CompareCoinIdentity(row)
		if err != nil {
			run.Divergences = append(run.Divergences, divergenceFor(row, computed, err))
			continue
		}
		run.Matched++
	}
	run.Divergent = len(run.Divergences)
	run.DurationMs = a.now().UTC().Sub(started).Milliseconds()

	if a.audits != nil {
		if err := a.audits.Insert(ctx, run); err != nil {
			observability.RecordAuditRun(run.Divergent, err)
			return nil, fmt.Errorf("store audit run %s: %w", run.RunID, err)
		}
	}
	observability.RecordAuditRun(run.Divergent, nil)

	entry := a.log.WithFields(logrus.Fields{
		"run_id":    run.RunID,
		"total":     run.Total,
		"matched":   run.Matched,
		"divergent": run.Divergent,
	})
	if run.Clean() {
		entry.Info("ledger audit clean")
	} else {
		entry.Warn("ledger audit found divergent rows")
	}

	return run, nil
}

// Recent returns up to limit persisted runs, newest first.
// Without an audit store it returns an empty list.
func (a *Auditor) Recent(ctx context.Context, limit int) ([]*domain.AuditRun, error) {
	if a.audits == nil {
		return []*domain.AuditRun{}, nil
	}
	return a.audits.ListRecent(ctx, limit)
}
