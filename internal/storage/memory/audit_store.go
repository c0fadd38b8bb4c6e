package memory

import (
	"context"
	"sort"
	"sync"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/storage"
)

// AuditStore is an in-memory implementation of storage.AuditStore.
type AuditStore struct {
	mu   sync.RWMutex
	runs []*domain.AuditRun
	ids  map[string]struct{}
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{
		ids: make(map[string]struct{}),
	}
}

// Insert stores a run. Returns ErrDuplicateKey if the run ID exists.
func (s *AuditStore) Insert(_ context.Context, run *domain.AuditRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.runs = append(s.runs, copyRun(run))
	s.ids[run.RunID] = struct{}{}
	return nil
}

// ListRecent returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *AuditStore) ListRecent(_ context.Context, limit int) ([]*domain.AuditRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AuditRun, 0, len(s.runs))
	for _, r := range s.runs {
		result = append(result, copyRun(r))
	}

	// started_at DESC, run_id DESC
	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartedAt.Equal(result[j].StartedAt) {
			return result[i].StartedAt.After(result[j].StartedAt)
		}
		return result[i].RunID > result[j].RunID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copyRun(r *domain.AuditRun) *domain.AuditRun {
	runCopy := *r
	runCopy.Divergences = append([]domain.AuditDivergence(nil), r.Divergences...)
	return &runCopy
}

// Verify interface compliance at compile time.
var _ storage.AuditStore = (*AuditStore)(nil)
