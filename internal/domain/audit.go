package domain

import "time"

// AuditRun is the outcome of one integrity audit over the ledger.
type AuditRun struct {
	RunID       string    // uuid
	StartedAt   time.Time // UTC
	DurationMs  int64
	Total       int // transactions checked
	Matched     int // rows whose recomputed identity equals the stored value
	Divergent   int // rows that failed the check
	Divergences []AuditDivergence
}

// Clean reports whether every checked row matched.
func (r *AuditRun) Clean() bool {
	return r.Divergent == 0
}

// AuditDivergence describes one row whose stored identity could not be reproduced.
type AuditDivergence struct {
	TransactionID int64
	CoinID        int64
	Component1    int
	Component2    int
	Component3    int
	StoredValue   int64
	ComputedValue int64  // zero when the components are out of range
	Reason        string // "value mismatch" or "invalid component"
}
