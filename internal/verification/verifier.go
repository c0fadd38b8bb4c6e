// Package verification re-derives coin identities from stored components and
// reports rows where the stored value cannot be reproduced.
package verification

import (
	"errors"
	"fmt"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
	"coin-ledger/internal/storage"
)

// Divergence reasons.
const (
	ReasonValueMismatch    = "value mismatch"
	ReasonInvalidComponent = "invalid component"
)

// CompareCoinIdentity recomputes the identity of row's coin from its
// components. It returns the recomputed value and, when the stored value
// cannot be reproduced, an error wrapping storage.ErrIdentityMismatch.
// Out-of-range components also wrap identity.ErrInvalidComponent.
func CompareCoinIdentity(row *domain.EnrichedTransaction) (int64, error) {
	computed, err := identity.Compute(row.Component1, row.Component2, row.Component3)
	if err != nil {
		return 0, fmt.Errorf("transaction %d coin %d: %w: %w",
			row.ID, row.CoinID, storage.ErrIdentityMismatch, err)
	}
	if computed != row.StoredValue {
		return computed, fmt.Errorf("transaction %d coin %d: stored value %d, components (%d, %d, %d) give %d: %w",
			row.ID, row.CoinID, row.StoredValue,
			row.Component1, row.Component2, row.Component3, computed,
			storage.ErrIdentityMismatch)
	}
	return computed, nil
}

// divergenceFor builds the audit record for a row that failed CompareCoinIdentity.
func divergenceFor(row *domain.EnrichedTransaction, computed int64, err error) domain.AuditDivergence {
	reason := ReasonValueMismatch
	if errors.Is(err, identity.ErrInvalidComponent) {
		reason = ReasonInvalidComponent
	}
	return domain.AuditDivergence{
		TransactionID: row.ID,
		CoinID:        row.CoinID,
		Component1:    row.Component1,
		Component2:    row.Component2,
		Component3:    row.Component3,
		StoredValue:   row.StoredValue,
		ComputedValue: computed,
		Reason:        reason,
	}
}
