package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction records a coin changing hands.
// Corresponds to transactions table in PostgreSQL.
type Transaction struct {
	ID              int64           // auto-assigned on insert
	CoinID          int64           // coin sold
	BuyerID         int64           // receiving client
	SellerID        *int64          // previous owner (nil for a mint sale)
	Amount          decimal.Decimal // price paid, non-negative
	TransactionDate time.Time
}

// IsMint reports whether the transaction has no prior owner.
func (t *Transaction) IsMint() bool {
	return t.SellerID == nil
}

// EnrichedTransaction is a transaction joined with its coin and client names.
// ComputedValue is filled on the read path by re-deriving the coin identity.
type EnrichedTransaction struct {
	ID              int64
	CoinID          int64
	Amount          decimal.Decimal
	TransactionDate time.Time

	SellerID   *int64  // nil for a mint sale
	SellerName *string // nil for a mint sale
	BuyerID    int64
	BuyerName  string

	Component1  int
	Component2  int
	Component3  int
	StoredValue int64 // coins.value as persisted

	ComputedValue int64 // identity recomputed from the components
}

// LedgerCounts holds row counts per ledger table.
type LedgerCounts struct {
	Clients      int
	Coins        int
	Transactions int
}
