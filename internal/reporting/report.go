package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"coin-ledger/internal/domain"
)

// Report is the ledger integrity report.
type Report struct {
	GeneratedAt time.Time

	Summary LedgerSummary

	// Audit is the run performed while generating this report.
	Audit *domain.AuditRun

	// CoinActivity is sorted by trade count DESC, coin ID ASC.
	CoinActivity []CoinActivityRow

	// RecentRuns are earlier persisted audits, newest first.
	RecentRuns []*domain.AuditRun
}

// LedgerSummary describes the ledger contents.
type LedgerSummary struct {
	Clients        int
	Coins          int
	Transactions   int
	MintSales      int // transactions without a seller
	Resales        int
	TotalVolume    decimal.Decimal
	DateRangeStart time.Time // zero when there are no transactions
	DateRangeEnd   time.Time
	Digest         string // idhash.ComputeLedgerDigest over the listing
}

// CoinActivityRow aggregates the trades of one coin.
type CoinActivityRow struct {
	CoinID      int64
	Fingerprint string
	Value       int64
	Trades      int
	Volume      decimal.Decimal
	LastBuyer   string // owner after the latest trade
}
