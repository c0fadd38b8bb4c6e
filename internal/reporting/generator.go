package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
	"coin-ledger/internal/idhash"
	"coin-ledger/internal/storage"
	"coin-ledger/internal/verification"
)

// recentRunsLimit bounds the audit history included in a report.
const recentRunsLimit = 10

// Generator produces reports from stored data.
type Generator struct {
	ledger  storage.LedgerStore
	auditor *verification.Auditor
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(ledger storage.LedgerStore, auditor *verification.Auditor) *Generator {
	return &Generator{
		ledger:  ledger,
		auditor: auditor,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate audits the ledger and summarizes it. Divergent rows do not fail
// generation; they are listed in the report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	history, err := g.auditor.Recent(ctx, recentRunsLimit)
	if err != nil {
		return nil, fmt.Errorf("load audit history: %w", err)
	}

	run, err := g.auditor.Run(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := g.ledger.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count ledger rows: %w", err)
	}

	rows, err := g.ledger.ListTransactionsEnriched(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enriched transactions: %w", err)
	}

	summary := summarize(rows)
	summary.Digest = idhash.ComputeLedgerDigest(rows)
	summary.Clients = counts.Clients
	summary.Coins = counts.Coins

	return &Report{
		GeneratedAt:  g.now(),
		Summary:      summary,
		Audit:        run,
		CoinActivity: coinActivity(rows),
		RecentRuns:   history,
	}, nil
}

func summarize(rows []*domain.EnrichedTransaction) LedgerSummary {
	s := LedgerSummary{Transactions: len(rows), TotalVolume: decimal.Zero}
	for _, row := range rows {
		if row.SellerID == nil {
			s.MintSales++
		} else {
			s.Resales++
		}
		s.TotalVolume = s.TotalVolume.Add(row.Amount)

		if s.DateRangeStart.IsZero() || row.TransactionDate.Before(s.DateRangeStart) {
			s.DateRangeStart = row.TransactionDate
		}
		if row.TransactionDate.After(s.DateRangeEnd) {
			s.DateRangeEnd = row.TransactionDate
		}
	}
	return s
}

// coinActivity expects rows newest first, as listed by the store.
func coinActivity(rows []*domain.EnrichedTransaction) []CoinActivityRow {
	byCoin := make(map[int64]*CoinActivityRow)
	for _, row := range rows {
		a, ok := byCoin[row.CoinID]
		if !ok {
			a = &CoinActivityRow{
				CoinID:      row.CoinID,
				Fingerprint: identity.Fingerprint(row.StoredValue),
				Value:       row.StoredValue,
				Volume:      decimal.Zero,
				LastBuyer:   row.BuyerName,
			}
			byCoin[row.CoinID] = a
		}
		a.Trades++
		a.Volume = a.Volume.Add(row.Amount)
	}

	result := make([]CoinActivityRow, 0, len(byCoin))
	for _, a := range byCoin {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Trades != result[j].Trades {
			return result[i].Trades > result[j].Trades
		}
		return result[i].CoinID < result[j].CoinID
	})
	return result
}
