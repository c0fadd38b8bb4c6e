package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
	"coin-ledger/internal/idhash"
	"coin-ledger/internal/storage/memory"
	"coin-ledger/internal/verification"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// buildLedger stores two clients, two coins and three transactions.
func buildLedger(t *testing.T) *memory.LedgerStore {
	t.Helper()
	ctx := context.Background()
	store := memory.NewLedgerStore()

	alice := &domain.Client{Name: "Alice", Contact: "alice@example.test"}
	bob := &domain.Client{Name: "Bob", Contact: "bob@example.test"}
	for _, c := range []*domain.Client{alice, bob} {
		if err := store.CreateClient(ctx, c); err != nil {
			t.Fatalf("CreateClient failed: %v", err)
		}
	}

	coins := make([]*domain.Coin, 0, 2)
	for _, triple := range [][3]int{{1, 2, 3}, {7, 8, 9}} {
		v, _ := identity.Compute(triple[0], triple[1], triple[2])
		c := &domain.Coin{Component1: triple[0], Component2: triple[1], Component3: triple[2], Value: v}
		if err := store.MintCoin(ctx, c); err != nil {
			t.Fatalf("MintCoin failed: %v", err)
		}
		coins = append(coins, c)
	}

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	txs := []*domain.Transaction{
		{CoinID: coins[0].ID, BuyerID: alice.ID, Amount: decimal.RequireFromString("10.00"), TransactionDate: base},
		{CoinID: coins[1].ID, BuyerID: bob.ID, Amount: decimal.RequireFromString("5.25"), TransactionDate: base.Add(time.Hour)},
		{CoinID: coins[0].ID, BuyerID: bob.ID, SellerID: &alice.ID, Amount: decimal.RequireFromString("12.50"), TransactionDate: base.Add(2 * time.Hour)},
	}
	for _, tx := range txs {
		if err := store.RecordTransaction(ctx, tx); err != nil {
			t.Fatalf("RecordTransaction failed: %v", err)
		}
	}
	return store
}

func TestGenerator_Generate(t *testing.T) {
	store := buildLedger(t)
	audits := memory.NewAuditStore()
	auditor := verification.NewAuditor(verification.AuditorOptions{Ledger: store, Audits: audits})

	gen := NewGenerator(store, auditor).WithClock(func() time.Time { return fixedNow })

	// First report has no history; the second sees the first run.
	if _, err := gen.Generate(context.Background()); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	report, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedNow) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixedNow)
	}

	s := report.Summary
	if s.Clients != 2 || s.Coins != 2 || s.Transactions != 3 {
		t.Errorf("Summary counts = %d/%d/%d, want 2/2/3", s.Clients, s.Coins, s.Transactions)
	}
	if s.MintSales != 2 || s.Resales != 1 {
		t.Errorf("MintSales/Resales = %d/%d, want 2/1", s.MintSales, s.Resales)
	}
	if !s.TotalVolume.Equal(decimal.RequireFromString("27.75")) {
		t.Errorf("TotalVolume = %s, want 27.75", s.TotalVolume)
	}
	if s.DateRangeEnd.Sub(s.DateRangeStart) != 2*time.Hour {
		t.Errorf("date range %v..%v, want 2h span", s.DateRangeStart, s.DateRangeEnd)
	}

	rows, _ := store.ListTransactionsEnriched(context.Background())
	if s.Digest != idhash.ComputeLedgerDigest(rows) {
		t.Errorf("Digest = %q", s.Digest)
	}

	if report.Audit == nil || !report.Audit.Clean() || report.Audit.Total != 3 {
		t.Errorf("Audit = %+v, want clean run over 3 rows", report.Audit)
	}
	if len(report.RecentRuns) != 1 {
		t.Errorf("RecentRuns = %d, want 1", len(report.RecentRuns))
	}

	if len(report.CoinActivity) != 2 {
		t.Fatalf("CoinActivity = %d rows, want 2", len(report.CoinActivity))
	}
	top := report.CoinActivity[0]
	if top.Trades != 2 || top.LastBuyer != "Bob" || !top.Volume.Equal(decimal.RequireFromString("22.50")) {
		t.Errorf("top coin = %+v, want 2 trades, owner Bob, volume 22.50", top)
	}
	if top.Fingerprint != identity.Fingerprint(top.Value) {
		t.Errorf("Fingerprint = %q", top.Fingerprint)
	}
}

func TestGenerator_EmptyLedger(t *testing.T) {
	store := memory.NewLedgerStore()
	auditor := verification.NewAuditor(verification.AuditorOptions{Ledger: store})

	report, err := NewGenerator(store, auditor).Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if report.Summary.Transactions != 0 || !report.Summary.DateRangeStart.IsZero() {
		t.Errorf("Summary = %+v, want empty", report.Summary)
	}
	if !report.Summary.TotalVolume.IsZero() {
		t.Errorf("TotalVolume = %s, want 0", report.Summary.TotalVolume)
	}

	md := RenderMarkdown(report)
	if !strings.Contains(md, "No transactions recorded.") {
		t.Errorf("markdown missing empty ledger note:\n%s", md)
	}
}

func TestRenderMarkdown_Divergent(t *testing.T) {
	report := &Report{
		GeneratedAt: fixedNow,
		Summary:     LedgerSummary{TotalVolume: decimal.Zero},
		Audit: &domain.AuditRun{
			RunID:     "run-1",
			Total:     2,
			Matched:   1,
			Divergent: 1,
			Divergences: []domain.AuditDivergence{
				{TransactionID: 9, CoinID: 4, Component1: 1, Component2: 2, Component3: 3, StoredValue: 77, ComputedValue: 16785411, Reason: verification.ReasonValueMismatch},
			},
		},
	}

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# Ledger Integrity Report",
		"Generated: 2024-06-01T12:00:00Z",
		"**FAIL.**",
		"| 9 | 4 | (1, 2, 3) | 77 | 16785411 | value mismatch |",
		"No earlier audits.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestWriteTransactionsCSV(t *testing.T) {
	store := buildLedger(t)
	rows, err := store.ListTransactionsEnriched(context.Background())
	if err != nil {
		t.Fatalf("ListTransactionsEnriched failed: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteTransactionsCSV(&buf, rows); err != nil {
		t.Fatalf("WriteTransactionsCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want header + 3", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(TransactionsCSVHeader, ",") {
		t.Errorf("header = %v", records[0])
	}

	// Newest first: the resale, then the two mint sales.
	resale := records[1]
	if resale[2] != "12.50" || resale[5] != "Alice" || resale[7] != "Bob" {
		t.Errorf("resale row = %v", resale)
	}
	mint := records[3]
	if mint[4] != "" || mint[5] != "" {
		t.Errorf("mint sale should have empty seller cells, got %v", mint)
	}
	if mint[3] != "2024-05-01T00:00:00Z" {
		t.Errorf("transaction_date = %q", mint[3])
	}
}
