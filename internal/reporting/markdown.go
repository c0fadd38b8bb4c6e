package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Ledger Integrity Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Ledger Summary
	s := r.Summary
	sb.WriteString("## Ledger Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Clients | %d |\n", s.Clients))
	sb.WriteString(fmt.Sprintf("| Coins | %d |\n", s.Coins))
	sb.WriteString(fmt.Sprintf("| Transactions | %d |\n", s.Transactions))
	sb.WriteString(fmt.Sprintf("| Mint Sales | %d |\n", s.MintSales))
	sb.WriteString(fmt.Sprintf("| Resales | %d |\n", s.Resales))
	sb.WriteString(fmt.Sprintf("| Total Volume | %s |\n", s.TotalVolume.StringFixed(2)))
	if s.Digest != "" {
		sb.WriteString(fmt.Sprintf("| Ledger Digest | `%s` |\n", s.Digest))
	}
	if !s.DateRangeStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| First Transaction | %s |\n", s.DateRangeStart.UTC().Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Last Transaction | %s |\n", s.DateRangeEnd.UTC().Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	// Identity Audit
	sb.WriteString("## Identity Audit\n\n")
	if a := r.Audit; a != nil {
		sb.WriteString(fmt.Sprintf("Run `%s`: %d checked, %d matched, %d divergent (%d ms).\n\n",
			a.RunID, a.Total, a.Matched, a.Divergent, a.DurationMs))
		if a.Clean() {
			sb.WriteString("**PASS.** Every stored coin value is reproducible from its components.\n\n")
		} else {
			sb.WriteString("**FAIL.** Stored coin values diverge from their components.\n\n")
			sb.WriteString("| Transaction | Coin | Components | Stored | Computed | Reason |\n")
			sb.WriteString("|-------------|------|------------|--------|----------|--------|\n")
			for _, d := range a.Divergences {
				sb.WriteString(fmt.Sprintf("| %d | %d | (%d, %d, %d) | %d | %d | %s |\n",
					d.TransactionID, d.CoinID, d.Component1, d.Component2, d.Component3,
					d.StoredValue, d.ComputedValue, d.Reason))
			}
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("No audit performed.\n\n")
	}

	// Coin Activity
	sb.WriteString("## Coin Activity\n\n")
	if len(r.CoinActivity) > 0 {
		sb.WriteString("| Coin | Fingerprint | Value | Trades | Volume | Owner |\n")
		sb.WriteString("|------|-------------|-------|--------|--------|-------|\n")
		for _, c := range r.CoinActivity {
			sb.WriteString(fmt.Sprintf("| %d | %s | %d | %d | %s | %s |\n",
				c.CoinID, c.Fingerprint, c.Value, c.Trades, c.Volume.StringFixed(2), c.LastBuyer))
		}
	} else {
		sb.WriteString("No transactions recorded.\n")
	}
	sb.WriteString("\n")

	// Audit History
	sb.WriteString("## Audit History\n\n")
	if len(r.RecentRuns) > 0 {
		sb.WriteString("| Run | Started | Total | Divergent |\n")
		sb.WriteString("|-----|---------|-------|-----------|\n")
		for _, run := range r.RecentRuns {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d |\n",
				run.RunID, run.StartedAt.UTC().Format(time.RFC3339), run.Total, run.Divergent))
		}
	} else {
		sb.WriteString("No earlier audits.\n")
	}

	return sb.String()
}
