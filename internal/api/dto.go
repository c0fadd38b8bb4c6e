package api

import (
	"time"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
)

type transactionDTO struct {
	ID              int64     `json:"id"`
	CoinID          int64     `json:"coin_id"`
	Amount          float64   `json:"amount"`
	TransactionDate time.Time `json:"transaction_date"`
	SellerID        *int64    `json:"seller_id"`
	SellerName      *string   `json:"seller_name"`
	BuyerID         int64     `json:"buyer_id"`
	BuyerName       string    `json:"buyer_name"`
	Bit1            int       `json:"bit1"`
	Bit2            int       `json:"bit2"`
	Bit3            int       `json:"bit3"`
	Value           int64     `json:"value"`
	ComputedValue   int64     `json:"computed_value"`
	Fingerprint     string    `json:"fingerprint"`
}

func newTransactionDTOs(rows []*domain.EnrichedTransaction) []transactionDTO {
	out := make([]transactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, transactionDTO{
			ID:              row.ID,
			CoinID:          row.CoinID,
			Amount:          row.Amount.InexactFloat64(),
			TransactionDate: row.TransactionDate.UTC(),
			SellerID:        row.SellerID,
			SellerName:      row.SellerName,
			BuyerID:         row.BuyerID,
			BuyerName:       row.BuyerName,
			Bit1:            row.Component1,
			Bit2:            row.Component2,
			Bit3:            row.Component3,
			Value:           row.StoredValue,
			ComputedValue:   row.ComputedValue,
			Fingerprint:     identity.Fingerprint(row.StoredValue),
		})
	}
	return out
}

type accountDTO struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func newAccountDTO(a *domain.Account) accountDTO {
	return accountDTO{ID: a.ID, Name: a.Name, Email: a.Email, CreatedAt: a.CreatedAt.UTC()}
}

type divergenceDTO struct {
	TransactionID int64  `json:"transaction_id"`
	CoinID        int64  `json:"coin_id"`
	Bit1          int    `json:"bit1"`
	Bit2          int    `json:"bit2"`
	Bit3          int    `json:"bit3"`
	StoredValue   int64  `json:"stored_value"`
	ComputedValue int64  `json:"computed_value"`
	Reason        string `json:"reason"`
}

type auditRunDTO struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	DurationMs  int64           `json:"duration_ms"`
	Total       int             `json:"total"`
	Matched     int             `json:"matched"`
	Divergent   int             `json:"divergent"`
	Clean       bool            `json:"clean"`
	Divergences []divergenceDTO `json:"divergences"`
}

func newAuditRunDTO(run *domain.AuditRun) auditRunDTO {
	dto := auditRunDTO{
		RunID:       run.RunID,
		StartedAt:   run.StartedAt.UTC(),
		DurationMs:  run.DurationMs,
		Total:       run.Total,
		Matched:     run.Matched,
		Divergent:   run.Divergent,
		Clean:       run.Clean(),
		Divergences: make([]divergenceDTO, 0, len(run.Divergences)),
	}
	for _, d := range run.Divergences {
		dto.Divergences = append(dto.Divergences, divergenceDTO{
			TransactionID: d.TransactionID,
			CoinID:        d.CoinID,
			Bit1:          d.Component1,
			Bit2:          d.Component2,
			Bit3:          d.Component3,
			StoredValue:   d.StoredValue,
			ComputedValue: d.ComputedValue,
			Reason:        d.Reason,
		})
	}
	return dto
}
