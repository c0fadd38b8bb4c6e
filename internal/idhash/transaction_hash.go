// Package idhash computes deterministic SHA256 fingerprints of ledger rows.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"coin-ledger/internal/domain"
)

// ComputeTransactionHash computes a deterministic hash of one enriched row.
// Formula: SHA256(id|coin_id|amount|transaction_date_ms|seller_id|buyer_id|c1|c2|c3|value)
// An absent seller contributes an empty field. ComputedValue and names are
// not hashed. Returns hex-encoded hash (64 characters).
func ComputeTransactionHash(row *domain.EnrichedTransaction) string {
	sellerStr := ""
	if row.SellerID != nil {
		sellerStr = fmt.Sprintf("%d", *row.SellerID)
	}

	data := fmt.Sprintf("%d|%d|%s|%d|%s|%d|%d|%d|%d|%d",
		row.ID,
		row.CoinID,
		row.Amount.StringFixed(2),
		row.TransactionDate.UnixMilli(),
		sellerStr,
		row.BuyerID,
		row.Component1,
		row.Component2,
		row.Component3,
		row.StoredValue,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeLedgerDigest hashes the row hashes in the given order.
// Two listings with equal digests hold the same rows in the same order.
func ComputeLedgerDigest(rows []*domain.EnrichedTransaction) string {
	h := sha256.New()
	for _, row := range rows {
		h.Write([]byte(ComputeTransactionHash(row)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
