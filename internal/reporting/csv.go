package reporting

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"coin-ledger/internal/domain"
	"coin-ledger/internal/identity"
)

// TransactionsCSVHeader is the column order of WriteTransactionsCSV.
var TransactionsCSVHeader = []string{
	"id", "coin_id", "amount", "transaction_date",
	"seller_id", "seller_name", "buyer_id", "buyer_name",
	"bit1", "bit2", "bit3", "value", "computed_value", "fingerprint",
}

// WriteTransactionsCSV writes enriched rows as CSV. Absent sellers are empty cells.
func WriteTransactionsCSV(w io.Writer, rows []*domain.EnrichedTransaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TransactionsCSVHeader); err != nil {
		return err
	}

	for _, row := range rows {
		var sellerID, sellerName string
		if row.SellerID != nil {
			sellerID = strconv.FormatInt(*row.SellerID, 10)
		}
		if row.SellerName != nil {
			sellerName = *row.SellerName
		}

		record := []string{
			strconv.FormatInt(row.ID, 10),
			strconv.FormatInt(row.CoinID, 10),
			row.Amount.StringFixed(2),
			row.TransactionDate.UTC().Format(time.RFC3339),
			sellerID,
			sellerName,
			strconv.FormatInt(row.BuyerID, 10),
			row.BuyerName,
			strconv.Itoa(row.Component1),
			strconv.Itoa(row.Component2),
			strconv.Itoa(row.Component3),
			strconv.FormatInt(row.StoredValue, 10),
			strconv.FormatInt(row.ComputedValue, 10),
			identity.Fingerprint(row.StoredValue),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
