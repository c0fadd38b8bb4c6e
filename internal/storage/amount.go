package storage

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimal places a stored amount may carry.
const AmountPlaces = 2

// amountLimit is the smallest value that no longer fits NUMERIC(18,2).
var amountLimit = decimal.New(1, 18-AmountPlaces)

// ValidateAmount returns ErrInvalidAmount for a negative amount, one with more
// than AmountPlaces decimal places, or one too large for the amount column.
// Amounts are never rounded on the way in.
func ValidateAmount(amount decimal.Decimal) error {
	switch {
	case amount.IsNegative():
		return fmt.Errorf("amount %s is negative: %w", amount, ErrInvalidAmount)
	case !amount.Equal(amount.Round(AmountPlaces)):
		return fmt.Errorf("amount %s has more than %d decimal places: %w", amount, AmountPlaces, ErrInvalidAmount)
	case amount.GreaterThanOrEqual(amountLimit):
		return fmt.Errorf("amount %s exceeds %s: %w", amount, amountLimit, ErrInvalidAmount)
	}
	return nil
}
