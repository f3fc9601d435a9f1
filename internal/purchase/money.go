package purchase

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeTotal returns unitPrice * quantity rounded to 2 decimal places.
//
// Rounding is half away from zero (decimal.Round); both inputs must be
// positive, so this is plain round-half-up: 2.005 * 1 = 2.01. The stored
// totalValue of every record goes through this function and nothing else.
func ComputeTotal(unitPrice, quantity decimal.Decimal) (decimal.Decimal, error) {
	if !unitPrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: unit price must be positive", ErrInvalid)
	}

	if !quantity.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: quantity must be positive", ErrInvalid)
	}

	return unitPrice.Mul(quantity).Round(2), nil
}
