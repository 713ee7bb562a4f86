package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var centsPerUnit = decimal.NewFromInt(100)

// ToCents converts a decimal major-unit amount into integer minor units.
// Amounts with sub-cent precision are rejected rather than rounded, since a
// charge must match the catalog price exactly.
func ToCents(amount decimal.Decimal) (int64, error) {
	cents := amount.Mul(centsPerUnit)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %s has sub-cent precision", amount)
	}
	return cents.IntPart(), nil
}

// FromCents converts integer minor units back into a decimal major-unit amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(centsPerUnit)
}

// CentsFromString parses a formatted major-unit amount (e.g. "12.40") into
// integer minor units.
func CentsFromString(value string) (int64, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return ToCents(amount)
}

// LineTotal multiplies a unit price by a quantity.
func LineTotal(unitPrice decimal.Decimal, qty int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}
