package entity

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money helpers for values copied out of form rows. Form fields are typed by
// whoever filled the form in, so they arrive with currency symbols, thousands
// separators and stray whitespace.

// moneyReplacer strips the decorations people type into price fields
var moneyReplacer = strings.NewReplacer("$", "", ",", "", " ", "")

// ParseMoney parses a loosely formatted money string into a decimal.
// Missing, unparseable or negative values coerce to zero; form parsing never
// fails on a bad number, it degrades.
func ParseMoney(raw string) decimal.Decimal {
	cleaned := moneyReplacer.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(cleaned)
	if err != nil || value.IsNegative() {
		return decimal.Zero
	}
	return value
}

// ParseQuantity parses a quantity field into a non-negative integer.
// Fractional quantities truncate; invalid or negative values coerce to zero.
func ParseQuantity(raw string) int {
	value := ParseMoney(raw)
	if value.IsZero() {
		return 0
	}
	quantity := int(value.IntPart())
	if quantity < 0 {
		return 0
	}
	return quantity
}

// FormatMoney renders a decimal with two decimal places for display
func FormatMoney(value decimal.Decimal) string {
	return value.StringFixed(2)
}
