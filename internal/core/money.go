// Package core provides money parsing and handling utilities.
//
// Monetary values are shopspring decimals rounded to cents. Stores persist
// them as integer cents so SQL sums stay exact; floats appear only when a
// ratio is turned into a display percentage.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	MinAmount = decimal.RequireFromString("0.01")
	MaxAmount = decimal.RequireFromString("999999999.99")

	hundred = decimal.NewFromInt(100)
)

// ParseAmount converts a user supplied decimal string to a money amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimals. Signs, exponents and blanks are rejected.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return RoundAmount(d), nil
}

// RoundAmount rounds half-up (away from zero) to cents.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// AmountInRange reports whether d lies within [MinAmount, MaxAmount].
func AmountInRange(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(MinAmount) && d.LessThanOrEqual(MaxAmount)
}

// ToCents converts an amount to integer cents.
func ToCents(d decimal.Decimal) int64 {
	return RoundAmount(d).Shift(2).IntPart()
}

// FromCents converts integer cents back to an amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Percent returns part/whole*100 as a display value, 0 when whole is not positive.
func Percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}
