// Package core provides money parsing and handling utilities.
//
// Prices travel as float64 on the wire and in SQLite; arithmetic on them goes
// through shopspring/decimal so that totals do not drift.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes formatted amounts in views and reports.
const CurrencySymbol = "₹"

var ErrInvalidAmount = errors.New("invalid amount")

// TotalPrice returns the exact product quantity * basePrice.
//
// Examples:
//
//	TotalPrice(3, 10)    -> 30
//	TotalPrice(2, 12.5)  -> 25
//	TotalPrice(3, 0.1)   -> 0.3
func TotalPrice(quantity int64, basePrice float64) float64 {
	return decimal.NewFromInt(quantity).Mul(decimal.NewFromFloat(basePrice)).InexactFloat64()
}

// IsWholeCents reports whether v needs no more than two decimal places.
func IsWholeCents(v float64) bool {
	d := decimal.NewFromFloat(v)
	return d.Equal(d.Round(2))
}

// ParseAmount converts a form value such as "12.50" or "12,50" into a
// non-negative price rounded to two decimals.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	return d.Round(2).InexactFloat64(), nil
}

// FormatAmount renders v with two decimals, e.g. "1234.50".
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatCurrency renders v with the currency symbol, e.g. "₹1234.50".
func FormatCurrency(v float64) string {
	return CurrencySymbol + FormatAmount(v)
}
