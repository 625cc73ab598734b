package domain

import "github.com/shopspring/decimal"

// FormatAmount renders minor currency units as a fixed two-decimal string,
// 500 -> "5.00"
func FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
