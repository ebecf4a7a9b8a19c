package model

import "github.com/shopspring/decimal"

// FormatMoney renders a local-currency amount with 2 decimals.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatRate renders an exchange rate with 4 decimals.
func FormatRate(d decimal.Decimal) string {
	return d.StringFixed(4)
}
