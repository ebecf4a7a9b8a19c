package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate is the quoted buy/sell price of a foreign currency in local units.
type Rate struct {
	Currency      Currency
	Buy           decimal.Decimal
	Sell          decimal.Decimal
	Market        decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
	UpdatedAt     time.Time
	Source        string
}

// Spread returns Sell - Buy.
func (r Rate) Spread() decimal.Decimal {
	return r.Sell.Sub(r.Buy)
}

// For returns the quoted rate applied to an operation of type t: the house
// buys at Buy and sells at Sell.
func (r Rate) For(t TransactionType) decimal.Decimal {
	if t == Sell {
		return r.Sell
	}
	return r.Buy
}
