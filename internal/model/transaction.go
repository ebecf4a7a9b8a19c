package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the calendar-day layout used on the wire and in files.
const DateFormat = "2006-01-02"

// TransactionType is the direction of an exchange operation from the
// business's perspective.
type TransactionType string

const (
	Buy  TransactionType = "buy"
	Sell TransactionType = "sell"
)

// ParseTransactionType accepts buy/sell and the Spanish compra/venta.
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "compra":
		return Buy, nil
	case "sell", "venta":
		return Sell, nil
	}
	return "", fmt.Errorf("invalid transaction type %q", s)
}

// Valid reports whether t is buy or sell.
func (t TransactionType) Valid() bool {
	return t == Buy || t == Sell
}

// Transaction is one recorded exchange operation.
type Transaction struct {
	ID           string
	Receipt      string // "CMP-2025-01-001" / "VTA-2025-01-001"
	Type         TransactionType
	Currency     Currency
	Amount       decimal.Decimal // foreign units
	Rate         decimal.Decimal // local units per foreign unit
	Total        decimal.Decimal // local units
	Date         time.Time
	CustomerDNI  string
	CustomerName string
	UserID       string
	CreatedAt    time.Time
}

// EffectiveTotal returns Total when recorded, else Amount * Rate.
func (t Transaction) EffectiveTotal() decimal.Decimal {
	if !t.Total.IsZero() {
		return t.Total
	}
	return t.Amount.Mul(t.Rate)
}

// Day returns the transaction date as YYYY-MM-DD.
func (t Transaction) Day() string {
	return t.Date.Format(DateFormat)
}
