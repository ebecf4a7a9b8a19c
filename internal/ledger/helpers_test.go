package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

type currencySet map[model.Currency]bool

func (c currencySet) Recognizes(cur model.Currency) bool { return c[cur] }

func traded() currencySet {
	return currencySet{model.USD: true, model.EUR: true}
}

func sampleTxn(id string, typ model.TransactionType, cur model.Currency, day time.Time) model.Transaction {
	return model.Transaction{
		ID:           id,
		Receipt:      "CMP-2025-01-001",
		Type:         typ,
		Currency:     cur,
		Amount:       dec("100.00"),
		Rate:         dec("3.7500"),
		Total:        dec("375.00"),
		Date:         day,
		CustomerDNI:  "12345678",
		CustomerName: "Juan Pérez",
		UserID:       "u-op",
		CreatedAt:    time.Date(2025, 1, 15, 14, 30, 0, 123, time.UTC),
	}
}
