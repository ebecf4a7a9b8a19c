package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/model"
)

var today = time.Date(2025, 1, 20, 15, 4, 5, 0, time.UTC)

func validDraft() Draft {
	return Draft{
		Type:         "compra",
		Currency:     "usd",
		Amount:       "1000",
		Rate:         "3.7512",
		Date:         "2025-01-15",
		CustomerDNI:  "12345678",
		CustomerName: " Juan Pérez ",
	}
}

func TestDraftParse_Valid(t *testing.T) {
	txn, errs := validDraft().Parse(traded(), today)
	require.Empty(t, errs)
	assert.Equal(t, model.Buy, txn.Type)
	assert.Equal(t, model.USD, txn.Currency)
	assert.True(t, txn.Amount.Equal(dec("1000")))
	assert.True(t, txn.Rate.Equal(dec("3.7512")))
	assert.Equal(t, "3751.20", txn.Total.StringFixed(2))
	assert.Equal(t, "2025-01-15", txn.Day())
	assert.Equal(t, "Juan Pérez", txn.CustomerName)
}

func TestDraftParse_DefaultsDateToToday(t *testing.T) {
	d := validDraft()
	d.Date = ""
	txn, errs := d.Parse(traded(), today)
	require.Empty(t, errs)
	assert.Equal(t, "2025-01-20", txn.Day())
}

func TestDraftParse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Draft)
		field string
	}{
		{"empty type", func(d *Draft) { d.Type = "" }, "type"},
		{"unknown type", func(d *Draft) { d.Type = "swap" }, "type"},
		{"empty currency", func(d *Draft) { d.Currency = " " }, "currency"},
		{"malformed currency", func(d *Draft) { d.Currency = "dollars" }, "currency"},
		{"untraded currency", func(d *Draft) { d.Currency = "GBP" }, "currency"},
		{"empty amount", func(d *Draft) { d.Amount = "" }, "amount"},
		{"non-numeric amount", func(d *Draft) { d.Amount = "mil" }, "amount"},
		{"zero amount", func(d *Draft) { d.Amount = "0" }, "amount"},
		{"negative rate", func(d *Draft) { d.Rate = "-3.7" }, "rate"},
		{"non-numeric rate", func(d *Draft) { d.Rate = "3,75" }, "rate"},
		{"bad date", func(d *Draft) { d.Date = "15/01/2025" }, "date"},
		{"short dni", func(d *Draft) { d.CustomerDNI = "1234" }, "customer_dni"},
		{"alpha dni", func(d *Draft) { d.CustomerDNI = "1234567X" }, "customer_dni"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.edit(&d)
			_, errs := d.Parse(traded(), today)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestDraftParse_CollectsAllErrors(t *testing.T) {
	_, errs := Draft{}.Parse(traded(), today)
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
	}
	assert.Equal(t, []string{"type", "currency", "amount", "rate"}, fields)
}

func TestValidationErrors_Error(t *testing.T) {
	err := ValidationErrors{{"amount", "required"}, {"rate", "required"}}
	assert.Equal(t, "validation failed: amount: required; rate: required", err.Error())
}

func TestValidateTransaction(t *testing.T) {
	txn := sampleTxn("t1", model.Buy, model.USD, date(2025, 1, 15))
	assert.Empty(t, ValidateTransaction(txn, traded()))

	txn.Type = "transfer"
	txn.Amount = dec("0")
	errs := ValidateTransaction(txn, traded())
	require.Len(t, errs, 2)
	assert.Equal(t, "type", errs[0].Field)
	assert.Equal(t, "amount", errs[1].Field)
}
