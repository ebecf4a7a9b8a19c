package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType(t *testing.T) {
	tests := []struct {
		in      string
		want    TransactionType
		wantErr bool
	}{
		{"buy", Buy, false},
		{"SELL", Sell, false},
		{"compra", Buy, false},
		{" venta ", Sell, false},
		{"transfer", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTransactionType(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "ParseTransactionType(%q)", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd")
	require.NoError(t, err)
	assert.Equal(t, USD, c)

	for _, bad := range []string{"", "US", "US1", "EURO"} {
		_, err := ParseCurrency(bad)
		assert.Error(t, err, bad)
	}
}

func TestEffectiveTotal(t *testing.T) {
	txn := Transaction{Amount: decimal.RequireFromString("100"), Rate: decimal.RequireFromString("3.75")}
	assert.True(t, txn.EffectiveTotal().Equal(decimal.RequireFromString("375")))

	txn.Total = decimal.RequireFromString("376.50")
	assert.True(t, txn.EffectiveTotal().Equal(decimal.RequireFromString("376.50")), "recorded total is authoritative")
}

func TestDateRangeContains(t *testing.T) {
	tests := []struct {
		r    DateRange
		day  string
		want bool
	}{
		{DateRange{}, "2025-01-15", true},
		{DateRange{Start: "2025-01-15"}, "2025-01-15", true},
		{DateRange{Start: "2025-01-15"}, "2025-01-14", false},
		{DateRange{End: "2025-01-31"}, "2025-01-31", true},
		{DateRange{End: "2025-01-31"}, "2025-02-01", false},
		{DateRange{Start: "2025-01-01", End: "2025-01-31"}, "2025-01-10", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.r.Contains(tt.day), "%s contains %s", tt.r, tt.day)
	}
}

func TestDateRangeValidate(t *testing.T) {
	assert.NoError(t, DateRange{}.Validate())
	assert.NoError(t, DateRange{Start: "2025-01-01", End: "2025-01-01"}.Validate())
	assert.Error(t, DateRange{Start: "2025-02-01", End: "2025-01-01"}.Validate())
	assert.Error(t, DateRange{Start: "01/02/2025"}.Validate())
}

func TestDateRangeMonths(t *testing.T) {
	months, ok := DateRange{Start: "2024-11-20", End: "2025-02-03"}.Months()
	require.True(t, ok)
	assert.Equal(t, [][2]int{{2024, 11}, {2024, 12}, {2025, 1}, {2025, 2}}, months)

	_, ok = DateRange{Start: "2025-01-01"}.Months()
	assert.False(t, ok)
}

func TestMonthRange(t *testing.T) {
	assert.Equal(t, DateRange{Start: "2024-02-01", End: "2024-02-29"}, MonthRange(2024, 2))
}

func TestRateFor(t *testing.T) {
	r := Rate{Buy: decimal.RequireFromString("3.75"), Sell: decimal.RequireFromString("3.78"), UpdatedAt: time.Now()}
	assert.True(t, r.For(Buy).Equal(r.Buy))
	assert.True(t, r.For(Sell).Equal(r.Sell))
	assert.Equal(t, "0.0300", FormatRate(r.Spread()))
}
