package cash

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/logger"
	"github.com/rojas-cambio/cambio/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func seed() *ledger.MemoryStore {
	return ledger.NewMemoryStore(
		model.Transaction{ID: "1", Type: model.Buy, Currency: model.USD, Amount: dec("1000"), Rate: dec("3.75"), Total: dec("3750"), Date: date(2025, 1, 10), UserID: "op1"},
		model.Transaction{ID: "2", Type: model.Sell, Currency: model.USD, Amount: dec("500"), Rate: dec("3.78"), Total: dec("1890"), Date: date(2025, 1, 12), UserID: "op1"},
		model.Transaction{ID: "3", Type: model.Buy, Currency: model.EUR, Amount: dec("100"), Rate: dec("4.10"), Total: dec("410"), Date: date(2025, 2, 3), UserID: "op2"},
		model.Transaction{ID: "4", Type: "refund", Currency: model.USD, Amount: dec("5"), Rate: dec("3.7"), Date: date(2025, 1, 11), UserID: "op1"},
	)
}

func newCalc(src Source) *Calculator {
	return NewCalculator(src, []model.Currency{model.USD, model.EUR}, logger.Discard())
}

func TestCalculate_January(t *testing.T) {
	res, err := newCalc(seed()).Calculate(context.Background(), Request{
		Range:    model.DateRange{Start: "2025-01-01", End: "2025-01-31"},
		Expenses: dec("10"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Transactions)
	assert.Equal(t, []model.Currency{model.USD, model.EUR}, res.Request.Currencies)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, "4", res.Dropped[0].Transaction.ID)

	usd, ok := res.Profit.For(model.USD)
	require.True(t, ok)
	assert.Equal(t, "30.00", usd.GrossProfitLocal.StringFixed(2))
	assert.Equal(t, "5.291", usd.NetProfitForeign.StringFixed(3))

	eur, ok := res.Profit.For(model.EUR)
	require.True(t, ok, "traded currencies are always reported")
	assert.False(t, eur.Active)
	assert.Equal(t, "20.00", res.Profit.TotalNetProfitLocal.StringFixed(2))
}

func TestCalculate_CurrencyAndUserFilter(t *testing.T) {
	res, err := newCalc(seed()).Calculate(context.Background(), Request{
		Currencies: []model.Currency{model.EUR},
		Expenses:   decimal.Zero,
		UserID:     "op2",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Transactions)
	require.Len(t, res.Profit.Currencies, 1)
	assert.Equal(t, model.EUR, res.Profit.Currencies[0].Currency)
}

// everything ignores the query, like a source without date filtering.
type everything struct{ *ledger.MemoryStore }

func (e everything) List(ctx context.Context, _ ledger.Query) ([]model.Transaction, error) {
	return e.MemoryStore.List(ctx, ledger.Query{})
}

func TestCalculate_KeepsOnlyTheRequestedRange(t *testing.T) {
	res, err := newCalc(everything{seed()}).Calculate(context.Background(), Request{
		Range:    model.DateRange{Start: "2025-02-01", End: "2025-02-28"},
		Expenses: decimal.Zero,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Transactions)
	eur, ok := res.Profit.For(model.EUR)
	require.True(t, ok)
	assert.True(t, eur.Active)
	usd, ok := res.Profit.For(model.USD)
	require.True(t, ok)
	assert.False(t, usd.Active)
}

func TestCalculate_LogsDroppedTransactions(t *testing.T) {
	var buf bytes.Buffer
	calc := NewCalculator(seed(), []model.Currency{model.USD}, logger.New(&buf, "info", "text"))
	_, err := calc.Calculate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "transaction skipped")
	assert.Contains(t, buf.String(), "unknown type refund")
	assert.Contains(t, buf.String(), "unknown currency EUR")
}

func TestCalculate_RejectsBadRequests(t *testing.T) {
	calc := newCalc(seed())
	ctx := context.Background()

	_, err := calc.Calculate(ctx, Request{Range: model.DateRange{Start: "2025-02-01", End: "2025-01-01"}})
	assert.Error(t, err)

	_, err = calc.Calculate(ctx, Request{Expenses: dec("-1")})
	assert.Error(t, err)

	_, err = calc.Calculate(ctx, Request{Currencies: []model.Currency{"GBP"}})
	assert.ErrorContains(t, err, "not traded")
}

type failingSource struct{}

func (failingSource) List(context.Context, ledger.Query) ([]model.Transaction, error) {
	return nil, errors.New("backend unavailable")
}

func TestCalculate_FetchFailureYieldsNoResult(t *testing.T) {
	res, err := newCalc(failingSource{}).Calculate(context.Background(), Request{})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "fetching transactions")
}

func TestParseExpenses(t *testing.T) {
	d, err := ParseExpenses(" 150.50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("150.5")))

	for _, bad := range []string{"", "  ", "abc", "-5"} {
		_, err := ParseExpenses(bad)
		assert.Error(t, err, "ParseExpenses(%q)", bad)
	}
}

func TestParseOpening(t *testing.T) {
	got, err := ParseOpening("usd=1500, EUR=300.5")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[model.USD].Equal(dec("1500")))
	assert.True(t, got[model.EUR].Equal(dec("300.5")))

	empty, err := ParseOpening("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, bad := range []string{"USD", "USD=x", "DOLLAR=5"} {
		_, err := ParseOpening(bad)
		assert.Error(t, err, bad)
	}
}
