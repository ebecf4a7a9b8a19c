package profit

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/position"
)

var tolerance = decimal.New(1, -9)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertClose(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	if got.Sub(dec(want)).Abs().GreaterThan(tolerance) {
		assert.Fail(t, fmt.Sprintf("want %s, got %s", want, got), msgAndArgs...)
	}
}

func txn(typ model.TransactionType, cur model.Currency, amount, rate, total string) model.Transaction {
	return model.Transaction{
		Type:     typ,
		Currency: cur,
		Amount:   dec(amount),
		Rate:     dec(rate),
		Total:    dec(total),
		Date:     time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func scenarioA() []model.Transaction {
	return []model.Transaction{
		txn(model.Buy, model.USD, "1000", "3.75", "3750"),
		txn(model.Sell, model.USD, "500", "3.78", "1890"),
	}
}

func TestCompute_RealizedMargins(t *testing.T) {
	agg := position.NewAggregator(model.USD)
	res := Compute(agg.Aggregate(scenarioA()), decimal.Zero, nil)

	usd, ok := res.For(model.USD)
	require.True(t, ok)
	assertClose(t, "3.75", usd.BuyMargin)
	assertClose(t, "3.78", usd.SellMargin)
	assertClose(t, "0.03", usd.MarginSpread)
	assertClose(t, "30", usd.GrossProfitLocal)
	assertClose(t, "7.9365079365", usd.GrossProfitForeign)
	assert.Equal(t, "7.9365", model.FormatRate(usd.GrossProfitForeign))
	assertClose(t, "30", res.TotalNetProfitLocal)
	assert.True(t, usd.Active)
}

func TestCompute_SingleCurrencyAbsorbsExpenses(t *testing.T) {
	agg := position.NewAggregator(model.USD)
	res := Compute(agg.Aggregate(scenarioA()), dec("10"), nil)

	usd, _ := res.For(model.USD)
	assertClose(t, "1", usd.Proportion)
	assertClose(t, "10", usd.ExpenseShareLocal)
	assertClose(t, "20", usd.NetProfitLocal)
	assert.Equal(t, "5.291", usd.NetProfitForeign.StringFixed(3))
	assertClose(t, "20", res.TotalNetProfitLocal)
}

func TestCompute_NoTransactions(t *testing.T) {
	agg := position.NewAggregator(model.USD, model.EUR)
	res := Compute(agg.Aggregate(nil, model.USD, model.EUR), dec("100"), nil)

	require.Len(t, res.Currencies, 2)
	for _, cr := range res.Currencies {
		assert.True(t, cr.GrossProfitLocal.IsZero(), cr.Currency)
		assert.True(t, cr.GrossProfitForeign.IsZero(), cr.Currency)
		assert.True(t, cr.NetProfitForeign.IsZero(), cr.Currency)
		assert.False(t, cr.Active)
	}
	assertClose(t, "-100", res.TotalNetProfitLocal)
	assertClose(t, "100", res.TotalExpenses)
}

func TestCompute_EqualGrossSplitsExpensesEvenly(t *testing.T) {
	// Both currencies earn 50 gross: 1000 units at a 0.05 spread.
	txns := []model.Transaction{
		txn(model.Buy, model.USD, "1000", "3.70", "3700"),
		txn(model.Sell, model.USD, "1000", "3.75", "3750"),
		txn(model.Buy, model.EUR, "1000", "4.10", "4100"),
		txn(model.Sell, model.EUR, "1000", "4.15", "4150"),
	}
	agg := position.NewAggregator(model.USD, model.EUR)
	res := Compute(agg.Aggregate(txns), dec("20"), nil)

	for _, c := range []model.Currency{model.USD, model.EUR} {
		cr, ok := res.For(c)
		require.True(t, ok)
		assertClose(t, "50", cr.GrossProfitLocal, c)
		assertClose(t, "0.5", cr.Proportion, c)
		assertClose(t, "10", cr.ExpenseShareLocal, c)
	}
	assertClose(t, "80", res.TotalNetProfitLocal)
}

func TestCompute_IdleCurrencyIsAllZero(t *testing.T) {
	agg := position.NewAggregator(model.USD, model.EUR)
	for _, expenses := range []string{"0", "25"} {
		res := Compute(agg.Aggregate(scenarioA(), model.USD, model.EUR), dec(expenses), nil)
		eur, ok := res.For(model.EUR)
		require.True(t, ok)
		for name, v := range map[string]decimal.Decimal{
			"BuyMargin":            eur.BuyMargin,
			"SellMargin":           eur.SellMargin,
			"MarginSpread":         eur.MarginSpread,
			"GrossProfitLocal":     eur.GrossProfitLocal,
			"GrossProfitForeign":   eur.GrossProfitForeign,
			"Proportion":           eur.Proportion,
			"ExpenseShareLocal":    eur.ExpenseShareLocal,
			"ExpenseShareForeign":  eur.ExpenseShareForeign,
			"NetProfitLocal":       eur.NetProfitLocal,
			"NetProfitForeign":     eur.NetProfitForeign,
			"FinalPositionForeign": eur.FinalPositionForeign,
		} {
			assert.True(t, v.IsZero(), "expenses=%s: EUR %s = %s", expenses, name, v)
		}
	}
}

func TestCompute_ZeroSellVolume(t *testing.T) {
	agg := position.NewAggregator(model.USD)
	res := Compute(agg.Aggregate([]model.Transaction{
		txn(model.Buy, model.USD, "100", "3.70", "370"),
	}), dec("10"), nil)

	usd, _ := res.For(model.USD)
	assert.True(t, usd.SellMargin.IsZero())
	assertClose(t, "-370", usd.GrossProfitLocal, "selling nothing values the stock at zero")
	assert.True(t, usd.GrossProfitForeign.IsZero())
	assert.True(t, usd.ExpenseShareForeign.IsZero())
}

func TestCompute_SellingBelowCostIsALoss(t *testing.T) {
	agg := position.NewAggregator(model.USD)
	res := Compute(agg.Aggregate([]model.Transaction{
		txn(model.Buy, model.USD, "1000", "3.80", "3800"),
		txn(model.Sell, model.USD, "400", "3.75", "1500"),
	}), decimal.Zero, nil)

	usd, _ := res.For(model.USD)
	assert.True(t, usd.SellMargin.LessThan(usd.BuyMargin))
	assertClose(t, "-50", usd.GrossProfitLocal)
	assert.True(t, usd.GrossProfitForeign.IsNegative())
	assert.True(t, usd.NetProfitForeign.IsNegative())
	assertClose(t, "-50", res.TotalNetProfitLocal)
}

func TestCompute_ExpenseAllocationIsConservative(t *testing.T) {
	txns := []model.Transaction{
		txn(model.Buy, model.USD, "1200", "3.71", "4452"),
		txn(model.Sell, model.USD, "800", "3.77", "3016"),
		txn(model.Buy, model.EUR, "300", "4.05", "1215"),
		txn(model.Sell, model.EUR, "650", "4.16", "2704"),
	}
	agg := position.NewAggregator(model.USD, model.EUR)
	for _, expenses := range []string{"0", "1", "33.33", "1000"} {
		res := Compute(agg.Aggregate(txns), dec(expenses), nil)
		sum := decimal.Zero
		for _, cr := range res.Currencies {
			sum = sum.Add(cr.ExpenseShareLocal)
		}
		assertClose(t, expenses, sum, "expenses=%s", expenses)
	}
}

func TestCompute_GrossMatchesSpreadTimesBuyVolume(t *testing.T) {
	txns := []model.Transaction{
		txn(model.Buy, model.USD, "321.5", "3.7123", "1193.50"),
		txn(model.Buy, model.USD, "10", "3.69", "36.90"),
		txn(model.Sell, model.USD, "77", "3.7711", "290.37"),
		txn(model.Sell, model.EUR, "5", "4.2", "21"),
	}
	agg := position.NewAggregator(model.USD, model.EUR)
	snaps := agg.Aggregate(txns)
	res := Compute(snaps, dec("3"), nil)

	for _, cr := range res.Currencies {
		want := snaps[cr.Currency].BuyForeign.Mul(cr.SellMargin.Sub(cr.BuyMargin))
		assertClose(t, want.String(), cr.GrossProfitLocal, cr.Currency)
	}
}

func TestCompute_OpeningPositions(t *testing.T) {
	agg := position.NewAggregator(model.USD, model.EUR)
	res := Compute(agg.Aggregate(scenarioA(), model.USD, model.EUR), decimal.Zero, map[model.Currency]decimal.Decimal{
		model.USD: dec("5000"),
		model.EUR: dec("1200"),
	})

	usd, _ := res.For(model.USD)
	assertClose(t, "5007.9365079365", usd.FinalPositionForeign)
	eur, _ := res.For(model.EUR)
	assertClose(t, "1200", eur.FinalPositionForeign)
}

func TestCompute_Idempotent(t *testing.T) {
	txns := scenarioA()
	agg := position.NewAggregator(model.USD, model.EUR)

	first := Compute(agg.Aggregate(txns, model.USD, model.EUR), dec("12.5"), nil)
	second := Compute(agg.Aggregate(txns, model.USD, model.EUR), dec("12.5"), nil)

	require.Len(t, second.Currencies, len(first.Currencies))
	for i := range first.Currencies {
		a, b := first.Currencies[i], second.Currencies[i]
		assert.Equal(t, a.Currency, b.Currency)
		assert.Equal(t, a.GrossProfitLocal.String(), b.GrossProfitLocal.String())
		assert.Equal(t, a.GrossProfitForeign.String(), b.GrossProfitForeign.String())
		assert.Equal(t, a.ExpenseShareLocal.String(), b.ExpenseShareLocal.String())
		assert.Equal(t, a.NetProfitForeign.String(), b.NetProfitForeign.String())
		assert.Equal(t, a.FinalPositionForeign.String(), b.FinalPositionForeign.String())
	}
	assert.Equal(t, first.TotalNetProfitLocal.String(), second.TotalNetProfitLocal.String())
}

func TestCompute_NoCurrencies(t *testing.T) {
	res := Compute(position.Snapshots{}, dec("40"), nil)
	assert.Empty(t, res.Currencies)
	assertClose(t, "-40", res.TotalNetProfitLocal)
}
