// Package profit computes realized profitability from position snapshots.
//
// Margins are realized averages: local volume divided by foreign volume on
// each side. Gross profit values the acquired volume at the realized spread.
// Expenses are allocated across currencies by their share of total gross
// profit, falling back to an equal split when there is no gross profit.
// Every division by zero yields zero. No rounding happens here.
package profit

import (
	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/position"
)

// CurrencyResult is the profitability of one currency.
type CurrencyResult struct {
	Currency             model.Currency
	BuyMargin            decimal.Decimal
	SellMargin           decimal.Decimal
	MarginSpread         decimal.Decimal
	GrossProfitLocal     decimal.Decimal
	GrossProfitForeign   decimal.Decimal
	Proportion           decimal.Decimal
	ExpenseShareLocal    decimal.Decimal
	ExpenseShareForeign  decimal.Decimal
	NetProfitLocal       decimal.Decimal
	NetProfitForeign     decimal.Decimal
	OpeningForeign       decimal.Decimal
	FinalPositionForeign decimal.Decimal

	// Active is false when no transaction contributed; presenters use it
	// to tell "no activity" apart from a loss.
	Active bool
}

// Result is the profitability of a period across currencies.
type Result struct {
	Currencies            []CurrencyResult // sorted by currency code
	TotalExpenses         decimal.Decimal
	TotalGrossProfitLocal decimal.Decimal
	TotalNetProfitLocal   decimal.Decimal
}

// For returns the result of one currency.
func (r Result) For(c model.Currency) (CurrencyResult, bool) {
	for _, cr := range r.Currencies {
		if cr.Currency == c {
			return cr, true
		}
	}
	return CurrencyResult{}, false
}

// Compute derives per-currency profitability from snapshots, an expense
// figure in local currency, and optional opening positions in foreign units.
func Compute(snaps position.Snapshots, expenses decimal.Decimal, opening map[model.Currency]decimal.Decimal) Result {
	currencies := snaps.Currencies()
	results := make([]CurrencyResult, len(currencies))

	totalGross := decimal.Zero
	for i, c := range currencies {
		s := snaps[c]
		buyMargin := div(s.BuyLocal, s.BuyForeign)
		sellMargin := div(s.SellLocal, s.SellForeign)
		spread := sellMargin.Sub(buyMargin)
		grossLocal := s.BuyForeign.Mul(spread)

		results[i] = CurrencyResult{
			Currency:           c,
			BuyMargin:          buyMargin,
			SellMargin:         sellMargin,
			MarginSpread:       spread,
			GrossProfitLocal:   grossLocal,
			GrossProfitForeign: div(grossLocal, sellMargin),
			Active:             !s.Idle(),
		}
		totalGross = totalGross.Add(grossLocal)
	}

	equalShare := decimal.Zero
	if n := len(currencies); n > 0 {
		equalShare = decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(n)))
	}

	for i := range results {
		r := &results[i]
		if totalGross.IsZero() {
			r.Proportion = equalShare
		} else {
			r.Proportion = r.GrossProfitLocal.Div(totalGross)
		}
		r.ExpenseShareLocal = expenses.Mul(r.Proportion)
		r.ExpenseShareForeign = div(r.ExpenseShareLocal, r.SellMargin)
		r.NetProfitLocal = r.GrossProfitLocal.Sub(r.ExpenseShareLocal)
		r.NetProfitForeign = r.GrossProfitForeign.Sub(r.ExpenseShareForeign)

		r.OpeningForeign = decimal.Zero
		if o, ok := opening[r.Currency]; ok {
			r.OpeningForeign = o
		}
		r.FinalPositionForeign = r.OpeningForeign.Add(r.NetProfitForeign)
	}

	return Result{
		Currencies:            results,
		TotalExpenses:         expenses,
		TotalGrossProfitLocal: totalGross,
		TotalNetProfitLocal:   totalGross.Sub(expenses),
	}
}

// div returns a/b, or zero when b is zero.
func div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}
