package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/cash"
	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/report"
)

// Report builds a report of kind over rng. expenses only affects the
// profit report.
func (a *App) Report(ctx context.Context, kind report.Kind, rng model.DateRange, expenses decimal.Decimal) (report.Table, error) {
	switch kind {
	case report.KindProfit, report.KindMargins:
		res, err := a.Calculator.Calculate(ctx, cash.Request{Range: rng, Expenses: expenses})
		if err != nil {
			return report.Table{}, err
		}
		if kind == report.KindProfit {
			return report.Profit(rng, res.Profit), nil
		}
		return report.Margins(rng, res.Profit), nil
	case report.KindVolume, report.KindTransactions:
		if err := rng.Validate(); err != nil {
			return report.Table{}, fmt.Errorf("date range: %w", err)
		}
		txns, err := a.Ledger.List(ctx, ledger.Query{Range: rng})
		if err != nil {
			return report.Table{}, err
		}
		if kind == report.KindVolume {
			return report.Volume(rng, txns), nil
		}
		return report.Transactions(rng, txns), nil
	}
	return report.Table{}, fmt.Errorf("unknown report %q", kind)
}

// Stats returns the dashboard figures over rng.
func (a *App) Stats(ctx context.Context, rng model.DateRange) (report.Stats, error) {
	if err := rng.Validate(); err != nil {
		return report.Stats{}, fmt.Errorf("date range: %w", err)
	}
	txns, err := a.Ledger.List(ctx, ledger.Query{Range: rng})
	if err != nil {
		return report.Stats{}, err
	}
	return report.ComputeStats(txns), nil
}
