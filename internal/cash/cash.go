// Package cash runs the cash-position calculation: fetch transactions for a
// period, aggregate them into positions and compute profitability.
package cash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/position"
	"github.com/rojas-cambio/cambio/internal/profit"
)

// Source supplies the transactions of a period.
type Source interface {
	List(ctx context.Context, q ledger.Query) ([]model.Transaction, error)
}

// Request describes one calculation.
type Request struct {
	Range      model.DateRange
	Currencies []model.Currency // empty means every traded currency
	Expenses   decimal.Decimal  // local currency, >= 0
	Opening    map[model.Currency]decimal.Decimal
	UserID     string // restrict to one operator's transactions when set
}

// Result is a completed calculation.
type Result struct {
	Request      Request
	Positions    position.Snapshots
	Profit       profit.Result
	Transactions int
	Dropped      []position.Dropped
}

// Calculator wires a transaction source to the aggregator and profit core.
type Calculator struct {
	source     Source
	aggregator *position.Aggregator
	currencies []model.Currency
	logger     *slog.Logger
}

// NewCalculator creates a Calculator for the traded currencies.
func NewCalculator(source Source, currencies []model.Currency, logger *slog.Logger) *Calculator {
	return &Calculator{
		source:     source,
		aggregator: position.NewAggregator(currencies...),
		currencies: currencies,
		logger:     logger,
	}
}

// Calculate fetches, aggregates and computes. A fetch failure returns an
// error and no result.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Range.Validate(); err != nil {
		return nil, fmt.Errorf("date range: %w", err)
	}
	if req.Expenses.IsNegative() {
		return nil, errors.New("expenses must not be negative")
	}
	currencies := req.Currencies
	if len(currencies) == 0 {
		currencies = c.currencies
	}
	for _, cur := range currencies {
		if !c.aggregator.Recognizes(cur) {
			return nil, fmt.Errorf("currency %s is not traded", cur)
		}
	}

	txns, err := c.source.List(ctx, ledger.Query{Range: req.Range, UserID: req.UserID})
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}
	txns = position.FilterByDate(txns, req.Range)

	dropped := c.aggregator.Unrecognized(txns)
	for _, d := range dropped {
		c.logger.Warn("transaction skipped", "id", d.Transaction.ID, "receipt", d.Transaction.Receipt, "reason", d.Reason)
	}

	snaps := c.aggregator.Aggregate(txns, currencies...)
	res := profit.Compute(snaps, req.Expenses, req.Opening)

	c.logger.Debug("cash position calculated",
		"range", req.Range.String(),
		"transactions", len(txns),
		"net_profit_local", res.TotalNetProfitLocal.StringFixed(2),
	)

	req.Currencies = currencies
	return &Result{
		Request:      req,
		Positions:    snaps,
		Profit:       res,
		Transactions: len(txns),
		Dropped:      dropped,
	}, nil
}

// ParseExpenses parses the operating-expense form field. Empty,
// non-numeric and negative input is rejected.
func ParseExpenses(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("expenses: required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("expenses: not a number: %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("expenses: must not be negative")
	}
	return d, nil
}

// ParseOpening parses opening positions written as "USD=1500,EUR=300".
func ParseOpening(s string) (map[model.Currency]decimal.Decimal, error) {
	out := make(map[model.Currency]decimal.Decimal)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, amount, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("opening position %q: want CODE=AMOUNT", part)
		}
		cur, err := model.ParseCurrency(code)
		if err != nil {
			return nil, fmt.Errorf("opening position %q: %w", part, err)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("opening position %q: not a number", part)
		}
		out[cur] = d
	}
	return out, nil
}
