// Package forecast projects short-term profit of an operation from recent
// exchange-rate history.
package forecast

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
)

// Direction is the sign of a rate movement.
type Direction string

const (
	Up      Direction = "up"
	Down    Direction = "down"
	Neutral Direction = "neutral"
)

// Scenario multipliers applied to the expected projection.
var (
	Conservative = decimal.RequireFromString("0.5")
	Expected     = decimal.NewFromInt(1)
	Optimistic   = decimal.RequireFromString("1.5")
)

// Average returns the arithmetic mean of rates, or zero for none.
func Average(rates []decimal.Decimal) decimal.Decimal {
	if len(rates) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, rates...).Div(decimal.NewFromInt(int64(len(rates))))
}

// Trend is the mean of the later half of rates minus the mean of the
// earlier half. With an odd count the middle value belongs to the later
// half. Fewer than two rates have no trend.
func Trend(rates []decimal.Decimal) decimal.Decimal {
	if len(rates) < 2 {
		return decimal.Zero
	}
	mid := len(rates) / 2
	return Average(rates[mid:]).Sub(Average(rates[:mid]))
}

// Scenario is one projected outcome.
type Scenario struct {
	Name   string
	Profit decimal.Decimal
}

// Projection is the expected result of an operation if the trend holds.
type Projection struct {
	Type      model.TransactionType
	Currency  model.Currency
	Amount    decimal.Decimal
	Rate      decimal.Decimal
	Average   decimal.Decimal
	Trend     decimal.Decimal
	Profit    decimal.Decimal
	Scenarios []Scenario
	Favorable bool
}

// Advice is a one-line recommendation for the projection.
func (p Projection) Advice() string {
	switch {
	case p.Type == model.Buy && p.Favorable:
		return fmt.Sprintf("favorable to buy: %s is trending up and could be sold higher later", p.Currency)
	case p.Type == model.Buy:
		return fmt.Sprintf("caution buying: %s is trending down", p.Currency)
	case p.Favorable:
		return fmt.Sprintf("favorable to sell: %s is trending down and could be bought back lower", p.Currency)
	default:
		return fmt.Sprintf("caution selling: %s is trending up", p.Currency)
	}
}

// Project estimates the local-currency profit of an operation at rate.
// Buying profits only from an upward trend (sell back later at rate+trend);
// selling profits only from a downward one (buy back at rate-|trend|).
// Non-positive amount or rate projects zero.
func Project(typ model.TransactionType, c model.Currency, amount, rate decimal.Decimal, history []decimal.Decimal) (Projection, error) {
	if !typ.Valid() {
		return Projection{}, fmt.Errorf("invalid operation %q", typ)
	}
	if amount.IsNegative() || rate.IsNegative() {
		return Projection{}, errors.New("amount and rate must not be negative")
	}

	p := Projection{
		Type:     typ,
		Currency: c,
		Amount:   amount,
		Rate:     rate,
		Average:  Average(history),
		Trend:    Trend(history),
	}
	if typ == model.Buy {
		p.Favorable = p.Trend.IsPositive()
	} else {
		p.Favorable = p.Trend.IsNegative()
	}

	if amount.IsPositive() && rate.IsPositive() && p.Favorable {
		p.Profit = amount.Mul(p.Trend.Abs())
	}
	p.Scenarios = []Scenario{
		{Name: "conservative", Profit: p.Profit.Mul(Conservative)},
		{Name: "expected", Profit: p.Profit.Mul(Expected)},
		{Name: "optimistic", Profit: p.Profit.Mul(Optimistic)},
	}
	return p, nil
}

// Summary describes a series of quotes.
type Summary struct {
	Max       decimal.Decimal
	Min       decimal.Decimal
	Last      decimal.Decimal
	Direction Direction
}

// Summarize returns the range of rates and whether the last one is above or
// below the first.
func Summarize(rates []decimal.Decimal) Summary {
	if len(rates) == 0 {
		return Summary{Direction: Neutral}
	}
	s := Summary{Max: decimal.Max(rates[0], rates[1:]...), Min: decimal.Min(rates[0], rates[1:]...), Last: rates[len(rates)-1], Direction: Neutral}
	first := rates[0]
	switch {
	case s.Last.GreaterThan(first):
		s.Direction = Up
	case s.Last.LessThan(first):
		s.Direction = Down
	}
	return s
}

// Series extracts one side of a quote history.
func Series(history []model.Rate, typ model.TransactionType) []decimal.Decimal {
	out := make([]decimal.Decimal, len(history))
	for i, r := range history {
		out[i] = r.For(typ)
	}
	return out
}
