package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/forecast"
	"github.com/rojas-cambio/cambio/internal/model"
)

// Outlook is a projection together with the history it came from.
type Outlook struct {
	Projection forecast.Projection
	Summary    forecast.Summary
	Points     int
}

// Forecast projects an operation of typ from the rate history recorded
// since the given time. A zero rate means the current board rate.
func (a *App) Forecast(ctx context.Context, typ model.TransactionType, c model.Currency, amount, rate decimal.Decimal, since time.Time) (Outlook, error) {
	if rate.IsZero() {
		current, err := a.Board.Rate(ctx, c)
		if err != nil {
			return Outlook{}, err
		}
		rate = current.For(typ)
	}
	hist, err := a.Board.History(c, since)
	if err != nil {
		return Outlook{}, err
	}
	series := forecast.Series(hist, typ)
	p, err := forecast.Project(typ, c, amount, rate, series)
	if err != nil {
		return Outlook{}, err
	}
	return Outlook{Projection: p, Summary: forecast.Summarize(series), Points: len(series)}, nil
}
