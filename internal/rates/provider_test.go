package rates

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojas-cambio/cambio/internal/logger"
	"github.com/rojas-cambio/cambio/internal/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubProvider struct {
	rates []model.Rate
	err   error
	calls int
}

func (s *stubProvider) Rates(context.Context) ([]model.Rate, error) {
	s.calls++
	return s.rates, s.err
}

func quote(c model.Currency, buy, sell string) model.Rate {
	return model.Rate{Currency: c, Buy: dec(buy), Sell: dec(sell), UpdatedAt: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC), Source: "stub"}
}

func TestSimulated_Ranges(t *testing.T) {
	sim := NewSimulated([]model.Currency{model.USD, model.EUR, "GBP"}, 42)
	for i := 0; i < 50; i++ {
		rates, err := sim.Rates(context.Background())
		require.NoError(t, err)
		require.Len(t, rates, 2, "GBP has no simulated base")

		usd := rates[0]
		assert.Equal(t, model.USD, usd.Currency)
		assert.True(t, usd.Buy.GreaterThanOrEqual(dec("3.45")) && usd.Buy.LessThanOrEqual(dec("3.55")), usd.Buy.String())
		spread := usd.Sell.Sub(usd.Buy)
		assert.True(t, spread.GreaterThanOrEqual(dec("0.05")) && spread.LessThanOrEqual(dec("0.10")), spread.String())
		assert.True(t, usd.Market.Equal(usd.Buy.Add(dec("0.025"))))
		assert.LessOrEqual(t, usd.Buy.Exponent(), int32(0))
		assert.GreaterOrEqual(t, usd.Buy.Exponent(), int32(-4), "rounded to 4 places")

		eur := rates[1]
		assert.True(t, eur.Buy.GreaterThanOrEqual(dec("3.80")) && eur.Buy.LessThanOrEqual(dec("3.90")), eur.Buy.String())
		assert.Equal(t, "simulated", eur.Source)
	}
}

func TestSimulated_Deterministic(t *testing.T) {
	a, err := NewSimulated([]model.Currency{model.USD}, 7).Rates(context.Background())
	require.NoError(t, err)
	b, err := NewSimulated([]model.Currency{model.USD}, 7).Rates(context.Background())
	require.NoError(t, err)
	assert.True(t, a[0].Buy.Equal(b[0].Buy))
	assert.True(t, a[0].Sell.Equal(b[0].Sell))
}

func TestSimulated_NothingToQuote(t *testing.T) {
	_, err := NewSimulated([]model.Currency{"GBP"}, 1).Rates(context.Background())
	assert.ErrorIs(t, err, ErrNoRates)
}

func TestFallback(t *testing.T) {
	primary := &stubProvider{rates: []model.Rate{quote(model.USD, "3.70", "3.74")}}
	secondary := &stubProvider{rates: []model.Rate{quote(model.USD, "3.50", "3.55")}}
	fb := NewFallback(primary, secondary, logger.Discard())

	got, err := fb.Rates(context.Background())
	require.NoError(t, err)
	assert.True(t, got[0].Buy.Equal(dec("3.70")))
	assert.Equal(t, 0, secondary.calls)

	primary.err = errors.New("timeout")
	got, err = fb.Rates(context.Background())
	require.NoError(t, err)
	assert.True(t, got[0].Buy.Equal(dec("3.50")))

	primary.err, primary.rates = nil, nil
	_, err = fb.Rates(context.Background())
	require.NoError(t, err, "an empty answer also falls back")
	assert.Equal(t, 2, secondary.calls)

	secondary.err = errors.New("down too")
	primary.err = errors.New("timeout")
	_, err = fb.Rates(context.Background())
	assert.ErrorContains(t, err, "down too")
}

func TestCached(t *testing.T) {
	inner := &stubProvider{rates: []model.Rate{quote(model.USD, "3.70", "3.74")}}
	c := NewCached(inner, time.Minute)
	ctx := context.Background()

	first, err := c.Rates(ctx)
	require.NoError(t, err)
	first[0].Buy = dec("9.99") // callers cannot poison the cache

	second, err := c.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.True(t, second[0].Buy.Equal(dec("3.70")))

	c.Invalidate()
	_, err = c.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)

	inner.err = errors.New("boom")
	c.Invalidate()
	_, err = c.Rates(ctx)
	assert.Error(t, err)
}
