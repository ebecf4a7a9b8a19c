// Package rates supplies quoted buy/sell exchange rates.
package rates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
)

// Provider returns the current quote for each traded currency.
type Provider interface {
	Rates(ctx context.Context) ([]model.Rate, error)
}

// ErrNoRates is returned when a provider produced nothing.
var ErrNoRates = errors.New("no rates available")

// simulatedBase is the lowest simulated buy rate per currency.
var simulatedBase = map[model.Currency]decimal.Decimal{
	model.USD: decimal.RequireFromString("3.45"),
	model.EUR: decimal.RequireFromString("3.80"),
}

// Simulated generates plausible random quotes: buy within 0.10 above a
// base, sell 0.05 to 0.10 above buy.
type Simulated struct {
	currencies []model.Currency
	now        func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulated creates a Simulated provider. Currencies without a known
// base rate are skipped.
func NewSimulated(currencies []model.Currency, seed int64) *Simulated {
	return &Simulated{
		currencies: currencies,
		now:        time.Now,
		rnd:        rand.New(rand.NewSource(seed)),
	}
}

func (s *Simulated) Rates(ctx context.Context) ([]model.Rate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Rate
	for _, c := range s.currencies {
		base, ok := simulatedBase[c]
		if !ok {
			continue
		}
		buy := base.Add(s.jitter("0.10")).Round(4)
		sell := buy.Add(decimal.RequireFromString("0.05")).Add(s.jitter("0.05")).Round(4)
		market := buy.Add(decimal.RequireFromString("0.025")).Round(4)
		change := s.jitter("0.01").Sub(decimal.RequireFromString("0.005")).Round(4)

		out = append(out, model.Rate{
			Currency:      c,
			Buy:           buy,
			Sell:          sell,
			Market:        market,
			Change:        change,
			ChangePercent: percentChange(change, market.Sub(change)),
			UpdatedAt:     s.now(),
			Source:        "simulated",
		})
	}
	if len(out) == 0 {
		return nil, ErrNoRates
	}
	return out, nil
}

// jitter returns a uniform value in [0, max).
func (s *Simulated) jitter(width string) decimal.Decimal {
	return decimal.NewFromFloat(s.rnd.Float64()).Mul(decimal.RequireFromString(width))
}

// Fallback asks the primary provider and, on failure or an empty answer,
// the secondary.
type Fallback struct {
	primary   Provider
	secondary Provider
	logger    *slog.Logger
}

// NewFallback creates a Fallback provider.
func NewFallback(primary, secondary Provider, logger *slog.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Rates(ctx context.Context) ([]model.Rate, error) {
	rates, err := f.primary.Rates(ctx)
	if err == nil && len(rates) > 0 {
		return rates, nil
	}
	if err == nil {
		err = ErrNoRates
	}
	if ctx.Err() != nil {
		return nil, err
	}
	f.logger.Warn("primary rate provider failed, using fallback", "error", err)

	rates, ferr := f.secondary.Rates(ctx)
	if ferr != nil {
		return nil, fmt.Errorf("primary: %v; fallback: %w", err, ferr)
	}
	return rates, nil
}

const cacheKey = "rates"

// Cached memoizes another provider's answer for a TTL.
type Cached struct {
	inner Provider
	cache *cache.Cache
}

// NewCached wraps inner with a TTL cache.
func NewCached(inner Provider, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: cache.New(ttl, 2*ttl)}
}

func (c *Cached) Rates(ctx context.Context) ([]model.Rate, error) {
	if v, ok := c.cache.Get(cacheKey); ok {
		return append([]model.Rate(nil), v.([]model.Rate)...), nil
	}
	rates, err := c.inner.Rates(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(cacheKey, append([]model.Rate(nil), rates...), cache.DefaultExpiration)
	return rates, nil
}

// Invalidate drops the cached answer.
func (c *Cached) Invalidate() {
	c.cache.Delete(cacheKey)
}

func percentChange(change, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return change.Div(previous).Mul(decimal.NewFromInt(100)).Round(3)
}
