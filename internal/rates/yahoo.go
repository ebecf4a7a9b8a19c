package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rojas-cambio/cambio/internal/model"
)

// DefaultYahooURL is the chart API base.
const DefaultYahooURL = "https://query2.finance.yahoo.com/v8/finance/chart/"

// Yahoo quotes currencies against the local currency from the Yahoo chart
// API and derives buy/sell around the market rate with a fixed margin.
type Yahoo struct {
	client     *http.Client
	baseURL    string
	local      model.Currency
	currencies []model.Currency
	margin     decimal.Decimal
	limiter    *rate.Limiter
	maxRetries uint64
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// YahooOption configures a Yahoo provider.
type YahooOption func(*Yahoo)

// WithBaseURL points the provider at another chart endpoint.
func WithBaseURL(u string) YahooOption {
	return func(y *Yahoo) { y.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) YahooOption {
	return func(y *Yahoo) { y.client = c }
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n uint64) YahooOption {
	return func(y *Yahoo) { y.maxRetries = n }
}

// NewYahoo creates a Yahoo provider.
func NewYahoo(currencies []model.Currency, local model.Currency, margin decimal.Decimal, timeout time.Duration, opts ...YahooOption) *Yahoo {
	y := &Yahoo{
		client:     &http.Client{Timeout: timeout},
		baseURL:    DefaultYahooURL,
		local:      local,
		currencies: currencies,
		margin:     margin,
		limiter:    rate.NewLimiter(rate.Every(250*time.Millisecond), 2),
		maxRetries: 3,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
		now: time.Now,
	}
	for _, o := range opts {
		o(y)
	}
	return y
}

// Rates fetches every currency concurrently. Any failure fails the call.
func (y *Yahoo) Rates(ctx context.Context) ([]model.Rate, error) {
	out := make([]model.Rate, len(y.currencies))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range y.currencies {
		g.Go(func() error {
			r, err := y.quote(gctx, c)
			if err != nil {
				return fmt.Errorf("quoting %s%s: %w", c, y.local, err)
			}
			out[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) quote(ctx context.Context, c model.Currency) (model.Rate, error) {
	var resp chartResponse
	op := func() error {
		if err := y.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		r, err := y.fetch(ctx, c)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(y.newBackOff(), y.maxRetries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return model.Rate{}, err
	}

	if resp.Chart.Error != nil {
		return model.Rate{}, fmt.Errorf("chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return model.Rate{}, ErrNoRates
	}
	meta := resp.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return model.Rate{}, fmt.Errorf("invalid market price %v", meta.RegularMarketPrice)
	}

	market := decimal.NewFromFloat(meta.RegularMarketPrice).Round(4)
	half := y.margin.Div(decimal.NewFromInt(2))
	asOf := y.now()
	if meta.RegularMarketTime > 0 {
		asOf = time.Unix(meta.RegularMarketTime, 0)
	}

	r := model.Rate{
		Currency:  c,
		Buy:       market.Sub(half).Round(4),
		Sell:      market.Add(half).Round(4),
		Market:    market,
		UpdatedAt: asOf,
		Source:    "yahoo",
	}
	if meta.ChartPreviousClose > 0 {
		prev := decimal.NewFromFloat(meta.ChartPreviousClose)
		r.Change = market.Sub(prev).Round(4)
		r.ChangePercent = percentChange(market.Sub(prev), prev)
	}
	return r, nil
}

func (y *Yahoo) fetch(ctx context.Context, c model.Currency) (chartResponse, error) {
	url := fmt.Sprintf("%s%s%s=X?interval=1h&range=1d", y.baseURL, c, y.local)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return chartResponse{}, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", "cambio/1.0")

	res, err := y.client.Do(req)
	if err != nil {
		return chartResponse{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err := fmt.Errorf("yahoo http %d", res.StatusCode)
		if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
			return chartResponse{}, backoff.Permanent(err)
		}
		return chartResponse{}, err
	}

	var out chartResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return chartResponse{}, backoff.Permanent(fmt.Errorf("decoding chart: %w", err))
	}
	return out, nil
}
