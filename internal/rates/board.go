package rates

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rojas-cambio/cambio/internal/model"
)

// SourceManual marks rates typed in by an administrator.
const SourceManual = "manual"

const (
	ratesDir    = "rates"
	currentFile = "current.yaml"
	historyFile = "history.csv"
)

// ErrUnknownCurrency is returned for a currency the board does not quote.
var ErrUnknownCurrency = errors.New("currency not quoted")

// Board holds the rates currently offered at the counter. It persists them
// to rates/current.yaml and appends every change to rates/history.csv.
type Board struct {
	root     string
	provider Provider
	now      func() time.Time

	mu sync.Mutex
}

// NewBoard creates a Board over a data directory.
func NewBoard(root string, provider Provider) *Board {
	return &Board{root: root, provider: provider, now: time.Now}
}

type boardFile struct {
	Rates []boardEntry `yaml:"rates"`
}

type boardEntry struct {
	Currency      string    `yaml:"currency"`
	Buy           string    `yaml:"buy"`
	Sell          string    `yaml:"sell"`
	Market        string    `yaml:"market,omitempty"`
	Change        string    `yaml:"change,omitempty"`
	ChangePercent string    `yaml:"change_percent,omitempty"`
	UpdatedAt     time.Time `yaml:"updated_at"`
	Source        string    `yaml:"source"`
}

// Current returns the stored rates, refreshing from the provider when none
// are stored yet.
func (b *Board) Current(ctx context.Context) ([]model.Rate, error) {
	b.mu.Lock()
	stored, err := b.load()
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		return stored, nil
	}
	return b.Refresh(ctx)
}

// Rate returns the current quote of one currency.
func (b *Board) Rate(ctx context.Context, c model.Currency) (model.Rate, error) {
	all, err := b.Current(ctx)
	if err != nil {
		return model.Rate{}, err
	}
	for _, r := range all {
		if r.Currency == c {
			return r, nil
		}
	}
	return model.Rate{}, fmt.Errorf("%s: %w", c, ErrUnknownCurrency)
}

// Refresh replaces every stored rate, manual ones included, with the
// provider's quotes.
func (b *Board) Refresh(ctx context.Context) ([]model.Rate, error) {
	fresh, err := b.provider.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching rates: %w", err)
	}
	if len(fresh) == 0 {
		return nil, ErrNoRates
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	prev, err := b.load()
	if err != nil {
		return nil, err
	}
	previous := make(map[model.Currency]model.Rate, len(prev))
	for _, r := range prev {
		previous[r.Currency] = r
	}
	for i, r := range fresh {
		if p, ok := previous[r.Currency]; ok && r.Change.IsZero() {
			fresh[i].Change = r.Buy.Sub(p.Buy)
			fresh[i].ChangePercent = percentChange(fresh[i].Change, p.Buy)
		}
	}

	if err := b.save(fresh); err != nil {
		return nil, err
	}
	if err := appendHistory(b.path(historyFile), fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Set overrides the quote of one currency by hand. The override lasts until
// the next Refresh.
func (b *Board) Set(c model.Currency, buy, sell decimal.Decimal) (model.Rate, error) {
	if !buy.IsPositive() || !sell.IsPositive() {
		return model.Rate{}, errors.New("buy and sell rates must be greater than zero")
	}
	if sell.LessThan(buy) {
		return model.Rate{}, fmt.Errorf("sell rate %s is below buy rate %s", sell.StringFixed(4), buy.StringFixed(4))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.load()
	if err != nil {
		return model.Rate{}, err
	}

	r := model.Rate{
		Currency:  c,
		Buy:       buy,
		Sell:      sell,
		Market:    buy.Add(sell).Div(decimal.NewFromInt(2)).Round(4),
		UpdatedAt: b.now(),
		Source:    SourceManual,
	}
	replaced := false
	for i, old := range current {
		if old.Currency == c {
			r.Change = buy.Sub(old.Buy)
			r.ChangePercent = percentChange(r.Change, old.Buy)
			current[i] = r
			replaced = true
		}
	}
	if !replaced {
		current = append(current, r)
	}

	if err := b.save(current); err != nil {
		return model.Rate{}, err
	}
	if err := appendHistory(b.path(historyFile), []model.Rate{r}); err != nil {
		return model.Rate{}, err
	}
	return r, nil
}

// History returns recorded quotes of c at or after since, oldest first.
func (b *Board) History(c model.Currency, since time.Time) ([]model.Rate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := readHistoryFile(b.path(historyFile))
	if err != nil {
		return nil, err
	}
	var out []model.Rate
	for _, r := range all {
		if r.Currency == c && !r.UpdatedAt.Before(since) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (b *Board) load() ([]model.Rate, error) {
	data, err := os.ReadFile(b.path(currentFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading current rates: %w", err)
	}

	var f boardFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing current rates: %w", err)
	}

	out := make([]model.Rate, 0, len(f.Rates))
	for _, e := range f.Rates {
		r, err := e.rate()
		if err != nil {
			return nil, fmt.Errorf("current rates %s: %w", e.Currency, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (b *Board) save(rates []model.Rate) error {
	if err := os.MkdirAll(filepath.Join(b.root, ratesDir), 0o755); err != nil {
		return fmt.Errorf("creating rates dir: %w", err)
	}
	f := boardFile{Rates: make([]boardEntry, len(rates))}
	for i, r := range rates {
		f.Rates[i] = entryFor(r)
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshaling current rates: %w", err)
	}
	if err := os.WriteFile(b.path(currentFile), data, 0o644); err != nil {
		return fmt.Errorf("writing current rates: %w", err)
	}
	return nil
}

func (b *Board) path(name string) string {
	return filepath.Join(b.root, ratesDir, name)
}

func entryFor(r model.Rate) boardEntry {
	e := boardEntry{
		Currency:  string(r.Currency),
		Buy:       r.Buy.StringFixed(4),
		Sell:      r.Sell.StringFixed(4),
		UpdatedAt: r.UpdatedAt.UTC().Truncate(time.Second),
		Source:    r.Source,
	}
	if !r.Market.IsZero() {
		e.Market = r.Market.StringFixed(4)
	}
	if !r.Change.IsZero() {
		e.Change = r.Change.StringFixed(4)
		e.ChangePercent = r.ChangePercent.StringFixed(3)
	}
	return e
}

func (e boardEntry) rate() (model.Rate, error) {
	r := model.Rate{Currency: model.Currency(e.Currency), UpdatedAt: e.UpdatedAt, Source: e.Source}
	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{e.Buy, &r.Buy},
		{e.Sell, &r.Sell},
		{e.Market, &r.Market},
		{e.Change, &r.Change},
		{e.ChangePercent, &r.ChangePercent},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return model.Rate{}, fmt.Errorf("parsing %q: %w", f.raw, err)
		}
		*f.dst = d
	}
	return r, nil
}
