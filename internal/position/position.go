// Package position reduces exchange transactions into per-currency
// volume totals.
package position

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
)

// Snapshot holds the buy and sell volume of one currency over a period.
type Snapshot struct {
	Currency    model.Currency
	BuyForeign  decimal.Decimal // sum of amount over buys
	SellForeign decimal.Decimal
	BuyLocal    decimal.Decimal // sum of total over buys
	SellLocal   decimal.Decimal
	BuyCount    int
	SellCount   int
}

// Idle reports whether no transaction contributed to the snapshot.
func (s Snapshot) Idle() bool {
	return s.BuyCount == 0 && s.SellCount == 0
}

// NetForeign returns bought minus sold foreign units.
func (s Snapshot) NetForeign() decimal.Decimal {
	return s.BuyForeign.Sub(s.SellForeign)
}

// Snapshots maps currency code to its snapshot.
type Snapshots map[model.Currency]Snapshot

// Currencies returns the keys in sorted order.
func (s Snapshots) Currencies() []model.Currency {
	out := make([]model.Currency, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Aggregator routes transactions into snapshots. Only currencies it was
// built with are recognized.
type Aggregator struct {
	known map[model.Currency]bool
}

// NewAggregator creates an Aggregator recognizing the given currencies.
func NewAggregator(currencies ...model.Currency) *Aggregator {
	known := make(map[model.Currency]bool, len(currencies))
	for _, c := range currencies {
		known[c] = true
	}
	return &Aggregator{known: known}
}

// Recognizes reports whether c is one of the aggregator's currencies.
func (a *Aggregator) Recognizes(c model.Currency) bool {
	return a.known[c]
}

// Aggregate sums buy and sell volume per currency. Transactions with an
// unrecognized type or currency are skipped; use Unrecognized to list them.
//
// Without a filter the result holds one snapshot per currency observed.
// With a filter it holds exactly the requested currencies, zero-filled when
// they had no activity, and transactions in other currencies are ignored.
func (a *Aggregator) Aggregate(txns []model.Transaction, filter ...model.Currency) Snapshots {
	out := make(Snapshots)
	var wanted map[model.Currency]bool
	if len(filter) > 0 {
		wanted = make(map[model.Currency]bool, len(filter))
		for _, c := range filter {
			wanted[c] = true
			out[c] = zero(c)
		}
	}

	for _, t := range txns {
		if !a.known[t.Currency] || !t.Type.Valid() {
			continue
		}
		if wanted != nil && !wanted[t.Currency] {
			continue
		}
		snap, ok := out[t.Currency]
		if !ok {
			snap = zero(t.Currency)
		}
		total := t.EffectiveTotal()
		switch t.Type {
		case model.Buy:
			snap.BuyForeign = snap.BuyForeign.Add(t.Amount)
			snap.BuyLocal = snap.BuyLocal.Add(total)
			snap.BuyCount++
		case model.Sell:
			snap.SellForeign = snap.SellForeign.Add(t.Amount)
			snap.SellLocal = snap.SellLocal.Add(total)
			snap.SellCount++
		}
		out[t.Currency] = snap
	}
	return out
}

// Dropped is a transaction Aggregate skipped, with the reason.
type Dropped struct {
	Transaction model.Transaction
	Reason      string
}

// Unrecognized lists the transactions Aggregate would skip.
func (a *Aggregator) Unrecognized(txns []model.Transaction) []Dropped {
	var out []Dropped
	for _, t := range txns {
		switch {
		case !t.Type.Valid():
			out = append(out, Dropped{Transaction: t, Reason: "unknown type " + string(t.Type)})
		case !a.known[t.Currency]:
			out = append(out, Dropped{Transaction: t, Reason: "unknown currency " + string(t.Currency)})
		}
	}
	return out
}

// FilterByDate keeps the transactions whose day falls inside r.
func FilterByDate(txns []model.Transaction, r model.DateRange) []model.Transaction {
	var out []model.Transaction
	for _, t := range txns {
		if r.Contains(t.Day()) {
			out = append(out, t)
		}
	}
	return out
}

func zero(c model.Currency) Snapshot {
	return Snapshot{
		Currency:    c,
		BuyForeign:  decimal.Zero,
		SellForeign: decimal.Zero,
		BuyLocal:    decimal.Zero,
		SellLocal:   decimal.Zero,
	}
}
