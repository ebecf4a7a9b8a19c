package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
)

// Share is one currency's part of the traded volume.
type Share struct {
	Currency    model.Currency  `json:"currency"`
	VolumeLocal decimal.Decimal `json:"volume_local"`
	Percent     decimal.Decimal `json:"percent"`
}

// Stats are the dashboard figures of a period.
type Stats struct {
	Count           int             `json:"count"`
	BuyCount        int             `json:"buy_count"`
	SellCount       int             `json:"sell_count"`
	BuyVolumeLocal  decimal.Decimal `json:"buy_volume_local"`
	SellVolumeLocal decimal.Decimal `json:"sell_volume_local"`
	Shares          []Share         `json:"shares"`
}

// ComputeStats summarizes txns. Shares are sorted by currency and their
// percents are rounded to 2 places.
func ComputeStats(txns []model.Transaction) Stats {
	var s Stats
	byCurrency := map[model.Currency]decimal.Decimal{}
	for _, tx := range txns {
		total := tx.EffectiveTotal()
		switch tx.Type {
		case model.Buy:
			s.BuyCount++
			s.BuyVolumeLocal = s.BuyVolumeLocal.Add(total)
		case model.Sell:
			s.SellCount++
			s.SellVolumeLocal = s.SellVolumeLocal.Add(total)
		default:
			continue
		}
		s.Count++
		byCurrency[tx.Currency] = byCurrency[tx.Currency].Add(total)
	}

	volume := s.BuyVolumeLocal.Add(s.SellVolumeLocal)
	for c, v := range byCurrency {
		pct := decimal.Zero
		if !volume.IsZero() {
			pct = v.Div(volume).Mul(decimal.NewFromInt(100)).Round(2)
		}
		s.Shares = append(s.Shares, Share{Currency: c, VolumeLocal: v, Percent: pct})
	}
	sort.Slice(s.Shares, func(i, j int) bool { return s.Shares[i].Currency < s.Shares[j].Currency })
	return s
}
