// Package report turns profitability results and transaction lists into
// tables that can be written as CSV or XLSX.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/profit"
)

// Kind names a report.
type Kind string

const (
	KindProfit       Kind = "profit"
	KindMargins      Kind = "margins"
	KindVolume       Kind = "volume"
	KindTransactions Kind = "transactions"
)

// Kinds lists every report kind.
var Kinds = []Kind{KindProfit, KindMargins, KindVolume, KindTransactions}

// ParseKind accepts a report kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	names := make([]string, len(Kinds))
	for i, known := range Kinds {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown report %q (want one of %s)", s, strings.Join(names, ", "))
}

// Table is a rendered report. Cells are preformatted strings.
type Table struct {
	Kind    Kind       `json:"kind"`
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Profit lists the profitability of each currency followed by a total row.
// Idle currencies show "-" instead of zeros.
func Profit(period model.DateRange, res profit.Result) Table {
	t := Table{
		Kind:  KindProfit,
		Title: "Profitability " + period.String(),
		Columns: []string{
			"currency", "buy_margin", "sell_margin", "margin_spread",
			"gross_profit_local", "gross_profit_foreign", "proportion",
			"expense_share_local", "net_profit_local", "net_profit_foreign",
			"final_position_foreign",
		},
	}
	for _, cr := range res.Currencies {
		if !cr.Active {
			row := []string{string(cr.Currency)}
			for range t.Columns[1:] {
				row = append(row, "-")
			}
			t.Rows = append(t.Rows, row)
			continue
		}
		t.Rows = append(t.Rows, []string{
			string(cr.Currency),
			model.FormatRate(cr.BuyMargin),
			model.FormatRate(cr.SellMargin),
			model.FormatRate(cr.MarginSpread),
			model.FormatMoney(cr.GrossProfitLocal),
			model.FormatMoney(cr.GrossProfitForeign),
			cr.Proportion.StringFixed(4),
			model.FormatMoney(cr.ExpenseShareLocal),
			model.FormatMoney(cr.NetProfitLocal),
			model.FormatMoney(cr.NetProfitForeign),
			model.FormatMoney(cr.FinalPositionForeign),
		})
	}
	t.Rows = append(t.Rows, []string{
		"TOTAL", "", "", "",
		model.FormatMoney(res.TotalGrossProfitLocal), "", "",
		model.FormatMoney(res.TotalExpenses),
		model.FormatMoney(res.TotalNetProfitLocal), "", "",
	})
	return t
}

// Margins lists realized buy and sell margins per active currency.
func Margins(period model.DateRange, res profit.Result) Table {
	t := Table{
		Kind:    KindMargins,
		Title:   "Margins " + period.String(),
		Columns: []string{"currency", "buy_margin", "sell_margin", "spread"},
	}
	for _, cr := range res.Currencies {
		if !cr.Active {
			continue
		}
		t.Rows = append(t.Rows, []string{
			string(cr.Currency),
			model.FormatRate(cr.BuyMargin),
			model.FormatRate(cr.SellMargin),
			model.FormatRate(cr.MarginSpread),
		})
	}
	return t
}

// Volume lists local-currency volume bought and sold per day, oldest first.
func Volume(period model.DateRange, txns []model.Transaction) Table {
	type day struct {
		buy, sell decimal.Decimal
		count     int
	}
	days := map[string]*day{}
	for _, tx := range txns {
		d := days[tx.Day()]
		if d == nil {
			d = &day{}
			days[tx.Day()] = d
		}
		d.count++
		switch tx.Type {
		case model.Buy:
			d.buy = d.buy.Add(tx.EffectiveTotal())
		case model.Sell:
			d.sell = d.sell.Add(tx.EffectiveTotal())
		}
	}
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := Table{
		Kind:    KindVolume,
		Title:   "Daily volume " + period.String(),
		Columns: []string{"date", "buy_local", "sell_local", "transactions"},
	}
	for _, k := range keys {
		d := days[k]
		t.Rows = append(t.Rows, []string{k, model.FormatMoney(d.buy), model.FormatMoney(d.sell), strconv.Itoa(d.count)})
	}
	return t
}

// Transactions lists transactions as given.
func Transactions(period model.DateRange, txns []model.Transaction) Table {
	t := Table{
		Kind:    KindTransactions,
		Title:   "Transactions " + period.String(),
		Columns: []string{"receipt", "date", "type", "currency", "amount", "rate", "total", "customer_dni", "customer_name"},
	}
	for _, tx := range txns {
		t.Rows = append(t.Rows, []string{
			tx.Receipt,
			tx.Day(),
			string(tx.Type),
			string(tx.Currency),
			model.FormatMoney(tx.Amount),
			model.FormatRate(tx.Rate),
			model.FormatMoney(tx.EffectiveTotal()),
			tx.CustomerDNI,
			tx.CustomerName,
		})
	}
	return t
}
