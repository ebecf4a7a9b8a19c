package server

import (
	"time"

	"github.com/rojas-cambio/cambio/internal/activity"
	"github.com/rojas-cambio/cambio/internal/cash"
	"github.com/rojas-cambio/cambio/internal/forecast"
	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/model"
)

// Amounts go over the wire as fixed-point strings: two places for money,
// four for rates.

type userJSON struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toUser(u model.User) userJSON {
	return userJSON{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

type rateJSON struct {
	Currency      string    `json:"currency"`
	Buy           string    `json:"buy"`
	Sell          string    `json:"sell"`
	Market        string    `json:"market"`
	Change        string    `json:"change"`
	ChangePercent string    `json:"change_percent"`
	UpdatedAt     time.Time `json:"updated_at"`
	Source        string    `json:"source"`
}

func toRate(r model.Rate) rateJSON {
	return rateJSON{
		Currency:      string(r.Currency),
		Buy:           model.FormatRate(r.Buy),
		Sell:          model.FormatRate(r.Sell),
		Market:        model.FormatRate(r.Market),
		Change:        model.FormatRate(r.Change),
		ChangePercent: r.ChangePercent.StringFixed(3),
		UpdatedAt:     r.UpdatedAt,
		Source:        r.Source,
	}
}

func toRates(rs []model.Rate) []rateJSON {
	out := make([]rateJSON, len(rs))
	for i, r := range rs {
		out[i] = toRate(r)
	}
	return out
}

type transactionJSON struct {
	ID           string    `json:"id"`
	Receipt      string    `json:"receipt"`
	Type         string    `json:"type"`
	Currency     string    `json:"currency"`
	Amount       string    `json:"amount"`
	Rate         string    `json:"rate"`
	Total        string    `json:"total"`
	Date         string    `json:"date"`
	CustomerDNI  string    `json:"customer_dni,omitempty"`
	CustomerName string    `json:"customer_name,omitempty"`
	UserID       string    `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func toTransaction(t model.Transaction) transactionJSON {
	return transactionJSON{
		ID:           t.ID,
		Receipt:      t.Receipt,
		Type:         string(t.Type),
		Currency:     string(t.Currency),
		Amount:       model.FormatMoney(t.Amount),
		Rate:         model.FormatRate(t.Rate),
		Total:        model.FormatMoney(t.EffectiveTotal()),
		Date:         t.Day(),
		CustomerDNI:  t.CustomerDNI,
		CustomerName: t.CustomerName,
		UserID:       t.UserID,
		CreatedAt:    t.CreatedAt,
	}
}

// transactionRequest is the body of create and edit calls. Numbers are
// accepted as strings so no precision is lost in transit.
type transactionRequest struct {
	Type         string `json:"type"`
	Currency     string `json:"currency"`
	Amount       string `json:"amount"`
	Rate         string `json:"rate"`
	Date         string `json:"date"`
	CustomerDNI  string `json:"customer_dni"`
	CustomerName string `json:"customer_name"`
}

func (r transactionRequest) draft() ledger.Draft {
	return ledger.Draft{
		Type:         r.Type,
		Currency:     r.Currency,
		Amount:       r.Amount,
		Rate:         r.Rate,
		Date:         r.Date,
		CustomerDNI:  r.CustomerDNI,
		CustomerName: r.CustomerName,
	}
}

type calculateRequest struct {
	Start      string            `json:"start"`
	End        string            `json:"end"`
	Currencies []string          `json:"currencies"`
	Expenses   string            `json:"expenses"`
	Opening    map[string]string `json:"opening"`
	Mine       bool              `json:"mine"`
}

type positionJSON struct {
	Currency    string `json:"currency"`
	BuyForeign  string `json:"buy_foreign"`
	SellForeign string `json:"sell_foreign"`
	BuyLocal    string `json:"buy_local"`
	SellLocal   string `json:"sell_local"`
	NetForeign  string `json:"net_foreign"`
	BuyCount    int    `json:"buy_count"`
	SellCount   int    `json:"sell_count"`
}

type currencyProfitJSON struct {
	Currency             string `json:"currency"`
	Active               bool   `json:"active"`
	BuyMargin            string `json:"buy_margin"`
	SellMargin           string `json:"sell_margin"`
	MarginSpread         string `json:"margin_spread"`
	GrossProfitLocal     string `json:"gross_profit_local"`
	GrossProfitForeign   string `json:"gross_profit_foreign"`
	Proportion           string `json:"proportion"`
	ExpenseShareLocal    string `json:"expense_share_local"`
	ExpenseShareForeign  string `json:"expense_share_foreign"`
	NetProfitLocal       string `json:"net_profit_local"`
	NetProfitForeign     string `json:"net_profit_foreign"`
	OpeningForeign       string `json:"opening_foreign"`
	FinalPositionForeign string `json:"final_position_foreign"`
}

type droppedJSON struct {
	ID      string `json:"id"`
	Receipt string `json:"receipt"`
	Reason  string `json:"reason"`
}

type calculationJSON struct {
	Seq                   uint64               `json:"seq"`
	Start                 string               `json:"start,omitempty"`
	End                   string               `json:"end,omitempty"`
	Transactions          int                  `json:"transactions"`
	Positions             []positionJSON       `json:"positions"`
	Currencies            []currencyProfitJSON `json:"currencies"`
	TotalExpenses         string               `json:"total_expenses"`
	TotalGrossProfitLocal string               `json:"total_gross_profit_local"`
	TotalNetProfitLocal   string               `json:"total_net_profit_local"`
	Dropped               []droppedJSON        `json:"dropped,omitempty"`
}

func toCalculation(seq uint64, res *cash.Result) calculationJSON {
	out := calculationJSON{
		Seq:                   seq,
		Start:                 res.Request.Range.Start,
		End:                   res.Request.Range.End,
		Transactions:          res.Transactions,
		TotalExpenses:         model.FormatMoney(res.Profit.TotalExpenses),
		TotalGrossProfitLocal: model.FormatMoney(res.Profit.TotalGrossProfitLocal),
		TotalNetProfitLocal:   model.FormatMoney(res.Profit.TotalNetProfitLocal),
	}
	for _, c := range res.Positions.Currencies() {
		p := res.Positions[c]
		out.Positions = append(out.Positions, positionJSON{
			Currency:    string(c),
			BuyForeign:  model.FormatMoney(p.BuyForeign),
			SellForeign: model.FormatMoney(p.SellForeign),
			BuyLocal:    model.FormatMoney(p.BuyLocal),
			SellLocal:   model.FormatMoney(p.SellLocal),
			NetForeign:  model.FormatMoney(p.NetForeign()),
			BuyCount:    p.BuyCount,
			SellCount:   p.SellCount,
		})
	}
	for _, c := range res.Profit.Currencies {
		out.Currencies = append(out.Currencies, currencyProfitJSON{
			Currency:             string(c.Currency),
			Active:               c.Active,
			BuyMargin:            model.FormatRate(c.BuyMargin),
			SellMargin:           model.FormatRate(c.SellMargin),
			MarginSpread:         model.FormatRate(c.MarginSpread),
			GrossProfitLocal:     model.FormatMoney(c.GrossProfitLocal),
			GrossProfitForeign:   model.FormatMoney(c.GrossProfitForeign),
			Proportion:           c.Proportion.StringFixed(4),
			ExpenseShareLocal:    model.FormatMoney(c.ExpenseShareLocal),
			ExpenseShareForeign:  model.FormatMoney(c.ExpenseShareForeign),
			NetProfitLocal:       model.FormatMoney(c.NetProfitLocal),
			NetProfitForeign:     model.FormatMoney(c.NetProfitForeign),
			OpeningForeign:       model.FormatMoney(c.OpeningForeign),
			FinalPositionForeign: model.FormatMoney(c.FinalPositionForeign),
		})
	}
	for _, d := range res.Dropped {
		out.Dropped = append(out.Dropped, droppedJSON{
			ID:      d.Transaction.ID,
			Receipt: d.Transaction.Receipt,
			Reason:  d.Reason,
		})
	}
	return out
}

type scenarioJSON struct {
	Name   string `json:"name"`
	Profit string `json:"profit"`
}

type forecastJSON struct {
	Type      string         `json:"type"`
	Currency  string         `json:"currency"`
	Amount    string         `json:"amount"`
	Rate      string         `json:"rate"`
	Average   string         `json:"average"`
	Trend     string         `json:"trend"`
	Profit    string         `json:"profit"`
	Favorable bool           `json:"favorable"`
	Advice    string         `json:"advice"`
	Scenarios []scenarioJSON `json:"scenarios"`
	Max       string         `json:"max"`
	Min       string         `json:"min"`
	Last      string         `json:"last"`
	Direction string         `json:"direction"`
	Points    int            `json:"points"`
}

func toForecast(p forecast.Projection, sum forecast.Summary, points int) forecastJSON {
	out := forecastJSON{
		Type:      string(p.Type),
		Currency:  string(p.Currency),
		Amount:    model.FormatMoney(p.Amount),
		Rate:      model.FormatRate(p.Rate),
		Average:   model.FormatRate(p.Average),
		Trend:     model.FormatRate(p.Trend),
		Profit:    model.FormatMoney(p.Profit),
		Favorable: p.Favorable,
		Advice:    p.Advice(),
		Max:       model.FormatRate(sum.Max),
		Min:       model.FormatRate(sum.Min),
		Last:      model.FormatRate(sum.Last),
		Direction: string(sum.Direction),
		Points:    points,
	}
	for _, sc := range p.Scenarios {
		out.Scenarios = append(out.Scenarios, scenarioJSON{Name: sc.Name, Profit: model.FormatMoney(sc.Profit)})
	}
	return out
}

type activityJSON struct {
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	Details    string    `json:"details"`
	Ref        string    `json:"ref,omitempty"`
	CommitHash string    `json:"commit_hash,omitempty"`
}

func toActivity(e activity.Entry) activityJSON {
	return activityJSON{
		Timestamp:  e.Timestamp,
		UserID:     e.UserID,
		Action:     e.Action,
		Details:    e.Details,
		Ref:        e.Ref,
		CommitHash: e.CommitHash,
	}
}
