package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/activity"
	"github.com/rojas-cambio/cambio/internal/model"
)

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	current, err := s.app.Board.Current(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRates(current))
}

func (s *Server) handleRefreshRates(w http.ResponseWriter, r *http.Request) {
	fresh, err := s.app.Board.Refresh(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	u := userFrom(r.Context())
	s.audit(activity.Entry{
		UserID:  u.ID,
		Action:  activity.ActionRatesUpdate,
		Details: fmt.Sprintf("refreshed %d rates", len(fresh)),
	})
	s.app.Commit(r.Context(), "Refresh exchange rates")
	writeJSON(w, http.StatusOK, toRates(fresh))
}

type setRateRequest struct {
	Buy  string `json:"buy"`
	Sell string `json:"sell"`
}

func (s *Server) handleSetRate(w http.ResponseWriter, r *http.Request) {
	c, err := s.currencyParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req setRateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	buy, err1 := decimal.NewFromString(req.Buy)
	sell, err2 := decimal.NewFromString(req.Sell)
	switch {
	case err1 != nil || err2 != nil:
		s.fail(w, r, invalid("buy and sell must be decimal numbers"))
		return
	case !buy.IsPositive() || !sell.IsPositive():
		s.fail(w, r, invalid("buy and sell rates must be greater than zero"))
		return
	case sell.LessThan(buy):
		s.fail(w, r, invalid("sell rate %s is below buy rate %s", model.FormatRate(sell), model.FormatRate(buy)))
		return
	}

	rate, err := s.app.Board.Set(c, buy, sell)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	u := userFrom(r.Context())
	s.audit(activity.Entry{
		UserID:  u.ID,
		Action:  activity.ActionRatesSet,
		Details: fmt.Sprintf("%s buy %s sell %s", c, model.FormatRate(buy), model.FormatRate(sell)),
		Ref:     string(c),
	})
	s.app.Commit(r.Context(), fmt.Sprintf("Set %s rate", c))
	writeJSON(w, http.StatusOK, toRate(rate))
}

func (s *Server) handleRateHistory(w http.ResponseWriter, r *http.Request) {
	c, err := s.currencyParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	since, err := sinceParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hist, err := s.app.Board.History(c, since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRates(hist))
}

// sinceParam reads ?hours=N, defaulting to the last 24 hours. hours=0
// means the whole history.
func sinceParam(r *http.Request) (time.Time, error) {
	hours, err := intParam(r, "hours", 24)
	if err != nil {
		return time.Time{}, err
	}
	if hours == 0 {
		return time.Time{}, nil
	}
	return time.Now().Add(-time.Duration(hours) * time.Hour), nil
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ, err := typeParam(q.Get("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if typ == "" {
		typ = model.Buy
	}
	c, err := s.traded(q.Get("currency"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil || amount.IsNegative() {
		s.fail(w, r, invalid("amount must be a non-negative number"))
		return
	}
	rate := decimal.Zero
	if v := q.Get("rate"); v != "" {
		if rate, err = decimal.NewFromString(v); err != nil || rate.IsNegative() {
			s.fail(w, r, invalid("rate must be a non-negative number"))
			return
		}
	}
	since, err := sinceParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := s.app.Forecast(r.Context(), typ, c, amount, rate, since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toForecast(out.Projection, out.Summary, out.Points))
}

// audit records an entry the services do not record themselves.
func (s *Server) audit(e activity.Entry) {
	if err := s.app.Activity.Record(e); err != nil {
		s.logger.Warn("recording activity", "action", e.Action, "error", err)
	}
}
