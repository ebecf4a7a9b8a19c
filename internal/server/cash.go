package server

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/cash"
	"github.com/rojas-cambio/cambio/internal/model"
)

func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	var body calculateRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := s.cashRequest(body)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	u := userFrom(r.Context())
	if body.Mine {
		req.UserID = u.ID
	}

	res, seq, err := s.app.Sessions.For(u.ID).Calculate(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCalculation(seq, res))
}

func (s *Server) handleLatestCalculation(w http.ResponseWriter, r *http.Request) {
	res, seq := s.app.Sessions.For(userFrom(r.Context()).ID).Latest()
	if res == nil {
		writeError(w, http.StatusNotFound, "no calculation yet")
		return
	}
	writeJSON(w, http.StatusOK, toCalculation(seq, res))
}

func (s *Server) cashRequest(body calculateRequest) (cash.Request, error) {
	req := cash.Request{
		Range:    model.DateRange{Start: body.Start, End: body.End},
		Expenses: decimal.Zero,
	}
	if err := req.Range.Validate(); err != nil {
		return cash.Request{}, badRequest{err}
	}
	if strings.TrimSpace(body.Expenses) != "" {
		exp, err := cash.ParseExpenses(body.Expenses)
		if err != nil {
			return cash.Request{}, badRequest{err}
		}
		req.Expenses = exp
	}
	for _, code := range body.Currencies {
		c, err := s.traded(code)
		if err != nil {
			return cash.Request{}, err
		}
		req.Currencies = append(req.Currencies, c)
	}
	if len(body.Opening) > 0 {
		req.Opening = make(map[model.Currency]decimal.Decimal, len(body.Opening))
		for code, raw := range body.Opening {
			c, err := s.traded(code)
			if err != nil {
				return cash.Request{}, err
			}
			d, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return cash.Request{}, invalid("opening %s: not a number", c)
			}
			req.Opening[c] = d
		}
	}
	return req, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	stats, err := s.app.Stats(r.Context(), rng)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
