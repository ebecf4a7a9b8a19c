package server

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/rates"
)

// dateRange reads ?start=&end= or ?month=YYYY-MM.
func dateRange(r *http.Request) (model.DateRange, error) {
	q := r.URL.Query()
	if m := q.Get("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			return model.DateRange{}, invalid("invalid month %q: want YYYY-MM", m)
		}
		return model.MonthRange(t.Year(), int(t.Month())), nil
	}
	rng := model.DateRange{Start: q.Get("start"), End: q.Get("end")}
	if err := rng.Validate(); err != nil {
		return model.DateRange{}, badRequest{err}
	}
	return rng, nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, invalid("%s must be a non-negative integer", name)
	}
	return n, nil
}

// currencyParam parses the {currency} path segment. Untraded codes are
// reported as not found.
func (s *Server) currencyParam(r *http.Request) (model.Currency, error) {
	return s.traded(chi.URLParam(r, "currency"))
}

func (s *Server) traded(code string) (model.Currency, error) {
	c, err := model.ParseCurrency(code)
	if err != nil {
		return "", badRequest{err}
	}
	if !slices.Contains(s.app.Currencies, c) {
		return "", fmt.Errorf("%s: %w", c, rates.ErrUnknownCurrency)
	}
	return c, nil
}

func typeParam(raw string) (model.TransactionType, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	t, err := model.ParseTransactionType(raw)
	if err != nil {
		return "", badRequest{err}
	}
	return t, nil
}
