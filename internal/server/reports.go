package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rojas-cambio/cambio/internal/activity"
	"github.com/rojas-cambio/cambio/internal/cash"
	"github.com/rojas-cambio/cambio/internal/report"
)

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	kind, err := report.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	rng, err := dateRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	expenses := decimal.Zero
	if v := r.URL.Query().Get("expenses"); v != "" {
		if expenses, err = cash.ParseExpenses(v); err != nil {
			s.fail(w, r, badRequest{err})
			return
		}
	}
	format := r.URL.Query().Get("format")
	var f report.Format
	if format != "" && format != "json" {
		if f, err = report.ParseFormat(format); err != nil {
			s.fail(w, r, badRequest{err})
			return
		}
	}

	table, err := s.app.Report(r.Context(), kind, rng, expenses)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if f == "" {
		writeJSON(w, http.StatusOK, table)
		return
	}

	u := userFrom(r.Context())
	s.audit(activity.Entry{
		UserID:  u.ID,
		Action:  activity.ActionReport,
		Details: fmt.Sprintf("%s report %s as %s", kind, rng, f),
	})
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s.%s", kind, f)))
	if err := report.Write(w, f, table); err != nil {
		// headers are already out; all that is left is to log
		s.logger.Error("writing report", "kind", kind, "format", f, "error", err)
	}
}
