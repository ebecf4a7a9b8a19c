package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/model"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	rng, err := dateRange(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := ledger.Query{Range: rng}
	if v := r.URL.Query().Get("currency"); v != "" {
		if q.Currency, err = s.traded(v); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if q.Type, err = typeParam(r.URL.Query().Get("type")); err != nil {
		s.fail(w, r, err)
		return
	}
	if q.Limit, err = intParam(r, "limit", 0); err != nil {
		s.fail(w, r, err)
		return
	}
	// Operators only see their own work unless they may edit the ledger.
	u := userFrom(r.Context())
	if !access.Can(u, access.EditTransaction) || r.URL.Query().Get("mine") == "true" {
		q.UserID = u.ID
	}

	txns, err := s.app.Ledger.List(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]transactionJSON, len(txns))
	for i, t := range txns {
		out[i] = toTransaction(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.app.Ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	u := userFrom(r.Context())
	if t.UserID != u.ID && !access.Can(u, access.EditTransaction) {
		s.fail(w, r, ledger.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toTransaction(t))
}

func (s *Server) handleNextReceipt(w http.ResponseWriter, r *http.Request) {
	typ, err := typeParam(r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if typ == "" {
		s.fail(w, r, invalid("type is required"))
		return
	}
	day := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		if day, err = time.Parse(model.DateFormat, v); err != nil {
			s.fail(w, r, invalid("invalid date %q: want YYYY-MM-DD", v))
			return
		}
	}
	receipt, err := s.app.Ledger.NextReceipt(r.Context(), typ, day)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"receipt": receipt})
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	u := userFrom(r.Context())
	t, err := s.app.Ledger.Record(r.Context(), u.ID, req.draft())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.app.Commit(r.Context(), fmt.Sprintf("Record %s", t.Receipt))
	writeJSON(w, http.StatusCreated, toTransaction(t))
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	u := userFrom(r.Context())
	t, err := s.app.Ledger.Edit(r.Context(), u.ID, chi.URLParam(r, "id"), req.draft())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.app.Commit(r.Context(), fmt.Sprintf("Edit %s", t.Receipt))
	writeJSON(w, http.StatusOK, toTransaction(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	txID := chi.URLParam(r, "id")
	if err := s.app.Ledger.Remove(r.Context(), u.ID, txID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.app.Commit(r.Context(), fmt.Sprintf("Delete transaction %s", txID))
	w.WriteHeader(http.StatusNoContent)
}
