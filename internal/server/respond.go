package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/rojas-cambio/cambio/internal/access"
	"github.com/rojas-cambio/cambio/internal/cash"
	"github.com/rojas-cambio/cambio/internal/ledger"
	"github.com/rojas-cambio/cambio/internal/rates"
	"github.com/rojas-cambio/cambio/internal/users"
)

const maxBody = 1 << 20

type errorBody struct {
	Error  string       `json:"error"`
	Fields []fieldError `json:"fields,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// badRequest marks input the handler could not interpret.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func invalid(format string, args ...any) error {
	return badRequest{fmt.Errorf(format, args...)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalid("decoding request body: %v", err)
	}
	return nil
}

// fail maps err onto a status code. Unexpected errors are logged and
// reported without detail.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verrs ledger.ValidationErrors
	var bad badRequest
	switch {
	case errors.As(err, &verrs):
		body := errorBody{Error: "validation failed"}
		for _, e := range verrs {
			body.Fields = append(body.Fields, fieldError{Field: e.Field, Message: e.Message})
		}
		writeJSON(w, http.StatusUnprocessableEntity, body)
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, bad.Error())
	case errors.Is(err, users.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials), errors.Is(err, users.ErrInactive):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, access.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, users.ErrNotFound), errors.Is(err, rates.ErrUnknownCurrency):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cash.ErrStale), errors.Is(err, users.ErrDuplicateEmail), errors.Is(err, users.ErrLastAdmin):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
