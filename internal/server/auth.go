package server

import (
	"net/http"
	"time"

	"github.com/rojas-cambio/cambio/internal/access"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userJSON  `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	u, err := s.app.Users.Authenticate(req.Email, req.Password)
	if err != nil {
		s.logger.Info("login rejected", "email", req.Email, "error", err)
		s.fail(w, r, err)
		return
	}
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, User: toUser(u)})
}

type meResponse struct {
	userJSON
	Capabilities []access.Capability `json:"capabilities"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := userFrom(r.Context())
	writeJSON(w, http.StatusOK, meResponse{userJSON: toUser(u), Capabilities: access.Capabilities(u.Role)})
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	items := access.Navigation(userFrom(r.Context()))
	if items == nil {
		items = []access.MenuItem{}
	}
	writeJSON(w, http.StatusOK, items)
}
