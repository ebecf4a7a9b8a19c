package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rojas-cambio/cambio/internal/model"
	"github.com/rojas-cambio/cambio/internal/users"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	all := s.app.Users.All()
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := model.ParseRole(raw)
		if err != nil {
			s.fail(w, r, badRequest{err})
			return
		}
		all = s.app.Users.ByRole(role)
	}
	out := make([]userJSON, len(all))
	for i, u := range all {
		out[i] = toUser(u)
	}
	writeJSON(w, http.StatusOK, out)
}

type addUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req addUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	in := users.NewUser{Name: req.Name, Email: req.Email, Password: req.Password}
	if req.Role != "" {
		role, err := model.ParseRole(req.Role)
		if err != nil {
			s.fail(w, r, badRequest{err})
			return
		}
		in.Role = role
	}
	actor := userFrom(r.Context())
	u, err := s.app.Users.Add(actor.ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.app.Commit(r.Context(), fmt.Sprintf("Add user %s", u.Email))
	writeJSON(w, http.StatusCreated, toUser(u))
}

// updateUserRequest changes only the fields that are present.
type updateUserRequest struct {
	Active   *bool   `json:"active"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	actor := userFrom(r.Context())
	userID := chi.URLParam(r, "id")
	u, ok := s.app.Users.Get(userID)
	if !ok {
		s.fail(w, r, users.ErrNotFound)
		return
	}

	var err error
	if req.Role != nil {
		role, perr := model.ParseRole(*req.Role)
		if perr != nil {
			s.fail(w, r, badRequest{perr})
			return
		}
		if u, err = s.app.Users.SetRole(actor.ID, userID, role); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if req.Active != nil {
		if u, err = s.app.Users.SetActive(actor.ID, userID, *req.Active); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if req.Password != nil {
		if err = s.app.Users.SetPassword(actor.ID, userID, *req.Password); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	s.app.Commit(r.Context(), fmt.Sprintf("Update user %s", u.Email))
	writeJSON(w, http.StatusOK, toUser(u))
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := userFrom(r.Context())
	userID := chi.URLParam(r, "id")
	if userID == actor.ID {
		writeError(w, http.StatusConflict, "cannot delete your own account")
		return
	}
	if err := s.app.Users.Delete(actor.ID, userID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.app.Commit(r.Context(), "Delete user "+userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "limit", 100)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	entries, err := s.app.Activity.Recent(n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]activityJSON, len(entries))
	for i, e := range entries {
		out[i] = toActivity(e)
	}
	writeJSON(w, http.StatusOK, out)
}
