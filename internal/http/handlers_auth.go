package http

import (
	"errors"
	"net/http"
	"strings"

	"feelance/internal/core"
	"feelance/internal/log"
)

type loginRequest struct {
	UserID string `json:"user_id"`
}

type sessionResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, r, core.ErrUnauthenticated)
		return
	}

	user, err := s.users.GetUser(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, r, core.ErrUnauthenticated)
			return
		}
		writeError(w, r, err)
		return
	}

	token, err := s.sessions.Issue(user.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.sessions.SetCookie(w, token)

	log.FromContext(r.Context()).InfoContext(r.Context(), "User logged in",
		log.FieldUserID, user.UserID)
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:      user.UserID,
		DisplayName: user.DisplayName,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, userID string) {
	user, err := s.users.GetUser(r.Context(), userID)
	if err != nil {
		// a session for a user that no longer exists is stale
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, r, core.ErrUnauthenticated)
			return
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		UserID:      user.UserID,
		DisplayName: user.DisplayName,
	})
}
