package http

import (
	"fmt"
	"net/http"
	"strconv"

	"feelance/internal/core"
	"feelance/internal/services"
)

func (s *Server) handleRetrospective(w http.ResponseWriter, r *http.Request, userID string) {
	months := 0
	if raw := r.URL.Query().Get("months"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("invalid months: %w", core.ErrInvalidInput))
			return
		}
		months = n
	}
	if months <= 0 {
		months = services.DefaultRetrospectiveMonths
	}

	key := fmt.Sprintf("%s:%d", userID, months)
	if sum, ok := s.retroCache.Get(key); ok {
		writeJSON(w, http.StatusOK, sum)
		return
	}

	sum, err := s.retro.Summarize(r.Context(), userID, months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.retroCache.Set(key, sum)
	writeJSON(w, http.StatusOK, sum)
}
