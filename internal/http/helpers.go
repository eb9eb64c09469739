package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"feelance/internal/core"
	"feelance/internal/log"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status line is already gone, nothing useful to do on error
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto status codes. Everything
// unrecognized is a 500 with a generic body so internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, core.ErrInvalidInput):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, core.ErrUnauthenticated):
		status = http.StatusUnauthorized
		msg = "unauthenticated"
	case errors.Is(err, core.ErrGenerationUnavailable):
		status = http.StatusServiceUnavailable
		msg = "generation service not configured"
	case errors.Is(err, core.ErrGenerationFailed):
		status = http.StatusBadGateway
		msg = "generation failed, continue the conversation and try again"
	}

	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, status)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody decodes a JSON request body, rejecting unknown garbage
// with a wrapped ErrInvalidInput.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed request body: %w", core.ErrInvalidInput)
	}
	return nil
}
