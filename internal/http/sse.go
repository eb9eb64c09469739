package http

import (
	"errors"
	"fmt"
	"net/http"

	"feelance/internal/core"
	"feelance/internal/log"
)

// streamSSE runs the stream function, writing each produced token as
// an SSE data event and flushing immediately. A successful stream ends
// with "data: [DONE]". A failure before the first token falls back to
// a normal error response; once tokens have been sent the status line
// is gone, so the failure becomes an "error" event instead.
func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, stream func(onToken func(string) error) error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, errors.New("streaming unsupported"))
		return
	}

	started := false
	onToken := func(token string) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", token); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	err := stream(onToken)
	if err != nil {
		if !started {
			writeError(w, r, err)
			return
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Stream aborted",
			log.FieldError, err, log.FieldPath, r.URL.Path)
		fmt.Fprintf(w, "event: error\ndata: %s\n\n", streamErrorMessage(err))
		flusher.Flush()
		return
	}

	if !started {
		// empty reply still needs valid SSE framing
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func streamErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrGenerationUnavailable):
		return "generation service not configured"
	case errors.Is(err, core.ErrNotFound):
		return "transaction not found"
	case errors.Is(err, core.ErrInvalidInput):
		return "invalid request"
	default:
		return "stream failed"
	}
}
