package http

import (
	"net/http"
)

func (s *Server) handleReportChatStream(w http.ResponseWriter, r *http.Request, _ string) {
	s.streamSSE(w, r, func(onToken func(string) error) error {
		var req chatRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		return s.reports.StreamChat(r.Context(), req.TxID, req.Messages, onToken)
	})
}

func (s *Server) handleReportGenerate(w http.ResponseWriter, r *http.Request, _ string) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.reports.Generate(r.Context(), req.TxID, req.Messages)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generatedResponse{Title: doc.Title, Body: doc.Body})
}

func (s *Server) handleReportSave(w http.ResponseWriter, r *http.Request, userID string) {
	var req saveEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.reports.Save(r.Context(), req.TxID, userID, req.Title, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}
