package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"feelance/internal/core"
	"feelance/internal/services"
)

type chatRequest struct {
	TxID     string             `json:"tx_id"`
	Messages []core.ChatMessage `json:"messages"`
}

type saveEntryRequest struct {
	TxID  string `json:"tx_id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type generatedResponse struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) handleListDiaries(w http.ResponseWriter, r *http.Request, userID string) {
	filter, err := diaryFilterFromQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.diary.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, userID string) {
	txID := strings.TrimSpace(r.URL.Query().Get("tx_id"))
	if txID == "" {
		writeError(w, r, fmt.Errorf("tx_id required: %w", core.ErrInvalidInput))
		return
	}
	history, err := s.diary.ChatHistory(r.Context(), txID, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleDiaryChatStream(w http.ResponseWriter, r *http.Request, userID string) {
	s.streamSSE(w, r, func(onToken func(string) error) error {
		var req chatRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		return s.diary.StreamChat(r.Context(), req.TxID, userID, req.Messages, onToken)
	})
}

func (s *Server) handleDiaryGenerate(w http.ResponseWriter, r *http.Request, userID string) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	doc, err := s.diary.Generate(r.Context(), req.TxID, userID, req.Messages)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generatedResponse{Title: doc.Title, Body: doc.Body})
}

func (s *Server) handleDiarySave(w http.ResponseWriter, r *http.Request, userID string) {
	var req saveEntryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.diary.Save(r.Context(), req.TxID, userID, req.Title, req.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func diaryFilterFromQuery(r *http.Request) (services.DiaryFilter, error) {
	var f services.DiaryFilter
	q := r.URL.Query()

	intParam := func(name string) (*int, error) {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, core.ErrInvalidInput)
		}
		return &n, nil
	}
	floatParam := func(name string) (*float64, error) {
		raw := q.Get(name)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", name, core.ErrInvalidInput)
		}
		return &v, nil
	}

	var err error
	if f.Year, err = intParam("year"); err != nil {
		return f, err
	}
	if f.Month, err = intParam("month"); err != nil {
		return f, err
	}
	if f.Sentiment, err = intParam("sentiment"); err != nil {
		return f, err
	}
	if f.PriceMin, err = floatParam("price_min"); err != nil {
		return f, err
	}
	if f.PriceMax, err = floatParam("price_max"); err != nil {
		return f, err
	}
	if txID := q.Get("tx_id"); txID != "" {
		f.TxID = &txID
	}
	return f, nil
}
