package http

import (
	"fmt"
	"net/http"
	"time"

	"feelance/internal/core"
	"feelance/internal/services"
	"feelance/internal/storage"
)

type createTransactionRequest struct {
	Date      core.Date `json:"date"`
	Item      string    `json:"item"`
	Amount    float64   `json:"amount"`
	MoodScore int       `json:"mood_score"`
}

type updateTransactionRequest struct {
	Date      *core.Date `json:"date"`
	Item      *string    `json:"item"`
	Amount    *float64   `json:"amount"`
	MoodScore *int       `json:"mood_score"`
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, userID string) {
	var filter storage.TransactionFilter
	q := r.URL.Query()
	for name, dst := range map[string]*core.Date{
		"start_date": &filter.Start,
		"end_date":   &filter.End,
		"date":       &filter.Exact,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(core.DateLayout, raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("invalid %s: %w", name, core.ErrInvalidInput))
			return
		}
		*dst = core.DateOf(t)
	}

	txs, err := s.transactions.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	tx, err := s.transactions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if tx.UserID != userID {
		writeError(w, r, fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	var req createTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.transactions.Create(r.Context(), userID, req.Date, req.Item, req.Amount, req.MoodScore)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.retroCache.DeletePrefix(userID + ":")
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	txID := r.PathValue("id")
	if err := s.ownTransaction(r, txID, userID); err != nil {
		writeError(w, r, err)
		return
	}

	var req updateTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.transactions.Update(r.Context(), txID, services.TransactionUpdate{
		Date:      req.Date,
		Item:      req.Item,
		Amount:    req.Amount,
		MoodScore: req.MoodScore,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.retroCache.DeletePrefix(userID + ":")
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, userID string) {
	txID := r.PathValue("id")
	if err := s.ownTransaction(r, txID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.transactions.Delete(r.Context(), txID); err != nil {
		writeError(w, r, err)
		return
	}
	s.retroCache.DeletePrefix(userID + ":")
	w.WriteHeader(http.StatusNoContent)
}

// ownTransaction hides other users' rows behind NotFound.
func (s *Server) ownTransaction(r *http.Request, txID, userID string) error {
	tx, err := s.transactions.Get(r.Context(), txID)
	if err != nil {
		return err
	}
	if tx.UserID != userID {
		return fmt.Errorf("transaction %s: %w", txID, core.ErrNotFound)
	}
	return nil
}
