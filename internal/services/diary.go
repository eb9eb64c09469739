package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"feelance/internal/ai"
	"feelance/internal/core"
	"feelance/internal/log"
	"feelance/internal/storage"
)

// DiaryService drives the diary co-authoring flow: interview chat over a
// transaction, one-shot generation of a title/body pair, and persistence
// of the result keyed by (tx_id, user_id).
type DiaryService struct {
	store  DiaryStore
	gen    Generator
	logger *log.Logger
	now    func() time.Time
}

func NewDiaryService(store DiaryStore, gen Generator, logger *log.Logger) *DiaryService {
	return &DiaryService{
		store:  store,
		gen:    gen,
		logger: logger.WithComponent(log.ComponentDiary),
		now:    time.Now,
	}
}

// DiaryFilter narrows a diary listing. Nil fields are not applied.
type DiaryFilter struct {
	Year      *int
	Month     *int
	TxID      *string
	PriceMin  *float64
	PriceMax  *float64
	Sentiment *int
}

// StreamChat streams an interview turn for the given transaction,
// invoking onToken for every token the generator produces. After the
// upstream stream completes, the full exchange including the assistant
// reply is saved as the chat log for (txID, userID); a save failure is
// logged but not surfaced, the caller already has every token. On
// cancellation nothing is persisted.
func (s *DiaryService) StreamChat(ctx context.Context, txID, userID string, history []core.ChatMessage, onToken func(string) error) error {
	if s.gen == nil {
		return core.ErrGenerationUnavailable
	}
	if err := validateHistory(history); err != nil {
		return err
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}

	messages := withSystemPrompt(diaryChatPrompt(tx), history)
	reply, err := s.gen.Stream(ctx, messages, onToken)
	if err != nil {
		return fmt.Errorf("stream chat: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	final := append(messages, core.ChatMessage{Role: core.RoleAssistant, Content: reply})
	raw, err := json.Marshal(final)
	if err == nil {
		err = s.store.UpsertChatLog(ctx, core.ChatLog{
			TxID:         txID,
			UserID:       userID,
			MessagesJSON: string(raw),
			CreatedAt:    s.now().UTC(),
		})
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to persist chat log",
			log.FieldError, err, log.FieldTxID, txID, log.FieldUserID, userID)
	}
	return nil
}

// ChatHistory returns the saved user and assistant turns for a
// transaction. System turns are filtered out, a missing or malformed
// log yields an empty history.
func (s *DiaryService) ChatHistory(ctx context.Context, txID, userID string) ([]core.ChatMessage, error) {
	chatLog, err := s.store.GetChatLog(ctx, txID, userID)
	if errors.Is(err, core.ErrNotFound) {
		return []core.ChatMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	var raw []core.ChatMessage
	if err := json.Unmarshal([]byte(chatLog.MessagesJSON), &raw); err != nil {
		s.logger.WarnContext(ctx, "Discarding malformed chat log",
			log.FieldError, err, log.FieldTxID, txID, log.FieldUserID, userID)
		return []core.ChatMessage{}, nil
	}

	messages := []core.ChatMessage{}
	for _, m := range raw {
		if m.Role != core.RoleUser && m.Role != core.RoleAssistant {
			continue
		}
		if m.Content == "" {
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Generate produces a diary title/body pair from the transaction and
// the conversation so far, using JSON-object-mode completion.
func (s *DiaryService) Generate(ctx context.Context, txID, userID string, history []core.ChatMessage) (ai.TitledDocument, error) {
	if s.gen == nil {
		return ai.TitledDocument{}, core.ErrGenerationUnavailable
	}
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return ai.TitledDocument{}, err
	}

	messages := []core.ChatMessage{
		{Role: core.RoleSystem, Content: diaryGeneratePrompt},
		{Role: core.RoleUser, Content: conversationText(tx, history)},
	}
	content, err := s.gen.CompleteJSON(ctx, messages)
	if err != nil {
		return ai.TitledDocument{}, fmt.Errorf("generate diary: %w", err)
	}

	doc, err := ai.ExtractTitledJSON(content, "diary_title", "diary_body")
	if err != nil {
		s.logger.WarnContext(ctx, "Diary generation unparsable",
			log.FieldError, err, log.FieldTxID, txID)
		return ai.TitledDocument{}, err
	}
	s.logger.InfoContext(ctx, "Diary generated",
		log.FieldOperation, log.OpGenerate, log.FieldTxID, txID, log.FieldUserID, userID)
	return doc, nil
}

// Save upserts the diary for (txID, userID), carrying the transaction's
// item as event name and its date as the entry's transaction date.
func (s *DiaryService) Save(ctx context.Context, txID, userID, title, body string) (core.DiaryEntry, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return core.DiaryEntry{}, err
	}

	txDate := tx.Date.Time
	entry := core.DiaryEntry{
		ID:              uuid.NewString(),
		TxID:            txID,
		UserID:          userID,
		EventName:       tx.Item,
		DiaryTitle:      title,
		DiaryBody:       body,
		TransactionDate: &txDate,
		CreatedAt:       s.now().UTC().Truncate(time.Second),
	}
	if err := s.store.UpsertDiary(ctx, entry); err != nil {
		return core.DiaryEntry{}, err
	}

	s.logger.InfoContext(ctx, "Diary saved",
		log.FieldOperation, log.OpCreate,
		log.FieldDiaryID, entry.ID, log.FieldTxID, txID, log.FieldUserID, userID)
	return entry, nil
}

// List returns the user's diaries matching the filter, newest effective
// date first. Price and sentiment filters join against the transaction
// table; entries whose linked transaction is missing or fails the
// filter are dropped.
func (s *DiaryService) List(ctx context.Context, userID string, f DiaryFilter) ([]core.DiaryEntry, error) {
	entries, err := s.store.ListDiaries(ctx, userID)
	if err != nil {
		return nil, err
	}

	var txByID map[string]core.Transaction
	if f.PriceMin != nil || f.PriceMax != nil || f.Sentiment != nil {
		txs, err := s.store.ListTransactions(ctx, userID, storage.TransactionFilter{})
		if err != nil {
			return nil, err
		}
		txByID = make(map[string]core.Transaction, len(txs))
		for _, tx := range txs {
			txByID[tx.ID] = tx
		}
	}

	kept := []core.DiaryEntry{}
	for _, e := range entries {
		if f.TxID != nil && e.TxID != *f.TxID {
			continue
		}
		eff := e.EffectiveDate()
		if f.Year != nil && eff.Year() != *f.Year {
			continue
		}
		if f.Month != nil && int(eff.Month()) != *f.Month {
			continue
		}
		if txByID != nil {
			tx, ok := txByID[e.TxID]
			if !ok {
				continue
			}
			if f.PriceMin != nil && tx.Amount < *f.PriceMin {
				continue
			}
			if f.PriceMax != nil && tx.Amount > *f.PriceMax {
				continue
			}
			if f.Sentiment != nil && tx.MoodScore != *f.Sentiment {
				continue
			}
		}
		kept = append(kept, e)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		di, dj := kept[i].EffectiveDate(), kept[j].EffectiveDate()
		if !di.Equal(dj) {
			return di.After(dj)
		}
		return kept[i].CreatedAt.After(kept[j].CreatedAt)
	})
	return kept, nil
}

func validateHistory(history []core.ChatMessage) error {
	for _, m := range history {
		if err := m.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func withSystemPrompt(prompt string, history []core.ChatMessage) []core.ChatMessage {
	messages := make([]core.ChatMessage, 0, len(history)+1)
	messages = append(messages, core.ChatMessage{Role: core.RoleSystem, Content: prompt})
	return append(messages, history...)
}
