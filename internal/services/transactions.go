package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feelance/internal/core"
	"feelance/internal/log"
	"feelance/internal/storage"
)

// TransactionService owns the transaction lifecycle. Every create and
// update recomputes the Happy Money valuation from the resulting amount
// and mood score so the stored value can never go stale.
type TransactionService struct {
	store  TransactionStore
	pub    RefreshPublisher
	logger *log.Logger
	now    func() time.Time
}

func NewTransactionService(store TransactionStore, pub RefreshPublisher, logger *log.Logger) *TransactionService {
	return &TransactionService{
		store:  store,
		pub:    pub,
		logger: logger.WithComponent(log.ComponentTransactions),
		now:    time.Now,
	}
}

// TransactionUpdate carries a partial update; nil fields are unchanged.
type TransactionUpdate struct {
	Date      *core.Date
	Item      *string
	Amount    *float64
	MoodScore *int
}

func (s *TransactionService) List(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, f)
}

func (s *TransactionService) Get(ctx context.Context, txID string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, txID)
}

func (s *TransactionService) Create(ctx context.Context, userID string, date core.Date, item string, amount float64, moodScore int) (core.Transaction, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Transaction{}, fmt.Errorf("user %s not registered: %w", userID, core.ErrInvalidInput)
		}
		return core.Transaction{}, fmt.Errorf("check user: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Date:        date,
		Item:        item,
		Amount:      amount,
		MoodScore:   moodScore,
		HappyAmount: core.HappyAmount(amount, moodScore),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldOperation, log.OpCreate,
		log.FieldTxID, tx.ID,
		log.FieldUserID, userID,
		log.FieldAmount, amount,
		log.FieldMoodScore, moodScore)

	s.publishRefresh(ctx, userID)
	return tx, nil
}

func (s *TransactionService) Update(ctx context.Context, txID string, upd TransactionUpdate) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return core.Transaction{}, err
	}

	if upd.Date != nil {
		tx.Date = *upd.Date
	}
	if upd.Item != nil {
		tx.Item = *upd.Item
	}
	if upd.Amount != nil {
		tx.Amount = *upd.Amount
	}
	if upd.MoodScore != nil {
		tx.MoodScore = *upd.MoodScore
	}
	// always derived from the merged fields, never carried over
	tx.HappyAmount = core.HappyAmount(tx.Amount, tx.MoodScore)
	tx.UpdatedAt = s.now().UTC().Truncate(time.Second)

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	s.logger.InfoContext(ctx, "Transaction updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldTxID, tx.ID,
		log.FieldUserID, tx.UserID)

	s.publishRefresh(ctx, tx.UserID)
	return tx, nil
}

func (s *TransactionService) Delete(ctx context.Context, txID string) error {
	tx, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, txID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldTxID, txID,
		log.FieldUserID, tx.UserID)

	s.publishRefresh(ctx, tx.UserID)
	return nil
}

// publishRefresh queues a narrative refresh for the default window.
// Best effort: the mutation already succeeded.
func (s *TransactionService) publishRefresh(ctx context.Context, userID string) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishSummaryRefresh(ctx, userID, DefaultRetrospectiveMonths); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish summary refresh",
			log.FieldError, err, log.FieldUserID, userID)
	}
}
