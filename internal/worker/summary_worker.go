package worker

import (
	"context"
	"fmt"
	"time"

	"feelance/internal/amqp"
	"feelance/internal/log"
)

// NarrativeRefresher regenerates and persists one narrative summary.
type NarrativeRefresher interface {
	Refresh(ctx context.Context, userID string, months int) error
}

// SummaryWorker consumes summary refresh messages and warms the
// narrative cache so interactive retrospective requests find a fresh
// row instead of blocking on generation.
type SummaryWorker struct {
	retro   NarrativeRefresher
	logger  *log.Logger
	timeout time.Duration
}

func NewSummaryWorker(retro NarrativeRefresher, logger *log.Logger) *SummaryWorker {
	return &SummaryWorker{
		retro:   retro,
		logger:  logger.WithComponent(log.ComponentWorker),
		timeout: 2 * time.Minute,
	}
}

// HandleRefreshMessage processes one refresh request. Errors propagate
// to the consumer, which nacks and requeues the delivery.
func (w *SummaryWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.SummaryRefreshMessage) error {
	if msg.UserID == "" {
		return fmt.Errorf("refresh message missing user id")
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	w.logger.InfoContext(ctx, "Processing refresh message",
		log.FieldUserID, msg.UserID,
		log.FieldMonths, msg.Months)

	if err := w.retro.Refresh(ctx, msg.UserID, msg.Months); err != nil {
		return fmt.Errorf("refresh summary for %s: %w", msg.UserID, err)
	}
	return nil
}
