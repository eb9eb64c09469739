package services

import (
	"context"
	"time"

	"feelance/internal/core"
	"feelance/internal/storage"
)

// Generator is the external generation capability injected into the
// services that need it. A nil Generator means no credential was
// configured; callers surface that as core.ErrGenerationUnavailable or
// degrade to a deterministic fallback, depending on the operation.
type Generator interface {
	Complete(ctx context.Context, messages []core.ChatMessage) (string, error)
	CompleteJSON(ctx context.Context, messages []core.ChatMessage) (string, error)
	Stream(ctx context.Context, messages []core.ChatMessage, onToken func(string) error) (string, error)
}

// RefreshPublisher pushes summary refresh requests onto the queue.
// Publishing is best effort: failures are logged, never surfaced.
type RefreshPublisher interface {
	PublishSummaryRefresh(ctx context.Context, userID string, months int) error
}

// TransactionStore is the storage surface the transaction service needs.
type TransactionStore interface {
	GetUser(ctx context.Context, userID string) (core.User, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) error
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, tx core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// DiaryStore is the storage surface the diary service needs.
type DiaryStore interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.Transaction, error)
	UpsertDiary(ctx context.Context, e core.DiaryEntry) error
	ListDiaries(ctx context.Context, userID string) ([]core.DiaryEntry, error)
	UpsertChatLog(ctx context.Context, l core.ChatLog) error
	GetChatLog(ctx context.Context, txID, userID string) (core.ChatLog, error)
}

// ReportStore is the storage surface the report service needs.
type ReportStore interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	AppendReport(ctx context.Context, r core.Report) error
}

// RetrospectiveStore is the storage surface the retrospective service
// needs, including the persisted narrative cache.
type RetrospectiveStore interface {
	ListTransactions(ctx context.Context, userID string, f storage.TransactionFilter) ([]core.Transaction, error)
	ListDiaries(ctx context.Context, userID string) ([]core.DiaryEntry, error)
	GetCachedSummary(ctx context.Context, userID string, months int, ttl time.Duration) (string, error)
	SaveCachedSummary(ctx context.Context, userID string, months int, text string, generatedAt time.Time) error
}
