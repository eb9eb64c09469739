package services

import (
	"context"
	"fmt"
	"time"

	"feelance/internal/core"
	"feelance/internal/log"
	"feelance/internal/storage"
)

// fakeStore is an in-memory stand-in for the SQLite repository,
// implementing every store interface the services consume.
type fakeStore struct {
	users        map[string]core.User
	transactions map[string]core.Transaction
	diaries      map[string]core.DiaryEntry // keyed tx_id|user_id
	reports      []core.Report
	chatLogs     map[string]core.ChatLog // keyed tx_id|user_id
	cached       map[string]string       // keyed user_id|months
	cachedAt     map[string]time.Time

	failUpsertChatLog bool
	failSaveCached    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        map[string]core.User{"demo": {UserID: "demo", DisplayName: "Demo User"}},
		transactions: map[string]core.Transaction{},
		diaries:      map[string]core.DiaryEntry{},
		chatLogs:     map[string]core.ChatLog{},
		cached:       map[string]string{},
		cachedAt:     map[string]time.Time{},
	}
}

func pairKey(txID, userID string) string { return txID + "|" + userID }

func (f *fakeStore) GetUser(_ context.Context, userID string) (core.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return core.User{}, fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	return u, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, tx core.Transaction) error {
	f.transactions[tx.ID] = tx
	return nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	tx, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return tx, nil
}

func (f *fakeStore) ListTransactions(_ context.Context, userID string, filter storage.TransactionFilter) ([]core.Transaction, error) {
	out := []core.Transaction{}
	for _, tx := range f.transactions {
		if tx.UserID != userID {
			continue
		}
		if !filter.Exact.IsZero() && !tx.Date.Equal(filter.Exact.Time) {
			continue
		}
		if !filter.Start.IsZero() && tx.Date.Before(filter.Start.Time) {
			continue
		}
		if !filter.End.IsZero() && tx.Date.After(filter.End.Time) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	if _, ok := f.transactions[tx.ID]; !ok {
		return fmt.Errorf("transaction %s: %w", tx.ID, core.ErrNotFound)
	}
	f.transactions[tx.ID] = tx
	return nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id string) error {
	if _, ok := f.transactions[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	delete(f.transactions, id)
	return nil
}

func (f *fakeStore) UpsertDiary(_ context.Context, e core.DiaryEntry) error {
	f.diaries[pairKey(e.TxID, e.UserID)] = e
	return nil
}

func (f *fakeStore) ListDiaries(_ context.Context, userID string) ([]core.DiaryEntry, error) {
	out := []core.DiaryEntry{}
	for _, e := range f.diaries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) AppendReport(_ context.Context, r core.Report) error {
	f.reports = append(f.reports, r)
	return nil
}

func (f *fakeStore) UpsertChatLog(_ context.Context, l core.ChatLog) error {
	if f.failUpsertChatLog {
		return fmt.Errorf("chat log store unavailable")
	}
	f.chatLogs[pairKey(l.TxID, l.UserID)] = l
	return nil
}

func (f *fakeStore) GetChatLog(_ context.Context, txID, userID string) (core.ChatLog, error) {
	l, ok := f.chatLogs[pairKey(txID, userID)]
	if !ok {
		return core.ChatLog{}, fmt.Errorf("chat log: %w", core.ErrNotFound)
	}
	return l, nil
}

func (f *fakeStore) GetCachedSummary(_ context.Context, userID string, months int, ttl time.Duration) (string, error) {
	key := fmt.Sprintf("%s|%d", userID, months)
	text, ok := f.cached[key]
	if !ok || time.Since(f.cachedAt[key]) > ttl {
		return "", fmt.Errorf("summary cache: %w", core.ErrNotFound)
	}
	return text, nil
}

func (f *fakeStore) SaveCachedSummary(_ context.Context, userID string, months int, text string, generatedAt time.Time) error {
	if f.failSaveCached {
		return fmt.Errorf("summary cache unavailable")
	}
	key := fmt.Sprintf("%s|%d", userID, months)
	f.cached[key] = text
	f.cachedAt[key] = generatedAt
	return nil
}

// fakeGenerator scripts completions and streams token by token.
type fakeGenerator struct {
	completion   string
	jsonContent  string
	streamTokens []string
	err          error

	completeCalls int
	lastMessages  []core.ChatMessage
}

func (g *fakeGenerator) Complete(_ context.Context, messages []core.ChatMessage) (string, error) {
	g.completeCalls++
	g.lastMessages = messages
	return g.completion, g.err
}

func (g *fakeGenerator) CompleteJSON(_ context.Context, messages []core.ChatMessage) (string, error) {
	g.lastMessages = messages
	return g.jsonContent, g.err
}

func (g *fakeGenerator) Stream(_ context.Context, messages []core.ChatMessage, onToken func(string) error) (string, error) {
	g.lastMessages = messages
	if g.err != nil {
		return "", g.err
	}
	var full string
	for _, tok := range g.streamTokens {
		if err := onToken(tok); err != nil {
			return full, err
		}
		full += tok
	}
	return full, nil
}

// fakePublisher records published refresh requests.
type fakePublisher struct {
	published []string
	err       error
}

func (p *fakePublisher) PublishSummaryRefresh(_ context.Context, userID string, months int) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, fmt.Sprintf("%s|%d", userID, months))
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.DefaultConfig())
}

func mustDate(s string) core.Date {
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return core.DateOf(t)
}
