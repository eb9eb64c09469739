package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"feelance/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the single backing store for every entity table.
// SQLite transactions provide the per-table serialization point that the
// old flat-file read-modify-write cycle lacked.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- users ---

func (r *SQLiteRepository) GetUser(ctx context.Context, userID string) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, display_name FROM users WHERE user_id = ?`, userID,
	).Scan(&u.UserID, &u.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("user %s: %w", userID, core.ErrNotFound)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) AddUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, display_name) VALUES (?, ?)`,
		u.UserID, u.DisplayName)
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

// --- transactions ---

// TransactionFilter narrows ListTransactions by date. Zero fields are
// ignored; Exact wins over the range bounds.
type TransactionFilter struct {
	Start core.Date
	End   core.Date
	Exact core.Date
}

const txColumns = `id, user_id, date, item, amount, mood_score, happy_amount, created_at, updated_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+txColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Date.Format(core.DateLayout), tx.Item,
		tx.Amount, tx.MoodScore, tx.HappyAmount,
		formatTime(tx.CreatedAt), formatTime(tx.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f TransactionFilter) ([]core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if !f.Exact.IsZero() {
		query += ` AND date = ?`
		args = append(args, f.Exact.Format(core.DateLayout))
	} else {
		if !f.Start.IsZero() {
			query += ` AND date >= ?`
			args = append(args, f.Start.Format(core.DateLayout))
		}
		if !f.End.IsZero() {
			query += ` AND date <= ?`
			args = append(args, f.End.Format(core.DateLayout))
		}
	}
	query += ` ORDER BY date ASC, created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET date = ?, item = ?, amount = ?, mood_score = ?, happy_amount = ?, updated_at = ?
		 WHERE id = ?`,
		tx.Date.Format(core.DateLayout), tx.Item, tx.Amount, tx.MoodScore,
		tx.HappyAmount, formatTime(tx.UpdatedAt), tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res, tx.ID)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res, id)
}

// --- diary entries ---

const diaryColumns = `id, tx_id, user_id, event_name, diary_title, diary_body, transaction_date, created_at`

// UpsertDiary inserts the entry or replaces the existing one for the
// same (tx_id, user_id) pair.
func (r *SQLiteRepository) UpsertDiary(ctx context.Context, e core.DiaryEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO diary_entries (`+diaryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tx_id, user_id) DO UPDATE SET
		   id = excluded.id,
		   event_name = excluded.event_name,
		   diary_title = excluded.diary_title,
		   diary_body = excluded.diary_body,
		   transaction_date = excluded.transaction_date,
		   created_at = excluded.created_at`,
		e.ID, e.TxID, e.UserID, e.EventName, e.DiaryTitle, e.DiaryBody,
		formatNullableTime(e.TransactionDate), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert diary: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListDiaries(ctx context.Context, userID string) ([]core.DiaryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+diaryColumns+` FROM diary_entries WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list diaries: %w", err)
	}
	defer rows.Close()

	entries := []core.DiaryEntry{}
	for rows.Next() {
		var (
			e      core.DiaryEntry
			txDate sql.NullString
			crAt   string
		)
		if err := rows.Scan(&e.ID, &e.TxID, &e.UserID, &e.EventName,
			&e.DiaryTitle, &e.DiaryBody, &txDate, &crAt); err != nil {
			return nil, fmt.Errorf("scan diary: %w", err)
		}
		e.TransactionDate = parseNullableTime(txDate)
		e.CreatedAt = parseTime(crAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- reports ---

func (r *SQLiteRepository) AppendReport(ctx context.Context, rep core.Report) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reports (user_id, event_name, report_title, report_body, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rep.UserID, rep.EventName, rep.ReportTitle, rep.ReportBody, formatTime(rep.CreatedAt))
	if err != nil {
		return fmt.Errorf("append report: %w", err)
	}
	return nil
}

// --- chat logs ---

// UpsertChatLog replaces the conversation stored for (tx_id, user_id).
func (r *SQLiteRepository) UpsertChatLog(ctx context.Context, l core.ChatLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_logs (tx_id, user_id, messages_json, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (tx_id, user_id) DO UPDATE SET
		   messages_json = excluded.messages_json,
		   created_at = excluded.created_at`,
		l.TxID, l.UserID, l.MessagesJSON, formatTime(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert chat log: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetChatLog(ctx context.Context, txID, userID string) (core.ChatLog, error) {
	var (
		l    core.ChatLog
		crAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT tx_id, user_id, messages_json, created_at FROM chat_logs
		 WHERE tx_id = ? AND user_id = ?`, txID, userID,
	).Scan(&l.TxID, &l.UserID, &l.MessagesJSON, &crAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ChatLog{}, fmt.Errorf("chat log %s/%s: %w", txID, userID, core.ErrNotFound)
	}
	if err != nil {
		return core.ChatLog{}, fmt.Errorf("get chat log: %w", err)
	}
	l.CreatedAt = parseTime(crAt)
	return l, nil
}

// --- summary cache ---

// GetCachedSummary returns the newest cached narrative for (user, months)
// younger than ttl, or ErrNotFound.
func (r *SQLiteRepository) GetCachedSummary(ctx context.Context, userID string, months int, ttl time.Duration) (string, error) {
	var (
		text        string
		generatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT summary_text, generated_at FROM summary_cache
		 WHERE user_id = ? AND months = ?
		 ORDER BY generated_at DESC, id DESC LIMIT 1`,
		userID, months,
	).Scan(&text, &generatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("summary cache %s/%d: %w", userID, months, core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get cached summary: %w", err)
	}
	if time.Since(parseTime(generatedAt)) > ttl {
		return "", fmt.Errorf("summary cache %s/%d expired: %w", userID, months, core.ErrNotFound)
	}
	return text, nil
}

// SaveCachedSummary appends a cache row; reads always take the newest.
func (r *SQLiteRepository) SaveCachedSummary(ctx context.Context, userID string, months int, text string, generatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO summary_cache (user_id, months, summary_text, generated_at)
		 VALUES (?, ?, ?, ?)`,
		userID, months, text, formatTime(generatedAt))
	if err != nil {
		return fmt.Errorf("save cached summary: %w", err)
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx           core.Transaction
		date         string
		crAt, updAt  string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &date, &tx.Item, &tx.Amount,
		&tx.MoodScore, &tx.HappyAmount, &crAt, &updAt); err != nil {
		return core.Transaction{}, err
	}
	d, err := time.Parse(core.DateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", date, err)
	}
	tx.Date = core.Date{Time: d}
	tx.CreatedAt = parseTime(crAt)
	tx.UpdatedAt = parseTime(updAt)
	return tx, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(core.TimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(core.TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatNullableTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	if t.IsZero() {
		return nil
	}
	return &t
}
