package core

import (
	"strings"
	"time"
)

// Layouts used everywhere a time or date is persisted or serialized.
const (
	TimeLayout = "2006-01-02T15:04:05"
	DateLayout = "2006-01-02"
)

type (
	// Date is a calendar day without a time component.
	Date struct {
		time.Time
	}

	// Transaction is a spending event tagged with a mood score.
	// HappyAmount is always derived from Amount and MoodScore, never
	// stored independently of its inputs.
	Transaction struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		Date        Date      `json:"date"`
		Item        string    `json:"item"`
		Amount      float64   `json:"amount"`
		MoodScore   int       `json:"mood_score"`
		HappyAmount float64   `json:"happy_amount"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	// DiaryEntry is a saved diary about one transaction. At most one
	// entry exists per (TxID, UserID); resaving overwrites it.
	DiaryEntry struct {
		ID              string     `json:"id"`
		TxID            string     `json:"tx_id"`
		UserID          string     `json:"user_id"`
		EventName       string     `json:"event_name"`
		DiaryTitle      string     `json:"diary_title"`
		DiaryBody       string     `json:"diary_body"`
		TransactionDate *time.Time `json:"transaction_date"`
		CreatedAt       time.Time  `json:"created_at"`
	}

	// Report is an append-only saved report. It has no identity key and
	// no update or delete path.
	Report struct {
		UserID      string    `json:"user_id"`
		EventName   string    `json:"event_name"`
		ReportTitle string    `json:"report_title"`
		ReportBody  string    `json:"report_body"`
		CreatedAt   time.Time `json:"created_at"`
	}

	// ChatMessage is one turn of a diary/report conversation.
	ChatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	// ChatLog is the current conversation for one (TxID, UserID) pair.
	// Each save replaces the prior row: last write wins, not a log.
	ChatLog struct {
		TxID         string    `json:"tx_id"`
		UserID       string    `json:"user_id"`
		MessagesJSON string    `json:"messages_json"`
		CreatedAt    time.Time `json:"created_at"`
	}

	// User is a row of the static user lookup table.
	User struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
	}
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = t
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// EffectiveDate is the day used for filtering and sorting a diary entry:
// its own transaction date if set, else its creation time.
func (e DiaryEntry) EffectiveDate() time.Time {
	if e.TransactionDate != nil && !e.TransactionDate.IsZero() {
		return *e.TransactionDate
	}
	return e.CreatedAt
}

// ValidMoodScore reports whether score is inside the closed [-2, 2] range.
func ValidMoodScore(score int) bool {
	return score >= MoodMin && score <= MoodMax
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Item) == "" {
		return ErrEmptyItem
	}
	if t.Amount < 0 {
		return ErrInvalidAmount
	}
	if !ValidMoodScore(t.MoodScore) {
		return ErrInvalidMoodScore
	}
	return nil
}

func (m ChatMessage) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
	default:
		return ErrInvalidRole
	}
	if m.Content == "" {
		return ErrEmptyContent
	}
	return nil
}
