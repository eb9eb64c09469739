package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		UserID:    "u1",
		Date:      NewDate(2026, 8, 1),
		Item:      "coffee",
		Amount:    4.5,
		MoodScore: 1,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"empty user", func(tx *Transaction) { tx.UserID = " " }, ErrEmptyUserID},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"empty item", func(tx *Transaction) { tx.Item = "" }, ErrEmptyItem},
		{"negative amount", func(tx *Transaction) { tx.Amount = -1 }, ErrInvalidAmount},
		{"mood too low", func(tx *Transaction) { tx.MoodScore = -3 }, ErrInvalidMoodScore},
		{"mood too high", func(tx *Transaction) { tx.MoodScore = 3 }, ErrInvalidMoodScore},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := valid
			tc.mutate(&tx)
			err := tx.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("%v should wrap ErrInvalidInput", err)
			}
		})
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2026, 2, 14)
	raw, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `"2026-02-14"` {
		t.Fatalf("unexpected encoding %s", raw)
	}
	var back Date
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip changed date: %v != %v", back, d)
	}

	var bad Date
	if err := json.Unmarshal([]byte(`"14/02/2026"`), &bad); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestEffectiveDate(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	txDate := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

	withTx := DiaryEntry{TransactionDate: &txDate, CreatedAt: created}
	if got := withTx.EffectiveDate(); !got.Equal(txDate) {
		t.Fatalf("expected transaction date, got %v", got)
	}

	without := DiaryEntry{CreatedAt: created}
	if got := without.EffectiveDate(); !got.Equal(created) {
		t.Fatalf("expected created_at fallback, got %v", got)
	}
}

func TestChatMessageValidate(t *testing.T) {
	if err := (ChatMessage{Role: RoleUser, Content: "hi"}).Validate(); err != nil {
		t.Fatalf("valid message rejected: %v", err)
	}
	if err := (ChatMessage{Role: RoleSystem, Content: "hi"}).Validate(); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("system role should be rejected, got %v", err)
	}
	if err := (ChatMessage{Role: RoleUser}).Validate(); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("empty content should be rejected, got %v", err)
	}
}
