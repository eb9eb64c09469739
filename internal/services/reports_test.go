package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"feelance/internal/core"
)

func TestReportStreamChatKeepsNoLog(t *testing.T) {
	store := newFakeStore()
	seedTransaction(store, "tx1", "demo", "2026-08-01", "lunch", 1200, 1)
	gen := &fakeGenerator{streamTokens: []string{"What ", "happened?"}}
	svc := NewReportService(store, gen, testLogger())

	var out strings.Builder
	err := svc.StreamChat(context.Background(), "tx1", nil, func(tok string) error {
		out.WriteString(tok)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if out.String() != "What happened?" {
		t.Errorf("tokens = %q", out.String())
	}
	if len(store.chatLogs) != 0 {
		t.Error("report chat must not persist a log")
	}
}

func TestReportStreamChatUnavailable(t *testing.T) {
	store := newFakeStore()
	seedTransaction(store, "tx1", "demo", "2026-08-01", "lunch", 1200, 1)
	svc := NewReportService(store, nil, testLogger())

	err := svc.StreamChat(context.Background(), "tx1", nil, func(string) error { return nil })
	if !errors.Is(err, core.ErrGenerationUnavailable) {
		t.Fatalf("error = %v, want ErrGenerationUnavailable", err)
	}
}

func TestReportGenerate(t *testing.T) {
	store := newFakeStore()
	seedTransaction(store, "tx1", "demo", "2026-08-01", "lunch", 1200, 1)
	gen := &fakeGenerator{jsonContent: `{"report_title": "Team Lunch", "report_body": "Good value."}`}
	svc := NewReportService(store, gen, testLogger())

	doc, err := svc.Generate(context.Background(), "tx1", []core.ChatMessage{
		{Role: core.RoleUser, Content: "it was a team lunch"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if doc.Title != "Team Lunch" || doc.Body != "Good value." {
		t.Errorf("doc = %+v", doc)
	}
}

func TestReportSaveAppends(t *testing.T) {
	store := newFakeStore()
	seedTransaction(store, "tx1", "demo", "2026-08-01", "lunch", 1200, 1)
	svc := NewReportService(store, nil, testLogger())

	for i := 0; i < 2; i++ {
		rep, err := svc.Save(context.Background(), "tx1", "demo", "Lunch Report", "body")
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		if rep.EventName != "lunch" {
			t.Errorf("event name = %q", rep.EventName)
		}
	}
	if len(store.reports) != 2 {
		t.Fatalf("got %d reports, want append-only to keep both", len(store.reports))
	}
}

func TestReportSaveUnknownTransaction(t *testing.T) {
	svc := NewReportService(newFakeStore(), nil, testLogger())
	_, err := svc.Save(context.Background(), "missing", "demo", "t", "b")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}
