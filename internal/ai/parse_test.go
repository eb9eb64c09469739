package ai

import (
	"errors"
	"strings"
	"testing"

	"feelance/internal/core"
)

func TestExtractTitledJSON(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    TitledDocument
	}{
		{
			name:    "direct decode",
			content: `{"diary_title": "A day", "diary_body": "It was fine."}`,
			want:    TitledDocument{Title: "A day", Body: "It was fine."},
		},
		{
			name: "fenced json block",
			content: "Sure, here is the diary:\n```json\n" +
				`{"diary_title": "Fenced", "diary_body": "Inside a fence."}` +
				"\n```\nLet me know if you need edits.",
			want: TitledDocument{Title: "Fenced", Body: "Inside a fence."},
		},
		{
			name: "untagged fence",
			content: "```\n" +
				`{"diary_title": "Plain", "diary_body": "No tag."}` +
				"\n```",
			want: TitledDocument{Title: "Plain", Body: "No tag."},
		},
		{
			name:    "loose decode with missing body",
			content: `{"diary_title": "  Only title  "}`,
			want:    TitledDocument{Title: "Only title"},
		},
		{
			name:    "loose decode with non-string value",
			content: `{"diary_title": 42, "diary_body": "numeric title"}`,
			want:    TitledDocument{Title: "42", Body: "numeric title"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractTitledJSON(tc.content, "diary_title", "diary_body")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestExtractTitledJSONFailure(t *testing.T) {
	long := "The model rambled on without any JSON at all. " + strings.Repeat("More words. ", 40)
	_, err := ExtractTitledJSON(long, "diary_title", "diary_body")
	if !errors.Is(err, core.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if len(err.Error()) > 300 {
		t.Fatalf("diagnostic preview not truncated: %d chars", len(err.Error()))
	}
}

func TestExtractTitledJSONReportKeys(t *testing.T) {
	got, err := ExtractTitledJSON(`{"report_title": "R", "report_body": "B"}`, "report_title", "report_body")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "R" || got.Body != "B" {
		t.Fatalf("got %+v", got)
	}
}
