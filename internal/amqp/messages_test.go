package amqp

import (
	"testing"
	"time"
)

func TestSummaryRefreshMessageRoundTrip(t *testing.T) {
	msg := NewSummaryRefreshMessage("demo", 12)
	if msg.UserID != "demo" || msg.Months != 12 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if time.Since(msg.Timestamp) > time.Minute {
		t.Fatalf("timestamp not set: %v", msg.Timestamp)
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := SummaryRefreshMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.UserID != msg.UserID || back.Months != msg.Months {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestSummaryRefreshMessageFromJSONInvalid(t *testing.T) {
	if _, err := SummaryRefreshMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
