package amqp

import (
	"encoding/json"
	"time"
)

// SummaryRefreshMessage asks the worker to regenerate the cached
// retrospective narrative for one user. It carries only the user id and
// window length; the worker reads everything else from the database.
type SummaryRefreshMessage struct {
	UserID    string    `json:"user_id"`
	Months    int       `json:"months"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSummaryRefreshMessage creates a refresh message for one user/window.
func NewSummaryRefreshMessage(userID string, months int) *SummaryRefreshMessage {
	return &SummaryRefreshMessage{
		UserID:    userID,
		Months:    months,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SummaryRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SummaryRefreshMessageFromJSON creates a message from JSON bytes
func SummaryRefreshMessageFromJSON(data []byte) (*SummaryRefreshMessage, error) {
	var msg SummaryRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
