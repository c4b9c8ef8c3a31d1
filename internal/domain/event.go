package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventKindAudit        EventKind = "audit"
	EventKindNotification EventKind = "notification"
)

// Event 是写入 outbox 的副作用事件，与主操作在同一个事务中落库，之后异步投递
type Event struct {
	ID           string          `json:"id"`
	Kind         EventKind       `json:"kind"`
	Payload      json.RawMessage `json:"payload"`
	Attempts     int32           `json:"attempts"`
	LastError    string          `json:"lastError"`
	CreatedAt    time.Time       `json:"createdAt"`
	DispatchedAt *time.Time      `json:"dispatchedAt"`
}

func NewAuditEvent(entry *AuditLog) (*Event, error) {
	entry.EventID = uuid.NewString()
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return &Event{ID: entry.EventID, Kind: EventKindAudit, Payload: payload}, nil
}

func NewNotificationEvent(n *Notification) (*Event, error) {
	n.EventID = uuid.NewString()
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return &Event{ID: n.EventID, Kind: EventKindNotification, Payload: payload}, nil
}
