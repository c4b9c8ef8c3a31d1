package domain

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditActionCreate    AuditAction = "create"
	AuditActionUpdate    AuditAction = "update"
	AuditActionDelete    AuditAction = "delete"
	AuditActionPublish   AuditAction = "publish"
	AuditActionUnpublish AuditAction = "unpublish"
)

type AuditEntityType string

const (
	AuditEntityShift          AuditEntityType = "shift"
	AuditEntitySchedulePeriod AuditEntityType = "schedulePeriod"
	AuditEntityTemplate       AuditEntityType = "template"
	AuditEntityUser           AuditEntityType = "user"
)

type AuditLog struct {
	ID         int64           `json:"id"`
	EventID    string          `json:"-"`
	ActorID    int64           `json:"actorID"`
	Action     AuditAction     `json:"action"`
	EntityType AuditEntityType `json:"entityType"`
	EntityID   int64           `json:"entityID"`
	Changes    json.RawMessage `json:"changes"`
	Reason     string          `json:"reason"`
	LocationID *int64          `json:"locationID"`
	Timestamp  time.Time       `json:"timestamp"`
}

// AuditChanges 是审计日志中 changes 字段的结构
type AuditChanges struct {
	Before any `json:"before,omitempty"`
	After  any `json:"after,omitempty"`
}

type AuditFilter struct {
	LocationID *int64
	EntityType *AuditEntityType
	EntityID   *int64
	ActorID    *int64
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}
