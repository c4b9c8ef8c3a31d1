package domain

import (
	"time"
)

type TemplateRecurrence struct {
	Type     RecurrenceType `json:"type"`
	Weekdays []int          `json:"weekdays"`
}

type ShiftTemplate struct {
	ID           int64              `json:"id"`
	LocationID   int64              `json:"locationID"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	StartTime    string             `json:"startTime"`
	EndTime      string             `json:"endTime"`
	RoleRequired ShiftRole          `json:"roleRequired"`
	BreakMinutes int32              `json:"breakMinutes"`
	Recurrence   TemplateRecurrence `json:"recurrence"`
	IsActive     bool               `json:"isActive"`
	CreatedBy    int64              `json:"createdBy"`
	CreatedAt    time.Time          `json:"createdAt"`
	Version      int32              `json:"-"`
}
