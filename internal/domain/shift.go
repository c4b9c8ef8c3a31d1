package domain

import (
	"encoding/json"
	"time"
)

type ShiftStatus string

const (
	ShiftStatusDraft     ShiftStatus = "draft"
	ShiftStatusPublished ShiftStatus = "published"
	ShiftStatusCancelled ShiftStatus = "cancelled"
)

type ShiftRole string

const (
	ShiftRoleCashier       ShiftRole = "cashier"
	ShiftRoleFuelAttendant ShiftRole = "fuel_attendant"
	ShiftRoleSecurity      ShiftRole = "security"
	ShiftRoleGeneral       ShiftRole = "general"
)

type Shift struct {
	ID           int64       `json:"id"`
	LocationID   int64       `json:"locationID"`
	EmployeeID   int64       `json:"employeeID"`
	RoleRequired ShiftRole   `json:"roleRequired"`
	StartAt      time.Time   `json:"startAt"`
	EndAt        time.Time   `json:"endAt"`
	BreakMinutes int32       `json:"breakMinutes"`
	Status       ShiftStatus `json:"status"`
	Notes        string      `json:"notes"`
	ChangeReason string      `json:"changeReason"`
	CreatedBy    int64       `json:"createdBy"`
	UpdatedBy    *int64      `json:"updatedBy"`
	IsActive     bool        `json:"isActive"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Version      int32       `json:"-"`
}

// WorkedHours 为班次时长减去休息时间，不会小于 0
func WorkedHours(start, end time.Time, breakMinutes int32) float64 {
	hours := end.Sub(start).Hours() - float64(breakMinutes)/60
	if hours < 0 {
		return 0
	}
	return hours
}

func (s *Shift) WorkedHours() float64 {
	return WorkedHours(s.StartAt, s.EndAt, s.BreakMinutes)
}

// Blocking 表示该班次是否会占用员工的时间
func (s *Shift) Blocking() bool {
	return s.IsActive && s.Status != ShiftStatusCancelled
}

func (s Shift) MarshalJSON() ([]byte, error) {
	type shift Shift
	return json.Marshal(struct {
		shift
		WorkedHours float64 `json:"workedHours"`
	}{
		shift:       shift(s),
		WorkedHours: s.WorkedHours(),
	})
}

type ShiftFilter struct {
	LocationID      *int64
	EmployeeID      *int64
	From            *time.Time
	To              *time.Time
	Status          *ShiftStatus
	RoleRequired    *ShiftRole
	IncludeInactive bool
}

type RecurrenceType string

const (
	RecurrenceOnce   RecurrenceType = "once"
	RecurrenceDaily  RecurrenceType = "daily"
	RecurrenceWeekly RecurrenceType = "weekly"
)

// Recurrence 描述批量排班时的重复规则，weekdays 中周日为 0
type Recurrence struct {
	Type      RecurrenceType `json:"type"`
	StartDate Date           `json:"startDate"`
	EndDate   *Date          `json:"endDate"`
	Weekdays  []int          `json:"weekdays"`
}
