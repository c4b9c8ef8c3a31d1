package domain

import "time"

type PeriodStatus string

const (
	PeriodStatusDraft     PeriodStatus = "draft"
	PeriodStatusPublished PeriodStatus = "published"
)

type SchedulePeriod struct {
	ID          int64        `json:"id"`
	LocationID  int64        `json:"locationID"`
	StartDate   Date         `json:"startDate"`
	EndDate     Date         `json:"endDate"`
	Status      PeriodStatus `json:"status"`
	PublishedAt *time.Time   `json:"publishedAt"`
	PublishedBy *int64       `json:"publishedBy"`
	CreatedBy   int64        `json:"createdBy"`
	CreatedAt   time.Time    `json:"createdAt"`
	Version     int32        `json:"-"`
}

// Window 返回排班周期覆盖的时间区间 [开始日零点, 结束日次日零点)
func (p *SchedulePeriod) Window(loc *time.Location) (time.Time, time.Time) {
	return p.StartDate.StartIn(loc), p.EndDate.AddDays(1).StartIn(loc)
}

type PeriodFilter struct {
	LocationID *int64
	Status     *PeriodStatus
	From       *Date
	To         *Date
}
