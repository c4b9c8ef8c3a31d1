package domain

import "time"

type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"createdAt"`
}

// SchedulingRules 是排班冲突检测使用的参数，可以按站点覆盖默认值
type SchedulingRules struct {
	StrictMode      bool    `json:"strictMode"`
	MaxHoursPerDay  float64 `json:"maxHoursPerDay"`
	MaxHoursPerWeek float64 `json:"maxHoursPerWeek"`
	MinRestGapHours float64 `json:"minRestGapHours"`
}
