package scheduler

import (
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/utils"
)

// MaxRecurrenceDays 限制一次批量排班展开的天数
const MaxRecurrenceDays = 366

// Expand 把重复规则展开成具体的日期列表，未指定结束日期时视为与开始日期相同
func Expand(r domain.Recurrence) ([]domain.Date, error) {
	if r.StartDate.IsZero() {
		return nil, domain.NewValidationError("重复规则缺少开始日期")
	}

	if r.Type == domain.RecurrenceOnce {
		return []domain.Date{r.StartDate}, nil
	}

	end := r.StartDate
	if r.EndDate != nil && !r.EndDate.IsZero() {
		end = *r.EndDate
	}
	if end.Before(r.StartDate) {
		return nil, domain.NewValidationError("结束日期不能早于开始日期")
	}
	if int(end.Sub(r.StartDate.Time).Hours()/24)+1 > MaxRecurrenceDays {
		return nil, domain.NewValidationError("重复规则最多覆盖 %d 天", MaxRecurrenceDays)
	}

	var include func(domain.Date) bool
	switch r.Type {
	case domain.RecurrenceDaily:
		include = func(domain.Date) bool { return true }
	case domain.RecurrenceWeekly:
		if err := utils.ValidateWeekdays(r.Weekdays); err != nil {
			return nil, domain.NewValidationError("%s", err.Error())
		}
		weekdays := make(map[time.Weekday]bool, len(r.Weekdays))
		for _, day := range r.Weekdays {
			weekdays[time.Weekday(day)] = true
		}
		include = func(d domain.Date) bool { return weekdays[d.Weekday()] }
	default:
		return nil, domain.NewValidationError("重复类型 %q 不合法", r.Type)
	}

	dates := make([]domain.Date, 0)
	for d := r.StartDate; !d.After(end); d = d.AddDays(1) {
		if include(d) {
			dates = append(dates, d)
		}
	}

	return dates, nil
}

// Combine 把日期与 HH:MM 组合成班次的起止时间，结束时间不晚于开始时间时顺延到次日
func Combine(date domain.Date, startTime, endTime string, loc *time.Location) (time.Time, time.Time, error) {
	startMinutes, err := utils.ParseClock(startTime)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewValidationError("%s", err.Error())
	}
	endMinutes, err := utils.ParseClock(endTime)
	if err != nil {
		return time.Time{}, time.Time{}, domain.NewValidationError("%s", err.Error())
	}

	if loc == nil {
		loc = time.UTC
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), startMinutes/60, startMinutes%60, 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(), endMinutes/60, endMinutes%60, 0, 0, loc)
	if !end.After(start) {
		end = time.Date(date.Year(), date.Month(), date.Day()+1, endMinutes/60, endMinutes%60, 0, 0, loc)
	}

	return start, end, nil
}
