package scheduler

import (
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// Overlaps 判断两个开区间是否有交集，首尾相接不算重叠
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// DayBounds 返回 t 在 loc 时区下所在日期的 [零点, 次日零点)
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// WeekBounds 返回 t 所在的自然周，周日为一周的第一天
func WeekBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	dayStart, _ := DayBounds(t, loc)
	start := dayStart.AddDate(0, 0, -int(dayStart.Weekday()))
	return start, start.AddDate(0, 0, 7)
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// roleMatches 判断员工是否能胜任班次要求的岗位，general 岗位任何人都可以
func roleMatches(user *domain.User, required domain.ShiftRole) bool {
	if required == domain.ShiftRoleGeneral {
		return true
	}
	return employeeShiftRole(user) == required
}

func employeeShiftRole(user *domain.User) domain.ShiftRole {
	switch user.Role {
	case domain.RoleCashier:
		return domain.ShiftRoleCashier
	case domain.RoleEmployee:
		switch user.JobTitle {
		case domain.JobTitleFuelAttendant:
			return domain.ShiftRoleFuelAttendant
		case domain.JobTitleSecurityGuard:
			return domain.ShiftRoleSecurity
		}
	}
	return domain.ShiftRoleGeneral
}

func roundHours(h float64) float64 {
	return float64(int64(h*100+0.5)) / 100
}
