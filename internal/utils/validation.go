package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

const clockLayout = "15:04"

// ParseClock 解析 HH:MM 格式的时间，返回距离零点的分钟数
func ParseClock(s string) (int, error) {
	t, err := time.Parse(clockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("时间 %q 的格式应为 HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClockSpanMinutes 计算两个 HH:MM 之间的分钟数，结束时间不晚于开始时间时视为跨天
func ClockSpanMinutes(startTime, endTime string) (int, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return 0, err
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return 0, err
	}
	if end <= start {
		end += 24 * 60
	}
	return end - start, nil
}

// ValidateWeekdays 检查星期集合：非空、取值 0~6、不能重复
func ValidateWeekdays(weekdays []int) error {
	if len(weekdays) == 0 {
		return errors.New("按周重复时必须指定星期")
	}

	seen := make(map[int]bool, len(weekdays))
	for _, day := range weekdays {
		if day < 0 || day > 6 {
			return fmt.Errorf("星期 %d 不合法，取值范围为 0~6", day)
		}
		if seen[day] {
			return fmt.Errorf("星期 %d 重复", day)
		}
		seen[day] = true
	}

	return nil
}

// ValidateBreak 休息时间不能为负，也不能不少于班次总时长
func ValidateBreak(breakMinutes int32, spanMinutes int) error {
	if breakMinutes < 0 {
		return errors.New("休息时间不能为负数")
	}
	if int(breakMinutes) >= spanMinutes {
		return fmt.Errorf("休息时间 %d 分钟必须小于班次时长 %d 分钟", breakMinutes, spanMinutes)
	}
	return nil
}

func ValidShiftRole(role domain.ShiftRole) bool {
	switch role {
	case domain.ShiftRoleCashier, domain.ShiftRoleFuelAttendant, domain.ShiftRoleSecurity, domain.ShiftRoleGeneral:
		return true
	}
	return false
}

func ValidateShiftTemplate(st *domain.ShiftTemplate) error {
	if st.Name == "" {
		return errors.New("模板名称不能为空")
	}

	span, err := ClockSpanMinutes(st.StartTime, st.EndTime)
	if err != nil {
		return err
	}

	if !ValidShiftRole(st.RoleRequired) {
		return fmt.Errorf("岗位 %q 不合法", st.RoleRequired)
	}

	if err := ValidateBreak(st.BreakMinutes, span); err != nil {
		return err
	}

	switch st.Recurrence.Type {
	case domain.RecurrenceOnce, domain.RecurrenceDaily:
	case domain.RecurrenceWeekly:
		if err := ValidateWeekdays(st.Recurrence.Weekdays); err != nil {
			return err
		}
	default:
		return fmt.Errorf("重复类型 %q 不合法", st.Recurrence.Type)
	}

	return nil
}
