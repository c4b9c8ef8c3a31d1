package scheduler

import (
	"fmt"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// checkOverlap 检测时间重叠，重叠永远是硬冲突，不受严格模式影响
func checkOverlap(c Candidate, existing, siblings []*domain.Shift) *domain.ConflictItem {
	overlapping := make([]map[string]any, 0)

	for _, s := range existing {
		if Overlaps(c.StartAt, c.EndAt, s.StartAt, s.EndAt) {
			overlapping = append(overlapping, map[string]any{
				"shiftID": s.ID,
				"startAt": s.StartAt,
				"endAt":   s.EndAt,
			})
		}
	}
	for _, s := range siblings {
		if Overlaps(c.StartAt, c.EndAt, s.StartAt, s.EndAt) {
			overlapping = append(overlapping, map[string]any{
				"startAt": s.StartAt,
				"endAt":   s.EndAt,
				"pending": true,
			})
		}
	}

	if len(overlapping) == 0 {
		return nil
	}

	return &domain.ConflictItem{
		Type:     domain.ConflictOverlappingShift,
		Severity: domain.SeverityError,
		Message:  fmt.Sprintf("员工存在 %d 个时间重叠的班次", len(overlapping)),
		Details: map[string]any{
			"shifts": overlapping,
		},
	}
}

// checkHours 统计开始时间落在 [from, to) 内的班次工时，加上候选班次后与上限比较
func checkHours(c Candidate, others []*domain.Shift, from, to time.Time, limit float64, typ domain.ConflictType, severity domain.Severity) *domain.ConflictItem {
	if limit <= 0 {
		return nil
	}

	total := c.WorkedHours()
	for _, s := range others {
		if within(s.StartAt, from, to) {
			total += s.WorkedHours()
		}
	}

	if total <= limit {
		return nil
	}

	var msg string
	switch typ {
	case domain.ConflictMaxHoursPerDay:
		msg = fmt.Sprintf("当天总工时 %.2f 小时，超过上限 %.2f 小时", total, limit)
	default:
		msg = fmt.Sprintf("本周总工时 %.2f 小时，超过上限 %.2f 小时", total, limit)
	}

	return &domain.ConflictItem{
		Type:     typ,
		Severity: severity,
		Message:  msg,
		Details: map[string]any{
			"hours":     roundHours(total),
			"limit":     limit,
			"rangeFrom": from,
			"rangeTo":   to,
		},
	}
}

// checkRest 检测与前后相邻班次之间的休息时间
func checkRest(c Candidate, prev, next *domain.Shift, minGap float64, severity domain.Severity) *domain.ConflictItem {
	if minGap <= 0 {
		return nil
	}

	gaps := make([]map[string]any, 0, 2)

	if prev != nil {
		gap := c.StartAt.Sub(prev.EndAt).Hours()
		if gap < minGap {
			gaps = append(gaps, map[string]any{
				"previousShiftId":  prev.ID,
				"gapHours":         roundHours(gap),
				"requiredGapHours": minGap,
			})
		}
	}
	if next != nil {
		gap := next.StartAt.Sub(c.EndAt).Hours()
		if gap < minGap {
			gaps = append(gaps, map[string]any{
				"nextShiftId":      next.ID,
				"gapHours":         roundHours(gap),
				"requiredGapHours": minGap,
			})
		}
	}

	if len(gaps) == 0 {
		return nil
	}

	return &domain.ConflictItem{
		Type:     domain.ConflictInsufficientRest,
		Severity: severity,
		Message:  fmt.Sprintf("与相邻班次之间的休息时间不足 %.2f 小时", minGap),
		Details: map[string]any{
			"gaps": gaps,
		},
	}
}

// checkRole 岗位不匹配只作为警告
func checkRole(c Candidate) *domain.ConflictItem {
	if c.Employee == nil || roleMatches(c.Employee, c.RoleRequired) {
		return nil
	}

	return &domain.ConflictItem{
		Type:     domain.ConflictRoleMismatch,
		Severity: domain.SeverityWarning,
		Message:  fmt.Sprintf("员工岗位与班次要求的岗位 %s 不匹配", c.RoleRequired),
		Details: map[string]any{
			"employeeRole":     c.Employee.Role,
			"employeeJobTitle": c.Employee.JobTitle,
			"roleRequired":     c.RoleRequired,
		},
	}
}
