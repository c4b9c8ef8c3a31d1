package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// Detector 负责检测候选班次与员工已有班次之间的冲突
type Detector struct {
	shifts   ShiftReader
	location *time.Location // 按日、按周统计工时时使用的时区
}

func New(shifts ShiftReader, location *time.Location) *Detector {
	if location == nil {
		location = time.UTC
	}
	return &Detector{
		shifts:   shifts,
		location: location,
	}
}

// Evaluate 检测候选班次，pending 为同一批次中已经通过检测但尚未落库的班次
func (d *Detector) Evaluate(ctx context.Context, c Candidate, rules domain.SchedulingRules, pending ...*domain.Shift) (*domain.ConflictReport, error) {
	if !c.EndAt.After(c.StartAt) {
		return nil, domain.NewValidationError("班次结束时间必须晚于开始时间")
	}

	dayStart, dayEnd := DayBounds(c.StartAt, d.location)
	weekStart, weekEnd := WeekBounds(c.StartAt, d.location)

	// 一次查出覆盖整周以及候选班次本身的所有班次，后面的检测都在内存中完成
	from := weekStart
	if c.StartAt.Before(from) {
		from = c.StartAt
	}
	to := weekEnd
	if c.EndAt.After(to) {
		to = c.EndAt
	}
	existing, err := d.shifts.ListEmployeeShifts(ctx, c.EmployeeID, from, to, c.ID)
	if err != nil {
		return nil, fmt.Errorf("查询员工班次失败: %w", err)
	}

	siblings := make([]*domain.Shift, 0, len(pending))
	for _, s := range pending {
		if s.EmployeeID == c.EmployeeID && s.Blocking() && (c.ID == 0 || s.ID != c.ID) {
			siblings = append(siblings, s)
		}
	}

	report := domain.NewConflictReport()
	severity := domain.SeverityWarning
	if rules.StrictMode {
		severity = domain.SeverityError
	}

	if item := checkOverlap(c, existing, siblings); item != nil {
		report.Add(*item)
	}

	others := append(append(make([]*domain.Shift, 0, len(existing)+len(siblings)), existing...), siblings...)
	if item := checkHours(c, others, dayStart, dayEnd, rules.MaxHoursPerDay, domain.ConflictMaxHoursPerDay, severity); item != nil {
		report.Add(*item)
	}
	if item := checkHours(c, others, weekStart, weekEnd, rules.MaxHoursPerWeek, domain.ConflictMaxHoursPerWeek, severity); item != nil {
		report.Add(*item)
	}

	prev, next, err := d.adjacentShifts(ctx, c, siblings)
	if err != nil {
		return nil, err
	}
	if item := checkRest(c, prev, next, rules.MinRestGapHours, severity); item != nil {
		report.Add(*item)
	}

	if item := checkRole(c); item != nil {
		report.Add(*item)
	}

	return report, nil
}

// adjacentShifts 找出候选班次之前最近结束和之后最早开始的班次
func (d *Detector) adjacentShifts(ctx context.Context, c Candidate, siblings []*domain.Shift) (*domain.Shift, *domain.Shift, error) {
	prev, err := d.shifts.GetPreviousShift(ctx, c.EmployeeID, c.StartAt, c.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("查询上一个班次失败: %w", err)
		}
		prev = nil
	}

	next, err := d.shifts.GetNextShift(ctx, c.EmployeeID, c.EndAt, c.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("查询下一个班次失败: %w", err)
		}
		next = nil
	}

	for _, s := range siblings {
		if !s.EndAt.After(c.StartAt) && (prev == nil || s.EndAt.After(prev.EndAt)) {
			prev = s
		}
		if !s.StartAt.Before(c.EndAt) && (next == nil || s.StartAt.Before(next.StartAt)) {
			next = s
		}
	}

	return prev, next, nil
}
