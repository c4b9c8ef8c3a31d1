package scheduler

import (
	"context"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// Candidate: 待检测的班次
type Candidate struct {
	ID           int64 // 更新时为班次自身的 ID，检测时会排除它
	EmployeeID   int64
	LocationID   int64
	RoleRequired domain.ShiftRole
	StartAt      time.Time
	EndAt        time.Time
	BreakMinutes int32
	Employee     *domain.User // 用于岗位匹配检测，为 nil 时跳过
}

func (c *Candidate) WorkedHours() float64 {
	return domain.WorkedHours(c.StartAt, c.EndAt, c.BreakMinutes)
}

// AsShift 把候选班次转换成草稿状态的班次，批量排班时用于同批次内的检测
func (c *Candidate) AsShift() *domain.Shift {
	return &domain.Shift{
		ID:           c.ID,
		LocationID:   c.LocationID,
		EmployeeID:   c.EmployeeID,
		RoleRequired: c.RoleRequired,
		StartAt:      c.StartAt,
		EndAt:        c.EndAt,
		BreakMinutes: c.BreakMinutes,
		Status:       domain.ShiftStatusDraft,
		IsActive:     true,
	}
}

// ShiftReader 是冲突检测需要的查询，只返回有效且未取消的班次
type ShiftReader interface {
	// ListEmployeeShifts 返回与 [from, to) 有交集的班次
	ListEmployeeShifts(ctx context.Context, employeeID int64, from, to time.Time, excludeID int64) ([]*domain.Shift, error)
	// GetPreviousShift 返回结束时间不晚于 before 的最后一个班次，不存在时返回 domain.ErrRecordNotFound
	GetPreviousShift(ctx context.Context, employeeID int64, before time.Time, excludeID int64) (*domain.Shift, error)
	// GetNextShift 返回开始时间不早于 after 的第一个班次，不存在时返回 domain.ErrRecordNotFound
	GetNextShift(ctx context.Context, employeeID int64, after time.Time, excludeID int64) (*domain.Shift, error)
}
