package service

import (
	"context"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

type PeriodService struct {
	*base
}

type CreatePeriodInput struct {
	LocationID *int64
	StartDate  domain.Date
	EndDate    domain.Date
}

func (s *PeriodService) CreatePeriod(ctx context.Context, actor domain.Actor, input CreatePeriodInput) (*domain.SchedulePeriod, error) {
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return nil, domain.NewValidationError("请指定排班周期的开始和结束日期")
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, domain.NewValidationError("结束日期不能早于开始日期")
	}

	locationID, err := s.policy.ResolveLocation(actor, input.LocationID)
	if err != nil {
		return nil, err
	}

	period := &domain.SchedulePeriod{
		LocationID: locationID,
		StartDate:  input.StartDate,
		EndDate:    input.EndDate,
		Status:     domain.PeriodStatusDraft,
		CreatedBy:  actor.UserID,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		overlapped, err := s.store.CheckSchedulePeriodOverlap(ctx, locationID, input.StartDate, input.EndDate)
		if err != nil {
			return err
		}
		if overlapped {
			return domain.NewConflictError("该站点已存在与之重叠的排班周期", nil)
		}

		if err := s.store.CreateSchedulePeriod(ctx, period); err != nil {
			return err
		}

		s.audit.Record(ctx, actor, domain.AuditActionCreate, domain.AuditEntitySchedulePeriod, period.ID, domain.AuditChanges{After: period}, "", &period.LocationID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	return period, nil
}

func (s *PeriodService) ListPeriods(ctx context.Context, actor domain.Actor, filter domain.PeriodFilter) ([]*domain.SchedulePeriod, error) {
	locationID, err := s.policy.ScopeLocation(actor, filter.LocationID)
	if err != nil {
		return nil, err
	}
	filter.LocationID = locationID

	return s.store.ListSchedulePeriods(ctx, filter)
}

type PublishPeriodResult struct {
	Period            *domain.SchedulePeriod `json:"period"`
	ShiftsPublished   int                    `json:"shiftsPublished"`
	EmployeesNotified int                    `json:"employeesNotified"`
}

func (s *PeriodService) getPeriod(ctx context.Context, actor domain.Actor, id int64) (*domain.SchedulePeriod, error) {
	period, err := s.store.GetSchedulePeriodByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "排班周期", id)
	}
	if err := s.policy.CheckLocation(actor, period.LocationID); err != nil {
		return nil, err
	}
	return period, nil
}

// PublishPeriod 发布周期内站点的全部草稿班次，每个有已发布班次的员工只收到一条通知
func (s *PeriodService) PublishPeriod(ctx context.Context, actor domain.Actor, id int64) (*PublishPeriodResult, error) {
	var result *PublishPeriodResult

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		period, err := s.getPeriod(ctx, actor, id)
		if err != nil {
			return err
		}
		if period.Status == domain.PeriodStatusPublished {
			return domain.NewValidationError("排班周期已发布")
		}

		before := *period
		from, to := period.Window(s.location)

		shifts, err := s.store.TransitionShiftsInWindow(ctx, period.LocationID, from, to, domain.ShiftStatusDraft, domain.ShiftStatusPublished, actor.UserID)
		if err != nil {
			return err
		}

		now := time.Now()
		period.Status = domain.PeriodStatusPublished
		period.PublishedAt = &now
		period.PublishedBy = &actor.UserID
		if err := s.store.UpdateSchedulePeriod(ctx, period); err != nil {
			return err
		}

		employeeIDs, err := s.store.ListPublishedEmployeeIDs(ctx, period.LocationID, from, to)
		if err != nil {
			return err
		}

		changes := domain.AuditChanges{
			Before: before,
			After: map[string]any{
				"period":          period,
				"shiftsPublished": len(shifts),
			},
		}
		s.audit.Record(ctx, actor, domain.AuditActionPublish, domain.AuditEntitySchedulePeriod, period.ID, changes, "", &period.LocationID)
		s.notifier.SchedulePublished(ctx, employeeIDs, period)

		result = &PublishPeriodResult{
			Period:            period,
			ShiftsPublished:   len(shifts),
			EmployeesNotified: len(employeeIDs),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	return result, nil
}

type UnpublishPeriodResult struct {
	Period            *domain.SchedulePeriod `json:"period"`
	ShiftsUnpublished int                    `json:"shiftsUnpublished"`
}

// UnpublishPeriod 把周期内已发布的班次恢复为草稿，只有管理员可以调用
func (s *PeriodService) UnpublishPeriod(ctx context.Context, actor domain.Actor, id int64) (*UnpublishPeriodResult, error) {
	var result *UnpublishPeriodResult

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		period, err := s.getPeriod(ctx, actor, id)
		if err != nil {
			return err
		}
		if period.Status != domain.PeriodStatusPublished {
			return domain.NewValidationError("排班周期尚未发布")
		}

		before := *period
		from, to := period.Window(s.location)

		shifts, err := s.store.TransitionShiftsInWindow(ctx, period.LocationID, from, to, domain.ShiftStatusPublished, domain.ShiftStatusDraft, actor.UserID)
		if err != nil {
			return err
		}

		period.Status = domain.PeriodStatusDraft
		period.PublishedAt = nil
		period.PublishedBy = nil
		if err := s.store.UpdateSchedulePeriod(ctx, period); err != nil {
			return err
		}

		changes := domain.AuditChanges{
			Before: before,
			After: map[string]any{
				"period":            period,
				"shiftsUnpublished": len(shifts),
			},
		}
		s.audit.Record(ctx, actor, domain.AuditActionUnpublish, domain.AuditEntitySchedulePeriod, period.ID, changes, "", &period.LocationID)

		result = &UnpublishPeriodResult{Period: period, ShiftsUnpublished: len(shifts)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	return result, nil
}
