package service

import (
	"context"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/utils"
)

type TemplateService struct {
	*base
}

type CreateTemplateInput struct {
	LocationID   *int64
	Name         string
	Description  string
	StartTime    string
	EndTime      string
	RoleRequired domain.ShiftRole
	BreakMinutes int32
	Recurrence   domain.TemplateRecurrence
}

type UpdateTemplateInput struct {
	Name         *string
	Description  *string
	StartTime    *string
	EndTime      *string
	RoleRequired *domain.ShiftRole
	BreakMinutes *int32
	Recurrence   *domain.TemplateRecurrence
}

func (s *TemplateService) ListTemplates(ctx context.Context, actor domain.Actor, locationID *int64) ([]*domain.ShiftTemplate, error) {
	scoped, err := s.policy.ScopeLocation(actor, locationID)
	if err != nil {
		return nil, err
	}
	return s.store.ListShiftTemplates(ctx, scoped)
}

func (s *TemplateService) GetTemplate(ctx context.Context, actor domain.Actor, id int64) (*domain.ShiftTemplate, error) {
	st, err := s.store.GetShiftTemplateByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "班次模板", id)
	}
	if !st.IsActive {
		return nil, domain.NewNotFoundError("班次模板", id)
	}
	if err := s.policy.CheckLocation(actor, st.LocationID); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *TemplateService) CreateTemplate(ctx context.Context, actor domain.Actor, input CreateTemplateInput) (*domain.ShiftTemplate, error) {
	locationID, err := s.policy.ResolveLocation(actor, input.LocationID)
	if err != nil {
		return nil, err
	}

	st := &domain.ShiftTemplate{
		LocationID:   locationID,
		Name:         input.Name,
		Description:  input.Description,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		RoleRequired: input.RoleRequired,
		BreakMinutes: input.BreakMinutes,
		Recurrence:   input.Recurrence,
		CreatedBy:    actor.UserID,
	}
	if st.Recurrence.Type == "" {
		st.Recurrence.Type = domain.RecurrenceOnce
	}
	if st.Recurrence.Type != domain.RecurrenceWeekly {
		st.Recurrence.Weekdays = make([]int, 0)
	}
	if err := utils.ValidateShiftTemplate(st); err != nil {
		return nil, domain.NewValidationError("%s", err.Error())
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateShiftTemplate(ctx, st); err != nil {
			return err
		}
		s.audit.Record(ctx, actor, domain.AuditActionCreate, domain.AuditEntityTemplate, st.ID, domain.AuditChanges{After: st}, "", &st.LocationID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	return st, nil
}

func (s *TemplateService) UpdateTemplate(ctx context.Context, actor domain.Actor, id int64, input UpdateTemplateInput) (*domain.ShiftTemplate, error) {
	var result *domain.ShiftTemplate

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		st, err := s.GetTemplate(ctx, actor, id)
		if err != nil {
			return err
		}

		before := *st
		if input.Name != nil {
			st.Name = *input.Name
		}
		if input.Description != nil {
			st.Description = *input.Description
		}
		if input.StartTime != nil {
			st.StartTime = *input.StartTime
		}
		if input.EndTime != nil {
			st.EndTime = *input.EndTime
		}
		if input.RoleRequired != nil {
			st.RoleRequired = *input.RoleRequired
		}
		if input.BreakMinutes != nil {
			st.BreakMinutes = *input.BreakMinutes
		}
		if input.Recurrence != nil {
			st.Recurrence = *input.Recurrence
			if st.Recurrence.Type != domain.RecurrenceWeekly {
				st.Recurrence.Weekdays = make([]int, 0)
			}
		}
		if err := utils.ValidateShiftTemplate(st); err != nil {
			return domain.NewValidationError("%s", err.Error())
		}

		if err := s.store.UpdateShiftTemplate(ctx, st); err != nil {
			return err
		}

		s.audit.Record(ctx, actor, domain.AuditActionUpdate, domain.AuditEntityTemplate, st.ID, domain.AuditChanges{Before: before, After: st}, "", &st.LocationID)
		result = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	return result, nil
}

// DeleteTemplate 软删除模板，已生成的班次不受影响
func (s *TemplateService) DeleteTemplate(ctx context.Context, actor domain.Actor, id int64) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		st, err := s.GetTemplate(ctx, actor, id)
		if err != nil {
			return err
		}

		st.IsActive = false
		if err := s.store.UpdateShiftTemplate(ctx, st); err != nil {
			return err
		}

		s.audit.Record(ctx, actor, domain.AuditActionDelete, domain.AuditEntityTemplate, st.ID, domain.AuditChanges{Before: st}, "", &st.LocationID)
		return nil
	})
	if err != nil {
		return err
	}

	s.dispatcher.Kick()
	return nil
}
