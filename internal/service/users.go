package service

import (
	"context"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

type UserService struct {
	*base
}

// UpdateUserInput 中为 nil 的字段保持不变
type UpdateUserInput struct {
	FullName   *string
	Email      *string
	Role       *domain.Role
	JobTitle   *string
	LocationID *int64
	IsActive   *bool
}

func (s *UserService) GetUser(ctx context.Context, actor domain.Actor, id int64) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "用户", id)
	}
	if actor.Role != domain.RoleAdmin {
		if user.LocationID == nil {
			return nil, domain.NewForbiddenError("无权访问其他站点的数据")
		}
		if err := s.policy.CheckLocation(actor, *user.LocationID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, actor domain.Actor, id int64, input UpdateUserInput) (*domain.User, error) {
	return s.update(ctx, actor, id, input, domain.AuditActionUpdate, "")
}

// DeactivateUser 停用账号，用户及其历史班次保留，之后不能再被排班
func (s *UserService) DeactivateUser(ctx context.Context, actor domain.Actor, id int64, reason string) (*domain.User, error) {
	inactive := false
	return s.update(ctx, actor, id, UpdateUserInput{IsActive: &inactive}, domain.AuditActionDelete, reason)
}

func (s *UserService) update(ctx context.Context, actor domain.Actor, id int64, input UpdateUserInput, action domain.AuditAction, reason string) (*domain.User, error) {
	var result *domain.User

	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.store.GetUserByID(ctx, id)
		if err != nil {
			return notFound(err, "用户", id)
		}

		if err := s.policy.CheckUserChange(actor, user, input.Role, input.LocationID, input.IsActive); err != nil {
			return err
		}

		before := *user
		patched := *user
		if input.FullName != nil {
			patched.FullName = *input.FullName
		}
		if input.Email != nil {
			patched.Email = *input.Email
		}
		if input.Role != nil {
			patched.Role = *input.Role
		}
		if input.JobTitle != nil {
			patched.JobTitle = *input.JobTitle
		}
		if input.LocationID != nil {
			if _, err := s.store.GetLocationByID(ctx, *input.LocationID); err != nil {
				return notFound(err, "站点", *input.LocationID)
			}
			patched.LocationID = input.LocationID
		}
		if input.IsActive != nil {
			patched.IsActive = *input.IsActive
		}

		if patched.Role != domain.RoleAdmin && patched.LocationID == nil {
			return domain.NewValidationError("除管理员外的用户必须属于一个站点")
		}

		if err := s.store.UpdateUser(ctx, &patched); err != nil {
			return err
		}

		s.audit.Record(ctx, actor, action, domain.AuditEntityUser, patched.ID, domain.AuditChanges{Before: before, After: patched}, reason, patched.LocationID)

		result = &patched
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Kick()
	return result, nil
}
