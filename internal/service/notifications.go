package service

import (
	"context"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

type NotificationService struct {
	*base
}

type NotificationList struct {
	Notifications []*domain.Notification `json:"notifications"`
	UnreadCount   int64                  `json:"unreadCount"`
}

func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) (*NotificationList, error) {
	limit = clampLimit(limit, s.cfg.Query.DefaultNotificationLimit, s.cfg.Query.MaxLimit)

	notifications, err := s.store.ListNotifications(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &NotificationList{Notifications: notifications, UnreadCount: count}, nil
}

// MarkRead 只有通知的接收者可以把它标记为已读
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) (*domain.Notification, error) {
	n, err := s.store.GetNotificationByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "通知", id)
	}
	if n.RecipientID != userID {
		return nil, domain.NewForbiddenError("无权操作他人的通知")
	}

	if !n.Read {
		if err := s.store.MarkNotificationRead(ctx, id); err != nil {
			return nil, err
		}
		n.Read = true
	}

	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.CountUnreadNotifications(ctx, userID)
}
