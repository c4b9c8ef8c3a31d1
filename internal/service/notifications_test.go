package service

import (
	"context"
	"testing"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifications(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Shifts.notifier.Notify(ctx, employeeA1, domain.NotificationShiftAssigned, "新的班次安排", "第一条", nil)
	svc.Shifts.notifier.Notify(ctx, employeeA1, domain.NotificationShiftUpdated, "班次变更", "第二条", nil)
	svc.Shifts.notifier.Notify(ctx, employeeA2, domain.NotificationShiftAssigned, "新的班次安排", "其他人", nil)
	drain(t, svc)

	list, err := svc.Notifications.List(ctx, employeeA1, false, 0)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, int64(2), list.UnreadCount)

	first := list.Notifications[0]

	t.Run("不能标记他人的通知", func(t *testing.T) {
		_, err := svc.Notifications.MarkRead(ctx, employeeA2, first.ID)
		var forbiddenErr *domain.ForbiddenError
		require.ErrorAs(t, err, &forbiddenErr)
	})

	t.Run("通知不存在", func(t *testing.T) {
		_, err := svc.Notifications.MarkRead(ctx, employeeA1, 404)
		var notFoundErr *domain.NotFoundError
		require.ErrorAs(t, err, &notFoundErr)
	})

	t.Run("标记为已读", func(t *testing.T) {
		n, err := svc.Notifications.MarkRead(ctx, employeeA1, first.ID)
		require.NoError(t, err)
		assert.True(t, n.Read)

		count, err := svc.Notifications.UnreadCount(ctx, employeeA1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		unread, err := svc.Notifications.List(ctx, employeeA1, true, 0)
		require.NoError(t, err)
		assert.Len(t, unread.Notifications, 1)
	})

	t.Run("全部标记为已读", func(t *testing.T) {
		marked, err := svc.Notifications.MarkAllRead(ctx, employeeA1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), marked)

		count, err := svc.Notifications.UnreadCount(ctx, employeeA2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestNotifierFallsBackWhenLocationMissing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	shift := &domain.Shift{
		ID:         1,
		LocationID: 99,
		EmployeeID: employeeA1,
		StartAt:    at(2025, 1, 6, 9, 0),
		EndAt:      at(2025, 1, 6, 17, 0),
	}
	svc.Shifts.notifier.ShiftAssigned(ctx, shift)
	drain(t, svc)

	notifications := store.notificationsOf(domain.NotificationShiftAssigned)
	require.Len(t, notifications, 1)
	assert.Equal(t, "您被安排在所在站点的班次：2025年1月6日（周一） 09:00 - 17:00", notifications[0].Message)
}
