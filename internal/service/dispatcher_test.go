package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	mu       sync.Mutex
	messages []domain.MailMessage
	err      error
}

func (m *fakeMailer) Publish(ctx context.Context, msg domain.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func TestDispatcherDrain(t *testing.T) {
	store := newMemStore()
	seedDirectory(store)
	store.users[employeeA1].Email = "a1@pumpdesk.cn"

	mailer := &fakeMailer{}
	svc, err := New(testConfig(), store, nil, mailer)
	require.NoError(t, err)
	ctx := context.Background()

	svc.Shifts.notifier.Notify(ctx, employeeA1, domain.NotificationShiftAssigned, "新的班次安排", "有邮箱", nil)
	svc.Shifts.notifier.Notify(ctx, employeeA2, domain.NotificationShiftAssigned, "新的班次安排", "没有邮箱", nil)
	svc.Audit.Record(ctx, actorOf(store, managerID), domain.AuditActionCreate, domain.AuditEntityShift, 1, domain.AuditChanges{}, "", ptr(stationA))

	delivered, err := svc.Dispatcher.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)
	assert.Zero(t, store.pendingEvents())
	assert.Len(t, store.audits, 1)
	assert.Len(t, store.notifications, 2)

	require.Len(t, mailer.messages, 1)
	assert.Equal(t, "a1@pumpdesk.cn", mailer.messages[0].To)
	assert.Equal(t, domain.MailTypeShiftNotification, mailer.messages[0].Type)

	// 已投递的事件不会被再次处理
	delivered, err = svc.Dispatcher.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, delivered)
}

func TestDispatcherMailFailureDoesNotBlockDelivery(t *testing.T) {
	store := newMemStore()
	seedDirectory(store)
	store.users[employeeA1].Email = "a1@pumpdesk.cn"

	svc, err := New(testConfig(), store, nil, &fakeMailer{err: errors.New("队列不可用")})
	require.NoError(t, err)
	ctx := context.Background()

	svc.Shifts.notifier.Notify(ctx, employeeA1, domain.NotificationShiftAssigned, "新的班次安排", "内容", nil)

	delivered, err := svc.Dispatcher.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Len(t, store.notifications, 1)
}

func TestDispatcherRetriesFailedEvents(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, store.AppendEvents(ctx, &domain.Event{ID: "unknown-1", Kind: "sms", Payload: []byte(`{}`)}))

	for n, max := 0, testConfig().Outbox.MaxAttempts; n < max; n++ {
		delivered, err := svc.Dispatcher.Drain(ctx)
		require.NoError(t, err)
		assert.Zero(t, delivered)
	}

	ev := store.findEvent("unknown-1")
	require.NotNil(t, ev)
	assert.Equal(t, int32(3), ev.Attempts)
	assert.Contains(t, ev.LastError, "sms")

	// 超过最大重试次数后不再处理
	events, err := store.ClaimPendingEvents(ctx, 10, testConfig().Outbox.MaxAttempts, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDispatcherIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	svc.Audit.Record(ctx, actorOf(store, managerID), domain.AuditActionCreate, domain.AuditEntityShift, 1, domain.AuditChanges{}, "", ptr(stationA))
	_, err := svc.Dispatcher.Drain(ctx)
	require.NoError(t, err)

	// 模拟标记失败后同一事件被再次投递
	store.events[0].DispatchedAt = nil
	_, err = svc.Dispatcher.Drain(ctx)
	require.NoError(t, err)

	assert.Len(t, store.audits, 1)
}

func TestDispatcherSkipsClaimedEvents(t *testing.T) {
	store := newMemStore()
	seedDirectory(store)
	store.users[employeeA1].Email = "a1@pumpdesk.cn"
	ctx := context.Background()

	mailers := []*fakeMailer{{}, {}}
	replicas := make([]*Service, 0, len(mailers))
	for _, mailer := range mailers {
		svc, err := New(testConfig(), store, nil, mailer)
		require.NoError(t, err)
		replicas = append(replicas, svc)
	}

	for n := 0; n < 20; n++ {
		replicas[0].Shifts.notifier.Notify(ctx, employeeA1, domain.NotificationShiftAssigned, "新的班次安排", "内容", nil)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0
	for _, svc := range replicas {
		svc := svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			delivered, err := svc.Dispatcher.Drain(ctx)
			assert.NoError(t, err)
			mu.Lock()
			total += delivered
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, total)
	assert.Len(t, store.notifications, 20)
	assert.Equal(t, 20, len(mailers[0].messages)+len(mailers[1].messages))

	t.Run("认领期内的事件不会被其他实例处理", func(t *testing.T) {
		replicas[0].Shifts.notifier.Notify(ctx, employeeA1, domain.NotificationShiftAssigned, "新的班次安排", "内容", nil)

		claimed, err := store.ClaimPendingEvents(ctx, 10, testConfig().Outbox.MaxAttempts, time.Minute)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		delivered, err := replicas[1].Dispatcher.Drain(ctx)
		require.NoError(t, err)
		assert.Zero(t, delivered)
		assert.Equal(t, 1, store.pendingEvents())
	})
}

func TestDispatcherRedeliveryDoesNotResendMail(t *testing.T) {
	store := newMemStore()
	seedDirectory(store)
	store.users[employeeA1].Email = "a1@pumpdesk.cn"

	mailer := &fakeMailer{}
	svc, err := New(testConfig(), store, nil, mailer)
	require.NoError(t, err)
	ctx := context.Background()

	svc.Shifts.notifier.Notify(ctx, employeeA1, domain.NotificationShiftAssigned, "新的班次安排", "内容", nil)
	_, err = svc.Dispatcher.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, mailer.messages, 1)

	// 通知已写入但事件没有被标记为已投递
	store.events[0].DispatchedAt = nil
	delivered, err := svc.Dispatcher.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	assert.Len(t, store.notifications, 1)
	assert.Len(t, mailer.messages, 1)
}
