package service

import (
	"context"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
	"github.com/pumpdesk/shift-manager/backend/internal/scheduler"
)

type ShiftStore interface {
	scheduler.ShiftReader
	CreateShift(ctx context.Context, shift *domain.Shift) error
	GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error)
	GetShiftsByIDs(ctx context.Context, ids []int64) ([]*domain.Shift, error)
	UpdateShift(ctx context.Context, shift *domain.Shift) error
	ListShifts(ctx context.Context, filter domain.ShiftFilter) ([]*domain.Shift, error)
	TransitionShifts(ctx context.Context, ids []int64, from, to domain.ShiftStatus, updatedBy int64) ([]*domain.Shift, error)
	TransitionShiftsInWindow(ctx context.Context, locationID int64, windowFrom, windowTo time.Time, from, to domain.ShiftStatus, updatedBy int64) ([]*domain.Shift, error)
	ListPublishedEmployeeIDs(ctx context.Context, locationID int64, from, to time.Time) ([]int64, error)
}

type PeriodStore interface {
	CreateSchedulePeriod(ctx context.Context, period *domain.SchedulePeriod) error
	GetSchedulePeriodByID(ctx context.Context, id int64) (*domain.SchedulePeriod, error)
	UpdateSchedulePeriod(ctx context.Context, period *domain.SchedulePeriod) error
	CheckSchedulePeriodOverlap(ctx context.Context, locationID int64, start, end domain.Date) (bool, error)
	ListSchedulePeriods(ctx context.Context, filter domain.PeriodFilter) ([]*domain.SchedulePeriod, error)
}

type TemplateStore interface {
	ListShiftTemplates(ctx context.Context, locationID *int64) ([]*domain.ShiftTemplate, error)
	GetShiftTemplateByID(ctx context.Context, id int64) (*domain.ShiftTemplate, error)
	CreateShiftTemplate(ctx context.Context, st *domain.ShiftTemplate) error
	UpdateShiftTemplate(ctx context.Context, st *domain.ShiftTemplate) error
}

type AuditStore interface {
	InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error
	ListAuditLogs(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

type NotificationStore interface {
	// InsertNotification 以 event_id 去重，返回是否真正写入
	InsertNotification(ctx context.Context, n *domain.Notification) (bool, error)
	GetNotificationByID(ctx context.Context, id int64) (*domain.Notification, error)
	ListNotifications(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]*domain.Notification, error)
	CountUnreadNotifications(ctx context.Context, recipientID int64) (int64, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context, recipientID int64) (int64, error)
}

type OutboxStore interface {
	AppendEvents(ctx context.Context, events ...*domain.Event) error
	// ClaimPendingEvents 认领一批待投递的事件，lease 内其他实例不会再认领这些事件
	ClaimPendingEvents(ctx context.Context, limit int, maxAttempts int, lease time.Duration) ([]*domain.Event, error)
	MarkEventDispatched(ctx context.Context, id string) error
	MarkEventFailed(ctx context.Context, id string, reason string) error
}

type RulesStore interface {
	GetSchedulingRules(ctx context.Context, locationID int64) (*domain.SchedulingRules, error)
	UpsertSchedulingRules(ctx context.Context, locationID int64, rules *domain.SchedulingRules, updatedBy int64) error
}

// DirectoryStore 提供员工与站点信息
type DirectoryStore interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	GetLocationByID(ctx context.Context, id int64) (*domain.Location, error)
}

// Store 是 service 依赖的全部持久化能力，由 *repository.Repository 实现
type Store interface {
	ShiftStore
	PeriodStore
	TemplateStore
	AuditStore
	NotificationStore
	OutboxStore
	RulesStore
	DirectoryStore

	// WithinTx 中 fn 收到的 ctx 携带事务，fn 内的所有读写都在同一个事务中
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
