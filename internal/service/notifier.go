package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

const fallbackLocationName = "所在站点"

var weekdayNames = [...]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// Notifier 把站内通知写入 outbox，投递失败不会影响调用方
type Notifier struct {
	store    Store
	location *time.Location
}

func NewNotifier(store Store, location *time.Location) *Notifier {
	return &Notifier{store: store, location: location}
}

func (n *Notifier) Notify(ctx context.Context, recipientID int64, typ domain.NotificationType, title, message string, metadata map[string]any) {
	n.notifyAll(ctx, []*domain.Notification{{
		RecipientID: recipientID,
		Type:        typ,
		Title:       title,
		Message:     message,
		Metadata:    metadata,
	}})
}

func (n *Notifier) notifyAll(ctx context.Context, notifications []*domain.Notification) {
	events := make([]*domain.Event, 0, len(notifications))
	now := time.Now()
	for _, item := range notifications {
		item.CreatedAt = now
		ev, err := domain.NewNotificationEvent(item)
		if err != nil {
			slog.Error("无法创建通知事件", "recipientID", item.RecipientID, "type", item.Type, "error", err)
			continue
		}
		events = append(events, ev)
	}

	if err := n.store.AppendEvents(ctx, events...); err != nil {
		slog.Error("通知事件写入失败", "count", len(events), "error", err)
	}
}

func (n *Notifier) locationName(ctx context.Context, locationID int64) string {
	location, err := n.store.GetLocationByID(ctx, locationID)
	if err != nil {
		slog.Warn("无法获取站点信息", "locationID", locationID, "error", err)
		return fallbackLocationName
	}
	return location.Name
}

func (n *Notifier) formatDate(t time.Time) string {
	t = t.In(n.location)
	return fmt.Sprintf("%d年%d月%d日（%s）", t.Year(), t.Month(), t.Day(), weekdayNames[t.Weekday()])
}

func (n *Notifier) formatTimeRange(start, end time.Time) string {
	return start.In(n.location).Format("15:04") + " - " + end.In(n.location).Format("15:04")
}

func (n *Notifier) ShiftAssigned(ctx context.Context, shift *domain.Shift) {
	locationName := n.locationName(ctx, shift.LocationID)
	shiftDate := n.formatDate(shift.StartAt)
	shiftTime := n.formatTimeRange(shift.StartAt, shift.EndAt)

	n.Notify(ctx, shift.EmployeeID, domain.NotificationShiftAssigned,
		"新的班次安排",
		fmt.Sprintf("您被安排在%s的班次：%s %s", locationName, shiftDate, shiftTime),
		map[string]any{
			"shiftID":      shift.ID,
			"shiftDate":    shift.StartAt,
			"shiftTime":    shiftTime,
			"locationID":   shift.LocationID,
			"locationName": locationName,
		},
	)
}

// ShiftChanges 记录班次更新中与员工相关的变化
type ShiftChanges struct {
	Employee bool `json:"employee"`
	Time     bool `json:"time"`
	Date     bool `json:"date"`
}

func (n *Notifier) ShiftUpdated(ctx context.Context, shift *domain.Shift, changes ShiftChanges) {
	locationName := n.locationName(ctx, shift.LocationID)

	message := "您的班次已变更"
	switch {
	case changes.Date:
		message = "您的班次日期已调整"
	case changes.Time:
		message = "您的班次时间已调整"
	}

	n.Notify(ctx, shift.EmployeeID, domain.NotificationShiftUpdated,
		"班次变更",
		fmt.Sprintf("%s：%s %s，%s", message, n.formatDate(shift.StartAt), n.formatTimeRange(shift.StartAt, shift.EndAt), locationName),
		map[string]any{
			"shiftID":    shift.ID,
			"shiftDate":  shift.StartAt,
			"changes":    changes,
			"locationID": shift.LocationID,
		},
	)
}

func (n *Notifier) ShiftCancelled(ctx context.Context, shift *domain.Shift) {
	locationName := n.locationName(ctx, shift.LocationID)

	n.Notify(ctx, shift.EmployeeID, domain.NotificationShiftCancelled,
		"班次已取消",
		fmt.Sprintf("您在%s %s 于%s的班次已取消", n.formatDate(shift.StartAt), n.formatTimeRange(shift.StartAt, shift.EndAt), locationName),
		map[string]any{
			"shiftID":    shift.ID,
			"shiftDate":  shift.StartAt,
			"locationID": shift.LocationID,
		},
	)
}

// SchedulePublished 给每个员工发送一条通知，而不是每个班次一条
func (n *Notifier) SchedulePublished(ctx context.Context, employeeIDs []int64, period *domain.SchedulePeriod) {
	if len(employeeIDs) == 0 {
		return
	}

	locationName := n.locationName(ctx, period.LocationID)
	periodText := fmt.Sprintf("%d月%d日 - %d月%d日", period.StartDate.Month(), period.StartDate.Day(), period.EndDate.Month(), period.EndDate.Day())

	notifications := make([]*domain.Notification, 0, len(employeeIDs))
	for _, employeeID := range employeeIDs {
		notifications = append(notifications, &domain.Notification{
			RecipientID: employeeID,
			Type:        domain.NotificationSchedulePublished,
			Title:       "排班已发布",
			Message:     fmt.Sprintf("%s %s 的排班已发布", locationName, periodText),
			Metadata: map[string]any{
				"schedulePeriodID": period.ID,
				"startDate":        period.StartDate,
				"endDate":          period.EndDate,
				"periodText":       periodText,
			},
		})
	}

	n.notifyAll(ctx, notifications)
}
