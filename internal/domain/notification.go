package domain

import "time"

type NotificationType string

const (
	NotificationShiftAssigned     NotificationType = "shift_assigned"
	NotificationShiftUpdated      NotificationType = "shift_updated"
	NotificationShiftCancelled    NotificationType = "shift_cancelled"
	NotificationSchedulePublished NotificationType = "schedule_published"
)

type Notification struct {
	ID          int64            `json:"id"`
	EventID     string           `json:"-"`
	RecipientID int64            `json:"recipientID"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	Read        bool             `json:"read"`
	Metadata    map[string]any   `json:"metadata"`
	CreatedAt   time.Time        `json:"createdAt"`
}
