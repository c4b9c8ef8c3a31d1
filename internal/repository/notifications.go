package repository

import (
	"context"
	"encoding/json"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

const notificationColumns = `id, event_id, recipient_id, type, title, message, read, metadata, created_at`

func scanNotification(row interface{ Scan(dest ...any) error }) (*domain.Notification, error) {
	n := &domain.Notification{}
	var metadata []byte

	dst := []any{&n.ID, &n.EventID, &n.RecipientID, &n.Type, &n.Title, &n.Message, &n.Read, &metadata, &n.CreatedAt}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	n.Metadata = make(map[string]any)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, err
		}
	}

	return n, nil
}

// InsertNotification 以 event_id 去重
func (r *Repository) InsertNotification(ctx context.Context, n *domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (event_id, recipient_id, type, title, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO NOTHING
	`

	metadata, err := json.Marshal(n.Metadata)
	if err != nil {
		return false, err
	}
	if n.Metadata == nil {
		metadata = []byte("{}")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{n.EventID, n.RecipientID, n.Type, n.Title, n.Message, string(metadata), n.CreatedAt}
	result, err := r.querier(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

func (r *Repository) GetNotificationByID(ctx context.Context, id int64) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	n, err := scanNotification(r.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}

	return n, nil
}

func (r *Repository) ListNotifications(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + ` FROM notifications
		WHERE recipient_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.querier(ctx).QueryContext(ctx, query, recipientID, unreadOnly, limit)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *Repository) CountUnreadNotifications(ctx context.Context, recipientID int64) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read`
	if err := r.querier(ctx).QueryRowContext(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.querier(ctx).ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	return err
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, recipientID int64) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	result, err := r.querier(ctx).ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND NOT read`, recipientID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
