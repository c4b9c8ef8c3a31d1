package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// InsertAuditLog 以 event_id 去重，重复投递同一个事件不会产生重复记录
func (r *Repository) InsertAuditLog(ctx context.Context, entry *domain.AuditLog) error {
	query := `
		INSERT INTO audit_logs (event_id, actor_id, action, entity_type, entity_id, changes, reason, location_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	changes := string(entry.Changes)
	if changes == "" {
		changes = "{}"
	}

	args := []any{entry.EventID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID, changes, entry.Reason, entry.LocationID, entry.Timestamp}
	if _, err := r.querier(ctx).ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return nil
}

// ListAuditLogs 按时间倒序返回审计日志
func (r *Repository) ListAuditLogs(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	conditions := make([]string, 0)
	args := make([]any, 0)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.LocationID != nil {
		add("location_id = $%d", *filter.LocationID)
	}
	if filter.EntityType != nil {
		add("entity_type = $%d", *filter.EntityType)
	}
	if filter.EntityID != nil {
		add("entity_id = $%d", *filter.EntityID)
	}
	if filter.ActorID != nil {
		add("actor_id = $%d", *filter.ActorID)
	}
	if filter.From != nil {
		add("timestamp >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("timestamp <= $%d", *filter.To)
	}

	query := `SELECT id, event_id, actor_id, action, entity_type, entity_id, changes, reason, location_id, timestamp FROM audit_logs`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY timestamp DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	entries := make([]*domain.AuditLog, 0)
	for rows.Next() {
		entry := &domain.AuditLog{}
		var changes []byte
		var locationID sql.NullInt64

		dst := []any{&entry.ID, &entry.EventID, &entry.ActorID, &entry.Action, &entry.EntityType, &entry.EntityID, &changes, &entry.Reason, &locationID, &entry.Timestamp}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		entry.Changes = changes
		if locationID.Valid {
			entry.LocationID = &locationID.Int64
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
