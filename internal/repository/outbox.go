package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// AppendEvents 把副作用事件写入 outbox
// 在事务中调用时使用 SAVEPOINT 包裹，写入失败不会导致外层事务中止
func (r *Repository) AppendEvents(ctx context.Context, events ...*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	q := r.querier(ctx)
	inTx := r.inTx(ctx)

	if inTx {
		if _, err := q.ExecContext(ctx, `SAVEPOINT outbox_append`); err != nil {
			return err
		}
	}

	err := r.insertEvents(ctx, q, events)
	if !inTx {
		return err
	}

	if err != nil {
		if _, rbErr := q.ExecContext(ctx, `ROLLBACK TO SAVEPOINT outbox_append`); rbErr != nil {
			slog.Error("回滚 outbox 保存点失败", "error", rbErr)
		}
		return err
	}

	if _, err := q.ExecContext(ctx, `RELEASE SAVEPOINT outbox_append`); err != nil {
		return err
	}

	return nil
}

func (r *Repository) insertEvents(ctx context.Context, q querier, events []*domain.Event) error {
	query := `
		INSERT INTO outbox_events (id, kind, payload)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`

	for _, ev := range events {
		if err := q.QueryRowContext(ctx, query, ev.ID, ev.Kind, string(ev.Payload)).Scan(&ev.CreatedAt); err != nil {
			return fmt.Errorf("写入 outbox 事件 %s 失败: %w", ev.ID, err)
		}
	}

	return nil
}

// ClaimPendingEvents 认领尚未投递且重试次数未超限的事件，按写入顺序返回
// 被其他实例锁住或仍在认领期内的事件会被跳过
func (r *Repository) ClaimPendingEvents(ctx context.Context, limit int, maxAttempts int, lease time.Duration) ([]*domain.Event, error) {
	query := `
		UPDATE outbox_events
		SET claimed_until = NOW() + make_interval(secs => $3)
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE dispatched_at IS NULL
				AND attempts < $1
				AND (claimed_until IS NULL OR claimed_until < NOW())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, kind, payload, attempts, last_error, created_at, dispatched_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.querier(ctx).QueryContext(ctx, query, maxAttempts, limit, lease.Seconds())
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		ev := &domain.Event{}
		var payload []byte
		var dispatchedAt sql.NullTime

		if err := rows.Scan(&ev.ID, &ev.Kind, &payload, &ev.Attempts, &ev.LastError, &ev.CreatedAt, &dispatchedAt); err != nil {
			return nil, err
		}

		ev.Payload = payload
		if dispatchedAt.Valid {
			ev.DispatchedAt = &dispatchedAt.Time
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING 不保证顺序
	slices.SortStableFunc(events, func(a, b *domain.Event) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return events, nil
}

func (r *Repository) MarkEventDispatched(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.querier(ctx).ExecContext(ctx, `UPDATE outbox_events SET dispatched_at = NOW(), claimed_until = NULL WHERE id = $1`, id)
	return err
}

func (r *Repository) MarkEventFailed(ctx context.Context, id string, reason string) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `UPDATE outbox_events SET attempts = attempts + 1, last_error = $2, claimed_until = NULL WHERE id = $1`
	_, err := r.querier(ctx).ExecContext(ctx, query, id, reason)
	return err
}
