package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

const periodColumns = `id, location_id, start_date, end_date, status, published_at, published_by, created_by, created_at, version`

func scanPeriod(row interface{ Scan(dest ...any) error }) (*domain.SchedulePeriod, error) {
	period := &domain.SchedulePeriod{}
	var publishedAt sql.NullTime
	var publishedBy sql.NullInt64

	dst := []any{
		&period.ID,
		&period.LocationID,
		&period.StartDate,
		&period.EndDate,
		&period.Status,
		&publishedAt,
		&publishedBy,
		&period.CreatedBy,
		&period.CreatedAt,
		&period.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if publishedAt.Valid {
		period.PublishedAt = &publishedAt.Time
	}
	if publishedBy.Valid {
		period.PublishedBy = &publishedBy.Int64
	}

	return period, nil
}

func (r *Repository) CreateSchedulePeriod(ctx context.Context, period *domain.SchedulePeriod) error {
	query := `
		INSERT INTO schedule_periods (location_id, start_date, end_date, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{period.LocationID, period.StartDate, period.EndDate, period.Status, period.CreatedBy}
	if err := r.querier(ctx).QueryRowContext(ctx, query, args...).Scan(&period.ID, &period.CreatedAt, &period.Version); err != nil {
		return mapError(err)
	}

	return nil
}

func (r *Repository) GetSchedulePeriodByID(ctx context.Context, id int64) (*domain.SchedulePeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM schedule_periods WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	period, err := scanPeriod(r.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}

	return period, nil
}

// UpdateSchedulePeriod 只更新发布相关的字段
func (r *Repository) UpdateSchedulePeriod(ctx context.Context, period *domain.SchedulePeriod) error {
	query := `
		UPDATE schedule_periods
		SET
			status = $1,
			published_at = $2,
			published_by = $3,
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	params := []any{period.Status, period.PublishedAt, period.PublishedBy, period.ID, period.Version}
	if err := r.querier(ctx).QueryRowContext(ctx, query, params...).Scan(&period.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errVersionMismatch
		}
		return mapError(err)
	}

	return nil
}

// CheckSchedulePeriodOverlap 检查同一站点是否存在与 [start, end] 重叠的周期
func (r *Repository) CheckSchedulePeriodOverlap(ctx context.Context, locationID int64, start, end domain.Date) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM schedule_periods
			WHERE location_id = $1 AND start_date <= $3 AND end_date >= $2
		)
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	isExists := false
	if err := r.querier(ctx).QueryRowContext(ctx, query, locationID, start, end).Scan(&isExists); err != nil {
		return false, mapError(err)
	}

	return isExists, nil
}

func (r *Repository) ListSchedulePeriods(ctx context.Context, filter domain.PeriodFilter) ([]*domain.SchedulePeriod, error) {
	conditions := make([]string, 0)
	args := make([]any, 0)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.LocationID != nil {
		add("location_id = $%d", *filter.LocationID)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.From != nil {
		add("start_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("start_date <= $%d", *filter.To)
	}

	query := `SELECT ` + periodColumns + ` FROM schedule_periods`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY start_date DESC, id DESC`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	periods := make([]*domain.SchedulePeriod, 0)
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return periods, nil
}
