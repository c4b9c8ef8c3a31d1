package repository

import (
	"context"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// GetSchedulingRules 查询站点自定义的排班规则，未配置时返回 ErrRecordNotFound
func (r *Repository) GetSchedulingRules(ctx context.Context, locationID int64) (*domain.SchedulingRules, error) {
	query := `
		SELECT strict_mode, max_hours_per_day, max_hours_per_week, min_rest_gap_hours
		FROM location_scheduling_rules
		WHERE location_id = $1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rules := &domain.SchedulingRules{}
	dst := []any{&rules.StrictMode, &rules.MaxHoursPerDay, &rules.MaxHoursPerWeek, &rules.MinRestGapHours}
	if err := r.querier(ctx).QueryRowContext(ctx, query, locationID).Scan(dst...); err != nil {
		return nil, mapError(err)
	}

	return rules, nil
}

func (r *Repository) UpsertSchedulingRules(ctx context.Context, locationID int64, rules *domain.SchedulingRules, updatedBy int64) error {
	query := `
		INSERT INTO location_scheduling_rules (location_id, strict_mode, max_hours_per_day, max_hours_per_week, min_rest_gap_hours, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (location_id) DO UPDATE SET
			strict_mode = EXCLUDED.strict_mode,
			max_hours_per_day = EXCLUDED.max_hours_per_day,
			max_hours_per_week = EXCLUDED.max_hours_per_week,
			min_rest_gap_hours = EXCLUDED.min_rest_gap_hours,
			updated_by = EXCLUDED.updated_by,
			updated_at = NOW()
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{locationID, rules.StrictMode, rules.MaxHoursPerDay, rules.MaxHoursPerWeek, rules.MinRestGapHours, updatedBy}
	if _, err := r.querier(ctx).ExecContext(ctx, query, args...); err != nil {
		return mapError(err)
	}

	return nil
}
