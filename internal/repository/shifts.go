package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

const shiftColumns = `
	id, location_id, employee_id, role_required, start_at, end_at, break_minutes, status,
	notes, change_reason, created_by, updated_by, is_active, created_at, updated_at, version
`

func scanShift(row interface{ Scan(dest ...any) error }) (*domain.Shift, error) {
	shift := &domain.Shift{}
	var updatedBy sql.NullInt64

	dst := []any{
		&shift.ID,
		&shift.LocationID,
		&shift.EmployeeID,
		&shift.RoleRequired,
		&shift.StartAt,
		&shift.EndAt,
		&shift.BreakMinutes,
		&shift.Status,
		&shift.Notes,
		&shift.ChangeReason,
		&shift.CreatedBy,
		&updatedBy,
		&shift.IsActive,
		&shift.CreatedAt,
		&shift.UpdatedAt,
		&shift.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if updatedBy.Valid {
		shift.UpdatedBy = &updatedBy.Int64
	}

	return shift, nil
}

func (r *Repository) queryShifts(ctx context.Context, query string, args ...any) ([]*domain.Shift, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	shifts := make([]*domain.Shift, 0)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

func (r *Repository) CreateShift(ctx context.Context, shift *domain.Shift) error {
	query := `
		INSERT INTO shifts (location_id, employee_id, role_required, start_at, end_at, break_minutes, status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, is_active, created_at, updated_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{shift.LocationID, shift.EmployeeID, shift.RoleRequired, shift.StartAt, shift.EndAt, shift.BreakMinutes, shift.Status, shift.Notes, shift.CreatedBy}
	dst := []any{&shift.ID, &shift.IsActive, &shift.CreatedAt, &shift.UpdatedAt, &shift.Version}
	if err := r.querier(ctx).QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return mapError(err)
	}

	return nil
}

func (r *Repository) GetShiftByID(ctx context.Context, id int64) (*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	shift, err := scanShift(r.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}

	return shift, nil
}

// GetShiftsByIDs 只返回有效的班次
func (r *Repository) GetShiftsByIDs(ctx context.Context, ids []int64) ([]*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = ANY($1) AND is_active ORDER BY start_at`
	return r.queryShifts(ctx, query, ids)
}

// UpdateShift 使用乐观锁更新班次
func (r *Repository) UpdateShift(ctx context.Context, shift *domain.Shift) error {
	query := `
		UPDATE shifts
		SET
			employee_id = $1,
			role_required = $2,
			start_at = $3,
			end_at = $4,
			break_minutes = $5,
			status = $6,
			notes = $7,
			change_reason = $8,
			updated_by = $9,
			is_active = $10,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $11 AND version = $12
		RETURNING updated_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{
		shift.EmployeeID,
		shift.RoleRequired,
		shift.StartAt,
		shift.EndAt,
		shift.BreakMinutes,
		shift.Status,
		shift.Notes,
		shift.ChangeReason,
		shift.UpdatedBy,
		shift.IsActive,
		shift.ID,
		shift.Version,
	}
	if err := r.querier(ctx).QueryRowContext(ctx, query, args...).Scan(&shift.UpdatedAt, &shift.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errVersionMismatch
		}
		return mapError(err)
	}

	return nil
}

// ListShifts 根据过滤条件查询班次，时间条件按照班次开始时间过滤
func (r *Repository) ListShifts(ctx context.Context, filter domain.ShiftFilter) ([]*domain.Shift, error) {
	conditions := make([]string, 0)
	args := make([]any, 0)

	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if filter.LocationID != nil {
		add("location_id = $%d", *filter.LocationID)
	}
	if filter.EmployeeID != nil {
		add("employee_id = $%d", *filter.EmployeeID)
	}
	if filter.From != nil {
		add("start_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("start_at < $%d", *filter.To)
	}
	if filter.Status != nil {
		add("status = $%d", *filter.Status)
	}
	if filter.RoleRequired != nil {
		add("role_required = $%d", *filter.RoleRequired)
	}
	if !filter.IncludeInactive {
		conditions = append(conditions, "is_active")
	}

	query := `SELECT ` + shiftColumns + ` FROM shifts`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY start_at, id`

	return r.queryShifts(ctx, query, args...)
}

func (r *Repository) ListEmployeeShifts(ctx context.Context, employeeID int64, from, to time.Time, excludeID int64) ([]*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + ` FROM shifts
		WHERE employee_id = $1
			AND is_active
			AND status <> 'cancelled'
			AND start_at < $3
			AND end_at > $2
			AND id <> $4
		ORDER BY start_at
	`
	return r.queryShifts(ctx, query, employeeID, from, to, excludeID)
}

func (r *Repository) GetPreviousShift(ctx context.Context, employeeID int64, before time.Time, excludeID int64) (*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + ` FROM shifts
		WHERE employee_id = $1 AND is_active AND status <> 'cancelled' AND end_at <= $2 AND id <> $3
		ORDER BY end_at DESC
		LIMIT 1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	shift, err := scanShift(r.querier(ctx).QueryRowContext(ctx, query, employeeID, before, excludeID))
	if err != nil {
		return nil, mapError(err)
	}

	return shift, nil
}

func (r *Repository) GetNextShift(ctx context.Context, employeeID int64, after time.Time, excludeID int64) (*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + ` FROM shifts
		WHERE employee_id = $1 AND is_active AND status <> 'cancelled' AND start_at >= $2 AND id <> $3
		ORDER BY start_at ASC
		LIMIT 1
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	shift, err := scanShift(r.querier(ctx).QueryRowContext(ctx, query, employeeID, after, excludeID))
	if err != nil {
		return nil, mapError(err)
	}

	return shift, nil
}

// TransitionShifts 把指定班次从 from 状态批量改为 to 状态，返回实际被修改的班次
func (r *Repository) TransitionShifts(ctx context.Context, ids []int64, from, to domain.ShiftStatus, updatedBy int64) ([]*domain.Shift, error) {
	query := `
		UPDATE shifts
		SET status = $1, updated_by = $2, updated_at = NOW(), version = version + 1
		WHERE id = ANY($3) AND status = $4 AND is_active
		RETURNING ` + shiftColumns

	return r.queryShifts(ctx, query, to, updatedBy, ids, from)
}

// TransitionShiftsInWindow 把某站点开始时间落在 [from, to) 内的班次批量改变状态
func (r *Repository) TransitionShiftsInWindow(ctx context.Context, locationID int64, windowFrom, windowTo time.Time, from, to domain.ShiftStatus, updatedBy int64) ([]*domain.Shift, error) {
	query := `
		UPDATE shifts
		SET status = $1, updated_by = $2, updated_at = NOW(), version = version + 1
		WHERE location_id = $3
			AND start_at >= $4
			AND start_at < $5
			AND status = $6
			AND is_active
		RETURNING ` + shiftColumns

	return r.queryShifts(ctx, query, to, updatedBy, locationID, windowFrom, windowTo, from)
}

// ListPublishedEmployeeIDs 返回某站点在 [from, to) 内有已发布班次的员工
func (r *Repository) ListPublishedEmployeeIDs(ctx context.Context, locationID int64, from, to time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT employee_id FROM shifts
		WHERE location_id = $1 AND start_at >= $2 AND start_at < $3 AND status = 'published' AND is_active
		ORDER BY employee_id
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.querier(ctx).QueryContext(ctx, query, locationID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
