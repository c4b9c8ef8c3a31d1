package repository

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

const templateSelect = `
	SELECT
		st.id,
		st.location_id,
		st.name,
		st.description,
		st.start_time,
		st.end_time,
		st.role_required,
		st.break_minutes,
		st.recurrence_type,
		st.is_active,
		st.created_by,
		st.created_at,
		st.version,
		stw.weekday
	FROM shift_templates st
	LEFT JOIN shift_template_weekdays stw ON st.id = stw.template_id
`

// scanTemplates 把 LEFT JOIN 的结果按模板聚合，保持查询结果中模板的顺序
func scanTemplates(rows *sql.Rows) ([]*domain.ShiftTemplate, error) {
	templatesMap := make(map[int64]*domain.ShiftTemplate)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			Template domain.ShiftTemplate
			Weekday  sql.NullInt32
		}

		dst := []any{
			&row.Template.ID,
			&row.Template.LocationID,
			&row.Template.Name,
			&row.Template.Description,
			&row.Template.StartTime,
			&row.Template.EndTime,
			&row.Template.RoleRequired,
			&row.Template.BreakMinutes,
			&row.Template.Recurrence.Type,
			&row.Template.IsActive,
			&row.Template.CreatedBy,
			&row.Template.CreatedAt,
			&row.Template.Version,
			&row.Weekday,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		st, exists := templatesMap[row.Template.ID]
		if !exists {
			// 说明此时是第一次查到这个模板，需要在 map 中初始化这个模板
			st = &row.Template
			st.Recurrence.Weekdays = make([]int, 0)
			templatesMap[st.ID] = st
			order = append(order, st.ID)
		}

		// 如果 weekday 为空，则表示这个模板没有指定星期
		if !row.Weekday.Valid {
			continue
		}

		st.Recurrence.Weekdays = append(st.Recurrence.Weekdays, int(row.Weekday.Int32))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	templates := make([]*domain.ShiftTemplate, 0, len(order))
	for _, id := range order {
		st := templatesMap[id]
		sort.Ints(st.Recurrence.Weekdays)
		templates = append(templates, st)
	}

	return templates, nil
}

func (r *Repository) ListShiftTemplates(ctx context.Context, locationID *int64) ([]*domain.ShiftTemplate, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := templateSelect + `
		WHERE st.is_active AND ($1::BIGINT IS NULL OR st.location_id = $1)
		ORDER BY st.id, stw.weekday
	`

	rows, err := r.querier(ctx).QueryContext(ctx, query, locationID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return scanTemplates(rows)
}

func (r *Repository) GetShiftTemplateByID(ctx context.Context, id int64) (*domain.ShiftTemplate, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := templateSelect + `
		WHERE st.id = $1
		ORDER BY stw.weekday
	`

	rows, err := r.querier(ctx).QueryContext(ctx, query, id)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	templates, err := scanTemplates(rows)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	return templates[0], nil
}

func (r *Repository) CreateShiftTemplate(ctx context.Context, st *domain.ShiftTemplate) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		tx := r.querier(ctx)

		query := `
			INSERT INTO shift_templates (location_id, name, description, start_time, end_time, role_required, break_minutes, recurrence_type, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, is_active, created_at, version
		`
		params := []any{st.LocationID, st.Name, st.Description, st.StartTime, st.EndTime, st.RoleRequired, st.BreakMinutes, st.Recurrence.Type, st.CreatedBy}
		if err := tx.QueryRowContext(ctx, query, params...).Scan(&st.ID, &st.IsActive, &st.CreatedAt, &st.Version); err != nil {
			return err
		}

		return r.insertTemplateWeekdays(ctx, st)
	})
}

func (r *Repository) insertTemplateWeekdays(ctx context.Context, st *domain.ShiftTemplate) error {
	tx := r.querier(ctx)

	for _, day := range st.Recurrence.Weekdays {
		query := `
			INSERT INTO shift_template_weekdays (template_id, weekday)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, st.ID, day); err != nil {
			return err
		}
	}

	return nil
}

// UpdateShiftTemplate 更新模板并整体替换星期集合
func (r *Repository) UpdateShiftTemplate(ctx context.Context, st *domain.ShiftTemplate) error {
	return r.WithinTx(ctx, func(ctx context.Context) error {
		tx := r.querier(ctx)

		query := `
			UPDATE shift_templates
			SET
				name = $1,
				description = $2,
				start_time = $3,
				end_time = $4,
				role_required = $5,
				break_minutes = $6,
				recurrence_type = $7,
				is_active = $8,
				version = version + 1
			WHERE id = $9 AND version = $10
			RETURNING version
		`
		params := []any{st.Name, st.Description, st.StartTime, st.EndTime, st.RoleRequired, st.BreakMinutes, st.Recurrence.Type, st.IsActive, st.ID, st.Version}
		if err := tx.QueryRowContext(ctx, query, params...).Scan(&st.Version); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errVersionMismatch
			}
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM shift_template_weekdays WHERE template_id = $1`, st.ID); err != nil {
			return err
		}

		return r.insertTemplateWeekdays(ctx, st)
	})
}
