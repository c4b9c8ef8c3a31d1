package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

const userColumns = `id, username, password_hash, full_name, email, role, job_title, location_id, is_active, created_at, version`

func scanUser(row interface{ Scan(dest ...any) error }) (*domain.User, error) {
	user := &domain.User{}
	var locationID sql.NullInt64

	dst := []any{&user.ID, &user.Username, &user.PasswordHash, &user.FullName, &user.Email, &user.Role, &user.JobTitle, &locationID, &user.IsActive, &user.CreatedAt, &user.Version}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if locationID.Valid {
		user.LocationID = &locationID.Int64
	}

	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	user, err := scanUser(r.querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	user, err := scanUser(r.querier(ctx).QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, mapError(err)
	}

	return user, nil
}

func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE users
		SET
			password_hash = $1,
			full_name = $2,
			email = $3,
			role = $4,
			job_title = $5,
			location_id = $6,
			is_active = $7,
			version = version + 1
		WHERE id = $8 AND version = $9
		RETURNING username, created_at, version
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	args := []any{user.PasswordHash, user.FullName, user.Email, user.Role, user.JobTitle, user.LocationID, user.IsActive, user.ID, user.Version}
	dst := []any{&user.Username, &user.CreatedAt, &user.Version}
	if err := r.querier(ctx).QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errVersionMismatch
		}
		return mapError(err)
	}

	return nil
}

// ListUsers 返回用户列表，locationID 不为空时只返回该站点的用户
func (r *Repository) ListUsers(ctx context.Context, locationID *int64) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE ($1::BIGINT IS NULL OR location_id = $1)
		ORDER BY id
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.querier(ctx).QueryContext(ctx, query, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO users (username, password_hash, full_name, email, role, job_title, location_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, is_active, created_at, version
	`

	args := []any{user.Username, user.PasswordHash, user.FullName, user.Email, user.Role, user.JobTitle, user.LocationID}
	if err := r.querier(ctx).QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetLocationByID(ctx context.Context, id int64) (*domain.Location, error) {
	query := `SELECT name, code, created_at FROM locations WHERE id = $1`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	location := &domain.Location{ID: id}
	if err := r.querier(ctx).QueryRowContext(ctx, query, id).Scan(&location.Name, &location.Code, &location.CreatedAt); err != nil {
		return nil, mapError(err)
	}

	return location, nil
}

func (r *Repository) ListLocations(ctx context.Context) ([]*domain.Location, error) {
	query := `SELECT id, name, code, created_at FROM locations ORDER BY id`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.querier(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]*domain.Location, 0)
	for rows.Next() {
		location := &domain.Location{}
		if err := rows.Scan(&location.ID, &location.Name, &location.Code, &location.CreatedAt); err != nil {
			return nil, err
		}
		locations = append(locations, location)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return locations, nil
}

func (r *Repository) CreateLocation(ctx context.Context, location *domain.Location) error {
	query := `
		INSERT INTO locations (name, code)
		VALUES ($1, $2)
		RETURNING id, created_at
	`

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.querier(ctx).QueryRowContext(ctx, query, location.Name, location.Code).Scan(&location.ID, &location.CreatedAt)
}
