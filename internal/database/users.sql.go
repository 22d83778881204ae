package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, full_name, email, hashed_password, role, shift, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.FullName,
		&i.Email,
		&i.HashedPassword,
		&i.Role,
		&i.Shift,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = true`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND is_active = true`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const createUser = `
INSERT INTO users (full_name, email, hashed_password, role, shift)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns

type CreateUserParams struct {
	FullName       string
	Email          string
	HashedPassword string
	Role           string
	Shift          pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, createUser,
		arg.FullName,
		arg.Email,
		arg.HashedPassword,
		arg.Role,
		arg.Shift,
	))
}

const listActiveUsersByShift = `
SELECT ` + userColumns + ` FROM users
WHERE is_active = true
  AND shift = $1
  AND (cardinality($2::text[]) = 0 OR role = ANY($2::text[]))
ORDER BY created_at, id`

type ListActiveUsersByShiftParams struct {
	Shift string
	Roles []string
}

func (q *Queries) ListActiveUsersByShift(ctx context.Context, arg ListActiveUsersByShiftParams) ([]User, error) {
	roles := arg.Roles
	if roles == nil {
		roles = []string{}
	}
	rows, err := q.db.Query(ctx, listActiveUsersByShift, arg.Shift, roles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const updateUserShift = `
UPDATE users SET shift = $2, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING ` + userColumns

type UpdateUserShiftParams struct {
	ID    uuid.UUID
	Shift pgtype.Text
}

func (q *Queries) UpdateUserShift(ctx context.Context, arg UpdateUserShiftParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUserShift, arg.ID, arg.Shift))
}

const deactivateUser = `
UPDATE users SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id`

// DeactivateUser soft-deletes a user. Their history keeps pointing at them.
func (q *Queries) DeactivateUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, deactivateUser, id).Scan(&out)
	return out, err
}
