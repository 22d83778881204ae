package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const assignmentColumns = `id, kind, staff_id, table_id, order_id, is_active, assigned_at, released_at`

func scanAssignment(row pgx.Row) (StaffAssignment, error) {
	var i StaffAssignment
	err := row.Scan(
		&i.ID,
		&i.Kind,
		&i.StaffID,
		&i.TableID,
		&i.OrderID,
		&i.IsActive,
		&i.AssignedAt,
		&i.ReleasedAt,
	)
	return i, err
}

const getActiveTableAssignment = `
SELECT ` + assignmentColumns + ` FROM staff_assignments
WHERE kind = 'table' AND table_id = $1 AND is_active = true`

func (q *Queries) GetActiveTableAssignment(ctx context.Context, tableID int32) (StaffAssignment, error) {
	return scanAssignment(q.db.QueryRow(ctx, getActiveTableAssignment, tableID))
}

const getActiveOrderAssignment = `
SELECT ` + assignmentColumns + ` FROM staff_assignments
WHERE kind = 'order' AND order_id = $1 AND is_active = true`

func (q *Queries) GetActiveOrderAssignment(ctx context.Context, orderID uuid.UUID) (StaffAssignment, error) {
	return scanAssignment(q.db.QueryRow(ctx, getActiveOrderAssignment, orderID))
}

const createStaffAssignment = `
INSERT INTO staff_assignments (kind, staff_id, table_id, order_id, assigned_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + assignmentColumns

type CreateStaffAssignmentParams struct {
	Kind       string
	StaffID    uuid.UUID
	TableID    pgtype.Int4
	OrderID    pgtype.UUID
	AssignedAt time.Time
}

func (q *Queries) CreateStaffAssignment(ctx context.Context, arg CreateStaffAssignmentParams) (StaffAssignment, error) {
	return scanAssignment(q.db.QueryRow(ctx, createStaffAssignment,
		arg.Kind,
		arg.StaffID,
		arg.TableID,
		arg.OrderID,
		arg.AssignedAt,
	))
}

const releaseTableAssignments = `
UPDATE staff_assignments SET is_active = false, released_at = $2
WHERE kind = 'table' AND table_id = $1 AND is_active = true`

type ReleaseTableAssignmentsParams struct {
	TableID    int32
	ReleasedAt time.Time
}

func (q *Queries) ReleaseTableAssignments(ctx context.Context, arg ReleaseTableAssignmentsParams) (int64, error) {
	tag, err := q.db.Exec(ctx, releaseTableAssignments, arg.TableID, arg.ReleasedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const releaseOrderAssignments = `
UPDATE staff_assignments SET is_active = false, released_at = $2
WHERE kind = 'order' AND order_id = $1 AND is_active = true`

type ReleaseOrderAssignmentsParams struct {
	OrderID    uuid.UUID
	ReleasedAt time.Time
}

func (q *Queries) ReleaseOrderAssignments(ctx context.Context, arg ReleaseOrderAssignmentsParams) (int64, error) {
	tag, err := q.db.Exec(ctx, releaseOrderAssignments, arg.OrderID, arg.ReleasedAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listAssignmentsByTable = `
SELECT ` + assignmentColumns + ` FROM staff_assignments
WHERE kind = 'table' AND table_id = $1
ORDER BY assigned_at, id`

func (q *Queries) ListAssignmentsByTable(ctx context.Context, tableID int32) ([]StaffAssignment, error) {
	rows, err := q.db.Query(ctx, listAssignmentsByTable, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []StaffAssignment
	for rows.Next() {
		i, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
