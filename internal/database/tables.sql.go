package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, capacity, zone, status, waiter_id, occupied_since, updated_at`

func scanTable(row pgx.Row) (DiningTable, error) {
	var i DiningTable
	err := row.Scan(
		&i.ID,
		&i.Capacity,
		&i.Zone,
		&i.Status,
		&i.WaiterID,
		&i.OccupiedSince,
		&i.UpdatedAt,
	)
	return i, err
}

func collectTables(rows pgx.Rows, err error) ([]DiningTable, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DiningTable
	for rows.Next() {
		i, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getTable = `SELECT ` + tableColumns + ` FROM dining_tables WHERE id = $1`

func (q *Queries) GetTable(ctx context.Context, id int32) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, getTable, id))
}

// GetTableForUpdate locks the table row until the surrounding transaction
// ends, serializing writers that touch the same table.
const getTableForUpdate = `SELECT ` + tableColumns + ` FROM dining_tables WHERE id = $1 FOR UPDATE`

func (q *Queries) GetTableForUpdate(ctx context.Context, id int32) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, getTableForUpdate, id))
}

const listTables = `
SELECT ` + tableColumns + ` FROM dining_tables
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR zone = $2)
ORDER BY id`

type ListTablesParams struct {
	Status pgtype.Text
	Zone   pgtype.Text
}

func (q *Queries) ListTables(ctx context.Context, arg ListTablesParams) ([]DiningTable, error) {
	return collectTables(q.db.Query(ctx, listTables, arg.Status, arg.Zone))
}

const createTable = `
INSERT INTO dining_tables (id, capacity, zone)
VALUES ($1, $2, $3)
RETURNING ` + tableColumns

type CreateTableParams struct {
	ID       int32
	Capacity int32
	Zone     string
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, createTable, arg.ID, arg.Capacity, arg.Zone))
}

// UpdateTableStatus only matches when the row is still in PrevStatus.
// pgx.ErrNoRows means another writer moved the table first.
const updateTableStatus = `
UPDATE dining_tables
SET status = $2, waiter_id = $4, occupied_since = $5, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + tableColumns

type UpdateTableStatusParams struct {
	ID            int32
	Status        string
	PrevStatus    string
	WaiterID      pgtype.UUID
	OccupiedSince pgtype.Timestamptz
}

func (q *Queries) UpdateTableStatus(ctx context.Context, arg UpdateTableStatusParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, updateTableStatus,
		arg.ID,
		arg.Status,
		arg.PrevStatus,
		arg.WaiterID,
		arg.OccupiedSince,
	))
}

const setTableWaiter = `
UPDATE dining_tables SET waiter_id = $2, updated_at = now()
WHERE id = $1
RETURNING ` + tableColumns

type SetTableWaiterParams struct {
	ID       int32
	WaiterID pgtype.UUID
}

func (q *Queries) SetTableWaiter(ctx context.Context, arg SetTableWaiterParams) (DiningTable, error) {
	return scanTable(q.db.QueryRow(ctx, setTableWaiter, arg.ID, arg.WaiterID))
}
