package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const getMenuItem = `SELECT id, name, price, is_available FROM menu_items WHERE id = $1`

func (q *Queries) GetMenuItem(ctx context.Context, id uuid.UUID) (MenuItem, error) {
	var i MenuItem
	err := q.db.QueryRow(ctx, getMenuItem, id).Scan(&i.ID, &i.Name, &i.Price, &i.IsAvailable)
	return i, err
}

const createMenuItem = `
INSERT INTO menu_items (name, price, is_available)
VALUES ($1, $2, $3)
RETURNING id, name, price, is_available`

type CreateMenuItemParams struct {
	Name        string
	Price       decimal.Decimal
	IsAvailable bool
}

func (q *Queries) CreateMenuItem(ctx context.Context, arg CreateMenuItemParams) (MenuItem, error) {
	var i MenuItem
	err := q.db.QueryRow(ctx, createMenuItem, arg.Name, arg.Price, arg.IsAvailable).
		Scan(&i.ID, &i.Name, &i.Price, &i.IsAvailable)
	return i, err
}

const listMenuItems = `
SELECT id, name, price, is_available FROM menu_items
WHERE ($1::boolean IS NULL OR is_available = $1)
ORDER BY name`

// ListMenuItems lists the catalog by name. A null IsAvailable lists
// everything.
func (q *Queries) ListMenuItems(ctx context.Context, isAvailable pgtype.Bool) ([]MenuItem, error) {
	rows, err := q.db.Query(ctx, listMenuItems, isAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MenuItem
	for rows.Next() {
		var i MenuItem
		if err := rows.Scan(&i.ID, &i.Name, &i.Price, &i.IsAvailable); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
