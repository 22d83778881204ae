package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, table_id, customer_id, waiter_id, cook_id, status, subtotal, tip, total,
	estimated_minutes, notes, cancel_reason, invoice_id, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.TableID,
		&i.CustomerID,
		&i.WaiterID,
		&i.CookID,
		&i.Status,
		&i.Subtotal,
		&i.Tip,
		&i.Total,
		&i.EstimatedMinutes,
		&i.Notes,
		&i.CancelReason,
		&i.InvoiceID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func collectOrders(rows pgx.Rows, err error) ([]Order, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Order
	for rows.Next() {
		i, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const listOrders = `
SELECT ` + orderColumns + ` FROM orders
WHERE ($1::int IS NULL OR table_id = $1)
  AND ($2::text IS NULL OR status = $2)
  AND ($3::uuid IS NULL OR cook_id = $3)
ORDER BY created_at, id`

type ListOrdersParams struct {
	TableID pgtype.Int4
	Status  pgtype.Text
	CookID  pgtype.UUID
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listOrders, arg.TableID, arg.Status, arg.CookID))
}

const listActiveOrdersByTable = `
SELECT ` + orderColumns + ` FROM orders
WHERE table_id = $1 AND status NOT IN ('delivered', 'cancelled')
ORDER BY created_at, id`

func (q *Queries) ListActiveOrdersByTable(ctx context.Context, tableID int32) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listActiveOrdersByTable, tableID))
}

const listKitchenQueue = `
SELECT ` + orderColumns + ` FROM orders
WHERE status IN ('pending', 'in_preparation')
ORDER BY created_at, id`

func (q *Queries) ListKitchenQueue(ctx context.Context) ([]Order, error) {
	return collectOrders(q.db.Query(ctx, listKitchenQueue))
}

// CountOpenOrdersByTable counts orders that still keep a table busy:
// anything not cancelled that has not been invoiced yet.
const countOpenOrdersByTable = `
SELECT count(*) FROM orders
WHERE table_id = $1 AND status <> 'cancelled' AND invoice_id IS NULL`

func (q *Queries) CountOpenOrdersByTable(ctx context.Context, tableID int32) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOpenOrdersByTable, tableID).Scan(&count)
	return count, err
}

const createOrder = `
INSERT INTO orders (table_id, customer_id, waiter_id, subtotal, tip, total, estimated_minutes, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	TableID          int32
	CustomerID       uuid.UUID
	WaiterID         pgtype.UUID
	Subtotal         decimal.Decimal
	Tip              decimal.Decimal
	Total            decimal.Decimal
	EstimatedMinutes int32
	Notes            pgtype.Text
	CreatedAt        time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.TableID,
		arg.CustomerID,
		arg.WaiterID,
		arg.Subtotal,
		arg.Tip,
		arg.Total,
		arg.EstimatedMinutes,
		arg.Notes,
		arg.CreatedAt,
	))
}

// UpdateOrderStatus is a compare-and-swap on status. CancelReason is kept
// when passed as NULL.
const updateOrderStatus = `
UPDATE orders
SET status = $2, cancel_reason = COALESCE($4, cancel_reason), updated_at = $5
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID           uuid.UUID
	Status       string
	PrevStatus   string
	CancelReason pgtype.Text
	UpdatedAt    time.Time
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID,
		arg.Status,
		arg.PrevStatus,
		arg.CancelReason,
		arg.UpdatedAt,
	))
}

const setOrderCook = `
UPDATE orders
SET cook_id = $2, status = $3, updated_at = $5
WHERE id = $1 AND status = $4
RETURNING ` + orderColumns

type SetOrderCookParams struct {
	ID         uuid.UUID
	CookID     pgtype.UUID
	Status     string
	PrevStatus string
	UpdatedAt  time.Time
}

func (q *Queries) SetOrderCook(ctx context.Context, arg SetOrderCookParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setOrderCook,
		arg.ID,
		arg.CookID,
		arg.Status,
		arg.PrevStatus,
		arg.UpdatedAt,
	))
}

const updateOrderTotals = `
UPDATE orders
SET subtotal = $2, total = $3, estimated_minutes = $4, updated_at = $6
WHERE id = $1 AND status = $5
RETURNING ` + orderColumns

type UpdateOrderTotalsParams struct {
	ID               uuid.UUID
	Subtotal         decimal.Decimal
	Total            decimal.Decimal
	EstimatedMinutes int32
	PrevStatus       string
	UpdatedAt        time.Time
}

func (q *Queries) UpdateOrderTotals(ctx context.Context, arg UpdateOrderTotalsParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderTotals,
		arg.ID,
		arg.Subtotal,
		arg.Total,
		arg.EstimatedMinutes,
		arg.PrevStatus,
		arg.UpdatedAt,
	))
}

// SetOrderInvoice links a delivered order to its invoice exactly once.
const setOrderInvoice = `
UPDATE orders
SET invoice_id = $2
WHERE id = $1 AND status = 'delivered' AND invoice_id IS NULL
RETURNING ` + orderColumns

type SetOrderInvoiceParams struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
}

func (q *Queries) SetOrderInvoice(ctx context.Context, arg SetOrderInvoiceParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, setOrderInvoice, arg.ID, arg.InvoiceID))
}

const orderItemColumns = `id, order_id, line_no, menu_item_id, name, quantity, unit_price, subtotal, notes, is_cancelled`

func scanOrderItem(row pgx.Row) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.LineNo,
		&i.MenuItemID,
		&i.Name,
		&i.Quantity,
		&i.UnitPrice,
		&i.Subtotal,
		&i.Notes,
		&i.IsCancelled,
	)
	return i, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, line_no, menu_item_id, name, quantity, unit_price, subtotal, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID    uuid.UUID
	LineNo     int32
	MenuItemID uuid.UUID
	Name       string
	Quantity   int32
	UnitPrice  decimal.Decimal
	Subtotal   decimal.Decimal
	Notes      pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.LineNo,
		arg.MenuItemID,
		arg.Name,
		arg.Quantity,
		arg.UnitPrice,
		arg.Subtotal,
		arg.Notes,
	))
}

const listOrderItemsByOrder = `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY line_no`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const cancelOrderItem = `
UPDATE order_items SET is_cancelled = true
WHERE id = $1 AND order_id = $2 AND is_cancelled = false
RETURNING ` + orderItemColumns

type CancelOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) CancelOrderItem(ctx context.Context, arg CancelOrderItemParams) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, cancelOrderItem, arg.ID, arg.OrderID))
}
