package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `id, order_id, table_id, subtotal, tax, tip, total, payment_method, status,
	cancel_reason, created_at, sent_at, paid_at, cancelled_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.TableID,
		&i.Subtotal,
		&i.Tax,
		&i.Tip,
		&i.Total,
		&i.PaymentMethod,
		&i.Status,
		&i.CancelReason,
		&i.CreatedAt,
		&i.SentAt,
		&i.PaidAt,
		&i.CancelledAt,
	)
	return i, err
}

const getInvoice = `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

func (q *Queries) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, id))
}

const listInvoices = `
SELECT ` + invoiceColumns + ` FROM invoices
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
ORDER BY created_at, id`

type ListInvoicesParams struct {
	Status pgtype.Text
	From   pgtype.Timestamptz
	To     pgtype.Timestamptz
}

func (q *Queries) ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoices, arg.Status, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countOpenInvoicesByTable = `
SELECT count(*) FROM invoices
WHERE table_id = $1 AND status IN ('pending', 'awaiting_cashier')`

func (q *Queries) CountOpenInvoicesByTable(ctx context.Context, tableID int32) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countOpenInvoicesByTable, tableID).Scan(&count)
	return count, err
}

const createInvoice = `
INSERT INTO invoices (order_id, table_id, subtotal, tax, tip, total, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + invoiceColumns

type CreateInvoiceParams struct {
	OrderID   uuid.UUID
	TableID   int32
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Tip       decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, createInvoice,
		arg.OrderID,
		arg.TableID,
		arg.Subtotal,
		arg.Tax,
		arg.Tip,
		arg.Total,
		arg.CreatedAt,
	))
}

// UpdateInvoiceStatus is a compare-and-swap on status. Totals are never part
// of the update; NULL timestamp/text params leave the stored value alone.
const updateInvoiceStatus = `
UPDATE invoices
SET status = $2,
    payment_method = COALESCE($4, payment_method),
    cancel_reason = COALESCE($5, cancel_reason),
    sent_at = COALESCE($6, sent_at),
    paid_at = COALESCE($7, paid_at),
    cancelled_at = COALESCE($8, cancelled_at)
WHERE id = $1 AND status = $3
RETURNING ` + invoiceColumns

type UpdateInvoiceStatusParams struct {
	ID            uuid.UUID
	Status        string
	PrevStatus    string
	PaymentMethod pgtype.Text
	CancelReason  pgtype.Text
	SentAt        pgtype.Timestamptz
	PaidAt        pgtype.Timestamptz
	CancelledAt   pgtype.Timestamptz
}

func (q *Queries) UpdateInvoiceStatus(ctx context.Context, arg UpdateInvoiceStatusParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, updateInvoiceStatus,
		arg.ID,
		arg.Status,
		arg.PrevStatus,
		arg.PaymentMethod,
		arg.CancelReason,
		arg.SentAt,
		arg.PaidAt,
		arg.CancelledAt,
	))
}

const cancellationColumns = `id, invoice_id, reason, subtotal, tax, tip, total, cancelled_by, cancelled_at`

func scanCancellation(row pgx.Row) (InvoiceCancellation, error) {
	var i InvoiceCancellation
	err := row.Scan(
		&i.ID,
		&i.InvoiceID,
		&i.Reason,
		&i.Subtotal,
		&i.Tax,
		&i.Tip,
		&i.Total,
		&i.CancelledBy,
		&i.CancelledAt,
	)
	return i, err
}

const createInvoiceCancellation = `
INSERT INTO invoice_cancellations (invoice_id, reason, subtotal, tax, tip, total, cancelled_by, cancelled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + cancellationColumns

type CreateInvoiceCancellationParams struct {
	InvoiceID   uuid.UUID
	Reason      string
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Tip         decimal.Decimal
	Total       decimal.Decimal
	CancelledBy uuid.UUID
	CancelledAt time.Time
}

func (q *Queries) CreateInvoiceCancellation(ctx context.Context, arg CreateInvoiceCancellationParams) (InvoiceCancellation, error) {
	return scanCancellation(q.db.QueryRow(ctx, createInvoiceCancellation,
		arg.InvoiceID,
		arg.Reason,
		arg.Subtotal,
		arg.Tax,
		arg.Tip,
		arg.Total,
		arg.CancelledBy,
		arg.CancelledAt,
	))
}

const getInvoiceCancellation = `SELECT ` + cancellationColumns + ` FROM invoice_cancellations WHERE invoice_id = $1`

func (q *Queries) GetInvoiceCancellation(ctx context.Context, invoiceID uuid.UUID) (InvoiceCancellation, error) {
	return scanCancellation(q.db.QueryRow(ctx, getInvoiceCancellation, invoiceID))
}
