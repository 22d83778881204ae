package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// InvoiceManager owns billing: generation from a delivered order, the
// cashier queue, payment and cancellation.
type InvoiceManager struct {
	tables  *TableManager
	router  *Router
	taxRate decimal.Decimal
}

func NewInvoiceManager(tables *TableManager, router *Router, taxRate decimal.Decimal) *InvoiceManager {
	return &InvoiceManager{tables: tables, router: router, taxRate: taxRate}
}

// includedTax is the share of an amount that an inclusive tax rate accounts
// for. It does not change the total.
func includedTax(amount, rate decimal.Decimal) decimal.Decimal {
	if !rate.IsPositive() {
		return decimal.Zero
	}
	net := amount.Div(decimal.NewFromInt(1).Add(rate))
	return amount.Sub(net).Round(2)
}

// Generate bills a delivered order. Totals are copied once and never change.
func (m *InvoiceManager) Generate(ctx context.Context, tx *Tx, orderID uuid.UUID) (database.Invoice, error) {
	o, err := tx.Q.GetOrder(ctx, orderID)
	if err != nil {
		return database.Invoice{}, lookupErr("order", err)
	}
	if o.Status != enum.OrderStatusDelivered {
		return database.Invoice{}, preconditionf("order %s is %s, not delivered", o.ID, o.Status)
	}
	if o.InvoiceID.Valid {
		return database.Invoice{}, preconditionf("order %s is already invoiced", o.ID)
	}

	table, err := tx.Q.GetTableForUpdate(ctx, o.TableID)
	if err != nil {
		return database.Invoice{}, lookupErr("table", err)
	}
	active, err := tx.Q.ListActiveOrdersByTable(ctx, table.ID)
	if err != nil {
		return database.Invoice{}, fmt.Errorf("list active orders: %w", err)
	}
	if len(active) > 0 {
		return database.Invoice{}, preconditionf("table %d still has active order %s", table.ID, active[0].ID)
	}

	inv, err := tx.Q.CreateInvoice(ctx, database.CreateInvoiceParams{
		OrderID:   o.ID,
		TableID:   o.TableID,
		Subtotal:  o.Subtotal,
		Tax:       includedTax(o.Subtotal, m.taxRate),
		Tip:       o.Tip,
		Total:     o.Total,
		CreatedAt: tx.Now,
	})
	if err != nil {
		return database.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	if _, err := tx.Q.SetOrderInvoice(ctx, database.SetOrderInvoiceParams{ID: o.ID, InvoiceID: inv.ID}); err != nil {
		return database.Invoice{}, casErr("order", err)
	}

	// several delivered orders on one table share the awaiting_payment state
	if _, err := m.tables.ensureStatus(ctx, tx, table, enum.TableStatusAwaitingPayment, enum.TableStatusHasOrder); err != nil {
		return database.Invoice{}, err
	}

	m.invoiceChanged(tx, inv, "")
	return inv, nil
}

// SendForCollection puts the invoice in the cashier queue and alerts the
// cashiers on shift. Sending twice is a no-op.
func (m *InvoiceManager) SendForCollection(ctx context.Context, tx *Tx, invoiceID uuid.UUID) (database.Invoice, error) {
	inv, err := tx.Q.GetInvoice(ctx, invoiceID)
	if err != nil {
		return database.Invoice{}, lookupErr("invoice", err)
	}
	switch inv.Status {
	case enum.InvoiceStatusAwaitingCashier:
		return inv, nil
	case enum.InvoiceStatusPending:
	default:
		return database.Invoice{}, fmt.Errorf("invoice %s is %s: %w", inv.ID, inv.Status, ErrAlreadyFinalized)
	}

	updated, err := tx.Q.UpdateInvoiceStatus(ctx, database.UpdateInvoiceStatusParams{
		ID:         inv.ID,
		Status:     enum.InvoiceStatusAwaitingCashier,
		PrevStatus: inv.Status,
		SentAt:     pgtype.Timestamptz{Time: tx.Now, Valid: true},
	})
	if err != nil {
		return database.Invoice{}, casErr("invoice", err)
	}
	m.invoiceChanged(tx, updated, inv.Status)

	shift := m.router.CurrentShift(tx)
	_, err = m.router.NotifyShift(ctx, tx, shift, []string{enum.RoleCashier}, Message{
		Category: enum.NotificationCustomerRequestsBill,
		Title:    fmt.Sprintf("Table %d asks for the bill", updated.TableID),
		Body:     fmt.Sprintf("Total %s", updated.Total.StringFixed(2)),
		Priority: enum.PriorityHigh,
		Payload:  map[string]any{"invoice_id": updated.ID, "table_id": updated.TableID},
		TableID:  &updated.TableID,
	})
	if errors.Is(err, ErrNoAssigneeFound) {
		// the invoice stays visible in the awaiting_cashier queue
		log.Printf("WARN: no cashier on %s shift for invoice %s", shift, updated.ID)
		err = nil
	}
	if err != nil {
		return database.Invoice{}, err
	}
	return updated, nil
}

// Pay settles the invoice and frees the table once nothing else on it is
// left to pay.
func (m *InvoiceManager) Pay(ctx context.Context, tx *Tx, invoiceID uuid.UUID, method string) (database.Invoice, error) {
	if !enum.IsValidPaymentMethod(method) {
		return database.Invoice{}, ErrInvalidPaymentMethod
	}
	inv, err := m.openInvoice(ctx, tx, invoiceID)
	if err != nil {
		return database.Invoice{}, err
	}

	updated, err := tx.Q.UpdateInvoiceStatus(ctx, database.UpdateInvoiceStatusParams{
		ID:            inv.ID,
		Status:        enum.InvoiceStatusPaid,
		PrevStatus:    inv.Status,
		PaymentMethod: pgtype.Text{String: method, Valid: true},
		PaidAt:        pgtype.Timestamptz{Time: tx.Now, Valid: true},
	})
	if err != nil {
		return database.Invoice{}, casErr("invoice", err)
	}
	if err := m.tables.releaseIfSettled(ctx, tx, updated.TableID); err != nil {
		return database.Invoice{}, err
	}
	m.invoiceChanged(tx, updated, inv.Status)
	return updated, nil
}

// Cancel voids the invoice and files a cancellation record with the frozen
// totals. A blank reason is rejected before anything is read or written.
func (m *InvoiceManager) Cancel(ctx context.Context, tx *Tx, invoiceID uuid.UUID, reason string, by uuid.UUID) (database.Invoice, database.InvoiceCancellation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return database.Invoice{}, database.InvoiceCancellation{}, ErrReasonRequired
	}
	inv, err := m.openInvoice(ctx, tx, invoiceID)
	if err != nil {
		return database.Invoice{}, database.InvoiceCancellation{}, err
	}

	updated, err := tx.Q.UpdateInvoiceStatus(ctx, database.UpdateInvoiceStatusParams{
		ID:           inv.ID,
		Status:       enum.InvoiceStatusCancelled,
		PrevStatus:   inv.Status,
		CancelReason: pgtype.Text{String: reason, Valid: true},
		CancelledAt:  pgtype.Timestamptz{Time: tx.Now, Valid: true},
	})
	if err != nil {
		return database.Invoice{}, database.InvoiceCancellation{}, casErr("invoice", err)
	}

	record, err := tx.Q.CreateInvoiceCancellation(ctx, database.CreateInvoiceCancellationParams{
		InvoiceID:   updated.ID,
		Reason:      reason,
		Subtotal:    updated.Subtotal,
		Tax:         updated.Tax,
		Tip:         updated.Tip,
		Total:       updated.Total,
		CancelledBy: by,
		CancelledAt: tx.Now,
	})
	if err != nil {
		return database.Invoice{}, database.InvoiceCancellation{}, fmt.Errorf("create cancellation record: %w", err)
	}

	if err := m.tables.releaseIfSettled(ctx, tx, updated.TableID); err != nil {
		return database.Invoice{}, database.InvoiceCancellation{}, err
	}
	m.invoiceChanged(tx, updated, inv.Status)
	return updated, record, nil
}

func (m *InvoiceManager) openInvoice(ctx context.Context, tx *Tx, invoiceID uuid.UUID) (database.Invoice, error) {
	inv, err := tx.Q.GetInvoice(ctx, invoiceID)
	if err != nil {
		return database.Invoice{}, lookupErr("invoice", err)
	}
	if enum.IsTerminalInvoiceStatus(inv.Status) {
		return database.Invoice{}, fmt.Errorf("invoice %s is %s: %w", inv.ID, inv.Status, ErrAlreadyFinalized)
	}
	return inv, nil
}

func (m *InvoiceManager) invoiceChanged(tx *Tx, inv database.Invoice, from string) {
	tx.emit(events.Event{
		Type: events.TypeInvoiceStatusChanged,
		Key:  inv.ID.String(),
		Payload: map[string]any{
			"invoice_id":  inv.ID,
			"order_id":    inv.OrderID,
			"table_id":    inv.TableID,
			"from_status": from,
			"status":      inv.Status,
			"total":       inv.Total.StringFixed(2),
		},
	})
}
