package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Transactor runs fn as one atomic unit of work.
// Satisfied by *database.TxRunner and *memory.Store.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(database.Querier) error) error
}

// Tx is the unit of work a coordinator action runs in: the transactional
// store, the action's timestamp and the events to publish once it commits.
type Tx struct {
	Q   database.Querier
	Now time.Time

	outbox []events.Event
}

func (tx *Tx) emit(ev events.Event) {
	ev.OccurredAt = tx.Now
	tx.outbox = append(tx.outbox, ev)
}

// Actor is the authenticated user behind a call.
type Actor struct {
	ID   uuid.UUID
	Role string
}

type capability string

const (
	capOccupy            capability = "table.occupy"
	capMarkTable         capability = "table.mark"
	capReleaseTable      capability = "table.release"
	capAssignWaiter      capability = "table.assign_waiter"
	capPlaceOrder        capability = "order.place"
	capCancelOrderItem   capability = "order.cancel_item"
	capAssignCook        capability = "order.assign_cook"
	capKitchenAdvance    capability = "order.kitchen_advance"
	capDeliver           capability = "order.deliver"
	capCancelOrder       capability = "order.cancel"
	capGenerateInvoice   capability = "invoice.generate"
	capSendForCollection capability = "invoice.send"
	capSettleInvoice     capability = "invoice.settle"
	capNotify            capability = "notification.send"
	capReadAll           capability = "notification.read_all"
)

var capabilities = map[capability][]string{
	capOccupy:            {enum.RoleCustomer, enum.RoleWaiter, enum.RoleAdmin},
	capMarkTable:         {enum.RoleWaiter, enum.RoleAdmin},
	capReleaseTable:      {enum.RoleWaiter, enum.RoleCashier, enum.RoleAdmin},
	capAssignWaiter:      {enum.RoleWaiter, enum.RoleAdmin},
	capPlaceOrder:        {enum.RoleCustomer, enum.RoleWaiter, enum.RoleAdmin},
	capCancelOrderItem:   {enum.RoleCustomer, enum.RoleWaiter, enum.RoleAdmin},
	capAssignCook:        {enum.RoleKitchen, enum.RoleAdmin},
	capKitchenAdvance:    {enum.RoleKitchen, enum.RoleAdmin},
	capDeliver:           {enum.RoleWaiter, enum.RoleAdmin},
	capCancelOrder:       {enum.RoleWaiter, enum.RoleKitchen, enum.RoleAdmin},
	capGenerateInvoice:   {enum.RoleCustomer, enum.RoleWaiter, enum.RoleCashier, enum.RoleAdmin},
	capSendForCollection: {enum.RoleCustomer, enum.RoleWaiter, enum.RoleAdmin},
	capSettleInvoice:     {enum.RoleCashier, enum.RoleAdmin},
	capNotify:            {enum.RoleAdmin},
	capReadAll:           {enum.RoleAdmin},
}

func authorize(a Actor, c capability) error {
	for _, role := range capabilities[c] {
		if a.Role == role {
			return nil
		}
	}
	return fmt.Errorf("%s may not %s: %w", a.Role, c, ErrForbidden)
}

// Config holds coordinator policy knobs.
type Config struct {
	TaxRate         decimal.Decimal
	ShiftChangeHour int
}

// Coordinator is the single entry point for every role action. Each action
// is authorized, then runs in one transaction; notifications and events are
// published only after it commits.
type Coordinator struct {
	store     database.Querier
	tx        Transactor
	publisher events.Publisher
	now       func() time.Time

	Tables   *TableManager
	Orders   *OrderManager
	Invoices *InvoiceManager
	Router   *Router
}

func NewCoordinator(store database.Querier, tx Transactor, publisher events.Publisher, cfg Config) *Coordinator {
	if publisher == nil {
		publisher = events.Noop{}
	}
	router := NewRouter(cfg.ShiftChangeHour)
	tables := NewTableManager(router)
	return &Coordinator{
		store:     store,
		tx:        tx,
		publisher: publisher,
		now:       time.Now,
		Tables:    tables,
		Orders:    NewOrderManager(tables, router),
		Invoices:  NewInvoiceManager(tables, router, cfg.TaxRate),
		Router:    router,
	}
}

// SetClock replaces the coordinator's time source.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// run executes fn in one transaction and dispatches its outbox after commit.
func (c *Coordinator) run(ctx context.Context, fn func(tx *Tx) error) error {
	tx := &Tx{Now: c.now()}
	err := c.tx.WithinTx(ctx, func(q database.Querier) error {
		tx.Q = q
		tx.outbox = tx.outbox[:0]
		return fn(tx)
	})
	if err != nil {
		return err
	}
	c.dispatch(ctx, tx.outbox)
	return nil
}

// dispatch is best effort. Stored state is already committed and clients can
// always re-read it, so failures are only logged.
func (c *Coordinator) dispatch(ctx context.Context, outbox []events.Event) {
	for _, ev := range outbox {
		if err := c.publisher.Publish(ctx, ev); err != nil {
			log.Printf("WARN: dispatch %s %s: %v", ev.Type, ev.Key, err)
		}
	}
}

// --- Tables ---

func (c *Coordinator) OccupyTable(ctx context.Context, a Actor, tableID int32) (database.DiningTable, error) {
	if err := authorize(a, capOccupy); err != nil {
		return database.DiningTable{}, err
	}
	var t database.DiningTable
	err := c.run(ctx, func(tx *Tx) (err error) {
		t, err = c.Tables.Occupy(ctx, tx, tableID)
		return err
	})
	return t, err
}

// SetTableStatus is the manual status toggle used by floor staff.
func (c *Coordinator) SetTableStatus(ctx context.Context, a Actor, tableID int32, status string) (database.DiningTable, error) {
	switch status {
	case enum.TableStatusOccupied:
		return c.OccupyTable(ctx, a, tableID)
	case enum.TableStatusFree:
		return c.ReleaseTable(ctx, a, tableID)
	case enum.TableStatusHasOrder, enum.TableStatusAwaitingPayment:
	default:
		return database.DiningTable{}, fmt.Errorf("%w: %q", ErrInvalidTableStatus, status)
	}
	if err := authorize(a, capMarkTable); err != nil {
		return database.DiningTable{}, err
	}
	var t database.DiningTable
	err := c.run(ctx, func(tx *Tx) (err error) {
		if status == enum.TableStatusHasOrder {
			t, err = c.Tables.MarkHasOrder(ctx, tx, tableID)
		} else {
			t, err = c.Tables.MarkAwaitingPayment(ctx, tx, tableID)
		}
		return err
	})
	return t, err
}

func (c *Coordinator) ReleaseTable(ctx context.Context, a Actor, tableID int32) (database.DiningTable, error) {
	if err := authorize(a, capReleaseTable); err != nil {
		return database.DiningTable{}, err
	}
	var t database.DiningTable
	err := c.run(ctx, func(tx *Tx) (err error) {
		t, err = c.Tables.Release(ctx, tx, tableID)
		return err
	})
	return t, err
}

// AssignWaiter lets a waiter take a table for themselves; admins may assign
// anyone.
func (c *Coordinator) AssignWaiter(ctx context.Context, a Actor, tableID int32, waiterID uuid.UUID) (database.DiningTable, error) {
	if err := authorize(a, capAssignWaiter); err != nil {
		return database.DiningTable{}, err
	}
	if a.Role == enum.RoleWaiter && waiterID != a.ID {
		return database.DiningTable{}, fmt.Errorf("waiters may only assign themselves: %w", ErrForbidden)
	}
	var t database.DiningTable
	err := c.run(ctx, func(tx *Tx) (err error) {
		t, err = c.Tables.AssignWaiter(ctx, tx, tableID, waiterID)
		return err
	})
	return t, err
}

// --- Orders ---

func (c *Coordinator) PlaceOrder(ctx context.Context, a Actor, req PlaceOrderRequest) (*OrderDetail, error) {
	if err := authorize(a, capPlaceOrder); err != nil {
		return nil, err
	}
	if a.Role == enum.RoleCustomer || req.CustomerID == uuid.Nil {
		req.CustomerID = a.ID
	}
	var d *OrderDetail
	err := c.run(ctx, func(tx *Tx) (err error) {
		d, err = c.Orders.Place(ctx, tx, req)
		return err
	})
	return d, err
}

// AdvanceOrder checks the capability for the requested target: the kitchen
// prepares, the floor delivers.
func (c *Coordinator) AdvanceOrder(ctx context.Context, a Actor, orderID uuid.UUID, target string) (database.Order, error) {
	var need capability
	switch target {
	case enum.OrderStatusInPreparation, enum.OrderStatusReady:
		need = capKitchenAdvance
	case enum.OrderStatusDelivered:
		need = capDeliver
	default:
		need = capCancelOrder
	}
	if err := authorize(a, need); err != nil {
		return database.Order{}, err
	}
	var o database.Order
	err := c.run(ctx, func(tx *Tx) (err error) {
		o, err = c.Orders.Advance(ctx, tx, orderID, target)
		return err
	})
	return o, err
}

func (c *Coordinator) AssignCook(ctx context.Context, a Actor, orderID, cookID uuid.UUID) (database.Order, error) {
	if err := authorize(a, capAssignCook); err != nil {
		return database.Order{}, err
	}
	var o database.Order
	err := c.run(ctx, func(tx *Tx) (err error) {
		o, err = c.Orders.AssignCook(ctx, tx, orderID, cookID)
		return err
	})
	return o, err
}

func (c *Coordinator) UnassignCook(ctx context.Context, a Actor, orderID uuid.UUID) (database.Order, error) {
	if err := authorize(a, capAssignCook); err != nil {
		return database.Order{}, err
	}
	var o database.Order
	err := c.run(ctx, func(tx *Tx) (err error) {
		o, err = c.Orders.UnassignCook(ctx, tx, orderID)
		return err
	})
	return o, err
}

func (c *Coordinator) CancelOrder(ctx context.Context, a Actor, orderID uuid.UUID, reason string) (database.Order, error) {
	if err := authorize(a, capCancelOrder); err != nil {
		return database.Order{}, err
	}
	var o database.Order
	err := c.run(ctx, func(tx *Tx) (err error) {
		o, err = c.Orders.Cancel(ctx, tx, orderID, reason)
		return err
	})
	return o, err
}

// CancelOrderItem lets customers edit only their own orders.
func (c *Coordinator) CancelOrderItem(ctx context.Context, a Actor, orderID, itemID uuid.UUID) (*OrderDetail, error) {
	if err := authorize(a, capCancelOrderItem); err != nil {
		return nil, err
	}
	var d *OrderDetail
	err := c.run(ctx, func(tx *Tx) error {
		if err := c.requireOwnOrder(ctx, tx.Q, a, orderID); err != nil {
			return err
		}
		var err error
		d, err = c.Orders.CancelItem(ctx, tx, orderID, itemID)
		return err
	})
	return d, err
}

func (c *Coordinator) requireOwnOrder(ctx context.Context, q database.Querier, a Actor, orderID uuid.UUID) error {
	if a.Role != enum.RoleCustomer {
		return nil
	}
	o, err := q.GetOrder(ctx, orderID)
	if err != nil {
		return lookupErr("order", err)
	}
	if o.CustomerID != a.ID {
		return fmt.Errorf("order %s belongs to another customer: %w", orderID, ErrForbidden)
	}
	return nil
}

func (c *Coordinator) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	return c.Orders.Detail(ctx, c.store, orderID)
}

// OrderFilter narrows ListOrders. Nil fields do not filter.
type OrderFilter struct {
	TableID *int32
	Status  string
	CookID  *uuid.UUID
}

func (c *Coordinator) ListOrders(ctx context.Context, f OrderFilter) ([]database.Order, error) {
	params := database.ListOrdersParams{Status: optionalText(f.Status)}
	if f.TableID != nil {
		params.TableID = pgtype.Int4{Int32: *f.TableID, Valid: true}
	}
	if f.CookID != nil {
		params.CookID = pgtype.UUID{Bytes: *f.CookID, Valid: true}
	}
	orders, err := c.store.ListOrders(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (c *Coordinator) KitchenQueue(ctx context.Context) ([]QueuedOrder, error) {
	return c.Orders.KitchenQueue(ctx, c.store, c.now())
}

// --- Invoices ---

func (c *Coordinator) GenerateInvoice(ctx context.Context, a Actor, orderID uuid.UUID) (database.Invoice, error) {
	if err := authorize(a, capGenerateInvoice); err != nil {
		return database.Invoice{}, err
	}
	var inv database.Invoice
	err := c.run(ctx, func(tx *Tx) error {
		if err := c.requireOwnOrder(ctx, tx.Q, a, orderID); err != nil {
			return err
		}
		var err error
		inv, err = c.Invoices.Generate(ctx, tx, orderID)
		return err
	})
	return inv, err
}

func (c *Coordinator) SendInvoiceForCollection(ctx context.Context, a Actor, invoiceID uuid.UUID) (database.Invoice, error) {
	if err := authorize(a, capSendForCollection); err != nil {
		return database.Invoice{}, err
	}
	var inv database.Invoice
	err := c.run(ctx, func(tx *Tx) (err error) {
		inv, err = c.Invoices.SendForCollection(ctx, tx, invoiceID)
		return err
	})
	return inv, err
}

func (c *Coordinator) PayInvoice(ctx context.Context, a Actor, invoiceID uuid.UUID, method string) (database.Invoice, error) {
	if err := authorize(a, capSettleInvoice); err != nil {
		return database.Invoice{}, err
	}
	var inv database.Invoice
	err := c.run(ctx, func(tx *Tx) (err error) {
		inv, err = c.Invoices.Pay(ctx, tx, invoiceID, method)
		return err
	})
	return inv, err
}

func (c *Coordinator) CancelInvoice(ctx context.Context, a Actor, invoiceID uuid.UUID, reason string) (database.Invoice, database.InvoiceCancellation, error) {
	if err := authorize(a, capSettleInvoice); err != nil {
		return database.Invoice{}, database.InvoiceCancellation{}, err
	}
	var (
		inv    database.Invoice
		record database.InvoiceCancellation
	)
	err := c.run(ctx, func(tx *Tx) (err error) {
		inv, record, err = c.Invoices.Cancel(ctx, tx, invoiceID, reason, a.ID)
		return err
	})
	return inv, record, err
}

func (c *Coordinator) GetInvoice(ctx context.Context, invoiceID uuid.UUID) (database.Invoice, error) {
	inv, err := c.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return database.Invoice{}, lookupErr("invoice", err)
	}
	return inv, nil
}

func (c *Coordinator) GetInvoiceCancellation(ctx context.Context, invoiceID uuid.UUID) (database.InvoiceCancellation, error) {
	rec, err := c.store.GetInvoiceCancellation(ctx, invoiceID)
	if err != nil {
		return database.InvoiceCancellation{}, lookupErr("invoice cancellation", err)
	}
	return rec, nil
}

// InvoiceFilter narrows ListInvoices. From is inclusive, To exclusive.
type InvoiceFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

func (c *Coordinator) ListInvoices(ctx context.Context, f InvoiceFilter) ([]database.Invoice, error) {
	params := database.ListInvoicesParams{Status: optionalText(f.Status)}
	if f.From != nil {
		params.From = pgtype.Timestamptz{Time: *f.From, Valid: true}
	}
	if f.To != nil {
		params.To = pgtype.Timestamptz{Time: *f.To, Valid: true}
	}
	invoices, err := c.store.ListInvoices(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// --- Tables (read) ---

func (c *Coordinator) GetTable(ctx context.Context, tableID int32) (database.DiningTable, error) {
	t, err := c.store.GetTable(ctx, tableID)
	if err != nil {
		return database.DiningTable{}, lookupErr("table", err)
	}
	return t, nil
}

func (c *Coordinator) ListTables(ctx context.Context, status, zone string) ([]database.DiningTable, error) {
	tables, err := c.store.ListTables(ctx, database.ListTablesParams{
		Status: optionalText(status),
		Zone:   optionalText(zone),
	})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

// --- Menu (read) ---

// Menu lists the catalog. Customers only ever see what can be ordered.
func (c *Coordinator) Menu(ctx context.Context, a Actor, includeUnavailable bool) ([]database.MenuItem, error) {
	filter := pgtype.Bool{Bool: true, Valid: true}
	if includeUnavailable && a.Role != enum.RoleCustomer {
		filter = pgtype.Bool{}
	}
	items, err := c.store.ListMenuItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	return items, nil
}
