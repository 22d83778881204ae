package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	basePrepMinutes    = 10
	prepMinutesPerItem = 3

	mediumWaitAfter = 15 * time.Minute
	highWaitAfter   = 30 * time.Minute
)

// allowedOrderTransitions holds every step Advance may take. Terminal
// statuses have no entry.
var allowedOrderTransitions = map[string][]string{
	enum.OrderStatusPending:       {enum.OrderStatusInPreparation, enum.OrderStatusCancelled},
	enum.OrderStatusInPreparation: {enum.OrderStatusReady, enum.OrderStatusCancelled},
	enum.OrderStatusReady:         {enum.OrderStatusDelivered},
}

func isAllowedOrderTransition(from, to string) bool {
	for _, s := range allowedOrderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PlaceOrderRequest is the validated input for a new order.
type PlaceOrderRequest struct {
	TableID    int32
	CustomerID uuid.UUID
	Items      []OrderLine
	Notes      string
	Tip        decimal.Decimal
}

// OrderLine is one requested menu item. The price comes from the catalog.
type OrderLine struct {
	MenuItemID uuid.UUID
	Quantity   int32
	Notes      string
}

// OrderDetail is an order with its line items.
type OrderDetail struct {
	Order database.Order
	Items []database.OrderItem
}

// QueuedOrder is a kitchen queue entry with its derived wait priority.
type QueuedOrder struct {
	Order       database.Order
	WaitMinutes int
	Priority    string
}

// WaitPriority derives kitchen priority from how long the order has waited.
// It is never stored.
func WaitPriority(createdAt, now time.Time) string {
	wait := now.Sub(createdAt)
	switch {
	case wait > highWaitAfter:
		return enum.WaitPriorityHigh
	case wait > mediumWaitAfter:
		return enum.WaitPriorityMedium
	default:
		return enum.WaitPriorityLow
	}
}

func estimateMinutes(totalQty int32) int32 {
	return basePrepMinutes + prepMinutesPerItem*totalQty
}

func validateOrderRequest(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
	}
	if req.Tip.IsNegative() {
		return ErrInvalidTip
	}
	return nil
}

// OrderManager owns the fulfillment pipeline.
type OrderManager struct {
	tables *TableManager
	router *Router
}

func NewOrderManager(tables *TableManager, router *Router) *OrderManager {
	return &OrderManager{tables: tables, router: router}
}

// Place creates a pending order priced from the catalog, moves the table to
// has_order and tells the table's waiter.
func (m *OrderManager) Place(ctx context.Context, tx *Tx, req PlaceOrderRequest) (*OrderDetail, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	table, err := tx.Q.GetTableForUpdate(ctx, req.TableID)
	if err != nil {
		return nil, lookupErr("table", err)
	}
	if table.Status != enum.TableStatusOccupied && table.Status != enum.TableStatusHasOrder {
		return nil, preconditionf("table %d is %s", table.ID, table.Status)
	}
	active, err := tx.Q.ListActiveOrdersByTable(ctx, table.ID)
	if err != nil {
		return nil, fmt.Errorf("list active orders: %w", err)
	}
	if len(active) > 0 {
		return nil, preconditionf("table %d already has active order %s", table.ID, active[0].ID)
	}

	// --- Price every line from the catalog ---
	subtotal := decimal.Zero
	var totalQty int32
	lines := make([]database.CreateOrderItemParams, 0, len(req.Items))
	for i, it := range req.Items {
		item, err := tx.Q.GetMenuItem(ctx, it.MenuItemID)
		if err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, lookupErr("menu item", err))
		}
		if !item.IsAvailable {
			return nil, fmt.Errorf("item[%d]: menu item %s unavailable: %w", i, item.ID, ErrNotFound)
		}
		lineSubtotal := item.Price.Mul(decimal.NewFromInt32(it.Quantity))
		subtotal = subtotal.Add(lineSubtotal)
		totalQty += it.Quantity
		lines = append(lines, database.CreateOrderItemParams{
			LineNo:     int32(i + 1),
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   it.Quantity,
			UnitPrice:  item.Price,
			Subtotal:   lineSubtotal,
			Notes:      optionalText(it.Notes),
		})
	}

	order, err := tx.Q.CreateOrder(ctx, database.CreateOrderParams{
		TableID:          table.ID,
		CustomerID:       req.CustomerID,
		WaiterID:         table.WaiterID,
		Subtotal:         subtotal,
		Tip:              req.Tip,
		Total:            subtotal.Add(req.Tip),
		EstimatedMinutes: estimateMinutes(totalQty),
		Notes:            optionalText(req.Notes),
		CreatedAt:        tx.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(lines))
	for _, line := range lines {
		line.OrderID = order.ID
		it, err := tx.Q.CreateOrderItem(ctx, line)
		if err != nil {
			return nil, fmt.Errorf("create order item %d: %w", line.LineNo, err)
		}
		items = append(items, it)
	}

	if _, err := m.tables.ensureStatus(ctx, tx, table, enum.TableStatusHasOrder, enum.TableStatusOccupied); err != nil {
		return nil, err
	}

	m.orderChanged(tx, order, "")
	if err := m.router.notifyTableWaiterOrDefer(ctx, tx, table.ID, Message{
		Category: enum.NotificationNewOrder,
		Title:    fmt.Sprintf("New order for table %d", table.ID),
		Body:     fmt.Sprintf("%d item(s), total %s", totalQty, order.Total.StringFixed(2)),
		Priority: enum.PriorityHigh,
		Payload:  map[string]any{"order_id": order.ID, "table_id": table.ID},
	}); err != nil {
		return nil, err
	}

	return &OrderDetail{Order: order, Items: items}, nil
}

// Advance moves an order exactly one step forward, or to cancelled from
// pending or in_preparation.
func (m *OrderManager) Advance(ctx context.Context, tx *Tx, orderID uuid.UUID, target string) (database.Order, error) {
	o, err := tx.Q.GetOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, lookupErr("order", err)
	}
	if !isAllowedOrderTransition(o.Status, target) {
		return database.Order{}, &TransitionError{Entity: "order", From: o.Status, To: target}
	}
	if target == enum.OrderStatusCancelled {
		return m.cancel(ctx, tx, o, "")
	}

	updated, err := tx.Q.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         o.ID,
		Status:     target,
		PrevStatus: o.Status,
		UpdatedAt:  tx.Now,
	})
	if err != nil {
		return database.Order{}, casErr("order", err)
	}
	m.orderChanged(tx, updated, o.Status)

	switch target {
	case enum.OrderStatusReady:
		if err := m.router.notifyOrderWaiter(ctx, tx, updated, Message{
			Category: enum.NotificationOrderReady,
			Title:    fmt.Sprintf("Order ready for table %d", updated.TableID),
			Body:     "Pick up at the pass",
			Priority: enum.PriorityNormal,
			Payload:  map[string]any{"order_id": updated.ID, "table_id": updated.TableID},
		}); err != nil {
			return database.Order{}, err
		}
	case enum.OrderStatusDelivered:
		if err := m.releaseCook(ctx, tx, updated.ID); err != nil {
			return database.Order{}, err
		}
	}
	return updated, nil
}

// AssignCook records a cook on the order. Assigning a pending order accepts
// it: the order moves to in_preparation in the same step.
func (m *OrderManager) AssignCook(ctx context.Context, tx *Tx, orderID, cookID uuid.UUID) (database.Order, error) {
	o, err := tx.Q.GetOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, lookupErr("order", err)
	}
	switch o.Status {
	case enum.OrderStatusPending, enum.OrderStatusInPreparation:
	case enum.OrderStatusReady:
		return database.Order{}, preconditionf("order %s is already ready", o.ID)
	default:
		return database.Order{}, fmt.Errorf("order %s is %s: %w", o.ID, o.Status, ErrAlreadyFinalized)
	}

	cook, err := tx.Q.GetUserByID(ctx, cookID)
	if err != nil {
		return database.Order{}, lookupErr("cook", err)
	}
	if cook.Role != enum.RoleKitchen {
		return database.Order{}, preconditionf("user %s is a %s, not kitchen staff", cookID, cook.Role)
	}

	if err := m.releaseCook(ctx, tx, o.ID); err != nil {
		return database.Order{}, err
	}
	if _, err := tx.Q.CreateStaffAssignment(ctx, database.CreateStaffAssignmentParams{
		Kind:       enum.AssignmentKindOrder,
		StaffID:    cookID,
		OrderID:    pgtype.UUID{Bytes: o.ID, Valid: true},
		AssignedAt: tx.Now,
	}); err != nil {
		return database.Order{}, assignmentErr(err)
	}

	updated, err := tx.Q.SetOrderCook(ctx, database.SetOrderCookParams{
		ID:         o.ID,
		CookID:     pgtype.UUID{Bytes: cookID, Valid: true},
		Status:     enum.OrderStatusInPreparation,
		PrevStatus: o.Status,
		UpdatedAt:  tx.Now,
	})
	if err != nil {
		return database.Order{}, casErr("order", err)
	}
	if o.Status != updated.Status {
		m.orderChanged(tx, updated, o.Status)
	}
	return updated, nil
}

// UnassignCook hands an in-preparation order back to the pending queue.
func (m *OrderManager) UnassignCook(ctx context.Context, tx *Tx, orderID uuid.UUID) (database.Order, error) {
	o, err := tx.Q.GetOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, lookupErr("order", err)
	}
	if enum.IsTerminalOrderStatus(o.Status) {
		return database.Order{}, fmt.Errorf("order %s is %s: %w", o.ID, o.Status, ErrAlreadyFinalized)
	}
	if !o.CookID.Valid {
		return database.Order{}, preconditionf("order %s has no cook", o.ID)
	}
	if o.Status != enum.OrderStatusInPreparation {
		return database.Order{}, &TransitionError{Entity: "order", From: o.Status, To: enum.OrderStatusPending}
	}

	updated, err := tx.Q.SetOrderCook(ctx, database.SetOrderCookParams{
		ID:         o.ID,
		Status:     enum.OrderStatusPending,
		PrevStatus: o.Status,
		UpdatedAt:  tx.Now,
	})
	if err != nil {
		return database.Order{}, casErr("order", err)
	}
	if err := m.releaseCook(ctx, tx, o.ID); err != nil {
		return database.Order{}, err
	}
	m.orderChanged(tx, updated, o.Status)
	return updated, nil
}

// Cancel stops an order that has not reached the pass yet.
func (m *OrderManager) Cancel(ctx context.Context, tx *Tx, orderID uuid.UUID, reason string) (database.Order, error) {
	o, err := tx.Q.GetOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, lookupErr("order", err)
	}
	if enum.IsTerminalOrderStatus(o.Status) {
		return database.Order{}, fmt.Errorf("order %s is %s: %w", o.ID, o.Status, ErrAlreadyFinalized)
	}
	if !isAllowedOrderTransition(o.Status, enum.OrderStatusCancelled) {
		return database.Order{}, &TransitionError{Entity: "order", From: o.Status, To: enum.OrderStatusCancelled}
	}
	return m.cancel(ctx, tx, o, reason)
}

func (m *OrderManager) cancel(ctx context.Context, tx *Tx, o database.Order, reason string) (database.Order, error) {
	updated, err := tx.Q.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:           o.ID,
		Status:       enum.OrderStatusCancelled,
		PrevStatus:   o.Status,
		CancelReason: optionalText(reason),
		UpdatedAt:    tx.Now,
	})
	if err != nil {
		return database.Order{}, casErr("order", err)
	}
	if err := m.releaseCook(ctx, tx, o.ID); err != nil {
		return database.Order{}, err
	}
	if err := m.tables.revertToOccupied(ctx, tx, o.TableID); err != nil {
		return database.Order{}, err
	}
	m.orderChanged(tx, updated, o.Status)
	return updated, nil
}

// CancelItem drops one line from a pending order and reprices it. The last
// remaining line cannot be dropped; cancel the order instead.
func (m *OrderManager) CancelItem(ctx context.Context, tx *Tx, orderID, itemID uuid.UUID) (*OrderDetail, error) {
	o, err := tx.Q.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookupErr("order", err)
	}
	if enum.IsTerminalOrderStatus(o.Status) {
		return nil, fmt.Errorf("order %s is %s: %w", o.ID, o.Status, ErrAlreadyFinalized)
	}
	if o.Status != enum.OrderStatusPending {
		return nil, preconditionf("order %s is already %s", o.ID, o.Status)
	}

	items, err := tx.Q.ListOrderItemsByOrder(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	remaining := 0
	found := false
	for _, it := range items {
		if it.IsCancelled {
			continue
		}
		remaining++
		if it.ID == itemID {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("order item %s: %w", itemID, ErrNotFound)
	}
	if remaining == 1 {
		return nil, preconditionf("item %s is the last one on order %s", itemID, o.ID)
	}

	if _, err := tx.Q.CancelOrderItem(ctx, database.CancelOrderItemParams{ID: itemID, OrderID: o.ID}); err != nil {
		return nil, casErr("order item", err)
	}

	subtotal := decimal.Zero
	var totalQty int32
	for i, it := range items {
		if it.ID == itemID {
			items[i].IsCancelled = true
			continue
		}
		if it.IsCancelled {
			continue
		}
		subtotal = subtotal.Add(it.Subtotal)
		totalQty += it.Quantity
	}

	updated, err := tx.Q.UpdateOrderTotals(ctx, database.UpdateOrderTotalsParams{
		ID:               o.ID,
		Subtotal:         subtotal,
		Total:            subtotal.Add(o.Tip),
		EstimatedMinutes: estimateMinutes(totalQty),
		PrevStatus:       enum.OrderStatusPending,
		UpdatedAt:        tx.Now,
	})
	if err != nil {
		return nil, casErr("order", err)
	}
	return &OrderDetail{Order: updated, Items: items}, nil
}

func (m *OrderManager) releaseCook(ctx context.Context, tx *Tx, orderID uuid.UUID) error {
	if _, err := tx.Q.ReleaseOrderAssignments(ctx, database.ReleaseOrderAssignmentsParams{
		OrderID:    orderID,
		ReleasedAt: tx.Now,
	}); err != nil {
		return fmt.Errorf("release cook assignment: %w", err)
	}
	return nil
}

func (m *OrderManager) orderChanged(tx *Tx, o database.Order, from string) {
	tx.emit(events.Event{
		Type: events.TypeOrderStatusChanged,
		Key:  o.ID.String(),
		Payload: map[string]any{
			"order_id":    o.ID,
			"table_id":    o.TableID,
			"from_status": from,
			"status":      o.Status,
		},
	})
}

// Detail loads an order with its items.
func (m *OrderManager) Detail(ctx context.Context, q database.Querier, orderID uuid.UUID) (*OrderDetail, error) {
	o, err := q.GetOrder(ctx, orderID)
	if err != nil {
		return nil, lookupErr("order", err)
	}
	items, err := q.ListOrderItemsByOrder(ctx, o.ID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return &OrderDetail{Order: o, Items: items}, nil
}

// KitchenQueue lists orders still owed by the kitchen, oldest first.
func (m *OrderManager) KitchenQueue(ctx context.Context, q database.Querier, now time.Time) ([]QueuedOrder, error) {
	orders, err := q.ListKitchenQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("list kitchen queue: %w", err)
	}
	out := make([]QueuedOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, QueuedOrder{
			Order:       o,
			WaitMinutes: int(now.Sub(o.CreatedAt) / time.Minute),
			Priority:    WaitPriority(o.CreatedAt, now),
		})
	}
	return out, nil
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
