package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// queries mirrors the SQL in the database package. Missing rows and lost
// compare-and-swaps both report pgx.ErrNoRows, as Postgres does.
type queries struct {
	st   *state
	lock sync.Locker // nil inside WithinTx, which already holds the lock
	now  func() time.Time
}

func (q *queries) enter() func() {
	if q.lock == nil {
		return func() {}
	}
	q.lock.Lock()
	return q.lock.Unlock
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// ── users ──

func (q *queries) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	defer q.enter()()
	u, ok := q.st.users[id]
	if !ok || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (q *queries) GetUserByEmail(_ context.Context, email string) (database.User, error) {
	defer q.enter()()
	for _, u := range q.st.users {
		if u.Email == email && u.IsActive {
			return u, nil
		}
	}
	return database.User{}, pgx.ErrNoRows
}

func (q *queries) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	defer q.enter()()
	for _, u := range q.st.users {
		if u.Email == arg.Email {
			return database.User{}, &pgconn.PgError{Code: "23505", Message: fmt.Sprintf("duplicate email %q", arg.Email)}
		}
	}
	now := q.now()
	u := database.User{
		ID:             q.st.newID(),
		FullName:       arg.FullName,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		Role:           arg.Role,
		Shift:          arg.Shift,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	q.st.users[u.ID] = u
	return u, nil
}

func (q *queries) ListActiveUsersByShift(_ context.Context, arg database.ListActiveUsersByShiftParams) ([]database.User, error) {
	defer q.enter()()
	var out []database.User
	for _, u := range q.st.users {
		if !u.IsActive || !u.Shift.Valid || u.Shift.String != arg.Shift {
			continue
		}
		if len(arg.Roles) > 0 && !slices.Contains(arg.Roles, u.Role) {
			continue
		}
		out = append(out, u)
	}
	sortBy(q.st, out, func(u database.User) (time.Time, uuid.UUID) { return u.CreatedAt, u.ID })
	return out, nil
}

func (q *queries) UpdateUserShift(_ context.Context, arg database.UpdateUserShiftParams) (database.User, error) {
	defer q.enter()()
	u, ok := q.st.users[arg.ID]
	if !ok || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	u.Shift = arg.Shift
	u.UpdatedAt = q.now()
	q.st.users[u.ID] = u
	return u, nil
}

func (q *queries) DeactivateUser(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	defer q.enter()()
	u, ok := q.st.users[id]
	if !ok || !u.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	u.IsActive = false
	u.UpdatedAt = q.now()
	q.st.users[id] = u
	return id, nil
}

// ── tables ──

func (q *queries) GetTable(_ context.Context, id int32) (database.DiningTable, error) {
	defer q.enter()()
	t, ok := q.st.tables[id]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	return t, nil
}

// GetTableForUpdate needs no row lock: every transaction already runs alone.
func (q *queries) GetTableForUpdate(ctx context.Context, id int32) (database.DiningTable, error) {
	return q.GetTable(ctx, id)
}

func (q *queries) ListTables(_ context.Context, arg database.ListTablesParams) ([]database.DiningTable, error) {
	defer q.enter()()
	var out []database.DiningTable
	for _, t := range q.st.tables {
		if arg.Status.Valid && t.Status != arg.Status.String {
			continue
		}
		if arg.Zone.Valid && t.Zone != arg.Zone.String {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b database.DiningTable) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (q *queries) CreateTable(_ context.Context, arg database.CreateTableParams) (database.DiningTable, error) {
	defer q.enter()()
	if _, ok := q.st.tables[arg.ID]; ok {
		return database.DiningTable{}, fmt.Errorf("memory: duplicate table %d", arg.ID)
	}
	t := database.DiningTable{
		ID:        arg.ID,
		Capacity:  arg.Capacity,
		Zone:      arg.Zone,
		Status:    "free",
		UpdatedAt: q.now(),
	}
	q.st.tables[t.ID] = t
	return t, nil
}

func (q *queries) UpdateTableStatus(_ context.Context, arg database.UpdateTableStatusParams) (database.DiningTable, error) {
	defer q.enter()()
	t, ok := q.st.tables[arg.ID]
	if !ok || t.Status != arg.PrevStatus {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	t.Status = arg.Status
	t.WaiterID = arg.WaiterID
	t.OccupiedSince = arg.OccupiedSince
	t.UpdatedAt = q.now()
	q.st.tables[t.ID] = t
	return t, nil
}

func (q *queries) SetTableWaiter(_ context.Context, arg database.SetTableWaiterParams) (database.DiningTable, error) {
	defer q.enter()()
	t, ok := q.st.tables[arg.ID]
	if !ok {
		return database.DiningTable{}, pgx.ErrNoRows
	}
	t.WaiterID = arg.WaiterID
	t.UpdatedAt = q.now()
	q.st.tables[t.ID] = t
	return t, nil
}

// ── menu ──

func (q *queries) GetMenuItem(_ context.Context, id uuid.UUID) (database.MenuItem, error) {
	defer q.enter()()
	m, ok := q.st.menu[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return m, nil
}

func (q *queries) CreateMenuItem(_ context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	defer q.enter()()
	m := database.MenuItem{
		ID:          q.st.newID(),
		Name:        arg.Name,
		Price:       arg.Price,
		IsAvailable: arg.IsAvailable,
	}
	q.st.menu[m.ID] = m
	return m, nil
}

func (q *queries) ListMenuItems(_ context.Context, isAvailable pgtype.Bool) ([]database.MenuItem, error) {
	defer q.enter()()
	var out []database.MenuItem
	for _, m := range q.st.menu {
		if isAvailable.Valid && m.IsAvailable != isAvailable.Bool {
			continue
		}
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b database.MenuItem) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// ── orders ──

func orderKey(o database.Order) (time.Time, uuid.UUID) { return o.CreatedAt, o.ID }

func (q *queries) filterOrders(keep func(database.Order) bool) []database.Order {
	var out []database.Order
	for _, o := range q.st.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sortBy(q.st, out, orderKey)
	return out
}

func (q *queries) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	defer q.enter()()
	o, ok := q.st.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (q *queries) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	defer q.enter()()
	return q.filterOrders(func(o database.Order) bool {
		if arg.TableID.Valid && o.TableID != arg.TableID.Int32 {
			return false
		}
		if arg.Status.Valid && o.Status != arg.Status.String {
			return false
		}
		if arg.CookID.Valid && o.CookID != arg.CookID {
			return false
		}
		return true
	}), nil
}

func (q *queries) ListActiveOrdersByTable(_ context.Context, tableID int32) ([]database.Order, error) {
	defer q.enter()()
	return q.filterOrders(func(o database.Order) bool {
		return o.TableID == tableID && o.Status != "delivered" && o.Status != "cancelled"
	}), nil
}

func (q *queries) ListKitchenQueue(_ context.Context) ([]database.Order, error) {
	defer q.enter()()
	return q.filterOrders(func(o database.Order) bool {
		return o.Status == "pending" || o.Status == "in_preparation"
	}), nil
}

func (q *queries) CountOpenOrdersByTable(_ context.Context, tableID int32) (int64, error) {
	defer q.enter()()
	var n int64
	for _, o := range q.st.orders {
		if o.TableID == tableID && o.Status != "cancelled" && !o.InvoiceID.Valid {
			n++
		}
	}
	return n, nil
}

func (q *queries) CreateOrder(_ context.Context, arg database.CreateOrderParams) (database.Order, error) {
	defer q.enter()()
	if _, ok := q.st.tables[arg.TableID]; !ok {
		return database.Order{}, fmt.Errorf("memory: unknown table %d", arg.TableID)
	}
	o := database.Order{
		ID:               q.st.newID(),
		TableID:          arg.TableID,
		CustomerID:       arg.CustomerID,
		WaiterID:         arg.WaiterID,
		Status:           "pending",
		Subtotal:         arg.Subtotal,
		Tip:              arg.Tip,
		Total:            arg.Total,
		EstimatedMinutes: arg.EstimatedMinutes,
		Notes:            arg.Notes,
		CreatedAt:        arg.CreatedAt,
		UpdatedAt:        arg.CreatedAt,
	}
	q.st.orders[o.ID] = o
	return o, nil
}

func (q *queries) UpdateOrderStatus(_ context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	defer q.enter()()
	o, ok := q.st.orders[arg.ID]
	if !ok || o.Status != arg.PrevStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Status = arg.Status
	if arg.CancelReason.Valid {
		o.CancelReason = arg.CancelReason
	}
	o.UpdatedAt = arg.UpdatedAt
	q.st.orders[o.ID] = o
	return o, nil
}

func (q *queries) SetOrderCook(_ context.Context, arg database.SetOrderCookParams) (database.Order, error) {
	defer q.enter()()
	o, ok := q.st.orders[arg.ID]
	if !ok || o.Status != arg.PrevStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.CookID = arg.CookID
	o.Status = arg.Status
	o.UpdatedAt = arg.UpdatedAt
	q.st.orders[o.ID] = o
	return o, nil
}

func (q *queries) UpdateOrderTotals(_ context.Context, arg database.UpdateOrderTotalsParams) (database.Order, error) {
	defer q.enter()()
	o, ok := q.st.orders[arg.ID]
	if !ok || o.Status != arg.PrevStatus {
		return database.Order{}, pgx.ErrNoRows
	}
	o.Subtotal = arg.Subtotal
	o.Total = arg.Total
	o.EstimatedMinutes = arg.EstimatedMinutes
	o.UpdatedAt = arg.UpdatedAt
	q.st.orders[o.ID] = o
	return o, nil
}

func (q *queries) SetOrderInvoice(_ context.Context, arg database.SetOrderInvoiceParams) (database.Order, error) {
	defer q.enter()()
	o, ok := q.st.orders[arg.ID]
	if !ok || o.Status != "delivered" || o.InvoiceID.Valid {
		return database.Order{}, pgx.ErrNoRows
	}
	o.InvoiceID = pgUUID(arg.InvoiceID)
	q.st.orders[o.ID] = o
	return o, nil
}

func (q *queries) CreateOrderItem(_ context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	defer q.enter()()
	if _, ok := q.st.orders[arg.OrderID]; !ok {
		return database.OrderItem{}, fmt.Errorf("memory: unknown order %s", arg.OrderID)
	}
	for _, it := range q.st.orderItems {
		if it.OrderID == arg.OrderID && it.LineNo == arg.LineNo {
			return database.OrderItem{}, fmt.Errorf("memory: duplicate line %d on order %s", arg.LineNo, arg.OrderID)
		}
	}
	it := database.OrderItem{
		ID:         q.st.newID(),
		OrderID:    arg.OrderID,
		LineNo:     arg.LineNo,
		MenuItemID: arg.MenuItemID,
		Name:       arg.Name,
		Quantity:   arg.Quantity,
		UnitPrice:  arg.UnitPrice,
		Subtotal:   arg.Subtotal,
		Notes:      arg.Notes,
	}
	q.st.orderItems[it.ID] = it
	return it, nil
}

func (q *queries) ListOrderItemsByOrder(_ context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	defer q.enter()()
	var out []database.OrderItem
	for _, it := range q.st.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	slices.SortFunc(out, func(a, b database.OrderItem) int { return cmp.Compare(a.LineNo, b.LineNo) })
	return out, nil
}

func (q *queries) CancelOrderItem(_ context.Context, arg database.CancelOrderItemParams) (database.OrderItem, error) {
	defer q.enter()()
	it, ok := q.st.orderItems[arg.ID]
	if !ok || it.OrderID != arg.OrderID || it.IsCancelled {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	it.IsCancelled = true
	q.st.orderItems[it.ID] = it
	return it, nil
}

// ── invoices ──

func (q *queries) GetInvoice(_ context.Context, id uuid.UUID) (database.Invoice, error) {
	defer q.enter()()
	inv, ok := q.st.invoices[id]
	if !ok {
		return database.Invoice{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (q *queries) ListInvoices(_ context.Context, arg database.ListInvoicesParams) ([]database.Invoice, error) {
	defer q.enter()()
	var out []database.Invoice
	for _, inv := range q.st.invoices {
		if arg.Status.Valid && inv.Status != arg.Status.String {
			continue
		}
		if arg.From.Valid && inv.CreatedAt.Before(arg.From.Time) {
			continue
		}
		if arg.To.Valid && !inv.CreatedAt.Before(arg.To.Time) {
			continue
		}
		out = append(out, inv)
	}
	sortBy(q.st, out, func(i database.Invoice) (time.Time, uuid.UUID) { return i.CreatedAt, i.ID })
	return out, nil
}

func (q *queries) CountOpenInvoicesByTable(_ context.Context, tableID int32) (int64, error) {
	defer q.enter()()
	var n int64
	for _, inv := range q.st.invoices {
		if inv.TableID == tableID && (inv.Status == "pending" || inv.Status == "awaiting_cashier") {
			n++
		}
	}
	return n, nil
}

func (q *queries) CreateInvoice(_ context.Context, arg database.CreateInvoiceParams) (database.Invoice, error) {
	defer q.enter()()
	if _, ok := q.st.orders[arg.OrderID]; !ok {
		return database.Invoice{}, fmt.Errorf("memory: unknown order %s", arg.OrderID)
	}
	inv := database.Invoice{
		ID:        q.st.newID(),
		OrderID:   arg.OrderID,
		TableID:   arg.TableID,
		Subtotal:  arg.Subtotal,
		Tax:       arg.Tax,
		Tip:       arg.Tip,
		Total:     arg.Total,
		Status:    "pending",
		CreatedAt: arg.CreatedAt,
	}
	q.st.invoices[inv.ID] = inv
	return inv, nil
}

func (q *queries) UpdateInvoiceStatus(_ context.Context, arg database.UpdateInvoiceStatusParams) (database.Invoice, error) {
	defer q.enter()()
	inv, ok := q.st.invoices[arg.ID]
	if !ok || inv.Status != arg.PrevStatus {
		return database.Invoice{}, pgx.ErrNoRows
	}
	inv.Status = arg.Status
	if arg.PaymentMethod.Valid {
		inv.PaymentMethod = arg.PaymentMethod
	}
	if arg.CancelReason.Valid {
		inv.CancelReason = arg.CancelReason
	}
	if arg.SentAt.Valid {
		inv.SentAt = arg.SentAt
	}
	if arg.PaidAt.Valid {
		inv.PaidAt = arg.PaidAt
	}
	if arg.CancelledAt.Valid {
		inv.CancelledAt = arg.CancelledAt
	}
	q.st.invoices[inv.ID] = inv
	return inv, nil
}

func (q *queries) CreateInvoiceCancellation(_ context.Context, arg database.CreateInvoiceCancellationParams) (database.InvoiceCancellation, error) {
	defer q.enter()()
	if _, ok := q.st.cancellations[arg.InvoiceID]; ok {
		return database.InvoiceCancellation{}, fmt.Errorf("memory: invoice %s already has a cancellation", arg.InvoiceID)
	}
	c := database.InvoiceCancellation{
		ID:          q.st.newID(),
		InvoiceID:   arg.InvoiceID,
		Reason:      arg.Reason,
		Subtotal:    arg.Subtotal,
		Tax:         arg.Tax,
		Tip:         arg.Tip,
		Total:       arg.Total,
		CancelledBy: arg.CancelledBy,
		CancelledAt: arg.CancelledAt,
	}
	q.st.cancellations[c.InvoiceID] = c
	return c, nil
}

func (q *queries) GetInvoiceCancellation(_ context.Context, invoiceID uuid.UUID) (database.InvoiceCancellation, error) {
	defer q.enter()()
	c, ok := q.st.cancellations[invoiceID]
	if !ok {
		return database.InvoiceCancellation{}, pgx.ErrNoRows
	}
	return c, nil
}

// ── notifications ──

func (q *queries) sortedNotifications(keep func(database.Notification) bool) []database.Notification {
	var out []database.Notification
	for _, n := range q.st.notifications {
		if keep(n) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b database.Notification) int { return cmp.Compare(a.Seq, b.Seq) })
	return out
}

func (q *queries) CreateNotification(_ context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
	defer q.enter()()
	payload := json.RawMessage(`{}`)
	if len(arg.Payload) > 0 {
		payload = slices.Clone(arg.Payload)
	}
	q.st.seq++
	n := database.Notification{
		ID:          q.st.newID(),
		Seq:         q.st.seq,
		RecipientID: arg.RecipientID,
		TableID:     arg.TableID,
		Shift:       arg.Shift,
		Category:    arg.Category,
		Title:       arg.Title,
		Message:     arg.Message,
		Payload:     payload,
		Priority:    arg.Priority,
		CreatedAt:   arg.CreatedAt,
	}
	q.st.notifications[n.ID] = n
	return n, nil
}

func (q *queries) GetNotification(_ context.Context, id uuid.UUID) (database.Notification, error) {
	defer q.enter()()
	n, ok := q.st.notifications[id]
	if !ok {
		return database.Notification{}, pgx.ErrNoRows
	}
	return n, nil
}

func (q *queries) ListNotifications(_ context.Context, arg database.ListNotificationsParams) ([]database.Notification, error) {
	defer q.enter()()
	return q.sortedNotifications(func(n database.Notification) bool {
		if !n.RecipientID.Valid || n.RecipientID.Bytes != arg.RecipientID {
			return false
		}
		return !arg.IsRead.Valid || n.IsRead == arg.IsRead.Bool
	}), nil
}

func (q *queries) MarkNotificationRead(_ context.Context, arg database.MarkNotificationReadParams) (database.Notification, error) {
	defer q.enter()()
	n, ok := q.st.notifications[arg.ID]
	if !ok || !n.RecipientID.Valid || n.RecipientID.Bytes != arg.RecipientID {
		return database.Notification{}, pgx.ErrNoRows
	}
	n.IsRead = true
	if !n.ReadAt.Valid {
		n.ReadAt = pgtype.Timestamptz{Time: arg.ReadAt, Valid: true}
	}
	q.st.notifications[n.ID] = n
	return n, nil
}

func (q *queries) DeleteReadNotifications(_ context.Context, recipientID uuid.UUID) (int64, error) {
	defer q.enter()()
	var n int64
	for id, row := range q.st.notifications {
		if row.IsRead && row.RecipientID.Valid && row.RecipientID.Bytes == recipientID {
			delete(q.st.notifications, id)
			n++
		}
	}
	return n, nil
}

func (q *queries) CountUnreadNotifications(_ context.Context, arg database.CountUnreadNotificationsParams) (int64, error) {
	defer q.enter()()
	var count int64
	for _, n := range q.st.notifications {
		if n.IsRead || !n.RecipientID.Valid {
			continue
		}
		if arg.RecipientID.Valid && n.RecipientID.Bytes != arg.RecipientID.Bytes {
			continue
		}
		if arg.TableID.Valid && (!n.TableID.Valid || n.TableID.Int32 != arg.TableID.Int32) {
			continue
		}
		if arg.Shift.Valid {
			u, ok := q.st.users[n.RecipientID.Bytes]
			if !ok || !u.Shift.Valid || u.Shift.String != arg.Shift.String {
				continue
			}
		}
		count++
	}
	return count, nil
}

func (q *queries) ClaimDeferredNotifications(_ context.Context, arg database.ClaimDeferredNotificationsParams) ([]database.Notification, error) {
	defer q.enter()()
	claimed := q.sortedNotifications(func(n database.Notification) bool {
		return !n.RecipientID.Valid && n.TableID.Valid && n.TableID.Int32 == arg.TableID
	})
	for i := range claimed {
		claimed[i].RecipientID = pgUUID(arg.RecipientID)
		q.st.notifications[claimed[i].ID] = claimed[i]
	}
	return claimed, nil
}

func (q *queries) DeleteDeferredNotifications(_ context.Context, tableID int32) (int64, error) {
	defer q.enter()()
	var n int64
	for id, row := range q.st.notifications {
		if !row.RecipientID.Valid && row.TableID.Valid && row.TableID.Int32 == tableID {
			delete(q.st.notifications, id)
			n++
		}
	}
	return n, nil
}

// ── staff assignments ──

func (q *queries) activeAssignment(match func(database.StaffAssignment) bool) (database.StaffAssignment, error) {
	for _, a := range q.st.assignments {
		if a.IsActive && match(a) {
			return a, nil
		}
	}
	return database.StaffAssignment{}, pgx.ErrNoRows
}

func (q *queries) GetActiveTableAssignment(_ context.Context, tableID int32) (database.StaffAssignment, error) {
	defer q.enter()()
	return q.activeAssignment(func(a database.StaffAssignment) bool {
		return a.Kind == "table" && a.TableID.Valid && a.TableID.Int32 == tableID
	})
}

func (q *queries) GetActiveOrderAssignment(_ context.Context, orderID uuid.UUID) (database.StaffAssignment, error) {
	defer q.enter()()
	return q.activeAssignment(func(a database.StaffAssignment) bool {
		return a.Kind == "order" && a.OrderID.Valid && a.OrderID.Bytes == orderID
	})
}

func (q *queries) CreateStaffAssignment(_ context.Context, arg database.CreateStaffAssignmentParams) (database.StaffAssignment, error) {
	defer q.enter()()
	_, err := q.activeAssignment(func(a database.StaffAssignment) bool {
		if a.Kind != arg.Kind {
			return false
		}
		if arg.Kind == "table" {
			return a.TableID == arg.TableID
		}
		return a.OrderID == arg.OrderID
	})
	if err == nil {
		return database.StaffAssignment{}, fmt.Errorf("memory: active %s assignment already exists", arg.Kind)
	}
	a := database.StaffAssignment{
		ID:         q.st.newID(),
		Kind:       arg.Kind,
		StaffID:    arg.StaffID,
		TableID:    arg.TableID,
		OrderID:    arg.OrderID,
		IsActive:   true,
		AssignedAt: arg.AssignedAt,
	}
	q.st.assignments[a.ID] = a
	return a, nil
}

func (q *queries) release(at time.Time, match func(database.StaffAssignment) bool) int64 {
	var n int64
	for id, a := range q.st.assignments {
		if a.IsActive && match(a) {
			a.IsActive = false
			a.ReleasedAt = pgtype.Timestamptz{Time: at, Valid: true}
			q.st.assignments[id] = a
			n++
		}
	}
	return n
}

func (q *queries) ReleaseTableAssignments(_ context.Context, arg database.ReleaseTableAssignmentsParams) (int64, error) {
	defer q.enter()()
	return q.release(arg.ReleasedAt, func(a database.StaffAssignment) bool {
		return a.Kind == "table" && a.TableID.Valid && a.TableID.Int32 == arg.TableID
	}), nil
}

func (q *queries) ReleaseOrderAssignments(_ context.Context, arg database.ReleaseOrderAssignmentsParams) (int64, error) {
	defer q.enter()()
	return q.release(arg.ReleasedAt, func(a database.StaffAssignment) bool {
		return a.Kind == "order" && a.OrderID.Valid && a.OrderID.Bytes == arg.OrderID
	}), nil
}

func (q *queries) ListAssignmentsByTable(_ context.Context, tableID int32) ([]database.StaffAssignment, error) {
	defer q.enter()()
	var out []database.StaffAssignment
	for _, a := range q.st.assignments {
		if a.Kind == "table" && a.TableID.Valid && a.TableID.Int32 == tableID {
			out = append(out, a)
		}
	}
	sortBy(q.st, out, func(a database.StaffAssignment) (time.Time, uuid.UUID) { return a.AssignedAt, a.ID })
	return out, nil
}
