package service

import (
	"context"
	"testing"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderPricesFromMenu(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.OccupyTable(f.ctx, f.waiter, 1)
	require.NoError(t, err)

	d, err := f.c.PlaceOrder(f.ctx, f.customer, PlaceOrderRequest{
		TableID: 1,
		Items: []OrderLine{
			{MenuItemID: f.taco.ID, Quantity: 2, Notes: " no onion "},
			{MenuItemID: f.agua.ID, Quantity: 1},
		},
		Tip: decimal.RequireFromString("10"),
	})
	require.NoError(t, err)

	assert.Equal(t, enum.OrderStatusPending, d.Order.Status)
	assert.Equal(t, f.customer.ID, d.Order.CustomerID)
	assert.Equal(t, "62.50", d.Order.Subtotal.StringFixed(2))
	assert.Equal(t, "72.50", d.Order.Total.StringFixed(2))
	assert.Equal(t, int32(19), d.Order.EstimatedMinutes)

	require.Len(t, d.Items, 2)
	assert.Equal(t, int32(1), d.Items[0].LineNo)
	assert.Equal(t, "taco", d.Items[0].Name)
	assert.Equal(t, "no onion", d.Items[0].Notes.String)
	assert.Equal(t, int32(2), d.Items[1].LineNo)

	assert.Equal(t, enum.TableStatusHasOrder, f.table(t, 1).Status)
}

func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name    string
		table   int32
		items   func(f *fixture) []OrderLine
		tip     string
		wantErr error
	}{
		{
			name:    "no items",
			table:   1,
			items:   func(*fixture) []OrderLine { return nil },
			wantErr: ErrEmptyItems,
		},
		{
			name:  "zero quantity",
			table: 1,
			items: func(f *fixture) []OrderLine {
				return []OrderLine{{MenuItemID: f.taco.ID, Quantity: 0}}
			},
			wantErr: ErrInvalidQuantity,
		},
		{
			name:  "negative tip",
			table: 1,
			items: func(f *fixture) []OrderLine {
				return []OrderLine{{MenuItemID: f.taco.ID, Quantity: 1}}
			},
			tip:     "-1",
			wantErr: ErrInvalidTip,
		},
		{
			name:  "unknown menu item",
			table: 1,
			items: func(*fixture) []OrderLine {
				return []OrderLine{{MenuItemID: uuid.New(), Quantity: 1}}
			},
			wantErr: ErrNotFound,
		},
		{
			name:  "unavailable menu item",
			table: 1,
			items: func(f *fixture) []OrderLine {
				return []OrderLine{{MenuItemID: f.gone.ID, Quantity: 1}}
			},
			wantErr: ErrNotFound,
		},
		{
			name:  "free table",
			table: 2,
			items: func(f *fixture) []OrderLine {
				return []OrderLine{{MenuItemID: f.taco.ID, Quantity: 1}}
			},
			wantErr: ErrPreconditionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.c.OccupyTable(f.ctx, f.waiter, 1)
			require.NoError(t, err)

			req := PlaceOrderRequest{TableID: tt.table, Items: tt.items(f)}
			if tt.tip != "" {
				req.Tip = decimal.RequireFromString(tt.tip)
			}
			_, err = f.c.PlaceOrder(f.ctx, f.customer, req)
			require.ErrorIs(t, err, tt.wantErr)

			orders, err := f.c.ListOrders(f.ctx, OrderFilter{})
			require.NoError(t, err)
			assert.Empty(t, orders)
			assert.Equal(t, enum.TableStatusOccupied, f.table(t, 1).Status)
		})
	}
}

func TestPlaceOrderRejectsSecondActiveOrder(t *testing.T) {
	f := newFixture(t)
	f.seatAndOrder(t, 1, 1)

	_, err := f.c.PlaceOrder(f.ctx, f.customer, PlaceOrderRequest{
		TableID: 1,
		Items:   []OrderLine{{MenuItemID: f.taco.ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrPreconditionFailed)
}

func TestPlaceOrderCustomerCannotOrderForOthers(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.OccupyTable(f.ctx, f.waiter, 1)
	require.NoError(t, err)

	d, err := f.c.PlaceOrder(f.ctx, f.customer, PlaceOrderRequest{
		TableID:    1,
		CustomerID: f.admin.ID,
		Items:      []OrderLine{{MenuItemID: f.taco.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, f.customer.ID, d.Order.CustomerID)
}

func TestAdvanceRejectsNonAdjacent(t *testing.T) {
	// steps walks an order to the named status before the check
	steps := map[string][]string{
		enum.OrderStatusPending:       nil,
		enum.OrderStatusInPreparation: {enum.OrderStatusInPreparation},
		enum.OrderStatusReady:         {enum.OrderStatusInPreparation, enum.OrderStatusReady},
		enum.OrderStatusDelivered:     {enum.OrderStatusInPreparation, enum.OrderStatusReady, enum.OrderStatusDelivered},
		enum.OrderStatusCancelled:     {enum.OrderStatusCancelled},
	}
	all := []string{
		enum.OrderStatusPending,
		enum.OrderStatusInPreparation,
		enum.OrderStatusReady,
		enum.OrderStatusDelivered,
		enum.OrderStatusCancelled,
	}

	for from, path := range steps {
		for _, to := range all {
			if isAllowedOrderTransition(from, to) {
				continue
			}
			t.Run(from+"->"+to, func(t *testing.T) {
				f := newFixture(t)
				d := f.seatAndOrder(t, 1, 1)
				for _, s := range path {
					_, err := f.c.AdvanceOrder(f.ctx, f.admin, d.Order.ID, s)
					require.NoError(t, err)
				}

				_, err := f.c.AdvanceOrder(f.ctx, f.admin, d.Order.ID, to)
				require.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, from, f.order(t, d.Order.ID).Status)
			})
		}
	}
}

func TestAdvanceCapabilities(t *testing.T) {
	f := newFixture(t)
	d := f.seatAndOrder(t, 1, 1)

	_, err := f.c.AdvanceOrder(f.ctx, f.waiter, d.Order.ID, enum.OrderStatusInPreparation)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = f.c.AdvanceOrder(f.ctx, f.cook, d.Order.ID, enum.OrderStatusInPreparation)
	require.NoError(t, err)
	_, err = f.c.AdvanceOrder(f.ctx, f.cook, d.Order.ID, enum.OrderStatusReady)
	require.NoError(t, err)

	_, err = f.c.AdvanceOrder(f.ctx, f.cook, d.Order.ID, enum.OrderStatusDelivered)
	require.ErrorIs(t, err, ErrForbidden)
	_, err = f.c.AdvanceOrder(f.ctx, f.customer, d.Order.ID, enum.OrderStatusCancelled)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestReadyNotifiesOrderWaiter(t *testing.T) {
	f := newFixture(t)
	d := f.seatAndOrder(t, 1, 1)
	_, err := f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
	require.NoError(t, err)

	_, err = f.c.AdvanceOrder(f.ctx, f.cook, d.Order.ID, enum.OrderStatusReady)
	require.NoError(t, err)

	inbox, err := f.c.Inbox(f.ctx, f.waiter, true)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, enum.NotificationNewOrder, inbox[0].Category)
	assert.Equal(t, enum.PriorityHigh, inbox[0].Priority)
	assert.Equal(t, enum.NotificationOrderReady, inbox[1].Category)
	assert.Equal(t, enum.PriorityNormal, inbox[1].Priority)
	assert.Equal(t, int32(1), inbox[1].TableID.Int32)
}

func TestAssignCook(t *testing.T) {
	f := newFixture(t)
	d := f.seatAndOrder(t, 1, 2)

	t.Run("non kitchen user", func(t *testing.T) {
		_, err := f.c.AssignCook(f.ctx, f.admin, d.Order.ID, f.waiter.ID)
		require.ErrorIs(t, err, ErrPreconditionFailed)
	})

	t.Run("accepts pending order", func(t *testing.T) {
		o, err := f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
		require.NoError(t, err)
		assert.Equal(t, enum.OrderStatusInPreparation, o.Status)
		assert.Equal(t, f.cook.ID, uuid.UUID(o.CookID.Bytes))

		a, err := f.store.GetActiveOrderAssignment(f.ctx, d.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, f.cook.ID, a.StaffID)
	})

	t.Run("reassign keeps status", func(t *testing.T) {
		other := f.user(t, "Cook Eight", enum.RoleKitchen, enum.ShiftMorning)
		o, err := f.c.AssignCook(f.ctx, f.admin, d.Order.ID, other.ID)
		require.NoError(t, err)
		assert.Equal(t, enum.OrderStatusInPreparation, o.Status)

		a, err := f.store.GetActiveOrderAssignment(f.ctx, d.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, other.ID, a.StaffID)
	})

	t.Run("unassign returns to queue", func(t *testing.T) {
		o, err := f.c.UnassignCook(f.ctx, f.cook, d.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, enum.OrderStatusPending, o.Status)
		assert.False(t, o.CookID.Valid)

		_, err = f.store.GetActiveOrderAssignment(f.ctx, d.Order.ID)
		require.ErrorIs(t, err, pgx.ErrNoRows)

		_, err = f.c.UnassignCook(f.ctx, f.cook, d.Order.ID)
		require.ErrorIs(t, err, ErrPreconditionFailed)
	})

	t.Run("ready order", func(t *testing.T) {
		_, err := f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
		require.NoError(t, err)
		_, err = f.c.AdvanceOrder(f.ctx, f.cook, d.Order.ID, enum.OrderStatusReady)
		require.NoError(t, err)

		_, err = f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
		require.ErrorIs(t, err, ErrPreconditionFailed)
		_, err = f.c.UnassignCook(f.ctx, f.cook, d.Order.ID)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("delivered order", func(t *testing.T) {
		_, err := f.c.AdvanceOrder(f.ctx, f.waiter, d.Order.ID, enum.OrderStatusDelivered)
		require.NoError(t, err)

		_, err = f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
		require.ErrorIs(t, err, ErrAlreadyFinalized)

		_, err = f.store.GetActiveOrderAssignment(f.ctx, d.Order.ID)
		require.ErrorIs(t, err, pgx.ErrNoRows, "delivery releases the cook")
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("reverts table to occupied", func(t *testing.T) {
		f := newFixture(t)
		d := f.seatAndOrder(t, 1, 1)
		_, err := f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
		require.NoError(t, err)

		o, err := f.c.CancelOrder(f.ctx, f.cook, d.Order.ID, "out of masa")
		require.NoError(t, err)
		assert.Equal(t, enum.OrderStatusCancelled, o.Status)
		assert.Equal(t, "out of masa", o.CancelReason.String)

		tbl := f.table(t, 1)
		assert.Equal(t, enum.TableStatusOccupied, tbl.Status)
		assert.True(t, tbl.WaiterID.Valid, "the waiter keeps the table")

		_, err = f.store.GetActiveOrderAssignment(f.ctx, d.Order.ID)
		require.ErrorIs(t, err, pgx.ErrNoRows)

		// the table can order again
		_, err = f.c.PlaceOrder(f.ctx, f.customer, PlaceOrderRequest{
			TableID: 1,
			Items:   []OrderLine{{MenuItemID: f.agua.ID, Quantity: 1}},
		})
		require.NoError(t, err)
	})

	t.Run("ready order cannot be cancelled", func(t *testing.T) {
		f := newFixture(t)
		d := f.seatAndOrder(t, 1, 1)
		_, err := f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
		require.NoError(t, err)
		_, err = f.c.AdvanceOrder(f.ctx, f.cook, d.Order.ID, enum.OrderStatusReady)
		require.NoError(t, err)

		_, err = f.c.CancelOrder(f.ctx, f.waiter, d.Order.ID, "")
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("terminal order", func(t *testing.T) {
		f := newFixture(t)
		d := f.seatAndOrder(t, 1, 1)
		_, err := f.c.CancelOrder(f.ctx, f.waiter, d.Order.ID, "")
		require.NoError(t, err)

		_, err = f.c.CancelOrder(f.ctx, f.waiter, d.Order.ID, "")
		require.ErrorIs(t, err, ErrAlreadyFinalized)
	})

	t.Run("unknown order", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.c.CancelOrder(f.ctx, f.waiter, uuid.New(), "")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCancelOrderItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.OccupyTable(f.ctx, f.waiter, 1)
	require.NoError(t, err)
	d, err := f.c.PlaceOrder(f.ctx, f.customer, PlaceOrderRequest{
		TableID: 1,
		Items: []OrderLine{
			{MenuItemID: f.taco.ID, Quantity: 3},
			{MenuItemID: f.agua.ID, Quantity: 2},
		},
		Tip: decimal.RequireFromString("5"),
	})
	require.NoError(t, err)
	require.Equal(t, "100.00", d.Order.Subtotal.StringFixed(2))

	stranger := f.user(t, "Customer 43", enum.RoleCustomer, "")
	_, err = f.c.CancelOrderItem(f.ctx, stranger, d.Order.ID, d.Items[1].ID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := f.c.CancelOrderItem(f.ctx, f.customer, d.Order.ID, d.Items[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "75.00", got.Order.Subtotal.StringFixed(2))
	assert.Equal(t, "80.00", got.Order.Total.StringFixed(2))
	assert.Equal(t, int32(19), got.Order.EstimatedMinutes)
	assert.True(t, got.Items[1].IsCancelled)

	_, err = f.c.CancelOrderItem(f.ctx, f.customer, d.Order.ID, d.Items[1].ID)
	require.ErrorIs(t, err, ErrNotFound, "already cancelled lines are gone")

	_, err = f.c.CancelOrderItem(f.ctx, f.customer, d.Order.ID, d.Items[0].ID)
	require.ErrorIs(t, err, ErrPreconditionFailed, "last line stays")

	_, err = f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
	require.NoError(t, err)
	_, err = f.c.CancelOrderItem(f.ctx, f.waiter, d.Order.ID, d.Items[0].ID)
	require.ErrorIs(t, err, ErrPreconditionFailed, "kitchen already started")
}

func TestWaitPriority(t *testing.T) {
	created := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		wait time.Duration
		want string
	}{
		{0, enum.WaitPriorityLow},
		{15 * time.Minute, enum.WaitPriorityLow},
		{15*time.Minute + time.Second, enum.WaitPriorityMedium},
		{30 * time.Minute, enum.WaitPriorityMedium},
		{31 * time.Minute, enum.WaitPriorityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.wait.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, WaitPriority(created, created.Add(tt.wait)))
		})
	}
}

func TestKitchenQueue(t *testing.T) {
	f := newFixture(t)
	first := f.seatAndOrder(t, 1, 1)
	f.advance(10 * time.Minute)
	second := f.seatAndOrder(t, 2, 1)
	f.advance(10 * time.Minute)
	third := f.seatAndOrder(t, 3, 1)
	_, err := f.c.CancelOrder(f.ctx, f.waiter, third.Order.ID, "")
	require.NoError(t, err)
	f.advance(15 * time.Minute)

	queue, err := f.c.KitchenQueue(f.ctx)
	require.NoError(t, err)
	require.Len(t, queue, 2)

	assert.Equal(t, first.Order.ID, queue[0].Order.ID)
	assert.Equal(t, 35, queue[0].WaitMinutes)
	assert.Equal(t, enum.WaitPriorityHigh, queue[0].Priority)

	assert.Equal(t, second.Order.ID, queue[1].Order.ID)
	assert.Equal(t, 25, queue[1].WaitMinutes)
	assert.Equal(t, enum.WaitPriorityMedium, queue[1].Priority)
}

func TestListOrdersFilters(t *testing.T) {
	f := newFixture(t)
	a := f.seatAndOrder(t, 1, 1)
	f.seatAndOrder(t, 2, 1)
	_, err := f.c.AssignCook(f.ctx, f.cook, a.Order.ID, f.cook.ID)
	require.NoError(t, err)

	table := int32(2)
	byTable, err := f.c.ListOrders(f.ctx, OrderFilter{TableID: &table})
	require.NoError(t, err)
	require.Len(t, byTable, 1)

	byCook, err := f.c.ListOrders(f.ctx, OrderFilter{CookID: &f.cook.ID})
	require.NoError(t, err)
	require.Len(t, byCook, 1)
	assert.Equal(t, a.Order.ID, byCook[0].ID)

	pending, err := f.c.ListOrders(f.ctx, OrderFilter{Status: enum.OrderStatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

// racingQuerier loses every order CAS, as if another request got there
// first.
type racingQuerier struct {
	database.Querier
}

func (racingQuerier) UpdateOrderStatus(context.Context, database.UpdateOrderStatusParams) (database.Order, error) {
	return database.Order{}, pgx.ErrNoRows
}

type racingTransactor struct {
	inner Transactor
}

func (r racingTransactor) WithinTx(ctx context.Context, fn func(database.Querier) error) error {
	return r.inner.WithinTx(ctx, func(q database.Querier) error {
		return fn(racingQuerier{q})
	})
}

func TestLostUpdateIsConcurrentUpdate(t *testing.T) {
	f := newFixture(t)
	d := f.seatAndOrder(t, 1, 1)
	f.pub.reset()

	racing := NewCoordinator(f.store, racingTransactor{f.store}, f.pub, Config{ShiftChangeHour: 15})
	_, err := racing.AdvanceOrder(f.ctx, f.cook, d.Order.ID, enum.OrderStatusInPreparation)
	require.ErrorIs(t, err, ErrConcurrentUpdate)
	assert.Equal(t, enum.OrderStatusPending, f.order(t, d.Order.ID).Status)
	assert.Empty(t, f.pub.events, "nothing is published for a failed action")
}

// failingItemQuerier breaks half way through placing an order.
type failingItemQuerier struct {
	database.Querier
}

func (failingItemQuerier) CreateOrderItem(context.Context, database.CreateOrderItemParams) (database.OrderItem, error) {
	return database.OrderItem{}, assert.AnError
}

type failingItemTransactor struct {
	inner Transactor
}

func (r failingItemTransactor) WithinTx(ctx context.Context, fn func(database.Querier) error) error {
	return r.inner.WithinTx(ctx, func(q database.Querier) error {
		return fn(failingItemQuerier{q})
	})
}

func TestPlaceOrderIsAtomic(t *testing.T) {
	f := newFixture(t)
	_, err := f.c.OccupyTable(f.ctx, f.waiter, 1)
	require.NoError(t, err)
	f.pub.reset()

	broken := NewCoordinator(f.store, failingItemTransactor{f.store}, f.pub, Config{ShiftChangeHour: 15})
	_, err = broken.PlaceOrder(f.ctx, f.customer, PlaceOrderRequest{
		TableID: 1,
		Items:   []OrderLine{{MenuItemID: f.taco.ID, Quantity: 1}},
	})
	require.ErrorIs(t, err, assert.AnError)

	orders, err := f.c.ListOrders(f.ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders, "the order row rolled back with the failed item")
	assert.Equal(t, enum.TableStatusOccupied, f.table(t, 1).Status)
	assert.Empty(t, f.pub.ofType(events.TypeOrderStatusChanged))
}

// duplicateAssignmentQuerier acts like Postgres when another request has
// just inserted the order's active cook assignment.
type duplicateAssignmentQuerier struct {
	database.Querier
}

func (duplicateAssignmentQuerier) CreateStaffAssignment(context.Context, database.CreateStaffAssignmentParams) (database.StaffAssignment, error) {
	return database.StaffAssignment{}, &pgconn.PgError{Code: "23505", ConstraintName: "staff_assignments_active_order_idx"}
}

type duplicateAssignmentTransactor struct {
	inner Transactor
}

func (r duplicateAssignmentTransactor) WithinTx(ctx context.Context, fn func(database.Querier) error) error {
	return r.inner.WithinTx(ctx, func(q database.Querier) error {
		return fn(duplicateAssignmentQuerier{q})
	})
}

func TestAssignCookRaceIsConcurrentUpdate(t *testing.T) {
	f := newFixture(t)
	d := f.seatAndOrder(t, 1, 1)
	_, err := f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
	require.NoError(t, err)

	racing := NewCoordinator(f.store, duplicateAssignmentTransactor{f.store}, f.pub, Config{ShiftChangeHour: 15})
	_, err = racing.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
	require.ErrorIs(t, err, ErrConcurrentUpdate)

	o := f.order(t, d.Order.ID)
	assert.Equal(t, enum.OrderStatusInPreparation, o.Status)
	assert.Equal(t, f.cook.ID, uuid.UUID(o.CookID.Bytes), "first assignment survives")
}
