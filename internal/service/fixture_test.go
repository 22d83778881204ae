package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database/memory"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// recordingPublisher keeps every dispatched event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) ofType(typ string) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Event
	for _, ev := range p.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	c     *Coordinator
	pub   *recordingPublisher
	now   time.Time

	admin    Actor
	waiter   Actor
	cook     Actor
	cashier  Actor
	customer Actor

	taco database.MenuItem
	agua database.MenuItem
	gone database.MenuItem
}

// newFixture builds a coordinator over an empty memory store with one user
// per role on the morning shift, tables 1-6 and a small menu. The clock is
// fixed at 10:00, inside the morning shift.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:   context.Background(),
		store: memory.New(),
		pub:   &recordingPublisher{},
		now:   time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	f.store.SetClock(func() time.Time { return f.now })
	f.c = NewCoordinator(f.store, f.store, f.pub, Config{
		TaxRate:         decimal.RequireFromString("0.16"),
		ShiftChangeHour: 15,
	})
	f.c.SetClock(func() time.Time { return f.now })

	f.admin = f.user(t, "Ana Admin", enum.RoleAdmin, enum.ShiftMorning)
	f.waiter = f.user(t, "Walt Waiter", enum.RoleWaiter, enum.ShiftMorning)
	f.cook = f.user(t, "Cook Seven", enum.RoleKitchen, enum.ShiftMorning)
	f.cashier = f.user(t, "Cass Cashier", enum.RoleCashier, enum.ShiftMorning)
	f.customer = f.user(t, "Customer 42", enum.RoleCustomer, "")

	for id := int32(1); id <= 6; id++ {
		_, err := f.store.CreateTable(f.ctx, database.CreateTableParams{ID: id, Capacity: 4, Zone: enum.ZoneIndoor})
		require.NoError(t, err)
	}

	f.taco = f.menuItem(t, "taco", "25", true)
	f.agua = f.menuItem(t, "agua fresca", "12.50", true)
	f.gone = f.menuItem(t, "mole special", "90", false)
	return f
}

func (f *fixture) user(t *testing.T, name, role, shift string) Actor {
	t.Helper()
	var s pgtype.Text
	if shift != "" {
		s = pgtype.Text{String: shift, Valid: true}
	}
	u, err := f.store.CreateUser(f.ctx, database.CreateUserParams{
		FullName:       name,
		Email:          name + "@lachinga.test",
		HashedPassword: "x",
		Role:           role,
		Shift:          s,
	})
	require.NoError(t, err)
	return Actor{ID: u.ID, Role: u.Role}
}

func (f *fixture) menuItem(t *testing.T, name, price string, available bool) database.MenuItem {
	t.Helper()
	m, err := f.store.CreateMenuItem(f.ctx, database.CreateMenuItemParams{
		Name:        name,
		Price:       decimal.RequireFromString(price),
		IsAvailable: available,
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) table(t *testing.T, id int32) database.DiningTable {
	t.Helper()
	tbl, err := f.c.GetTable(f.ctx, id)
	require.NoError(t, err)
	return tbl
}

func (f *fixture) order(t *testing.T, id uuid.UUID) database.Order {
	t.Helper()
	d, err := f.c.GetOrder(f.ctx, id)
	require.NoError(t, err)
	return d.Order
}

// seatAndOrder occupies a table, gives it the fixture waiter and places an
// order of qty tacos.
func (f *fixture) seatAndOrder(t *testing.T, tableID int32, qty int32) *OrderDetail {
	t.Helper()
	_, err := f.c.OccupyTable(f.ctx, f.waiter, tableID)
	require.NoError(t, err)
	_, err = f.c.AssignWaiter(f.ctx, f.waiter, tableID, f.waiter.ID)
	require.NoError(t, err)
	d, err := f.c.PlaceOrder(f.ctx, f.customer, PlaceOrderRequest{
		TableID: tableID,
		Items:   []OrderLine{{MenuItemID: f.taco.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return d
}

// deliver walks an order through the kitchen and the pass.
func (f *fixture) deliver(t *testing.T, d *OrderDetail) {
	t.Helper()
	_, err := f.c.AssignCook(f.ctx, f.cook, d.Order.ID, f.cook.ID)
	require.NoError(t, err)
	_, err = f.c.AdvanceOrder(f.ctx, f.cook, d.Order.ID, enum.OrderStatusReady)
	require.NoError(t, err)
	_, err = f.c.AdvanceOrder(f.ctx, f.waiter, d.Order.ID, enum.OrderStatusDelivered)
	require.NoError(t, err)
}
