// Package memory is an in-process implementation of database.Querier. It is
// used for local runs without Postgres (STORE_BACKEND=memory) and by the
// service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/google/uuid"
)

type state struct {
	users         map[uuid.UUID]database.User
	tables        map[int32]database.DiningTable
	menu          map[uuid.UUID]database.MenuItem
	orders        map[uuid.UUID]database.Order
	orderItems    map[uuid.UUID]database.OrderItem
	invoices      map[uuid.UUID]database.Invoice
	cancellations map[uuid.UUID]database.InvoiceCancellation // keyed by invoice id
	notifications map[uuid.UUID]database.Notification
	assignments   map[uuid.UUID]database.StaffAssignment

	// insertion order, used to break created_at ties the way a serial key would
	inserted map[uuid.UUID]int64
	counter  int64
	seq      int64
}

func newState() *state {
	return &state{
		users:         map[uuid.UUID]database.User{},
		tables:        map[int32]database.DiningTable{},
		menu:          map[uuid.UUID]database.MenuItem{},
		orders:        map[uuid.UUID]database.Order{},
		orderItems:    map[uuid.UUID]database.OrderItem{},
		invoices:      map[uuid.UUID]database.Invoice{},
		cancellations: map[uuid.UUID]database.InvoiceCancellation{},
		notifications: map[uuid.UUID]database.Notification{},
		assignments:   map[uuid.UUID]database.StaffAssignment{},
		inserted:      map[uuid.UUID]int64{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:         make(map[uuid.UUID]database.User, len(s.users)),
		tables:        make(map[int32]database.DiningTable, len(s.tables)),
		menu:          make(map[uuid.UUID]database.MenuItem, len(s.menu)),
		orders:        make(map[uuid.UUID]database.Order, len(s.orders)),
		orderItems:    make(map[uuid.UUID]database.OrderItem, len(s.orderItems)),
		invoices:      make(map[uuid.UUID]database.Invoice, len(s.invoices)),
		cancellations: make(map[uuid.UUID]database.InvoiceCancellation, len(s.cancellations)),
		notifications: make(map[uuid.UUID]database.Notification, len(s.notifications)),
		assignments:   make(map[uuid.UUID]database.StaffAssignment, len(s.assignments)),
		inserted:      make(map[uuid.UUID]int64, len(s.inserted)),
		counter:       s.counter,
		seq:           s.seq,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.menu {
		c.menu[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.cancellations {
		c.cancellations[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	for k, v := range s.assignments {
		c.assignments[k] = v
	}
	for k, v := range s.inserted {
		c.inserted[k] = v
	}
	return c
}

func (s *state) newID() uuid.UUID {
	id := uuid.New()
	s.counter++
	s.inserted[id] = s.counter
	return id
}

// before orders two rows by timestamp, then by insertion.
func (s *state) before(at, bt time.Time, a, b uuid.UUID) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return s.inserted[a] < s.inserted[b]
}

func sortBy[T any](s *state, rows []T, key func(T) (time.Time, uuid.UUID)) {
	sort.SliceStable(rows, func(i, j int) bool {
		at, a := key(rows[i])
		bt, b := key(rows[j])
		return s.before(at, bt, a, b)
	})
}

// Store serializes every writer behind one mutex. Calls made directly on the
// Store autocommit; WithinTx runs fn against a private copy of the state and
// swaps it in only when fn succeeds.
type Store struct {
	*queries

	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ database.Querier = (*Store)(nil)

func New() *Store {
	s := &Store{st: newState(), now: time.Now}
	s.queries = &queries{st: s.st, lock: &s.mu, now: s.clock}
	return s
}

// SetClock replaces the time source used for store-side timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) clock() time.Time {
	return s.now()
}

func (s *Store) WithinTx(ctx context.Context, fn func(database.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	draft := s.st.clone()
	if err := fn(&queries{st: draft, now: s.now}); err != nil {
		return err
	}
	*s.st = *draft
	return nil
}
