package service

import (
	"context"
	"fmt"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// allowedTableTransitions is the occupancy state machine. has_order never
// goes back to free directly: it has to be billed first.
var allowedTableTransitions = map[string][]string{
	enum.TableStatusFree:            {enum.TableStatusOccupied},
	enum.TableStatusOccupied:        {enum.TableStatusHasOrder, enum.TableStatusFree},
	enum.TableStatusHasOrder:        {enum.TableStatusAwaitingPayment},
	enum.TableStatusAwaitingPayment: {enum.TableStatusFree},
}

func isAllowedTableTransition(from, to string) bool {
	for _, s := range allowedTableTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TableManager owns table occupancy.
type TableManager struct {
	router *Router
}

func NewTableManager(router *Router) *TableManager {
	return &TableManager{router: router}
}

func (m *TableManager) Occupy(ctx context.Context, tx *Tx, tableID int32) (database.DiningTable, error) {
	return m.transition(ctx, tx, tableID, enum.TableStatusOccupied, func(p *database.UpdateTableStatusParams) {
		p.OccupiedSince = pgtype.Timestamptz{Time: tx.Now, Valid: true}
	})
}

func (m *TableManager) MarkHasOrder(ctx context.Context, tx *Tx, tableID int32) (database.DiningTable, error) {
	return m.transition(ctx, tx, tableID, enum.TableStatusHasOrder, nil)
}

func (m *TableManager) MarkAwaitingPayment(ctx context.Context, tx *Tx, tableID int32) (database.DiningTable, error) {
	return m.transition(ctx, tx, tableID, enum.TableStatusAwaitingPayment, nil)
}

// Release frees the table, drops its waiter and ends the active waiter
// assignment. Notifications still waiting for a waiter belong to the party
// that just left and are discarded.
func (m *TableManager) Release(ctx context.Context, tx *Tx, tableID int32) (database.DiningTable, error) {
	t, err := m.transition(ctx, tx, tableID, enum.TableStatusFree, func(p *database.UpdateTableStatusParams) {
		p.WaiterID = pgtype.UUID{}
		p.OccupiedSince = pgtype.Timestamptz{}
	})
	if err != nil {
		return database.DiningTable{}, err
	}
	if _, err := tx.Q.ReleaseTableAssignments(ctx, database.ReleaseTableAssignmentsParams{
		TableID:    tableID,
		ReleasedAt: tx.Now,
	}); err != nil {
		return database.DiningTable{}, fmt.Errorf("release waiter assignment: %w", err)
	}
	if err := m.router.DiscardDeferred(ctx, tx, tableID); err != nil {
		return database.DiningTable{}, err
	}
	return t, nil
}

// AssignWaiter supersedes the table's active waiter assignment and hands the
// new waiter any notifications that were queued while nobody was assigned.
func (m *TableManager) AssignWaiter(ctx context.Context, tx *Tx, tableID int32, waiterID uuid.UUID) (database.DiningTable, error) {
	if _, err := tx.Q.GetTableForUpdate(ctx, tableID); err != nil {
		return database.DiningTable{}, lookupErr("table", err)
	}

	waiter, err := tx.Q.GetUserByID(ctx, waiterID)
	if err != nil {
		return database.DiningTable{}, lookupErr("waiter", err)
	}
	if waiter.Role != enum.RoleWaiter {
		return database.DiningTable{}, preconditionf("user %s is a %s, not a waiter", waiterID, waiter.Role)
	}

	if _, err := tx.Q.ReleaseTableAssignments(ctx, database.ReleaseTableAssignmentsParams{
		TableID:    tableID,
		ReleasedAt: tx.Now,
	}); err != nil {
		return database.DiningTable{}, fmt.Errorf("release previous assignment: %w", err)
	}
	if _, err := tx.Q.CreateStaffAssignment(ctx, database.CreateStaffAssignmentParams{
		Kind:       enum.AssignmentKindTable,
		StaffID:    waiterID,
		TableID:    pgtype.Int4{Int32: tableID, Valid: true},
		AssignedAt: tx.Now,
	}); err != nil {
		return database.DiningTable{}, assignmentErr(err)
	}

	t, err := tx.Q.SetTableWaiter(ctx, database.SetTableWaiterParams{
		ID:       tableID,
		WaiterID: pgtype.UUID{Bytes: waiterID, Valid: true},
	})
	if err != nil {
		return database.DiningTable{}, casErr("table", err)
	}

	if err := m.router.ClaimDeferred(ctx, tx, tableID, waiterID); err != nil {
		return database.DiningTable{}, err
	}
	return t, nil
}

// ensureStatus moves the table to `to` unless it is already there. Any
// starting state outside from fails the precondition.
func (m *TableManager) ensureStatus(ctx context.Context, tx *Tx, t database.DiningTable, to string, from ...string) (database.DiningTable, error) {
	if t.Status == to {
		return t, nil
	}
	for _, s := range from {
		if t.Status == s {
			return m.apply(ctx, tx, t, to, nil)
		}
	}
	return database.DiningTable{}, preconditionf("table %d is %s", t.ID, t.Status)
}

// revertToOccupied is the coordinator-only step back from has_order taken
// when the table's last open order is cancelled. It is not a public
// transition.
func (m *TableManager) revertToOccupied(ctx context.Context, tx *Tx, tableID int32) error {
	t, err := tx.Q.GetTableForUpdate(ctx, tableID)
	if err != nil {
		return lookupErr("table", err)
	}
	if t.Status != enum.TableStatusHasOrder {
		return nil
	}
	open, err := tx.Q.CountOpenOrdersByTable(ctx, tableID)
	if err != nil {
		return fmt.Errorf("count open orders: %w", err)
	}
	if open > 0 {
		return nil
	}
	_, err = m.apply(ctx, tx, t, enum.TableStatusOccupied, nil)
	return err
}

// releaseIfSettled frees an awaiting_payment table once none of its invoices
// are still open and every delivered order on it has been billed.
func (m *TableManager) releaseIfSettled(ctx context.Context, tx *Tx, tableID int32) error {
	t, err := tx.Q.GetTableForUpdate(ctx, tableID)
	if err != nil {
		return lookupErr("table", err)
	}
	if t.Status != enum.TableStatusAwaitingPayment {
		return nil
	}
	open, err := tx.Q.CountOpenInvoicesByTable(ctx, tableID)
	if err != nil {
		return fmt.Errorf("count open invoices: %w", err)
	}
	if open > 0 {
		return nil
	}
	unbilled, err := tx.Q.CountOpenOrdersByTable(ctx, tableID)
	if err != nil {
		return fmt.Errorf("count open orders: %w", err)
	}
	if unbilled > 0 {
		return nil
	}
	_, err = m.Release(ctx, tx, tableID)
	return err
}

func (m *TableManager) transition(ctx context.Context, tx *Tx, tableID int32, to string, mutate func(*database.UpdateTableStatusParams)) (database.DiningTable, error) {
	t, err := tx.Q.GetTableForUpdate(ctx, tableID)
	if err != nil {
		return database.DiningTable{}, lookupErr("table", err)
	}
	if !isAllowedTableTransition(t.Status, to) {
		return database.DiningTable{}, &TransitionError{Entity: "table", From: t.Status, To: to}
	}
	return m.apply(ctx, tx, t, to, mutate)
}

func (m *TableManager) apply(ctx context.Context, tx *Tx, t database.DiningTable, to string, mutate func(*database.UpdateTableStatusParams)) (database.DiningTable, error) {
	params := database.UpdateTableStatusParams{
		ID:            t.ID,
		Status:        to,
		PrevStatus:    t.Status,
		WaiterID:      t.WaiterID,
		OccupiedSince: t.OccupiedSince,
	}
	if mutate != nil {
		mutate(&params)
	}

	updated, err := tx.Q.UpdateTableStatus(ctx, params)
	if err != nil {
		return database.DiningTable{}, casErr("table", err)
	}

	// the waiter who held the table hears about it even when release cleared it
	recipient := updated.WaiterID
	if !recipient.Valid {
		recipient = t.WaiterID
	}
	m.router.TableChanged(tx, updated, t.Status, recipient)
	return updated, nil
}
