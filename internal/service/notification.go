package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/events"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Message is the content of a notification, independent of who gets it.
type Message struct {
	Category string
	Title    string
	Body     string
	Priority string
	Payload  map[string]any
	TableID  *int32
}

func (m Message) validate() error {
	if !enum.IsValidCategory(m.Category) {
		return fmt.Errorf("%w: category %q", ErrInvalidNotification, m.Category)
	}
	if !enum.IsValidPriority(m.Priority) {
		return fmt.Errorf("%w: priority %q", ErrInvalidNotification, m.Priority)
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidNotification)
	}
	return nil
}

// Router decides who hears about a transition. Records are written in the
// caller's transaction; delivery happens after commit from the Tx outbox.
type Router struct {
	shiftChangeHour int
}

func NewRouter(shiftChangeHour int) *Router {
	return &Router{shiftChangeHour: shiftChangeHour}
}

// NotifyStaff writes one notification for one staff member.
func (r *Router) NotifyStaff(ctx context.Context, tx *Tx, staffID uuid.UUID, msg Message) (database.Notification, error) {
	if err := msg.validate(); err != nil {
		return database.Notification{}, err
	}
	if _, err := tx.Q.GetUserByID(ctx, staffID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Notification{}, fmt.Errorf("staff %s: %w", staffID, ErrNoAssigneeFound)
		}
		return database.Notification{}, fmt.Errorf("get staff: %w", err)
	}
	return r.write(ctx, tx, pgtype.UUID{Bytes: staffID, Valid: true}, pgtype.Text{}, msg)
}

// NotifyShift writes one notification per active user on the shift, so
// read state stays per recipient. roles narrows the fan-out when given.
func (r *Router) NotifyShift(ctx context.Context, tx *Tx, shift string, roles []string, msg Message) ([]database.Notification, error) {
	if err := msg.validate(); err != nil {
		return nil, err
	}
	users, err := tx.Q.ListActiveUsersByShift(ctx, database.ListActiveUsersByShiftParams{
		Shift: shift,
		Roles: roles,
	})
	if err != nil {
		return nil, fmt.Errorf("list shift %s: %w", shift, err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("shift %s: %w", shift, ErrNoAssigneeFound)
	}

	out := make([]database.Notification, 0, len(users))
	for _, u := range users {
		n, err := r.write(ctx, tx, pgtype.UUID{Bytes: u.ID, Valid: true}, pgtype.Text{String: shift, Valid: true}, msg)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// NotifyTableWaiter targets whoever holds the table's active waiter
// assignment. With no assignment it fails with ErrNoAssigneeFound.
func (r *Router) NotifyTableWaiter(ctx context.Context, tx *Tx, tableID int32, msg Message) (database.Notification, error) {
	if err := msg.validate(); err != nil {
		return database.Notification{}, err
	}
	a, err := tx.Q.GetActiveTableAssignment(ctx, tableID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Notification{}, fmt.Errorf("table %d: %w", tableID, ErrNoAssigneeFound)
		}
		return database.Notification{}, fmt.Errorf("get table assignment: %w", err)
	}
	msg.TableID = &tableID
	return r.write(ctx, tx, pgtype.UUID{Bytes: a.StaffID, Valid: true}, pgtype.Text{}, msg)
}

// notifyTableWaiterOrDefer is what lifecycle actions use: a table nobody
// serves yet keeps the notification, recipient-less, until AssignWaiter
// claims it. The action itself never fails for lack of a waiter.
func (r *Router) notifyTableWaiterOrDefer(ctx context.Context, tx *Tx, tableID int32, msg Message) error {
	_, err := r.NotifyTableWaiter(ctx, tx, tableID, msg)
	if !errors.Is(err, ErrNoAssigneeFound) {
		return err
	}
	log.Printf("WARN: no waiter on table %d, deferring %s notification", tableID, msg.Category)
	msg.TableID = &tableID
	_, err = r.write(ctx, tx, pgtype.UUID{}, pgtype.Text{}, msg)
	return err
}

// notifyOrderWaiter prefers the waiter captured on the order and falls back
// to the table's current waiter.
func (r *Router) notifyOrderWaiter(ctx context.Context, tx *Tx, o database.Order, msg Message) error {
	if o.WaiterID.Valid {
		u, err := tx.Q.GetUserByID(ctx, o.WaiterID.Bytes)
		switch {
		case err == nil:
			msg.TableID = &o.TableID
			_, err = r.write(ctx, tx, pgtype.UUID{Bytes: u.ID, Valid: true}, pgtype.Text{}, msg)
			return err
		case !errors.Is(err, pgx.ErrNoRows):
			return fmt.Errorf("get order waiter: %w", err)
		}
	}
	return r.notifyTableWaiterOrDefer(ctx, tx, o.TableID, msg)
}

// ClaimDeferred hands queued notifications for a table to its new waiter
// and schedules their delivery.
func (r *Router) ClaimDeferred(ctx context.Context, tx *Tx, tableID int32, waiterID uuid.UUID) error {
	claimed, err := tx.Q.ClaimDeferredNotifications(ctx, database.ClaimDeferredNotificationsParams{
		TableID:     tableID,
		RecipientID: waiterID,
	})
	if err != nil {
		return fmt.Errorf("claim deferred notifications: %w", err)
	}
	for _, n := range claimed {
		tx.emit(notificationEvent(n))
	}
	return nil
}

// DiscardDeferred drops the notifications a table queued while it had no
// waiter.
func (r *Router) DiscardDeferred(ctx context.Context, tx *Tx, tableID int32) error {
	n, err := tx.Q.DeleteDeferredNotifications(ctx, tableID)
	if err != nil {
		return fmt.Errorf("discard deferred notifications: %w", err)
	}
	if n > 0 {
		log.Printf("WARN: table %d released with %d unclaimed notifications", tableID, n)
	}
	return nil
}

// TableChanged schedules a realtime table event for the table's waiter.
// Nothing is persisted.
func (r *Router) TableChanged(tx *Tx, t database.DiningTable, from string, waiter pgtype.UUID) {
	ev := events.Event{
		Type: events.TypeTableStatusChanged,
		Key:  fmt.Sprintf("table-%d", t.ID),
		Payload: map[string]any{
			"table_id":    t.ID,
			"from_status": from,
			"status":      t.Status,
		},
	}
	if waiter.Valid {
		id := uuid.UUID(waiter.Bytes)
		ev.RecipientID = &id
	}
	tx.emit(ev)
}

func (r *Router) write(ctx context.Context, tx *Tx, recipient pgtype.UUID, shift pgtype.Text, msg Message) (database.Notification, error) {
	payload := msg.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return database.Notification{}, fmt.Errorf("encode payload: %w", err)
	}

	var table pgtype.Int4
	if msg.TableID != nil {
		table = pgtype.Int4{Int32: *msg.TableID, Valid: true}
	}

	n, err := tx.Q.CreateNotification(ctx, database.CreateNotificationParams{
		RecipientID: recipient,
		TableID:     table,
		Shift:       shift,
		Category:    msg.Category,
		Title:       msg.Title,
		Message:     msg.Body,
		Payload:     raw,
		Priority:    msg.Priority,
		CreatedAt:   tx.Now,
	})
	if err != nil {
		return database.Notification{}, fmt.Errorf("create notification: %w", err)
	}
	if recipient.Valid {
		tx.emit(notificationEvent(n))
	}
	return n, nil
}

// CurrentShift is the shift running at the Tx timestamp.
func (r *Router) CurrentShift(tx *Tx) string {
	return enum.ShiftAt(tx.Now, r.shiftChangeHour)
}

func notificationEvent(n database.Notification) events.Event {
	recipient := uuid.UUID(n.RecipientID.Bytes)
	payload := map[string]any{
		"id":         n.ID,
		"seq":        n.Seq,
		"category":   n.Category,
		"title":      n.Title,
		"message":    n.Message,
		"priority":   n.Priority,
		"payload":    n.Payload,
		"created_at": n.CreatedAt,
	}
	if n.TableID.Valid {
		payload["table_id"] = n.TableID.Int32
	}
	return events.Event{
		Type:        events.TypeNotificationCreated,
		Key:         n.ID.String(),
		RecipientID: &recipient,
		Payload:     payload,
	}
}
