package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// SendRequest is an admin-authored notification. Exactly one target is set.
type SendRequest struct {
	RecipientID *uuid.UUID
	Shift       string
	Roles       []string
	TableID     *int32
	Message     Message
}

// SendNotification routes an explicit notification. Unlike lifecycle side
// effects, a missing assignee is returned to the caller.
func (c *Coordinator) SendNotification(ctx context.Context, a Actor, req SendRequest) ([]database.Notification, error) {
	if err := authorize(a, capNotify); err != nil {
		return nil, err
	}

	targets := 0
	if req.RecipientID != nil {
		targets++
	}
	if req.Shift != "" {
		targets++
	}
	if req.TableID != nil {
		targets++
	}
	if targets != 1 {
		return nil, fmt.Errorf("%w: exactly one of recipient_id, shift, table_id is required", ErrInvalidNotification)
	}

	var out []database.Notification
	err := c.run(ctx, func(tx *Tx) error {
		switch {
		case req.RecipientID != nil:
			n, err := c.Router.NotifyStaff(ctx, tx, *req.RecipientID, req.Message)
			if err != nil {
				return err
			}
			out = []database.Notification{n}
		case req.Shift != "":
			ns, err := c.Router.NotifyShift(ctx, tx, req.Shift, req.Roles, req.Message)
			if err != nil {
				return err
			}
			out = ns
		default:
			n, err := c.Router.NotifyTableWaiter(ctx, tx, *req.TableID, req.Message)
			if err != nil {
				return err
			}
			out = []database.Notification{n}
		}
		return nil
	})
	return out, err
}

// Inbox lists the actor's own notifications in delivery order.
func (c *Coordinator) Inbox(ctx context.Context, a Actor, unreadOnly bool) ([]database.Notification, error) {
	params := database.ListNotificationsParams{RecipientID: a.ID}
	if unreadOnly {
		params.IsRead = pgtype.Bool{Bool: false, Valid: true}
	}
	ns, err := c.store.ListNotifications(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

// MarkRead flips the read flag. Only the recipient may do it.
func (c *Coordinator) MarkRead(ctx context.Context, a Actor, notificationID uuid.UUID) (database.Notification, error) {
	var n database.Notification
	err := c.run(ctx, func(tx *Tx) error {
		existing, err := tx.Q.GetNotification(ctx, notificationID)
		if err != nil {
			return lookupErr("notification", err)
		}
		if !existing.RecipientID.Valid || existing.RecipientID.Bytes != a.ID {
			return fmt.Errorf("notification %s: %w", notificationID, ErrForbidden)
		}
		n, err = tx.Q.MarkNotificationRead(ctx, database.MarkNotificationReadParams{
			ID:          notificationID,
			RecipientID: a.ID,
			ReadAt:      tx.Now,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return lookupErr("notification", err)
		}
		return err
	})
	return n, err
}

// Clear deletes the actor's read notifications and reports how many went.
func (c *Coordinator) Clear(ctx context.Context, a Actor) (int64, error) {
	var n int64
	err := c.run(ctx, func(tx *Tx) (err error) {
		n, err = tx.Q.DeleteReadNotifications(ctx, a.ID)
		return err
	})
	return n, err
}

// UnreadFilter narrows UnreadCount. Admins may count across all recipients
// by table or shift; everybody else only counts their own inbox.
type UnreadFilter struct {
	TableID *int32
	Shift   string
}

func (c *Coordinator) UnreadCount(ctx context.Context, a Actor, f UnreadFilter) (int64, error) {
	params := database.CountUnreadNotificationsParams{Shift: optionalText(f.Shift)}
	if f.TableID != nil {
		params.TableID = pgtype.Int4{Int32: *f.TableID, Valid: true}
	}
	scoped := f.TableID != nil || f.Shift != ""
	if !scoped || authorize(a, capReadAll) != nil {
		params.RecipientID = pgtype.UUID{Bytes: a.ID, Valid: true}
	}
	n, err := c.store.CountUnreadNotifications(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}
