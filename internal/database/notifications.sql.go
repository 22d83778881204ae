package database

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const notificationColumns = `id, seq, recipient_id, table_id, shift, category, title, message, payload,
	priority, is_read, created_at, read_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var i Notification
	err := row.Scan(
		&i.ID,
		&i.Seq,
		&i.RecipientID,
		&i.TableID,
		&i.Shift,
		&i.Category,
		&i.Title,
		&i.Message,
		&i.Payload,
		&i.Priority,
		&i.IsRead,
		&i.CreatedAt,
		&i.ReadAt,
	)
	return i, err
}

func collectNotifications(rows pgx.Rows, err error) ([]Notification, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Notification
	for rows.Next() {
		i, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createNotification = `
INSERT INTO notifications (recipient_id, table_id, shift, category, title, message, payload, priority, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + notificationColumns

type CreateNotificationParams struct {
	RecipientID pgtype.UUID
	TableID     pgtype.Int4
	Shift       pgtype.Text
	Category    string
	Title       string
	Message     string
	Payload     json.RawMessage
	Priority    string
	CreatedAt   time.Time
}

func (q *Queries) CreateNotification(ctx context.Context, arg CreateNotificationParams) (Notification, error) {
	payload := arg.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return scanNotification(q.db.QueryRow(ctx, createNotification,
		arg.RecipientID,
		arg.TableID,
		arg.Shift,
		arg.Category,
		arg.Title,
		arg.Message,
		payload,
		arg.Priority,
		arg.CreatedAt,
	))
}

const getNotification = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

func (q *Queries) GetNotification(ctx context.Context, id uuid.UUID) (Notification, error) {
	return scanNotification(q.db.QueryRow(ctx, getNotification, id))
}

const listNotifications = `
SELECT ` + notificationColumns + ` FROM notifications
WHERE recipient_id = $1
  AND ($2::bool IS NULL OR is_read = $2)
ORDER BY seq`

type ListNotificationsParams struct {
	RecipientID uuid.UUID
	IsRead      pgtype.Bool
}

func (q *Queries) ListNotifications(ctx context.Context, arg ListNotificationsParams) ([]Notification, error) {
	return collectNotifications(q.db.Query(ctx, listNotifications, arg.RecipientID, arg.IsRead))
}

const markNotificationRead = `
UPDATE notifications SET is_read = true, read_at = COALESCE(read_at, $3)
WHERE id = $1 AND recipient_id = $2
RETURNING ` + notificationColumns

type MarkNotificationReadParams struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	ReadAt      time.Time
}

func (q *Queries) MarkNotificationRead(ctx context.Context, arg MarkNotificationReadParams) (Notification, error) {
	return scanNotification(q.db.QueryRow(ctx, markNotificationRead, arg.ID, arg.RecipientID, arg.ReadAt))
}

const deleteReadNotifications = `DELETE FROM notifications WHERE recipient_id = $1 AND is_read = true`

func (q *Queries) DeleteReadNotifications(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteReadNotifications, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const countUnreadNotifications = `
SELECT count(*) FROM notifications n
WHERE n.is_read = false
  AND n.recipient_id IS NOT NULL
  AND ($1::uuid IS NULL OR n.recipient_id = $1)
  AND ($2::int IS NULL OR n.table_id = $2)
  AND ($3::text IS NULL OR n.recipient_id IN (SELECT u.id FROM users u WHERE u.shift = $3))`

type CountUnreadNotificationsParams struct {
	RecipientID pgtype.UUID
	TableID     pgtype.Int4
	Shift       pgtype.Text
}

func (q *Queries) CountUnreadNotifications(ctx context.Context, arg CountUnreadNotificationsParams) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countUnreadNotifications, arg.RecipientID, arg.TableID, arg.Shift).Scan(&count)
	return count, err
}

// ClaimDeferredNotifications hands every recipient-less notification queued
// for a table to the given staff member.
const claimDeferredNotifications = `
UPDATE notifications SET recipient_id = $2
WHERE table_id = $1 AND recipient_id IS NULL
RETURNING ` + notificationColumns

type ClaimDeferredNotificationsParams struct {
	TableID     int32
	RecipientID uuid.UUID
}

func (q *Queries) ClaimDeferredNotifications(ctx context.Context, arg ClaimDeferredNotificationsParams) ([]Notification, error) {
	items, err := collectNotifications(q.db.Query(ctx, claimDeferredNotifications, arg.TableID, arg.RecipientID))
	if err != nil {
		return nil, err
	}
	// RETURNING carries no ordering guarantee.
	sort.Slice(items, func(i, j int) bool { return items[i].Seq < items[j].Seq })
	return items, nil
}

const deleteDeferredNotifications = `DELETE FROM notifications WHERE table_id = $1 AND recipient_id IS NULL`

func (q *Queries) DeleteDeferredNotifications(ctx context.Context, tableID int32) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDeferredNotifications, tableID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
