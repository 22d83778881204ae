// Package events carries floor events out of the service after a unit of
// work commits: to websocket clients and to a message broker.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeNotificationCreated  = "notification.created"
	TypeTableStatusChanged   = "table.status_changed"
	TypeOrderStatusChanged   = "order.status_changed"
	TypeInvoiceStatusChanged = "invoice.status_changed"
)

// Event is the envelope published for every committed change.
// RecipientID is set when the event targets one staff member.
type Event struct {
	Type        string     `json:"type"`
	Key         string     `json:"key"`
	RecipientID *uuid.UUID `json:"recipient_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
	Payload     any        `json:"payload"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers an event somewhere. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop drops every event. Used when EVENTS_BACKEND=none.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every publisher in order and joins their errors, so one
// failing sink never starves the others.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
