// Package events carries domain events from the lifecycle services to the
// notification fan-out. Delivery is best-effort and unordered.
package events

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Name identifies a domain event.
type Name string

const (
	QuoteFinalized         Name = "quote.finalized"
	OrderStatusUpdated     Name = "order.status_updated"
	OrderAssigned          Name = "order.assigned"
	ProofUploaded          Name = "proof.uploaded"
	ProofApproved          Name = "proof.approved"
	ProofRevisionRequested Name = "proof.revision_requested"
	BookingCreated         Name = "booking.created"
	BookingConfirmed       Name = "booking.confirmed"
	BookingCancelled       Name = "booking.cancelled"
	BookingCompleted       Name = "booking.completed"
	PaymentCreated         Name = "payment.created"
	PaymentStatusUpdated   Name = "payment.status_updated"
)

// Event is the envelope delivered to listeners.
type Event struct {
	ID         string         `json:"id"`
	Name       Name           `json:"name"`
	ActorID    int64          `json:"actor_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// New stamps an event with a sortable id and the current UTC time.
func New(name Name, actorID int64, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{
		ID:         ulid.Make().String(),
		Name:       name,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}
