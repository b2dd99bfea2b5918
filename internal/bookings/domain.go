// Package bookings schedules production and installation slots against the
// shop calendar's per-day capacity.
package bookings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates booking states.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Booking reserves one slot on a calendar day.
type Booking struct {
	ID           int64           `json:"id"`
	QuoteID      int64           `json:"quote_id"`
	CustomerID   int64           `json:"customer_id"`
	StartAt      time.Time       `json:"start_at"`
	EndAt        time.Time       `json:"end_at"`
	Status       Status          `json:"status"`
	IsEmergency  bool            `json:"is_emergency"`
	UrgentFeePct decimal.Decimal `json:"urgent_fee_pct"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateInput is a customer's booking request.
type CreateInput struct {
	QuoteID     int64
	StartAt     time.Time
	EndAt       time.Time
	IsEmergency bool
}
