// Package quotes handles quote intake and the finalize step that turns an
// accepted quote into a priced order with its invoice.
package quotes

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/shared"
)

// Status enumerates quote states.
type Status string

const (
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusFinalized Status = "FINALIZED"
	StatusRejected  Status = "REJECTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSubmitted, StatusApproved, StatusFinalized, StatusRejected:
		return true
	}
	return false
}

// Finalizable reports whether a quote in s may still be priced.
func (s Status) Finalizable() bool {
	return s == StatusSubmitted || s == StatusApproved
}

// Quote is a customer or guest request for a priced job.
type Quote struct {
	ID               int64            `json:"id"`
	CustomerID       *int64           `json:"customer_id,omitempty"`
	ServiceID        int64            `json:"service_id"`
	TierID           int64            `json:"tier_id"`
	Status           Status           `json:"status"`
	EstimateSubtotal *decimal.Decimal `json:"estimate_subtotal,omitempty"`
	FinalSubtotal    *decimal.Decimal `json:"final_subtotal,omitempty"`
	Notes            string           `json:"notes,omitempty"`
	GuestName        *string          `json:"guest_name,omitempty"`
	GuestEmail       *string          `json:"guest_email,omitempty"`
	GuestPhone       *string          `json:"guest_phone,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	FinalizedAt      *time.Time       `json:"finalized_at,omitempty"`
}

// SubmitInput carries a registered customer's request.
type SubmitInput struct {
	ServiceID        int64
	TierID           int64
	EstimateSubtotal *decimal.Decimal
	Notes            string
}

// GuestInput carries an anonymous request. Email identifies the guest.
type GuestInput struct {
	SubmitInput
	Name  string
	Email string
	Phone string
}

// FinalizeInput is supplied by the admin pricing the job.
type FinalizeInput struct {
	FinalSubtotal decimal.Decimal
	Notes         *string
}

// FinalizeResult is everything the finalize transaction created.
type FinalizeResult struct {
	Quote   Quote          `json:"quote"`
	Order   orders.Order   `json:"order"`
	Invoice orders.Invoice `json:"invoice"`
}

// ListFilter narrows quote listings.
type ListFilter struct {
	CustomerID *int64
	Status     Status
	Page       shared.PageRequest
}
