// Package orders owns the order record, its invoice and the order status
// state machine that every other lifecycle component goes through.
package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/shared"
)

// Status enumerates order lifecycle states.
type Status string

const (
	StatusPendingDeposit   Status = "PENDING_DEPOSIT"
	StatusScheduled        Status = "SCHEDULED"
	StatusInProduction     Status = "IN_PRODUCTION"
	StatusProofSent        Status = "PROOF_SENT"
	StatusAwaitingApproval Status = "AWAITING_APPROVAL"
	StatusReadyForPickup   Status = "READY_FOR_PICKUP"
	StatusCompleted        Status = "COMPLETED"
	StatusCancelled        Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingDeposit, StatusScheduled, StatusInProduction, StatusProofSent,
		StatusAwaitingApproval, StatusReadyForPickup, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Order is the committed, invoiced unit of work spawned by a finalized quote.
type Order struct {
	ID              int64           `json:"id"`
	QuoteID         *int64          `json:"quote_id,omitempty"`
	CustomerID      *int64          `json:"customer_id,omitempty"`
	TierID          int64           `json:"tier_id"`
	Status          Status          `json:"status"`
	TotalSubtotal   decimal.Decimal `json:"total_subtotal"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DepositPct      decimal.Decimal `json:"deposit_pct"`
	DepositAmount   decimal.Decimal `json:"deposit_amount"`
	RevisionCount   int             `json:"revision_count"`
	AssignedStaffID *int64          `json:"assigned_staff_id,omitempty"`
	DueAt           *time.Time      `json:"due_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Invoice is issued once per order at finalize time.
type Invoice struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"order_id"`
	InvoiceNumber string          `json:"invoice_number"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	IssuedAt      time.Time       `json:"issued_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	CustomerID      *int64
	AssignedStaffID *int64
	Status          Status
	Page            shared.PageRequest
}
