// Package payments is the append-only payment ledger for orders. Balances
// are always derived from completed payments, never stored.
package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/orders"
)

// Method is how a payment was made.
type Method string

const (
	MethodCash         Method = "CASH"
	MethodCard         Method = "CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodOnline       Method = "ONLINE"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodBankTransfer, MethodOnline:
		return true
	}
	return false
}

// Status is the settlement state of a payment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Payment is one ledger entry.
type Payment struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         Method          `json:"method"`
	Status         Status          `json:"status"`
	TransactionRef *string         `json:"transaction_ref,omitempty"`
	RecordedBy     *int64          `json:"recorded_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// RecordInput is a manually recorded payment.
type RecordInput struct {
	Amount         decimal.Decimal
	Method         Method
	TransactionRef string
}

// Balance summarises what has been paid against an order.
type Balance struct {
	OrderID            int64           `json:"order_id"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	DepositAmount      decimal.Decimal `json:"deposit_amount"`
	TotalCompletedPaid decimal.Decimal `json:"total_completed_paid"`
	DepositPaid        bool            `json:"deposit_paid"`
	BalanceDue         decimal.Decimal `json:"balance_due"`
}

// ComputeBalance derives the balance from the ledger. Only completed
// payments count; balance_due goes negative on overpayment.
func ComputeBalance(order orders.Order, ledger []Payment) Balance {
	paid := decimal.Zero
	for _, p := range ledger {
		if p.OrderID == order.ID && p.Status == StatusCompleted {
			paid = paid.Add(p.Amount)
		}
	}
	return Balance{
		OrderID:            order.ID,
		TotalAmount:        order.TotalAmount,
		DepositAmount:      order.DepositAmount,
		TotalCompletedPaid: paid,
		DepositPaid:        paid.GreaterThanOrEqual(order.DepositAmount),
		BalanceDue:         order.TotalAmount.Sub(paid),
	}
}
