package payments

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Drift is an invoice whose paid marker disagrees with its completed payments.
type Drift struct {
	OrderID       int64           `json:"order_id"`
	InvoiceNumber string          `json:"invoice_number"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	Completed     decimal.Decimal `json:"completed"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

// IntegrityChecker compares invoices.paid_at against the completed ledger.
type IntegrityChecker struct {
	pool *pgxpool.Pool
}

// NewIntegrityChecker builds a checker over pool.
func NewIntegrityChecker(pool *pgxpool.Pool) *IntegrityChecker {
	return &IntegrityChecker{pool: pool}
}

// FindDrift lists invoices that are fully paid without paid_at, or carry
// paid_at while the completed total is short.
func (c *IntegrityChecker) FindDrift(ctx context.Context) ([]Drift, error) {
	rows, err := c.pool.Query(ctx, `
WITH completed AS (
    SELECT order_id, SUM(amount) AS total
    FROM payments
    WHERE status = 'COMPLETED'
    GROUP BY order_id
)
SELECT i.order_id, i.invoice_number, i.amount_due, COALESCE(c.total, 0), i.paid_at
FROM invoices i
LEFT JOIN completed c ON c.order_id = i.order_id
WHERE (i.paid_at IS NULL AND COALESCE(c.total, 0) >= i.amount_due)
   OR (i.paid_at IS NOT NULL AND COALESCE(c.total, 0) < i.amount_due)
ORDER BY i.order_id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Drift, error) {
		var d Drift
		err := row.Scan(&d.OrderID, &d.InvoiceNumber, &d.AmountDue, &d.Completed, &d.PaidAt)
		return d, err
	})
}
