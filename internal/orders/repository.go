package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/pressroom/internal/platform/db"
)

// Repository defines persistence for orders and invoices.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	GetInvoiceByOrder(ctx context.Context, orderID int64) (*Invoice, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes transactional writes. Other lifecycle packages reuse
// it inside their own transactions through NewTxRepository.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	InsertOrder(ctx context.Context, order Order) (*Order, error)
	NextInvoiceNumber(ctx context.Context, issuedAt time.Time) (string, error)
	InsertInvoice(ctx context.Context, invoice Invoice) (*Invoice, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	UpdateAssignee(ctx context.Context, id int64, staffID *int64) error
	IncrementRevisionCount(ctx context.Context, id int64) (int, error)
	MarkInvoicePaid(ctx context.Context, orderID int64, paidAt time.Time) error
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const orderColumns = `id, quote_id, customer_id, tier_id, status, total_subtotal, tax_amount, total_amount,
	deposit_pct, deposit_amount, revision_count, assigned_staff_id, due_at, created_at, updated_at`

const invoiceColumns = `id, order_id, invoice_number, amount_due, issued_at, paid_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx dbtx
}

// NewTxRepository binds order writes to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// WithTx wraps callback in repeatable-read transaction. A serialization
// abort means another writer won the row and is reported as ErrStaleStatus.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	if db.IsSerializationFailure(err) {
		return ErrStaleStatus
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	return getOrder(ctx, r.pool, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.AssignedStaffID != nil {
		args = append(args, *filter.AssignedStaffID)
		conds = append(conds, fmt.Sprintf("assigned_staff_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM orders%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *order)
	}
	return out, total, rows.Err()
}

func (r *repository) GetInvoiceByOrder(ctx context.Context, orderID int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1`, orderID)
	inv, err := scanInvoice(row)
	if db.IsNoRows(err) {
		return nil, ErrInvoiceNotFound
	}
	return inv, err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return getOrder(ctx, t.tx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (t *txRepository) InsertOrder(ctx context.Context, o Order) (*Order, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO orders (
			quote_id, customer_id, tier_id, status, total_subtotal, tax_amount, total_amount,
			deposit_pct, deposit_amount, revision_count, assigned_staff_id, due_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11)
		RETURNING `+orderColumns,
		o.QuoteID, o.CustomerID, o.TierID, o.Status, o.TotalSubtotal, o.TaxAmount, o.TotalAmount,
		o.DepositPct, o.DepositAmount, o.AssignedStaffID, o.DueAt,
	)
	return scanOrder(row)
}

// NextInvoiceNumber allocates INV-{YYYY}-{SEQ}. The sequence restarts every
// year and may leave gaps when a transaction rolls back.
func (t *txRepository) NextInvoiceNumber(ctx context.Context, issuedAt time.Time) (string, error) {
	var seq int64
	period := issuedAt.Format("2006")
	err := t.tx.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "INV", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return FormatInvoiceNumber(issuedAt, seq), nil
}

func (t *txRepository) InsertInvoice(ctx context.Context, inv Invoice) (*Invoice, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO invoices (order_id, invoice_number, amount_due, issued_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+invoiceColumns,
		inv.OrderID, inv.InvoiceNumber, inv.AmountDue, inv.IssuedAt,
	)
	return scanInvoice(row)
}

func (t *txRepository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (t *txRepository) UpdateAssignee(ctx context.Context, id int64, staffID *int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE orders SET assigned_staff_id = $2, updated_at = NOW() WHERE id = $1`, id, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepository) IncrementRevisionCount(ctx context.Context, id int64) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, `
		UPDATE orders SET revision_count = revision_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING revision_count
	`, id).Scan(&count)
	if db.IsNoRows(err) {
		return 0, ErrNotFound
	}
	return count, err
}

func (t *txRepository) MarkInvoicePaid(ctx context.Context, orderID int64, paidAt time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET paid_at = $2 WHERE order_id = $1 AND paid_at IS NULL`, orderID, paidAt)
	return err
}

// FormatInvoiceNumber renders the invoice number for a year and sequence.
func FormatInvoiceNumber(issuedAt time.Time, seq int64) string {
	return fmt.Sprintf("INV-%s-%05d", issuedAt.Format("2006"), seq)
}

func getOrder(ctx context.Context, q dbtx, sql string, id int64) (*Order, error) {
	order, err := scanOrder(q.QueryRow(ctx, sql, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return order, err
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.QuoteID, &o.CustomerID, &o.TierID, &o.Status, &o.TotalSubtotal, &o.TaxAmount, &o.TotalAmount,
		&o.DepositPct, &o.DepositAmount, &o.RevisionCount, &o.AssignedStaffID, &o.DueAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	if err := row.Scan(&inv.ID, &inv.OrderID, &inv.InvoiceNumber, &inv.AmountDue, &inv.IssuedAt, &inv.PaidAt); err != nil {
		return nil, err
	}
	return &inv, nil
}
