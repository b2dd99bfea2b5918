package payments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/platform/db"
)

// Repository defines persistence for the payment ledger.
type Repository interface {
	Get(ctx context.Context, id int64) (*Payment, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Payment, error)
	GetOrder(ctx context.Context, orderID int64) (*orders.Order, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository runs with the order row locked so completed totals are
// computed against a stable ledger.
type TxRepository interface {
	Insert(ctx context.Context, payment Payment) (*Payment, error)
	GetForUpdate(ctx context.Context, id int64) (*Payment, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	CompletedTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
	Orders() orders.TxRepository
}

const paymentColumns = `id, order_id, amount, method, status, transaction_ref, recorded_by, created_at, updated_at`

type repository struct {
	pool   *pgxpool.Pool
	orders orders.Repository
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool, orders: orders.NewRepository(pool)}
}

type txRepository struct {
	tx     pgx.Tx
	orders orders.TxRepository
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, orders: orders.NewTxRepository(tx)})
	})
	if db.IsSerializationFailure(err) {
		return ErrNotPending
	}
	return err
}

func (r *repository) Get(ctx context.Context, id int64) (*Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE order_id = $1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *repository) GetOrder(ctx context.Context, orderID int64) (*orders.Order, error) {
	return r.orders.GetByID(ctx, orderID)
}

func (t *txRepository) Insert(ctx context.Context, p Payment) (*Payment, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO payments (order_id, amount, method, status, transaction_ref, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+paymentColumns,
		p.OrderID, p.Amount, p.Method, p.Status, p.TransactionRef, p.RecordedBy)
	return scanPayment(row)
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (*Payment, error) {
	p, err := scanPayment(t.tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1 FOR UPDATE`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return p, err
}

// UpdateStatus only ever settles a pending payment; the ledger is otherwise
// append-only.
func (t *txRepository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE payments SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotPending
	}
	return nil
}

func (t *txRepository) CompletedTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE order_id = $1 AND status = $2`,
		orderID, StatusCompleted).Scan(&total)
	return total, err
}

func (t *txRepository) Orders() orders.TxRepository {
	return t.orders
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.TransactionRef, &p.RecordedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
