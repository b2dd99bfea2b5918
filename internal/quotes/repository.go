package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/platform/db"
)

// Repository defines persistence for quotes.
type Repository interface {
	Get(ctx context.Context, id int64) (*Quote, error)
	List(ctx context.Context, filter ListFilter) ([]Quote, int, error)
	Insert(ctx context.Context, quote Quote) (*Quote, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the finalize writes. Orders shares the transaction so
// the quote, order and invoice commit together.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (*Quote, error)
	MarkFinalized(ctx context.Context, id int64, subtotal decimal.Decimal, notes *string, at time.Time) error
	Orders() orders.TxRepository
}

const quoteColumns = `id, customer_id, service_id, tier_id, status, estimate_subtotal, final_subtotal,
	notes, guest_name, guest_email, guest_phone, created_at, updated_at, finalized_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
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
		return ErrStaleStatus
	}
	return err
}

func (r *repository) Get(ctx context.Context, id int64) (*Quote, error) {
	q, err := scanQuote(r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return q, err
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Quote, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
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
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotes`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, filter.Page.Limit(), filter.Page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM quotes%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		quoteColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *q)
	}
	return out, total, rows.Err()
}

func (r *repository) Insert(ctx context.Context, q Quote) (*Quote, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO quotes (customer_id, service_id, tier_id, status, estimate_subtotal, notes, guest_name, guest_email, guest_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+quoteColumns,
		q.CustomerID, q.ServiceID, q.TierID, q.Status, q.EstimateSubtotal, q.Notes, q.GuestName, q.GuestEmail, q.GuestPhone)
	return scanQuote(row)
}

// UpdateStatus is a compare-and-set; a lost race yields ErrStaleStatus.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE quotes SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}
	return nil
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (*Quote, error) {
	q, err := scanQuote(t.tx.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1 FOR UPDATE`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return q, err
}

func (t *txRepository) MarkFinalized(ctx context.Context, id int64, subtotal decimal.Decimal, notes *string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE quotes
		SET status = $2, final_subtotal = $3, notes = COALESCE($4, notes), finalized_at = $5, updated_at = $5
		WHERE id = $1`, id, StatusFinalized, subtotal, notes, at)
	return err
}

func (t *txRepository) Orders() orders.TxRepository {
	return t.orders
}

func scanQuote(row pgx.Row) (*Quote, error) {
	var q Quote
	err := row.Scan(
		&q.ID, &q.CustomerID, &q.ServiceID, &q.TierID, &q.Status, &q.EstimateSubtotal, &q.FinalSubtotal,
		&q.Notes, &q.GuestName, &q.GuestEmail, &q.GuestPhone, &q.CreatedAt, &q.UpdatedAt, &q.FinalizedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
