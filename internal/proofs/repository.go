package proofs

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/platform/db"
)

// Repository defines persistence for proof versions.
type Repository interface {
	Get(ctx context.Context, id int64) (*Proof, error)
	ListByOrder(ctx context.Context, orderID int64) ([]Proof, error)
	GetOrder(ctx context.Context, orderID int64) (*orders.Order, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository runs inside a transaction that holds the order row lock.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (*Proof, error)
	HasOutstanding(ctx context.Context, orderID int64) (bool, error)
	NextVersion(ctx context.Context, orderID int64) (int, error)
	Insert(ctx context.Context, proof Proof) (*Proof, error)
	Resolve(ctx context.Context, id int64, res Resolution) error
	RevisionQuota(ctx context.Context, tierID int64) (Quota, error)
	Orders() orders.TxRepository
}

const proofColumns = `id, order_id, version_number, file_url, internal_notes, status, customer_comment,
	created_by, created_at, approved_at, resolved_at`

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
		return ErrVersionConflict
	}
	return err
}

func (r *repository) Get(ctx context.Context, id int64) (*Proof, error) {
	p, err := scanProof(r.pool.QueryRow(ctx, `SELECT `+proofColumns+` FROM proof_versions WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID int64) ([]Proof, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+proofColumns+` FROM proof_versions WHERE order_id = $1 ORDER BY version_number`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Proof
	for rows.Next() {
		p, err := scanProof(rows)
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

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (*Proof, error) {
	p, err := scanProof(t.tx.QueryRow(ctx, `SELECT `+proofColumns+` FROM proof_versions WHERE id = $1 FOR UPDATE`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return p, err
}

func (t *txRepository) HasOutstanding(ctx context.Context, orderID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM proof_versions WHERE order_id = $1 AND status = $2)`,
		orderID, StatusSent).Scan(&exists)
	return exists, err
}

func (t *txRepository) NextVersion(ctx context.Context, orderID int64) (int, error) {
	var next int
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(MAX(version_number), 0) + 1 FROM proof_versions WHERE order_id = $1`, orderID).Scan(&next)
	return next, err
}

func (t *txRepository) Insert(ctx context.Context, p Proof) (*Proof, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO proof_versions (order_id, version_number, file_url, internal_notes, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+proofColumns,
		p.OrderID, p.VersionNumber, p.FileURL, p.InternalNotes, p.Status, p.CreatedBy)
	out, err := scanProof(row)
	if db.IsUniqueViolation(err) {
		return nil, ErrVersionConflict
	}
	return out, err
}

func (t *txRepository) Resolve(ctx context.Context, id int64, res Resolution) error {
	var approvedAt any
	if res.Status == StatusApproved {
		approvedAt = res.At
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE proof_versions
		SET status = $2, customer_comment = $3, approved_at = $4, resolved_at = $5
		WHERE id = $1`, id, res.Status, res.Comment, approvedAt, res.At)
	return err
}

func (t *txRepository) RevisionQuota(ctx context.Context, tierID int64) (Quota, error) {
	var limit *int
	err := t.tx.QueryRow(ctx, `SELECT revision_limit FROM tier_packages WHERE id = $1`, tierID).Scan(&limit)
	if db.IsNoRows(err) {
		return Quota{}, ErrTierNotFound
	}
	if err != nil {
		return Quota{}, err
	}
	return QuotaFromLimit(limit), nil
}

func (t *txRepository) Orders() orders.TxRepository {
	return t.orders
}

func scanProof(row pgx.Row) (*Proof, error) {
	var p Proof
	err := row.Scan(&p.ID, &p.OrderID, &p.VersionNumber, &p.FileURL, &p.InternalNotes, &p.Status, &p.CustomerComment,
		&p.CreatedBy, &p.CreatedAt, &p.ApprovedAt, &p.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
