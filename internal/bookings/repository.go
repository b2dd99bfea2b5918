package bookings

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/pressroom/internal/calendar"
	"github.com/odyssey-erp/pressroom/internal/platform/db"
)

// Repository defines persistence for bookings.
type Repository interface {
	Get(ctx context.Context, id int64) (*Booking, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository runs inside a READ COMMITTED transaction. LockDay serializes
// every booking write for the same day.
type TxRepository interface {
	LockDay(ctx context.Context, day time.Time) (calendar.DayCount, error)
	AdjustDay(ctx context.Context, day time.Time, emergency bool, delta int) error
	Insert(ctx context.Context, booking Booking) (*Booking, error)
	GetForUpdate(ctx context.Context, id int64) (*Booking, error)
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
}

const bookingColumns = `id, quote_id, customer_id, start_at, end_at, status, is_emergency, urgent_fee_pct, created_at, updated_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx runs fn at READ COMMITTED so a waiter re-reads the counter row
// committed by the lock holder. Serialization and deadlock aborts surface as
// ErrConflict.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
	if db.IsSerializationFailure(err) {
		return ErrConflict
	}
	return err
}

func (r *repository) Get(ctx context.Context, id int64) (*Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return b, err
}

func (t *txRepository) LockDay(ctx context.Context, day time.Time) (calendar.DayCount, error) {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO booking_day_counters (day, regular, emergency) VALUES ($1, 0, 0)
		ON CONFLICT (day) DO NOTHING`, day); err != nil {
		return calendar.DayCount{}, err
	}
	var c calendar.DayCount
	err := t.tx.QueryRow(ctx, `SELECT regular, emergency FROM booking_day_counters WHERE day = $1 FOR UPDATE`, day).
		Scan(&c.Regular, &c.Emergency)
	return c, err
}

func (t *txRepository) AdjustDay(ctx context.Context, day time.Time, emergency bool, delta int) error {
	column := "regular"
	if emergency {
		column = "emergency"
	}
	_, err := t.tx.Exec(ctx, `
		UPDATE booking_day_counters SET `+column+` = GREATEST(0, `+column+` + $2) WHERE day = $1`, day, delta)
	return err
}

func (t *txRepository) Insert(ctx context.Context, b Booking) (*Booking, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO bookings (quote_id, customer_id, start_at, end_at, status, is_emergency, urgent_fee_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+bookingColumns,
		b.QuoteID, b.CustomerID, b.StartAt, b.EndAt, b.Status, b.IsEmergency, b.UrgentFeePct)
	out, err := scanBooking(row)
	if db.IsUniqueViolation(err) {
		return nil, ErrQuoteBooked
	}
	return out, err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (*Booking, error) {
	b, err := scanBooking(t.tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return b, err
}

func (t *txRepository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE bookings SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(&b.ID, &b.QuoteID, &b.CustomerID, &b.StartAt, &b.EndAt, &b.Status, &b.IsEmergency, &b.UrgentFeePct,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
