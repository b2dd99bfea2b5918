package calendar

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/pressroom/internal/platform/db"
)

// Repository defines persistence for calendar configuration and counters.
type Repository interface {
	Settings(ctx context.Context) (*Settings, error)
	UpdateSettings(ctx context.Context, settings Settings) (*Settings, error)
	ListBlackouts(ctx context.Context, from, to time.Time) ([]BlackoutDate, error)
	AddBlackout(ctx context.Context, day time.Time, reason string) (*BlackoutDate, error)
	RemoveBlackout(ctx context.Context, day time.Time) error
	IsBlackout(ctx context.Context, day time.Time) (bool, error)
	DayCounts(ctx context.Context, from, to time.Time) (map[string]DayCount, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Postgres-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Settings(ctx context.Context) (*Settings, error) {
	var (
		s    Settings
		days []int32
	)
	err := r.pool.QueryRow(ctx, `
		SELECT working_days, start_hour, end_hour, slot_duration_minutes, slots_per_day, emergency_slots_per_day, updated_at
		FROM calendar_settings WHERE id = 1`).
		Scan(&days, &s.StartHour, &s.EndHour, &s.SlotDurationMinutes, &s.SlotsPerDay, &s.EmergencySlotsPerDay, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.WorkingDays = make([]int, len(days))
	for i, d := range days {
		s.WorkingDays[i] = int(d)
	}
	return &s, nil
}

func (r *repository) UpdateSettings(ctx context.Context, s Settings) (*Settings, error) {
	days := make([]int32, len(s.WorkingDays))
	for i, d := range s.WorkingDays {
		days[i] = int32(d)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_settings (id, working_days, start_hour, end_hour, slot_duration_minutes, slots_per_day, emergency_slots_per_day, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			working_days = EXCLUDED.working_days,
			start_hour = EXCLUDED.start_hour,
			end_hour = EXCLUDED.end_hour,
			slot_duration_minutes = EXCLUDED.slot_duration_minutes,
			slots_per_day = EXCLUDED.slots_per_day,
			emergency_slots_per_day = EXCLUDED.emergency_slots_per_day,
			updated_at = NOW()`,
		days, s.StartHour, s.EndHour, s.SlotDurationMinutes, s.SlotsPerDay, s.EmergencySlotsPerDay)
	if err != nil {
		return nil, err
	}
	return r.Settings(ctx)
}

// ListBlackouts returns blackout dates in [from, to]. Zero bounds are open.
func (r *repository) ListBlackouts(ctx context.Context, from, to time.Time) ([]BlackoutDate, error) {
	var lower, upper any
	if !from.IsZero() {
		lower = from
	}
	if !to.IsZero() {
		upper = to
	}
	rows, err := r.pool.Query(ctx, `
		SELECT day, reason FROM blackout_dates
		WHERE ($1::date IS NULL OR day >= $1) AND ($2::date IS NULL OR day <= $2)
		ORDER BY day`, lower, upper)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BlackoutDate
	for rows.Next() {
		var (
			day    time.Time
			reason string
		)
		if err := rows.Scan(&day, &reason); err != nil {
			return nil, err
		}
		out = append(out, BlackoutDate{Date: day.Format(DateLayout), Reason: reason})
	}
	return out, rows.Err()
}

func (r *repository) AddBlackout(ctx context.Context, day time.Time, reason string) (*BlackoutDate, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO blackout_dates (day, reason) VALUES ($1, $2)`, day, reason)
	if db.IsUniqueViolation(err) {
		return nil, ErrBlackoutExists
	}
	if err != nil {
		return nil, err
	}
	return &BlackoutDate{Date: day.Format(DateLayout), Reason: reason}, nil
}

func (r *repository) RemoveBlackout(ctx context.Context, day time.Time) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blackout_dates WHERE day = $1`, day)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlackoutNotFound
	}
	return nil
}

func (r *repository) IsBlackout(ctx context.Context, day time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM blackout_dates WHERE day = $1)`, day).Scan(&exists)
	return exists, err
}

func (r *repository) DayCounts(ctx context.Context, from, to time.Time) (map[string]DayCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT day, regular, emergency FROM booking_day_counters
		WHERE day BETWEEN $1 AND $2`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]DayCount)
	for rows.Next() {
		var (
			day time.Time
			c   DayCount
		)
		if err := rows.Scan(&day, &c.Regular, &c.Emergency); err != nil {
			return nil, err
		}
		out[day.Format(DateLayout)] = c
	}
	return out, rows.Err()
}
