package bookings

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/calendar"
	"github.com/odyssey-erp/pressroom/internal/events"
	"github.com/odyssey-erp/pressroom/internal/quotes"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// QuoteReader loads the quote a booking is made for.
type QuoteReader interface {
	Get(ctx context.Context, id int64) (*quotes.Quote, error)
}

// Calendar is the part of the calendar service bookings depend on.
type Calendar interface {
	Settings(ctx context.Context) (*calendar.Settings, error)
	IsBlackout(ctx context.Context, day time.Time) (bool, error)
	Invalidate(ctx context.Context)
	Location() *time.Location
}

// Service creates bookings and drives the booking state machine.
type Service struct {
	repo      Repository
	quotes    QuoteReader
	calendar  Calendar
	surcharge decimal.Decimal
	events    events.Emitter
	logger    *slog.Logger
}

// NewService creates a new service. surcharge is the urgent fee percentage
// stamped on emergency bookings.
func NewService(repo Repository, quotes QuoteReader, cal Calendar, surcharge decimal.Decimal, emitter events.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, quotes: quotes, calendar: cal, surcharge: surcharge, events: emitter, logger: logger}
}

// Create books a slot for a finalized quote. All business checks run before
// the counter row is locked.
func (s *Service) Create(ctx context.Context, in CreateInput, actor rbac.Principal) (*Booking, error) {
	if actor.Role != rbac.RoleCustomer {
		return nil, ErrCustomerOnly
	}
	if !in.StartAt.Before(in.EndAt) {
		return nil, ErrInvalidWindow
	}
	quote, err := s.quotes.Get(ctx, in.QuoteID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(quote.CustomerID) {
		return nil, ErrNotOwner
	}
	if quote.Status != quotes.StatusFinalized {
		return nil, ErrQuoteNotFinalized
	}

	settings, err := s.calendar.Settings(ctx)
	if err != nil {
		return nil, err
	}
	loc := s.calendar.Location()
	start, end := in.StartAt.In(loc), in.EndAt.In(loc)
	day := calendar.Day(start)

	blocked, err := s.calendar.IsBlackout(ctx, day)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, ErrBlackout
	}
	if !in.IsEmergency {
		if !settings.IsWorkingDay(start.Weekday()) {
			return nil, ErrNotWorkingDay
		}
		if !settings.WithinHours(start, end) {
			return nil, ErrOutsideHours
		}
	}

	fee := decimal.Zero
	capacity := settings.SlotsPerDay
	if in.IsEmergency {
		fee = s.surcharge
		capacity = settings.EmergencySlotsPerDay
	}

	var booking *Booking
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		count, err := tx.LockDay(ctx, day)
		if err != nil {
			return err
		}
		used := count.Regular
		if in.IsEmergency {
			used = count.Emergency
		}
		if used >= capacity {
			return ErrDayFull
		}
		if err := tx.AdjustDay(ctx, day, in.IsEmergency, 1); err != nil {
			return err
		}
		booking, err = tx.Insert(ctx, Booking{
			QuoteID:      quote.ID,
			CustomerID:   actor.UserID,
			StartAt:      in.StartAt.UTC(),
			EndAt:        in.EndAt.UTC(),
			Status:       StatusPending,
			IsEmergency:  in.IsEmergency,
			UrgentFeePct: fee,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.calendar.Invalidate(ctx)
	s.events.Emit(ctx, events.New(events.BookingCreated, actor.UserID, map[string]any{
		"booking_id":     booking.ID,
		"quote_id":       booking.QuoteID,
		"start_at":       booking.StartAt,
		"is_emergency":   booking.IsEmergency,
		"urgent_fee_pct": booking.UrgentFeePct.String(),
	}))
	return booking, nil
}

// Get returns a booking visible to actor.
func (s *Service) Get(ctx context.Context, id int64, actor rbac.Principal) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !actor.Owns(&b.CustomerID) {
		return nil, ErrNotOwner
	}
	return b, nil
}

// Confirm accepts a pending booking.
func (s *Service) Confirm(ctx context.Context, id int64, actor rbac.Principal) (*Booking, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}
	return s.transition(ctx, id, StatusConfirmed, actor, events.BookingConfirmed, nil)
}

// Complete closes a confirmed booking.
func (s *Service) Complete(ctx context.Context, id int64, actor rbac.Principal) (*Booking, error) {
	if !actor.IsStaff() {
		return nil, ErrStaffOnly
	}
	return s.transition(ctx, id, StatusCompleted, actor, events.BookingCompleted, nil)
}

// Cancel withdraws a booking and returns its slot to the day's capacity.
func (s *Service) Cancel(ctx context.Context, id int64, actor rbac.Principal) (*Booking, error) {
	if !actor.IsStaff() && actor.Role != rbac.RoleCustomer {
		return nil, ErrNotOwner
	}
	b, err := s.transition(ctx, id, StatusCancelled, actor, events.BookingCancelled, func(ctx context.Context, tx TxRepository, b *Booking) error {
		day := calendar.Day(b.StartAt.In(s.calendar.Location()))
		if _, err := tx.LockDay(ctx, day); err != nil {
			return err
		}
		return tx.AdjustDay(ctx, day, b.IsEmergency, -1)
	})
	if err != nil {
		return nil, err
	}
	s.calendar.Invalidate(ctx)
	return b, nil
}

type sideEffect func(ctx context.Context, tx TxRepository, b *Booking) error

func (s *Service) transition(ctx context.Context, id int64, to Status, actor rbac.Principal, name events.Name, effect sideEffect) (*Booking, error) {
	var (
		booking *Booking
		from    Status
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		booking, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !actor.IsStaff() && !actor.Owns(&booking.CustomerID) {
			return ErrNotOwner
		}
		from = booking.Status
		if !CanTransition(from, to) {
			return ErrIllegalTransition
		}
		if err := tx.UpdateStatus(ctx, id, from, to); err != nil {
			return err
		}
		booking.Status = to
		if effect != nil {
			return effect(ctx, tx, booking)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.New(name, actor.UserID, map[string]any{
		"booking_id": booking.ID,
		"quote_id":   booking.QuoteID,
		"old_status": from,
		"new_status": to,
	}))
	return booking, nil
}
