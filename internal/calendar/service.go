package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// Service answers availability queries and administers the calendar.
type Service struct {
	repo     Repository
	cache    *Cache
	loc      *time.Location
	maxRange int
	logger   *slog.Logger
	group    singleflight.Group
}

// Options configures the service.
type Options struct {
	Location     *time.Location
	MaxRangeDays int
	Logger       *slog.Logger
}

// NewService creates a new service. cache may be nil.
func NewService(repo Repository, cache *Cache, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = 92
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, loc: opts.Location, maxRange: opts.MaxRangeDays, logger: opts.Logger}
}

// Location is the shop timezone booking days are judged in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Availability returns the bookable days in [start, end] with the settings
// used to compute them.
func (s *Service) Availability(ctx context.Context, start, end time.Time) (*Availability, error) {
	start, end = Day(start), Day(end)
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > s.maxRange {
		return nil, fmt.Errorf("%w: %d days exceeds %d", ErrRangeTooLong, days, s.maxRange)
	}

	key, err := s.cache.BuildKey(ctx, "calendar", "availability", start.Format(DateLayout), end.Format(DateLayout))
	if err != nil {
		s.logger.Warn("availability cache unavailable", slog.Any("error", err))
		return s.compute(ctx, start, end)
	}

	// The shared load outlives any single caller; each caller still stops
	// waiting when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		var out Availability
		err := s.cache.FetchJSON(loadCtx, key, &out, func(ctx context.Context) (any, error) {
			return s.compute(ctx, start, end)
		})
		return &out, err
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Availability), nil
	}
}

func (s *Service) compute(ctx context.Context, start, end time.Time) (*Availability, error) {
	var (
		settings  *Settings
		blackouts []BlackoutDate
		counts    map[string]DayCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = s.repo.Settings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		blackouts, err = s.repo.ListBlackouts(gctx, start, end)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.repo.DayCounts(gctx, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	blocked := make(map[string]struct{}, len(blackouts))
	for _, b := range blackouts {
		blocked[b.Date] = struct{}{}
	}
	return &Availability{
		AvailableDates:   ComputeAvailability(start, end, *settings, blocked, counts),
		CalendarSettings: *settings,
	}, nil
}

// Settings returns the current calendar settings.
func (s *Service) Settings(ctx context.Context) (*Settings, error) {
	return s.repo.Settings(ctx)
}

// UpdateSettings replaces the calendar settings.
func (s *Service) UpdateSettings(ctx context.Context, settings Settings, actor rbac.Principal) (*Settings, error) {
	if actor.Role != rbac.RoleAdmin {
		return nil, ErrAdminOnly
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	updated, err := s.repo.UpdateSettings(ctx, settings)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return updated, nil
}

// ListBlackouts returns blackout dates in [from, to]; zero bounds are open.
func (s *Service) ListBlackouts(ctx context.Context, from, to time.Time) ([]BlackoutDate, error) {
	return s.repo.ListBlackouts(ctx, from, to)
}

// AddBlackout closes day for bookings.
func (s *Service) AddBlackout(ctx context.Context, day time.Time, reason string, actor rbac.Principal) (*BlackoutDate, error) {
	if actor.Role != rbac.RoleAdmin {
		return nil, ErrAdminOnly
	}
	b, err := s.repo.AddBlackout(ctx, Day(day), strings.TrimSpace(reason))
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	return b, nil
}

// RemoveBlackout reopens day.
func (s *Service) RemoveBlackout(ctx context.Context, day time.Time, actor rbac.Principal) error {
	if actor.Role != rbac.RoleAdmin {
		return ErrAdminOnly
	}
	if err := s.repo.RemoveBlackout(ctx, Day(day)); err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}

// IsBlackout reports whether day is closed.
func (s *Service) IsBlackout(ctx context.Context, day time.Time) (bool, error) {
	return s.repo.IsBlackout(ctx, Day(day))
}

// Invalidate drops cached availability. Failures only delay freshness until
// the TTL expires, so they are logged rather than returned.
func (s *Service) Invalidate(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("availability cache bump", slog.Any("error", err))
	}
}
