package calendar

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

type memRepo struct {
	mu        sync.Mutex
	settings  Settings
	blackouts map[string]string
	counts    map[string]DayCount
	loads     atomic.Int32

	// gate, when set, holds Settings until closed or ctx ends.
	gate    chan struct{}
	entered chan struct{}
}

func newMemRepo() *memRepo {
	return &memRepo{settings: weekdaySettings(), blackouts: map[string]string{}, counts: map[string]DayCount{}}
}

func (m *memRepo) Settings(ctx context.Context) (*Settings, error) {
	m.loads.Add(1)
	if m.gate != nil {
		m.entered <- struct{}{}
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.settings
	return &s, nil
}

func (m *memRepo) UpdateSettings(_ context.Context, s Settings) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = s
	return &s, nil
}

func (m *memRepo) ListBlackouts(_ context.Context, from, to time.Time) ([]BlackoutDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []BlackoutDate
	for d, reason := range m.blackouts {
		day, _ := ParseDate(d)
		if (!from.IsZero() && day.Before(from)) || (!to.IsZero() && day.After(to)) {
			continue
		}
		out = append(out, BlackoutDate{Date: d, Reason: reason})
	}
	return out, nil
}

func (m *memRepo) AddBlackout(_ context.Context, day time.Time, reason string) (*BlackoutDate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := day.Format(DateLayout)
	if _, ok := m.blackouts[key]; ok {
		return nil, ErrBlackoutExists
	}
	m.blackouts[key] = reason
	return &BlackoutDate{Date: key, Reason: reason}, nil
}

func (m *memRepo) RemoveBlackout(_ context.Context, day time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := day.Format(DateLayout)
	if _, ok := m.blackouts[key]; !ok {
		return ErrBlackoutNotFound
	}
	delete(m.blackouts, key)
	return nil
}

func (m *memRepo) IsBlackout(_ context.Context, day time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blackouts[day.Format(DateLayout)]
	return ok, nil
}

func (m *memRepo) DayCounts(context.Context, time.Time, time.Time) (map[string]DayCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]DayCount, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out, nil
}

var admin = rbac.Principal{UserID: 1, Role: rbac.RoleAdmin}

func newCachedService(t *testing.T) (*Service, *memRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := newMemRepo()
	return NewService(repo, NewCache(client, time.Minute), Options{MaxRangeDays: 31}), repo, mr
}

func TestAvailabilityIsCachedUntilInvalidated(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	ctx := context.Background()
	start, end := date(t, "2026-06-01"), date(t, "2026-06-05")

	first, err := svc.Availability(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, first.AvailableDates, 5)

	repo.mu.Lock()
	repo.counts["2026-06-01"] = DayCount{Regular: 3}
	repo.mu.Unlock()

	cached, err := svc.Availability(ctx, start, end)
	require.NoError(t, err)
	require.Equal(t, 3, cached.AvailableDates[0].AvailableSlots)
	require.Equal(t, int32(1), repo.loads.Load())

	svc.Invalidate(ctx)
	fresh, err := svc.Availability(ctx, start, end)
	require.NoError(t, err)
	require.True(t, fresh.AvailableDates[0].IsFull)
	require.Equal(t, int32(2), repo.loads.Load())
}

func TestBlackoutAdminInvalidatesCache(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()
	start, end := date(t, "2026-06-01"), date(t, "2026-06-05")

	_, err := svc.Availability(ctx, start, end)
	require.NoError(t, err)

	_, err = svc.AddBlackout(ctx, date(t, "2026-06-03"), "inventory", admin)
	require.NoError(t, err)
	_, err = svc.AddBlackout(ctx, date(t, "2026-06-03"), "again", admin)
	require.ErrorIs(t, err, httpx.ErrDuplicate)

	got, err := svc.Availability(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, got.AvailableDates, 4)

	blocked, err := svc.IsBlackout(ctx, time.Date(2026, 6, 3, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, blocked)

	require.NoError(t, svc.RemoveBlackout(ctx, date(t, "2026-06-03"), admin))
	require.ErrorIs(t, svc.RemoveBlackout(ctx, date(t, "2026-06-03"), admin), httpx.ErrNotFound)
	got, err = svc.Availability(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, got.AvailableDates, 5)
}

func TestCoalescedAvailabilitySurvivesLeaderCancel(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	repo.gate = make(chan struct{})
	repo.entered = make(chan struct{}, 1)
	start, end := date(t, "2026-06-01"), date(t, "2026-06-05")

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := svc.Availability(leaderCtx, start, end)
		leaderErr <- err
	}()
	<-repo.entered

	type result struct {
		av  *Availability
		err error
	}
	follower := make(chan result, 1)
	go func() {
		av, err := svc.Availability(context.Background(), start, end)
		follower <- result{av, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	require.ErrorIs(t, <-leaderErr, context.Canceled)

	close(repo.gate)
	got := <-follower
	require.NoError(t, got.err)
	require.Len(t, got.av.AvailableDates, 5)
	require.EqualValues(t, 1, repo.loads.Load())
}

func TestAvailabilityRangeValidation(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()

	_, err := svc.Availability(ctx, date(t, "2026-06-05"), date(t, "2026-06-01"))
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.Availability(ctx, date(t, "2026-06-01"), date(t, "2026-07-01"))
	require.NoError(t, err)
	_, err = svc.Availability(ctx, date(t, "2026-06-01"), date(t, "2026-07-02"))
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAvailabilityWithoutCache(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, Options{})
	got, err := svc.Availability(context.Background(), date(t, "2026-06-01"), date(t, "2026-06-01"))
	require.NoError(t, err)
	require.Len(t, got.AvailableDates, 1)
	require.Equal(t, []int{1, 2, 3, 4, 5}, got.CalendarSettings.WorkingDays)
}

func TestAvailabilityFallsBackWhenRedisDown(t *testing.T) {
	svc, _, mr := newCachedService(t)
	mr.Close()
	got, err := svc.Availability(context.Background(), date(t, "2026-06-01"), date(t, "2026-06-02"))
	require.NoError(t, err)
	require.Len(t, got.AvailableDates, 2)
}

func TestSettingsAdmin(t *testing.T) {
	svc, _, _ := newCachedService(t)
	ctx := context.Background()
	staff := rbac.Principal{UserID: 2, Role: rbac.RoleStaff}

	next := weekdaySettings()
	next.SlotsPerDay = 6
	_, err := svc.UpdateSettings(ctx, next, staff)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	next.EndHour = next.StartHour
	_, err = svc.UpdateSettings(ctx, next, admin)
	require.ErrorIs(t, err, httpx.ErrValidation)

	next.EndHour = 18
	updated, err := svc.UpdateSettings(ctx, next, admin)
	require.NoError(t, err)
	require.Equal(t, 6, updated.SlotsPerDay)
}
