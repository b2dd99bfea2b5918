package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	rows       []TimelineRow
	lastLimit  int
	lastOffset int
}

func (s *stubRepo) Window(_ context.Context, _ TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastLimit, s.lastOffset = limit, offset
	end := offset + limit
	if offset > len(s.rows) {
		return nil, nil
	}
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func (s *stubRepo) All(context.Context, TimelineFilters) ([]TimelineRow, error) {
	return s.rows, nil
}

func seedRows(n int) []TimelineRow {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{ID: int64(n - i), At: base.Add(-time.Duration(i) * time.Hour), ActorID: 7, Action: "order.transition", Entity: "order", EntityID: "1"}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: seedRows(3)}
	svc := NewService(repo)

	first, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Rows, 2)
	require.True(t, first.Paging.HasNext)
	require.Equal(t, 2, first.Paging.NextPage)
	require.Zero(t, first.Paging.PrevPage)
	require.Equal(t, 3, repo.lastLimit)
	require.Equal(t, 0, repo.lastOffset)

	second, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, second.Rows, 1)
	require.False(t, second.Paging.HasNext)
	require.Equal(t, 1, second.Paging.PrevPage)
	require.Equal(t, 2, repo.lastOffset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 1000})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, res.Paging.PageSize)
	require.Equal(t, 1, res.Paging.Page)
	require.NotNil(t, res.Rows)

	_, err = svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Equal(t, defaultPageSize+1, repo.lastLimit)
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(TimelineFilters{})
	require.Empty(t, where)
	require.Empty(t, args)

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args = buildWhere(TimelineFilters{From: from, ActorID: 4, Entity: " order ", Action: "order.reassign"})
	require.Equal(t, "WHERE occurred_at >= $1 AND actor_id = $2 AND entity = $3 AND action = $4", where)
	require.Equal(t, []any{from, int64(4), "order", "order.reassign"}, args)
}

func TestWriteCSV(t *testing.T) {
	rows := []TimelineRow{{
		ID:       9,
		At:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		ActorID:  2,
		Action:   "payment.record",
		Entity:   "payment",
		EntityID: "31",
		Meta:     map[string]any{"amount": "81.00"},
	}}
	out, err := WriteCSV(rows)
	require.NoError(t, err)
	require.Equal(t, "id,occurred_at,actor_id,action,entity,entity_id,meta\n"+
		`9,2026-03-10T10:00:00Z,2,payment.record,payment,31,"{""amount"":""81.00""}"`+"\n", string(out))
}
