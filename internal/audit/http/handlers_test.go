package audithttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pressroom/internal/audit"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

type stubTimelineService struct {
	result      audit.Result
	exportRows  []audit.TimelineRow
	lastFilters audit.TimelineFilters
}

func (s *stubTimelineService) Timeline(_ context.Context, filters audit.TimelineFilters) (audit.Result, error) {
	s.lastFilters = filters
	return s.result, nil
}

func (s *stubTimelineService) Export(_ context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

func newRouter(t *testing.T, svc *stubTimelineService, actor rbac.Principal) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, rbac.Middleware{Logger: logger})
	handler.now = func() time.Time { return time.Date(2026, 3, 15, 13, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(rbac.ContextWithPrincipal(req.Context(), actor)))
		})
	})
	r.Route("/audit", handler.MountRoutes)
	return r
}

func get(router http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestTimelineRequiresAdmin(t *testing.T) {
	svc := &stubTimelineService{}
	for _, role := range []rbac.Role{rbac.RoleCustomer, rbac.RoleStaff} {
		rr := get(newRouter(t, svc, rbac.Principal{UserID: 3, Role: role}), "/audit/")
		require.Equal(t, http.StatusForbidden, rr.Code, role)
	}
}

func TestTimelineDefaultsAndFilters(t *testing.T) {
	svc := &stubTimelineService{result: audit.Result{
		Rows:   []audit.TimelineRow{{ID: 1, Action: "order.transition", Entity: "order", EntityID: "5"}},
		Paging: audit.PagingInfo{Page: 1, PageSize: 20},
	}}
	router := newRouter(t, svc, rbac.Principal{UserID: 1, Role: rbac.RoleAdmin})

	rr := get(router, "/audit/?entity=order&entity_id=5&actor_id=9&page=2")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body audit.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Rows, 1)

	f := svc.lastFilters
	require.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), f.From)
	require.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), f.To)
	require.Equal(t, "order", f.Entity)
	require.Equal(t, "5", f.EntityID)
	require.Equal(t, int64(9), f.ActorID)
	require.Equal(t, 2, f.Page)
}

func TestTimelineRejectsBadRange(t *testing.T) {
	router := newRouter(t, &stubTimelineService{}, rbac.Principal{UserID: 1, Role: rbac.RoleAdmin})

	for _, q := range []string{
		"from=2026-03-10&to=2026-03-01",
		"from=2025-01-01&to=2026-03-01",
		"from=yesterday",
		"actor_id=-4",
	} {
		rr := get(router, "/audit/?"+q)
		require.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestExportCSV(t *testing.T) {
	svc := &stubTimelineService{exportRows: []audit.TimelineRow{{
		ID: 4, At: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), ActorID: 1,
		Action: "booking.create", Entity: "booking", EntityID: "12",
	}}}
	router := newRouter(t, svc, rbac.Principal{UserID: 1, Role: rbac.RoleAdmin})

	rr := get(router, "/audit/export.csv")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), "audit-timeline.csv")
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "4,2026-03-14T09:00:00Z,1,booking.create,booking,12,", lines[1])
}

func TestExportRateLimitedPerUser(t *testing.T) {
	router := newRouter(t, &stubTimelineService{}, rbac.Principal{UserID: 77, Role: rbac.RoleAdmin})
	for i := 0; i < exportRateLimit; i++ {
		require.Equal(t, http.StatusOK, get(router, "/audit/export.csv").Code)
	}
	require.Equal(t, http.StatusTooManyRequests, get(router, "/audit/export.csv").Code)
}
