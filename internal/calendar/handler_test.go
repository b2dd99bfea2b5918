package calendar

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pressroom/internal/rbac"
)

func newTestRouter(svc *Service, actor rbac.Principal) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, svc, rbac.Middleware{Logger: logger})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(rbac.ContextWithPrincipal(req.Context(), actor)))
		})
	})
	r.Route("/calendar", handler.MountRoutes)
	return r
}

func call(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, target, strings.NewReader(body)))
	return rr
}

func TestHandlerAvailability(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	repo.counts["2026-06-02"] = DayCount{Regular: 3, Emergency: 1}
	router := newTestRouter(svc, rbac.Principal{UserID: 40, Role: rbac.RoleCustomer})

	rr := call(router, http.MethodGet, "/calendar/availability?start_date=2026-06-01&end_date=2026-06-07", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got Availability
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.AvailableDates, 5)
	require.Equal(t, "2026-06-02", got.AvailableDates[1].Date)
	require.True(t, got.AvailableDates[1].IsFull)
	require.Zero(t, got.AvailableDates[1].EmergencySlotsAvailable)
	require.Equal(t, 3, got.CalendarSettings.SlotsPerDay)

	for _, q := range []string{
		"start_date=2026-06-07&end_date=2026-06-01",
		"start_date=06/01/2026&end_date=2026-06-07",
		"end_date=2026-06-07",
	} {
		rr = call(router, http.MethodGet, "/calendar/availability?"+q, "")
		require.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestHandlerBlackoutAdmin(t *testing.T) {
	svc, _, _ := newCachedService(t)
	staffRouter := newTestRouter(svc, rbac.Principal{UserID: 2, Role: rbac.RoleStaff})
	adminRouter := newTestRouter(svc, admin)

	rr := call(staffRouter, http.MethodPost, "/calendar/blackouts", `{"date":"2026-12-25","reason":"Christmas"}`)
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = call(adminRouter, http.MethodPost, "/calendar/blackouts", `{"date":"2026-12-25","reason":"Christmas"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = call(adminRouter, http.MethodPost, "/calendar/blackouts", `{"date":"2026-12-25"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = call(staffRouter, http.MethodGet, "/calendar/blackouts?from=2026-12-01&to=2026-12-31", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Data []BlackoutDate `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Equal(t, []BlackoutDate{{Date: "2026-12-25", Reason: "Christmas"}}, list.Data)

	rr = call(adminRouter, http.MethodDelete, "/calendar/blackouts/2026-12-25", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = call(adminRouter, http.MethodDelete, "/calendar/blackouts/2026-12-25", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerUpdateSettings(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	router := newTestRouter(svc, admin)

	body := `{"working_days":[1,2,3,4,5,6],"start_hour":8,"end_hour":18,"slot_duration_minutes":30,"slots_per_day":10,"emergency_slots_per_day":2}`
	rr := call(router, http.MethodPut, "/calendar/settings", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, 10, repo.settings.SlotsPerDay)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6}, repo.settings.WorkingDays)

	rr = call(router, http.MethodPut, "/calendar/settings", `{"working_days":[9],"start_hour":8,"end_hour":18,"slot_duration_minutes":30}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = call(router, http.MethodGet, "/calendar/settings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var s Settings
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	require.Equal(t, 18, s.EndHour)
}
