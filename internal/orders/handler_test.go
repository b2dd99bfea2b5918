package orders_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/orders/orderstest"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

func newTestRouter(t *testing.T, actor *rbac.Principal) (http.Handler, *orderstest.Store) {
	t.Helper()
	svc, store, _ := newService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := orders.NewHandler(logger, svc, rbac.Middleware{Logger: logger})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if actor != nil {
				req = req.WithContext(rbac.ContextWithPrincipal(req.Context(), *actor))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/orders", handler.MountRoutes)
	return r, store
}

func TestHandlerTransitionStatus(t *testing.T) {
	router, store := newTestRouter(t, &staff)
	order := seedOrder(store, orders.StatusPendingDeposit)

	req := httptest.NewRequest(http.MethodPatch, "/orders/"+strconv.FormatInt(order.ID, 10)+"/status",
		strings.NewReader(`{"status":"SCHEDULED"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var got orders.Order
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Equal(t, orders.StatusScheduled, got.Status)
	require.Equal(t, "81", got.DepositAmount.String())
}

func TestHandlerIllegalTransitionIsBadRequest(t *testing.T) {
	router, store := newTestRouter(t, &staff)
	order := seedOrder(store, orders.StatusCompleted)

	req := httptest.NewRequest(http.MethodPatch, "/orders/"+strconv.FormatInt(order.ID, 10)+"/status",
		strings.NewReader(`{"status":"IN_PRODUCTION"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Business Rule Violation")
}

func TestHandlerCustomerCannotPatchStatus(t *testing.T) {
	router, store := newTestRouter(t, &customer)
	order := seedOrder(store, orders.StatusPendingDeposit)

	req := httptest.NewRequest(http.MethodPatch, "/orders/"+strconv.FormatInt(order.ID, 10)+"/status",
		strings.NewReader(`{"status":"CANCELLED"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
	stored, _ := store.Order(order.ID)
	require.Equal(t, orders.StatusPendingDeposit, stored.Status)
}

func TestHandlerRequiresPrincipal(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPatch, "/orders/1/status", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandlerShowForeignOrderForbidden(t *testing.T) {
	router, store := newTestRouter(t, &stranger)
	order := seedOrder(store, orders.StatusScheduled)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/"+strconv.FormatInt(order.ID, 10), nil))
	require.Equal(t, http.StatusForbidden, rr.Code)
}
