package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/odyssey-erp/pressroom/internal/audit/http"
	"github.com/odyssey-erp/pressroom/internal/auth"
	"github.com/odyssey-erp/pressroom/internal/bookings"
	"github.com/odyssey-erp/pressroom/internal/calendar"
	"github.com/odyssey-erp/pressroom/internal/observability"
	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/payments"
	"github.com/odyssey-erp/pressroom/internal/proofs"
	"github.com/odyssey-erp/pressroom/internal/quotes"
	"github.com/odyssey-erp/pressroom/internal/rbac"
	"github.com/odyssey-erp/pressroom/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Verifier       *auth.Verifier
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	QuotesHandler   *quotes.Handler
	OrdersHandler   *orders.Handler
	ProofsHandler   *proofs.Handler
	CalendarHandler *calendar.Handler
	BookingsHandler *bookings.Handler
	PaymentsHandler *payments.Handler
	JobHandler      *jobs.Handler
	AuditHandler    *audithttp.Handler
}

// NewRouter constructs the chi.Router with pressroom defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	authenticate := auth.Authenticate(params.Verifier, params.Logger)

	// Guest quote intake is the only unauthenticated write.
	if params.QuotesHandler != nil {
		r.Route("/quotes", func(r chi.Router) {
			params.QuotesHandler.MountPublicRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				params.QuotesHandler.MountRoutes(r)
			})
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.Route("/orders", func(r chi.Router) {
			if params.OrdersHandler != nil {
				params.OrdersHandler.MountRoutes(r)
			}
			if params.ProofsHandler != nil {
				params.ProofsHandler.MountOrderRoutes(r)
			}
			if params.PaymentsHandler != nil {
				params.PaymentsHandler.MountOrderRoutes(r)
			}
		})
		if params.ProofsHandler != nil {
			r.Route("/proofs", params.ProofsHandler.MountRoutes)
		}
		if params.CalendarHandler != nil {
			r.Route("/calendar", params.CalendarHandler.MountRoutes)
		}
		if params.BookingsHandler != nil {
			r.Route("/bookings", params.BookingsHandler.MountRoutes)
		}
		if params.PaymentsHandler != nil {
			r.Route("/payments", params.PaymentsHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
		if params.JobHandler != nil {
			r.With(params.RBACMiddleware.RequireAny(rbac.RoleStaff, rbac.RoleAdmin)).
				Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
