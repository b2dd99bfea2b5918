package bookings

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// Handler manages booking HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: validator.New()}
}

// MountRoutes registers routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.RoleCustomer)).Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Post("/{id}/cancel", h.action(h.service.Cancel))

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireStaff())
		r.Post("/{id}/confirm", h.action(h.service.Confirm))
		r.Post("/{id}/complete", h.action(h.service.Complete))
	})
}

type createRequest struct {
	QuoteID     int64     `json:"quote_id" validate:"required,gt=0"`
	StartAt     time.Time `json:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" validate:"required"`
	IsEmergency bool      `json:"is_emergency"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	booking, err := h.service.Create(r.Context(), CreateInput{
		QuoteID:     req.QuoteID,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		IsEmergency: req.IsEmergency,
	}, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, booking)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	booking, err := h.service.Get(r.Context(), id, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, booking)
}

func (h *Handler) action(fn func(context.Context, int64, rbac.Principal) (*Booking, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		actor, _ := rbac.PrincipalFromContext(r.Context())
		booking, err := fn(r.Context(), id, actor)
		if err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
		httpx.JSON(w, http.StatusOK, booking)
	}
}
