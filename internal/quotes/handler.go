package quotes

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/rbac"
	"github.com/odyssey-erp/pressroom/internal/shared"
)

// Handler manages quote HTTP endpoints.
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

// MountRoutes registers authenticated routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.show)
	r.With(h.rbac.RequireAny(rbac.RoleCustomer)).Post("/", h.submit)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireStaff())
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
	r.With(h.rbac.RequireAny(rbac.RoleAdmin)).Post("/{id}/finalize", h.finalize)
}

// MountPublicRoutes registers routes reachable without a token.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/guest", h.submitGuest)
}

type submitRequest struct {
	ServiceID        int64            `json:"service_id" validate:"required,gt=0"`
	TierID           int64            `json:"tier_id" validate:"required,gt=0"`
	EstimateSubtotal *decimal.Decimal `json:"estimate_subtotal"`
	Notes            string           `json:"notes" validate:"max=4000"`
}

type guestRequest struct {
	submitRequest
	GuestName  string `json:"guest_name" validate:"required,max=200"`
	GuestEmail string `json:"guest_email" validate:"required,email"`
	GuestPhone string `json:"guest_phone" validate:"max=50"`
}

type finalizeRequest struct {
	FinalSubtotal *decimal.Decimal `json:"final_subtotal" validate:"required"`
	Notes         *string          `json:"notes" validate:"omitempty,max=4000"`
}

type listResponse struct {
	Data       []Quote           `json:"data"`
	Pagination shared.Pagination `json:"pagination"`
}

func (r submitRequest) input() SubmitInput {
	return SubmitInput{ServiceID: r.ServiceID, TierID: r.TierID, EstimateSubtotal: r.EstimateSubtotal, Notes: r.Notes}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	q, err := h.service.Submit(r.Context(), req.input(), actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) submitGuest(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if !h.decode(w, r, &req) {
		return
	}
	q, err := h.service.SubmitGuest(r.Context(), GuestInput{
		SubmitInput: req.submitRequest.input(),
		Name:        req.GuestName,
		Email:       req.GuestEmail,
		Phone:       req.GuestPhone,
	})
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := rbac.PrincipalFromContext(r.Context())
	filter := ListFilter{Status: Status(r.URL.Query().Get("status")), Page: shared.PageFromRequest(r)}
	items, page, err := h.service.List(r.Context(), filter, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []Quote{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items, Pagination: page})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	q, err := h.service.Get(r.Context(), id, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Reject)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, action func(context.Context, int64, rbac.Principal) (*Quote, error)) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	q, err := action(r.Context(), id, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req finalizeRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	result, err := h.service.Finalize(r.Context(), id, FinalizeInput{FinalSubtotal: *req.FinalSubtotal, Notes: req.Notes}, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := httpx.Validate(h.validator, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}
