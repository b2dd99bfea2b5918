package proofs

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// Handler manages proof HTTP endpoints.
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

// MountOrderRoutes registers the proof routes nested under /orders.
func (h *Handler) MountOrderRoutes(r chi.Router) {
	r.Get("/{id}/proofs", h.list)
	r.With(h.rbac.RequireStaff()).Post("/{id}/proofs", h.upload)
}

// MountRoutes registers routes under /proofs.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleCustomer))
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/request-changes", h.requestChanges)
	})
}

type uploadRequest struct {
	FileURL       string `json:"file_url" validate:"required,max=2048"`
	InternalNotes string `json:"internal_notes" validate:"max=4000"`
}

type changesRequest struct {
	Comment string `json:"comment" validate:"required"`
}

type listResponse struct {
	Data []Proof `json:"data"`
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req uploadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	proof, err := h.service.Upload(r.Context(), orderID, UploadInput{FileURL: req.FileURL, InternalNotes: req.InternalNotes}, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, proof)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	items, err := h.service.List(r.Context(), orderID, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []Proof{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	proof, err := h.service.Approve(r.Context(), id, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, proof)
}

// requestChanges leaves comment length checks to the service, which counts
// characters rather than bytes.
func (h *Handler) requestChanges(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req changesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	proof, err := h.service.RequestChanges(r.Context(), id, req.Comment, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, proof)
}
