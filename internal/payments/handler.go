package payments

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/rbac"
	"github.com/odyssey-erp/pressroom/internal/shared"
)

const idempotencyModule = "payments.record"

// Handler manages payment HTTP endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	rbac        rbac.Middleware
	idempotency shared.IdempotencyGuard
	validator   *validator.Validate
}

// NewHandler creates a new handler. idempotency may be nil, in which case
// the Idempotency-Key header is ignored.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, idempotency shared.IdempotencyGuard) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, idempotency: idempotency, validator: validator.New()}
}

// MountOrderRoutes registers the ledger routes nested under /orders.
func (h *Handler) MountOrderRoutes(r chi.Router) {
	r.Get("/{id}/payments", h.list)
	r.Get("/{id}/balance", h.balance)
	r.With(h.rbac.RequireAny(rbac.RoleAdmin, rbac.RoleSystem)).Post("/{id}/payments", h.record)
	r.With(h.rbac.RequireAny(rbac.RoleCustomer)).Post("/{id}/payment-intents", h.createIntent)
}

// MountRoutes registers routes under /payments.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(rbac.RoleAdmin, rbac.RoleSystem)).Post("/{id}/confirm", h.confirm)
}

type recordRequest struct {
	Amount         *decimal.Decimal `json:"amount" validate:"required"`
	Method         string           `json:"method" validate:"required"`
	TransactionRef string           `json:"transaction_ref" validate:"max=200"`
}

type intentRequest struct {
	Amount *decimal.Decimal `json:"amount" validate:"required"`
}

type confirmRequest struct {
	Succeeded *bool `json:"succeeded" validate:"required"`
}

type listResponse struct {
	Data []Payment `json:"data"`
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req recordRequest
	if !h.decode(w, r, &req) {
		return
	}

	key := strings.TrimSpace(r.Header.Get(shared.IdempotencyHeader))
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			httpx.Fail(w, r, h.logger, err)
			return
		}
	}

	actor, _ := rbac.PrincipalFromContext(r.Context())
	payment, err := h.service.Record(r.Context(), orderID, RecordInput{
		Amount:         *req.Amount,
		Method:         Method(strings.ToUpper(req.Method)),
		TransactionRef: req.TransactionRef,
	}, actor)
	if err != nil {
		h.releaseKey(r.Context(), key)
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

// releaseKey frees a reserved key so the client may retry a failed request.
func (h *Handler) releaseKey(ctx context.Context, key string) {
	if key == "" || h.idempotency == nil {
		return
	}
	if err := h.idempotency.Delete(context.WithoutCancel(ctx), key, idempotencyModule); err != nil {
		h.logger.Warn("release idempotency key", slog.String("key", key), slog.Any("error", err))
	}
}

func (h *Handler) createIntent(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req intentRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	payment, err := h.service.CreateIntent(r.Context(), orderID, *req.Amount, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req confirmRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	payment, err := h.service.Confirm(r.Context(), id, *req.Succeeded, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
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
		items = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Data: items})
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	balance, err := h.service.ComputeBalance(r.Context(), orderID, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
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
