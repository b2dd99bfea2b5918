package calendar

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// Handler manages calendar HTTP endpoints.
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
	r.Get("/availability", h.availability)
	r.Get("/settings", h.settings)
	r.Get("/blackouts", h.listBlackouts)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAdmin))
		r.Put("/settings", h.updateSettings)
		r.Post("/blackouts", h.addBlackout)
		r.Delete("/blackouts/{date}", h.removeBlackout)
	})
}

type settingsRequest struct {
	WorkingDays          []int `json:"working_days" validate:"dive,min=0,max=6"`
	StartHour            int   `json:"start_hour" validate:"min=0,max=23"`
	EndHour              int   `json:"end_hour" validate:"min=1,max=24"`
	SlotDurationMinutes  int   `json:"slot_duration_minutes" validate:"gt=0"`
	SlotsPerDay          int   `json:"slots_per_day" validate:"min=0"`
	EmergencySlotsPerDay int   `json:"emergency_slots_per_day" validate:"min=0"`
}

type blackoutRequest struct {
	Date   string `json:"date" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type blackoutsResponse struct {
	Data []BlackoutDate `json:"data"`
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := ParseDate(q.Get("start_date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	end, err := ParseDate(q.Get("end_date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Availability(r.Context(), start, end)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Settings(r.Context())
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	updated, err := h.service.UpdateSettings(r.Context(), Settings{
		WorkingDays:          req.WorkingDays,
		StartHour:            req.StartHour,
		EndHour:              req.EndHour,
		SlotDurationMinutes:  req.SlotDurationMinutes,
		SlotsPerDay:          req.SlotsPerDay,
		EmergencySlotsPerDay: req.EmergencySlotsPerDay,
	}, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) listBlackouts(w http.ResponseWriter, r *http.Request) {
	var from, to time.Time
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = ParseDate(raw); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = ParseDate(raw); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	items, err := h.service.ListBlackouts(r.Context(), from, to)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []BlackoutDate{}
	}
	httpx.JSON(w, http.StatusOK, blackoutsResponse{Data: items})
}

func (h *Handler) addBlackout(w http.ResponseWriter, r *http.Request) {
	var req blackoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.Validate(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	day, err := ParseDate(req.Date)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	created, err := h.service.AddBlackout(r.Context(), day, req.Reason, actor)
	if err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) removeBlackout(w http.ResponseWriter, r *http.Request) {
	day, err := ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := rbac.PrincipalFromContext(r.Context())
	if err := h.service.RemoveBlackout(r.Context(), day, actor); err != nil {
		httpx.Fail(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
