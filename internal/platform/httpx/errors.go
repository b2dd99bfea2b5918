// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBusinessRule = errors.New("business rule violation")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Unknown errors never expose their message to the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrBusinessRule):
		Problem(w, http.StatusBadRequest, "Business Rule Violation", err.Error())
	case errors.Is(err, ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrUnauthorized):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsInternal reports whether err falls outside the domain taxonomy.
func IsInternal(err error) bool {
	for _, known := range []error{ErrNotFound, ErrDuplicate, ErrValidation, ErrBusinessRule, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, known) {
			return false
		}
	}
	return true
}

// Fail writes err as a problem response. Internal failures are logged with
// the request id since their detail is withheld from the client.
func Fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if IsInternal(err) && logger != nil {
		logger.Error("request failed",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	RespondError(w, err)
}
