package quotes

import (
	"fmt"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
)

var (
	ErrNotFound        = fmt.Errorf("%w: quote not found", httpx.ErrNotFound)
	ErrInvalidSubtotal = fmt.Errorf("%w: final_subtotal must be greater than zero", httpx.ErrValidation)
	ErrInvalidEstimate = fmt.Errorf("%w: estimate_subtotal must not be negative", httpx.ErrValidation)
	ErrUnknownStatus   = fmt.Errorf("%w: unknown quote status", httpx.ErrValidation)
	ErrNotFinalizable  = fmt.Errorf("%w: quote can no longer be finalized", httpx.ErrBusinessRule)
	ErrNotPending      = fmt.Errorf("%w: quote is not awaiting review", httpx.ErrBusinessRule)
	ErrStaleStatus     = fmt.Errorf("%w: quote status changed concurrently", httpx.ErrBusinessRule)
	ErrFinalizeDenied  = fmt.Errorf("%w: only admins may finalize quotes", httpx.ErrForbidden)
	ErrNotOwner        = fmt.Errorf("%w: quote belongs to another customer", httpx.ErrForbidden)
)
