package orders

import (
	"fmt"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
)

// Domain errors for orders.
var (
	ErrNotFound        = fmt.Errorf("%w: order not found", httpx.ErrNotFound)
	ErrInvoiceNotFound = fmt.Errorf("%w: invoice not found", httpx.ErrNotFound)

	ErrUnknownStatus = fmt.Errorf("%w: unknown order status", httpx.ErrValidation)

	// Transition errors.
	ErrSameStatus        = fmt.Errorf("%w: order already in requested status", httpx.ErrBusinessRule)
	ErrTerminalStatus    = fmt.Errorf("%w: order is closed", httpx.ErrBusinessRule)
	ErrIllegalTransition = fmt.Errorf("%w: status transition not allowed", httpx.ErrBusinessRule)
	ErrStaleStatus       = fmt.Errorf("%w: order status changed concurrently", httpx.ErrBusinessRule)

	// Authorization errors.
	ErrCustomerTransition = fmt.Errorf("%w: customers cannot change order status directly", httpx.ErrForbidden)
	ErrTriggerForbidden   = fmt.Errorf("%w: actor may not perform this action", httpx.ErrForbidden)
	ErrAssignForbidden    = fmt.Errorf("%w: only admins may reassign staff", httpx.ErrForbidden)
	ErrNotOwner           = fmt.Errorf("%w: order belongs to another customer", httpx.ErrForbidden)
)
