package bookings

import (
	"fmt"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
)

var (
	ErrNotFound          = fmt.Errorf("%w: booking not found", httpx.ErrNotFound)
	ErrInvalidWindow     = fmt.Errorf("%w: start_at must be before end_at", httpx.ErrValidation)
	ErrQuoteNotFinalized = fmt.Errorf("%w: quote must be finalized before booking", httpx.ErrBusinessRule)
	ErrBlackout          = fmt.Errorf("%w: date is blacked out", httpx.ErrBusinessRule)
	ErrNotWorkingDay     = fmt.Errorf("%w: date is not a working day", httpx.ErrBusinessRule)
	ErrOutsideHours      = fmt.Errorf("%w: time is outside working hours", httpx.ErrBusinessRule)
	ErrDayFull           = fmt.Errorf("%w: no slots left on this date", httpx.ErrBusinessRule)
	ErrQuoteBooked       = fmt.Errorf("%w: quote already has an active booking", httpx.ErrBusinessRule)
	ErrConflict          = fmt.Errorf("%w: booking conflicted with a concurrent request", httpx.ErrBusinessRule)
	ErrIllegalTransition = fmt.Errorf("%w: booking status transition not allowed", httpx.ErrBusinessRule)
	ErrCustomerOnly      = fmt.Errorf("%w: only customers create bookings", httpx.ErrForbidden)
	ErrStaffOnly         = fmt.Errorf("%w: staff only", httpx.ErrForbidden)
	ErrNotOwner          = fmt.Errorf("%w: booking belongs to another customer", httpx.ErrForbidden)
)
