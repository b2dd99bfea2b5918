package calendar

import (
	"fmt"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
)

var (
	ErrBlackoutNotFound = fmt.Errorf("%w: blackout date not found", httpx.ErrNotFound)
	ErrBlackoutExists   = fmt.Errorf("%w: blackout date already exists", httpx.ErrDuplicate)
	ErrInvalidRange     = fmt.Errorf("%w: start_date must not be after end_date", httpx.ErrValidation)
	ErrRangeTooLong     = fmt.Errorf("%w: date range too long", httpx.ErrValidation)
	ErrAdminOnly        = fmt.Errorf("%w: only admins may change the calendar", httpx.ErrForbidden)
)
