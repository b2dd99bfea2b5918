package payments

import (
	"fmt"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
)

var (
	ErrNotFound       = fmt.Errorf("%w: payment not found", httpx.ErrNotFound)
	ErrInvalidAmount  = fmt.Errorf("%w: amount must be greater than zero", httpx.ErrValidation)
	ErrInvalidMethod  = fmt.Errorf("%w: unknown payment method", httpx.ErrValidation)
	ErrNotPending     = fmt.Errorf("%w: payment already settled", httpx.ErrBusinessRule)
	ErrRecordDenied   = fmt.Errorf("%w: only admins or the payment gateway may record payments", httpx.ErrForbidden)
	ErrIntentDenied   = fmt.Errorf("%w: only the order's customer may start a payment", httpx.ErrForbidden)
	ErrGatewayFailure = fmt.Errorf("%w: payment gateway rejected the intent", httpx.ErrBusinessRule)
)
