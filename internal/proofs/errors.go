package proofs

import (
	"fmt"

	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
)

var (
	ErrNotFound          = fmt.Errorf("%w: proof not found", httpx.ErrNotFound)
	ErrTierNotFound      = fmt.Errorf("%w: tier package not found", httpx.ErrNotFound)
	ErrFileURLRequired   = fmt.Errorf("%w: file_url is required", httpx.ErrValidation)
	ErrInvalidComment    = fmt.Errorf("%w: comment must be between 1 and %d characters", httpx.ErrValidation, MaxCommentLength)
	ErrAlreadyProcessed  = fmt.Errorf("%w: proof already processed", httpx.ErrBusinessRule)
	ErrProofOutstanding  = fmt.Errorf("%w: a sent proof is still awaiting the customer", httpx.ErrBusinessRule)
	ErrRevisionLimit     = fmt.Errorf("%w: revision limit reached for this tier", httpx.ErrBusinessRule)
	ErrVersionConflict   = fmt.Errorf("%w: proof history changed concurrently", httpx.ErrBusinessRule)
	ErrUploadForbidden   = fmt.Errorf("%w: only staff upload proofs", httpx.ErrForbidden)
	ErrDecisionForbidden = fmt.Errorf("%w: only the order's customer may decide on a proof", httpx.ErrForbidden)
)
