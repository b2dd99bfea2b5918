package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway starts online payments with an external provider.
type Gateway interface {
	CreateIntent(ctx context.Context, orderID int64, amount decimal.Decimal) (string, error)
}

// StubGateway issues opaque intent references without contacting a provider.
type StubGateway struct{}

// CreateIntent returns a pi_ reference.
func (StubGateway) CreateIntent(context.Context, int64, decimal.Decimal) (string, error) {
	return "pi_" + uuid.NewString(), nil
}
