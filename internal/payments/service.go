package payments

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/events"
	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// Service records payments and derives balances. It never changes order status.
type Service struct {
	repo    Repository
	gateway Gateway
	events  events.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new service. A nil gateway uses StubGateway.
func NewService(repo Repository, gateway Gateway, emitter events.Emitter, logger *slog.Logger) *Service {
	if gateway == nil {
		gateway = StubGateway{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, gateway: gateway, events: emitter, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends a completed payment. Admins record counter payments; the
// SYSTEM role is the gateway confirmation path.
func (s *Service) Record(ctx context.Context, orderID int64, in RecordInput, actor rbac.Principal) (*Payment, error) {
	if !actor.Is(rbac.RoleAdmin, rbac.RoleSystem) {
		return nil, ErrRecordDenied
	}
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !in.Method.Valid() {
		return nil, ErrInvalidMethod
	}

	recordedBy := actor.UserID
	payment := Payment{
		OrderID:    orderID,
		Amount:     amount,
		Method:     in.Method,
		Status:     StatusCompleted,
		RecordedBy: &recordedBy,
	}
	if ref := strings.TrimSpace(in.TransactionRef); ref != "" {
		payment.TransactionRef = &ref
	}

	var stored *Payment
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if stored, err = tx.Insert(ctx, payment); err != nil {
			return err
		}
		return s.settleInvoice(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.New(events.PaymentCreated, actor.UserID, paymentData(stored)))
	return stored, nil
}

// CreateIntent starts an online payment for the order's customer. The
// payment stays pending until the gateway confirms it.
func (s *Service) CreateIntent(ctx context.Context, orderID int64, amount decimal.Decimal, actor rbac.Principal) (*Payment, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(order.CustomerID) {
		return nil, ErrIntentDenied
	}
	ref, err := s.gateway.CreateIntent(ctx, orderID, amount)
	if err != nil {
		s.logger.Warn("payment intent", slog.Int64("order_id", orderID), slog.Any("error", err))
		return nil, ErrGatewayFailure
	}

	var stored *Payment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.Orders().GetForUpdate(ctx, orderID); err != nil {
			return err
		}
		stored, err = tx.Insert(ctx, Payment{
			OrderID:        orderID,
			Amount:         amount,
			Method:         MethodOnline,
			Status:         StatusPending,
			TransactionRef: &ref,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.New(events.PaymentCreated, actor.UserID, paymentData(stored)))
	return stored, nil
}

// Confirm settles a pending payment as completed or failed.
func (s *Service) Confirm(ctx context.Context, paymentID int64, succeeded bool, actor rbac.Principal) (*Payment, error) {
	if !actor.Is(rbac.RoleAdmin, rbac.RoleSystem) {
		return nil, ErrRecordDenied
	}
	existing, err := s.repo.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	to := StatusFailed
	if succeeded {
		to = StatusCompleted
	}

	var payment *Payment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.Orders().GetForUpdate(ctx, existing.OrderID)
		if err != nil {
			return err
		}
		if payment, err = tx.GetForUpdate(ctx, paymentID); err != nil {
			return err
		}
		if payment.Status != StatusPending {
			return ErrNotPending
		}
		if err := tx.UpdateStatus(ctx, paymentID, StatusPending, to); err != nil {
			return err
		}
		payment.Status = to
		if to != StatusCompleted {
			return nil
		}
		return s.settleInvoice(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	data := paymentData(payment)
	data["old_status"] = StatusPending
	data["new_status"] = to
	s.events.Emit(ctx, events.New(events.PaymentStatusUpdated, actor.UserID, data))
	return payment, nil
}

// settleInvoice stamps the invoice paid once completed payments cover the
// order total.
func (s *Service) settleInvoice(ctx context.Context, tx TxRepository, order *orders.Order) error {
	paid, err := tx.CompletedTotal(ctx, order.ID)
	if err != nil {
		return err
	}
	if paid.LessThan(order.TotalAmount) {
		return nil
	}
	return tx.Orders().MarkInvoicePaid(ctx, order.ID, s.now())
}

// ComputeBalance returns the derived balance of an order.
func (s *Service) ComputeBalance(ctx context.Context, orderID int64, actor rbac.Principal) (*Balance, error) {
	order, err := s.accessibleOrder(ctx, orderID, actor)
	if err != nil {
		return nil, err
	}
	ledger, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	balance := ComputeBalance(*order, ledger)
	return &balance, nil
}

// List returns the ledger of an order.
func (s *Service) List(ctx context.Context, orderID int64, actor rbac.Principal) ([]Payment, error) {
	if _, err := s.accessibleOrder(ctx, orderID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListByOrder(ctx, orderID)
}

func (s *Service) accessibleOrder(ctx context.Context, orderID int64, actor rbac.Principal) (*orders.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := orders.CheckAccess(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func paymentData(p *Payment) map[string]any {
	return map[string]any{
		"payment_id": p.ID,
		"order_id":   p.OrderID,
		"amount":     p.Amount.StringFixed(2),
		"method":     p.Method,
		"status":     p.Status,
	}
}
