package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/pressroom/internal/events"
	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/rbac"
	"github.com/odyssey-erp/pressroom/internal/shared"
)

// Service implements quote intake, review and finalize.
type Service struct {
	repo    Repository
	pricing Pricing
	events  events.Emitter
	audit   shared.AuditRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a new service. audit may be nil.
func NewService(repo Repository, pricing Pricing, emitter events.Emitter, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		pricing: pricing,
		events:  emitter,
		audit:   audit,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Submit records a quote request from a registered customer.
func (s *Service) Submit(ctx context.Context, in SubmitInput, actor rbac.Principal) (*Quote, error) {
	if actor.Role != rbac.RoleCustomer {
		return nil, fmt.Errorf("%w: only customers submit quotes", httpx.ErrForbidden)
	}
	if err := validateSubmit(in); err != nil {
		return nil, err
	}
	customerID := actor.UserID
	return s.repo.Insert(ctx, Quote{
		CustomerID:       &customerID,
		ServiceID:        in.ServiceID,
		TierID:           in.TierID,
		Status:           StatusSubmitted,
		EstimateSubtotal: in.EstimateSubtotal,
		Notes:            strings.TrimSpace(in.Notes),
	})
}

// SubmitGuest records an anonymous quote request identified by email.
func (s *Service) SubmitGuest(ctx context.Context, in GuestInput) (*Quote, error) {
	if err := validateSubmit(in.SubmitInput); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: guest_name is required", httpx.ErrValidation)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, fmt.Errorf("%w: guest_email is invalid", httpx.ErrValidation)
	}
	email := strings.ToLower(addr.Address)
	q := Quote{
		ServiceID:        in.ServiceID,
		TierID:           in.TierID,
		Status:           StatusSubmitted,
		EstimateSubtotal: in.EstimateSubtotal,
		Notes:            strings.TrimSpace(in.Notes),
		GuestName:        &name,
		GuestEmail:       &email,
	}
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		q.GuestPhone = &phone
	}
	return s.repo.Insert(ctx, q)
}

func validateSubmit(in SubmitInput) error {
	if in.ServiceID <= 0 || in.TierID <= 0 {
		return fmt.Errorf("%w: service_id and tier_id are required", httpx.ErrValidation)
	}
	if in.EstimateSubtotal != nil && in.EstimateSubtotal.IsNegative() {
		return ErrInvalidEstimate
	}
	return nil
}

// Get returns a quote visible to actor.
func (s *Service) Get(ctx context.Context, id int64, actor rbac.Principal) (*Quote, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && !actor.Owns(q.CustomerID) {
		return nil, ErrNotOwner
	}
	return q, nil
}

// List returns quotes visible to actor.
func (s *Service) List(ctx context.Context, filter ListFilter, actor rbac.Principal) ([]Quote, shared.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Pagination{}, ErrUnknownStatus
	}
	switch {
	case actor.Role == rbac.RoleCustomer:
		id := actor.UserID
		filter.CustomerID = &id
	case !actor.IsStaff():
		return nil, shared.Pagination{}, httpx.ErrForbidden
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total), nil
}

// Approve marks a submitted quote as accepted for pricing.
func (s *Service) Approve(ctx context.Context, id int64, actor rbac.Principal) (*Quote, error) {
	return s.review(ctx, id, StatusApproved, actor)
}

// Reject closes a quote without pricing it.
func (s *Service) Reject(ctx context.Context, id int64, actor rbac.Principal) (*Quote, error) {
	return s.review(ctx, id, StatusRejected, actor)
}

func (s *Service) review(ctx context.Context, id int64, to Status, actor rbac.Principal) (*Quote, error) {
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: only staff review quotes", httpx.ErrForbidden)
	}
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	allowed := q.Status == StatusSubmitted || (to == StatusRejected && q.Status == StatusApproved)
	if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrNotPending, q.Status)
	}
	if err := s.repo.UpdateStatus(ctx, id, q.Status, to); err != nil {
		return nil, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "quote." + strings.ToLower(string(to)),
		Entity:   "quote",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"old_status": q.Status, "new_status": to},
	})
	return s.repo.Get(ctx, id)
}

// Finalize prices an accepted quote and creates its order and invoice in a
// single transaction.
func (s *Service) Finalize(ctx context.Context, id int64, in FinalizeInput, actor rbac.Principal) (*FinalizeResult, error) {
	if actor.Role != rbac.RoleAdmin {
		return nil, ErrFinalizeDenied
	}
	// Round before the check so a sub-cent subtotal cannot price to zero.
	subtotal := in.FinalSubtotal.Round(2)
	if !subtotal.IsPositive() {
		return nil, ErrInvalidSubtotal
	}
	amounts := s.pricing.Compute(subtotal)
	now := s.now()

	var result FinalizeResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !q.Status.Finalizable() {
			return fmt.Errorf("%w: quote is %s", ErrNotFinalizable, q.Status)
		}
		if err := tx.MarkFinalized(ctx, id, amounts.Subtotal, in.Notes, now); err != nil {
			return fmt.Errorf("finalize quote: %w", err)
		}

		quoteID := q.ID
		order, err := tx.Orders().InsertOrder(ctx, orders.Order{
			QuoteID:       &quoteID,
			CustomerID:    q.CustomerID,
			TierID:        q.TierID,
			Status:        orders.StatusPendingDeposit,
			TotalSubtotal: amounts.Subtotal,
			TaxAmount:     amounts.Tax,
			TotalAmount:   amounts.Total,
			DepositPct:    amounts.DepositPct,
			DepositAmount: amounts.Deposit,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		number, err := tx.Orders().NextInvoiceNumber(ctx, now)
		if err != nil {
			return fmt.Errorf("allocate invoice number: %w", err)
		}
		invoice, err := tx.Orders().InsertInvoice(ctx, orders.Invoice{
			OrderID:       order.ID,
			InvoiceNumber: number,
			AmountDue:     amounts.Total,
			IssuedAt:      now,
		})
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		q.Status = StatusFinalized
		q.FinalSubtotal = &amounts.Subtotal
		q.FinalizedAt = &now
		q.UpdatedAt = now
		if in.Notes != nil {
			q.Notes = *in.Notes
		}
		result = FinalizeResult{Quote: *q, Order: *order, Invoice: *invoice}
		return nil
	})
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"quote_id":       result.Quote.ID,
		"order_id":       result.Order.ID,
		"invoice_id":     result.Invoice.ID,
		"invoice_number": result.Invoice.InvoiceNumber,
		"total_subtotal": amounts.Subtotal.StringFixed(2),
		"tax_amount":     amounts.Tax.StringFixed(2),
		"total_amount":   amounts.Total.StringFixed(2),
		"deposit_amount": amounts.Deposit.StringFixed(2),
	}
	s.events.Emit(ctx, events.New(events.QuoteFinalized, actor.UserID, data))
	s.record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "quote.finalized",
		Entity:   "quote",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     data,
	})
	return &result, nil
}

func (s *Service) record(ctx context.Context, entry shared.AuditLog) {
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record", slog.String("action", entry.Action), slog.Any("error", err))
	}
}
