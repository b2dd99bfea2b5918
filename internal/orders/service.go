package orders

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/odyssey-erp/pressroom/internal/events"
	"github.com/odyssey-erp/pressroom/internal/rbac"
	"github.com/odyssey-erp/pressroom/internal/shared"
)

// Service exposes order reads and the direct staff/admin edits.
type Service struct {
	repo   Repository
	events events.Emitter
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService creates a new service. audit may be nil.
func NewService(repo Repository, emitter events.Emitter, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, events: emitter, audit: audit, logger: logger}
}

// Get returns an order visible to actor.
func (s *Service) Get(ctx context.Context, id int64, actor rbac.Principal) (*Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckAccess(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns orders visible to actor. Customers only ever see their own.
func (s *Service) List(ctx context.Context, filter ListFilter, actor rbac.Principal) ([]Order, shared.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, shared.Pagination{}, ErrUnknownStatus
	}
	switch {
	case actor.Role == rbac.RoleCustomer:
		id := actor.UserID
		filter.CustomerID = &id
	case !actor.IsStaff():
		return nil, shared.Pagination{}, ErrTriggerForbidden
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page.Page, filter.Page.PerPage, total), nil
}

// Transition applies a direct status edit requested by staff or admin.
func (s *Service) Transition(ctx context.Context, id int64, to Status, actor rbac.Principal) (*Order, error) {
	if err := AuthorizeTrigger(actor, TriggerManual); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, ErrUnknownStatus
	}

	var (
		order *Order
		evt   events.Event
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		evt, err = Transition(ctx, tx, order, to, TriggerManual, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, evt)
	s.record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "order.status_updated",
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     evt.Data,
	})
	return s.repo.GetByID(ctx, id)
}

// Assign sets or clears the staff member responsible for an order.
func (s *Service) Assign(ctx context.Context, id int64, staffID *int64, actor rbac.Principal) (*Order, error) {
	if actor.Role != rbac.RoleAdmin {
		return nil, ErrAssignForbidden
	}

	var previous *int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if order.Status.Terminal() {
			return ErrTerminalStatus
		}
		previous = order.AssignedStaffID
		return tx.UpdateAssignee(ctx, id, staffID)
	})
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"order_id":              id,
		"old_assigned_staff_id": previous,
		"new_assigned_staff_id": staffID,
	}
	s.events.Emit(ctx, events.New(events.OrderAssigned, actor.UserID, data))
	s.record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   "order.assigned",
		Entity:   "order",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     data,
	})
	return s.repo.GetByID(ctx, id)
}

// Invoice returns the invoice issued for an order.
func (s *Service) Invoice(ctx context.Context, orderID int64, actor rbac.Principal) (*Invoice, error) {
	if _, err := s.Get(ctx, orderID, actor); err != nil {
		return nil, err
	}
	return s.repo.GetInvoiceByOrder(ctx, orderID)
}

func (s *Service) record(ctx context.Context, entry shared.AuditLog) {
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

// CheckAccess allows staff, admins and the owning customer. Ownership is
// always judged against the order row, never the originating quote.
func CheckAccess(order *Order, actor rbac.Principal) error {
	if actor.IsStaff() || actor.Owns(order.CustomerID) {
		return nil
	}
	if actor.Role == rbac.RoleSystem {
		return nil
	}
	return ErrNotOwner
}
