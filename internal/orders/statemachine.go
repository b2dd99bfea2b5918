package orders

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/pressroom/internal/events"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// Trigger names the business action behind a status change.
type Trigger string

const (
	// TriggerManual is a direct staff or admin edit.
	TriggerManual Trigger = "manual"
	// TriggerProofUpload fires when staff send a new proof version.
	TriggerProofUpload Trigger = "proof_upload"
	// TriggerProofDecision fires when the customer approves or requests changes.
	TriggerProofDecision Trigger = "proof_decision"
)

// transitionTable lists every legal edge and the triggers allowed to take it.
// Edges into CANCELLED are added for every non-terminal state in init.
var transitionTable = map[Status]map[Status][]Trigger{
	StatusPendingDeposit: {
		StatusScheduled: {TriggerManual},
	},
	StatusScheduled: {
		StatusInProduction:     {TriggerManual},
		StatusAwaitingApproval: {TriggerProofUpload},
	},
	StatusInProduction: {
		StatusProofSent:        {TriggerManual},
		StatusAwaitingApproval: {TriggerProofUpload},
		StatusReadyForPickup:   {TriggerManual},
	},
	// AWAITING_APPROVAL is only entered with a proof on the table, so the
	// customer's decision always has something to act on.
	StatusProofSent: {
		StatusAwaitingApproval: {TriggerProofUpload},
	},
	StatusAwaitingApproval: {
		StatusInProduction: {TriggerProofDecision},
	},
	StatusReadyForPickup: {
		StatusCompleted: {TriggerManual},
	},
}

func init() {
	for from, edges := range transitionTable {
		if !from.Terminal() {
			edges[StatusCancelled] = []Trigger{TriggerManual}
		}
	}
}

// CanTransition reports whether trigger may move an order from one status to another.
func CanTransition(from, to Status, trigger Trigger) bool {
	for _, allowed := range transitionTable[from][to] {
		if allowed == trigger {
			return true
		}
	}
	return false
}

// ValidateTransition explains why an edge is rejected.
func ValidateTransition(from, to Status, trigger Trigger) error {
	switch {
	case !to.Valid():
		return fmt.Errorf("%w: %q", ErrUnknownStatus, to)
	case from == to:
		return fmt.Errorf("%w: %s", ErrSameStatus, to)
	case from.Terminal():
		return fmt.Errorf("%w: %s", ErrTerminalStatus, from)
	case !CanTransition(from, to, trigger):
		return fmt.Errorf("%w: %s -> %s via %s", ErrIllegalTransition, from, to, trigger)
	}
	return nil
}

// AuthorizeTrigger checks the actor may use trigger at all. Ownership of
// the order is checked by the caller.
func AuthorizeTrigger(actor rbac.Principal, trigger Trigger) error {
	switch trigger {
	case TriggerManual:
		if actor.Role == rbac.RoleCustomer {
			return ErrCustomerTransition
		}
		if !actor.IsStaff() {
			return ErrTriggerForbidden
		}
	case TriggerProofUpload:
		if !actor.IsStaff() {
			return ErrTriggerForbidden
		}
	case TriggerProofDecision:
		if actor.Role != rbac.RoleCustomer {
			return ErrTriggerForbidden
		}
	default:
		return ErrTriggerForbidden
	}
	return nil
}

// StatusWriter persists a compare-and-set status change.
type StatusWriter interface {
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
}

// Transition is the single path by which order status changes. It must run
// inside the caller's transaction; the returned event is emitted after commit.
func Transition(ctx context.Context, w StatusWriter, order *Order, to Status, trigger Trigger, actor rbac.Principal) (events.Event, error) {
	if err := AuthorizeTrigger(actor, trigger); err != nil {
		return events.Event{}, err
	}
	from := order.Status
	if err := ValidateTransition(from, to, trigger); err != nil {
		return events.Event{}, err
	}
	if err := w.UpdateStatus(ctx, order.ID, from, to); err != nil {
		return events.Event{}, err
	}
	order.Status = to
	return events.New(events.OrderStatusUpdated, actor.UserID, map[string]any{
		"order_id":   order.ID,
		"old_status": from,
		"new_status": to,
		"trigger":    trigger,
	}), nil
}
