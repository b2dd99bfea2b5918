package proofs

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/odyssey-erp/pressroom/internal/events"
	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

// Service manages proof uploads and customer decisions. Every order status
// change goes through orders.Transition inside the proof transaction.
type Service struct {
	repo   Repository
	events events.Emitter
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new service.
func NewService(repo Repository, emitter events.Emitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, events: emitter, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Upload stores the next proof version and moves the order to awaiting approval.
func (s *Service) Upload(ctx context.Context, orderID int64, in UploadInput, actor rbac.Principal) (*Proof, error) {
	if !actor.IsStaff() {
		return nil, ErrUploadForbidden
	}
	fileURL := strings.TrimSpace(in.FileURL)
	if fileURL == "" {
		return nil, ErrFileURLRequired
	}

	var (
		proof     *Proof
		statusEvt *events.Event
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		outstanding, err := tx.HasOutstanding(ctx, orderID)
		if err != nil {
			return err
		}
		if outstanding {
			return ErrProofOutstanding
		}
		version, err := tx.NextVersion(ctx, orderID)
		if err != nil {
			return err
		}
		proof, err = tx.Insert(ctx, Proof{
			OrderID:       orderID,
			VersionNumber: version,
			FileURL:       fileURL,
			InternalNotes: strings.TrimSpace(in.InternalNotes),
			Status:        StatusSent,
			CreatedBy:     actor.UserID,
		})
		if err != nil {
			return err
		}
		// An order left awaiting approval with nothing outstanding takes the
		// new proof without a status change.
		if order.Status == orders.StatusAwaitingApproval {
			return nil
		}
		evt, err := orders.Transition(ctx, tx.Orders(), order, orders.StatusAwaitingApproval, orders.TriggerProofUpload, actor)
		if err != nil {
			return err
		}
		statusEvt = &evt
		return nil
	})
	if err != nil {
		return nil, err
	}

	evts := []events.Event{
		events.New(events.ProofUploaded, actor.UserID, map[string]any{
			"proof_id":       proof.ID,
			"order_id":       orderID,
			"version_number": proof.VersionNumber,
			"file_url":       proof.FileURL,
		}),
	}
	if statusEvt != nil {
		evts = append(evts, *statusEvt)
	}
	s.events.Emit(ctx, evts...)
	return proof, nil
}

// Approve accepts a sent proof and returns the order to production.
func (s *Service) Approve(ctx context.Context, proofID int64, actor rbac.Principal) (*Proof, error) {
	var statusEvt events.Event
	proof, err := s.decide(ctx, proofID, actor, func(ctx context.Context, tx TxRepository, order *orders.Order, proof *Proof) error {
		res := Resolution{Status: StatusApproved, At: s.now()}
		if err := tx.Resolve(ctx, proof.ID, res); err != nil {
			return err
		}
		proof.Status = res.Status
		proof.ApprovedAt = &res.At
		proof.ResolvedAt = &res.At

		var err error
		statusEvt, err = orders.Transition(ctx, tx.Orders(), order, orders.StatusInProduction, orders.TriggerProofDecision, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx,
		events.New(events.ProofApproved, actor.UserID, map[string]any{
			"proof_id":       proof.ID,
			"order_id":       proof.OrderID,
			"version_number": proof.VersionNumber,
		}),
		statusEvt,
	)
	return proof, nil
}

// RequestChanges records a change request, consuming one revision from the
// tier quota, and returns the order to production.
func (s *Service) RequestChanges(ctx context.Context, proofID int64, comment string, actor rbac.Principal) (*Proof, error) {
	comment = strings.TrimSpace(comment)
	if n := utf8.RuneCountInString(comment); n == 0 || n > MaxCommentLength {
		return nil, ErrInvalidComment
	}

	var (
		statusEvt events.Event
		used      int
		quota     Quota
	)
	proof, err := s.decide(ctx, proofID, actor, func(ctx context.Context, tx TxRepository, order *orders.Order, proof *Proof) error {
		var err error
		quota, err = tx.RevisionQuota(ctx, order.TierID)
		if err != nil {
			return err
		}
		if quota.Exhausted(order.RevisionCount) {
			return ErrRevisionLimit
		}

		res := Resolution{Status: StatusRevisionRequested, Comment: &comment, At: s.now()}
		if err := tx.Resolve(ctx, proof.ID, res); err != nil {
			return err
		}
		proof.Status = res.Status
		proof.CustomerComment = res.Comment
		proof.ResolvedAt = &res.At

		if used, err = tx.Orders().IncrementRevisionCount(ctx, order.ID); err != nil {
			return err
		}
		statusEvt, err = orders.Transition(ctx, tx.Orders(), order, orders.StatusInProduction, orders.TriggerProofDecision, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"proof_id":       proof.ID,
		"order_id":       proof.OrderID,
		"version_number": proof.VersionNumber,
		"revision_count": used,
	}
	if !quota.Unlimited {
		data["revision_limit"] = quota.Limit
	}
	s.events.Emit(ctx, events.New(events.ProofRevisionRequested, actor.UserID, data), statusEvt)
	return proof, nil
}

type decision func(ctx context.Context, tx TxRepository, order *orders.Order, proof *Proof) error

// decide locks the order before the proof, matching Upload's lock order,
// and checks ownership and that the proof is still open.
func (s *Service) decide(ctx context.Context, proofID int64, actor rbac.Principal, fn decision) (*Proof, error) {
	if actor.Role != rbac.RoleCustomer {
		return nil, ErrDecisionForbidden
	}
	existing, err := s.repo.Get(ctx, proofID)
	if err != nil {
		return nil, err
	}

	var proof *Proof
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.Orders().GetForUpdate(ctx, existing.OrderID)
		if err != nil {
			return err
		}
		if !actor.Owns(order.CustomerID) {
			return ErrDecisionForbidden
		}
		proof, err = tx.GetForUpdate(ctx, proofID)
		if err != nil {
			return err
		}
		if proof.Status != StatusSent {
			return ErrAlreadyProcessed
		}
		return fn(ctx, tx, order, proof)
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// List returns the proof history of an order. Internal notes are withheld
// from customers.
func (s *Service) List(ctx context.Context, orderID int64, actor rbac.Principal) ([]Proof, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := orders.CheckAccess(order, actor); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role == rbac.RoleCustomer {
		for i := range items {
			items[i].InternalNotes = ""
		}
	}
	return items, nil
}
