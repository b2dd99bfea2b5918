// Package orderstest provides an in-memory order store for service tests
// across the lifecycle packages.
package orderstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/pressroom/internal/orders"
)

// Store implements orders.Repository in memory. Transactions hold a single
// mutex, which stands in for the row locks Postgres would take.
type Store struct {
	mu            sync.Mutex
	orders        map[int64]orders.Order
	invoices      map[int64]orders.Invoice
	seq           map[string]int64
	nextOrderID   int64
	nextInvoiceID int64

	// FailInsertInvoice, when set, is returned by InsertInvoice.
	FailInsertInvoice error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		orders:   make(map[int64]orders.Order),
		invoices: make(map[int64]orders.Invoice),
		seq:      make(map[string]int64),
	}
}

// Seed inserts o as-is, assigning an id when zero.
func (s *Store) Seed(o orders.Order) orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		s.nextOrderID++
		o.ID = s.nextOrderID
	} else if o.ID > s.nextOrderID {
		s.nextOrderID = o.ID
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
		o.UpdatedAt = o.CreatedAt
	}
	s.orders[o.ID] = o
	return o
}

// Order returns a copy of the stored order.
func (s *Store) Order(id int64) (orders.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	return o, ok
}

// Count returns the number of stored orders.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// InvoiceCount returns the number of stored invoices.
func (s *Store) InvoiceCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

// Atomic runs fn under the store lock and restores the prior state when fn fails.
func (s *Store) Atomic(fn func(tx orders.TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.snapshot()
	if err := fn(&txView{s: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func (s *Store) GetByID(_ context.Context, id int64) (*orders.Order, error) {
	o, ok := s.Order(id)
	if !ok {
		return nil, orders.ErrNotFound
	}
	return &o, nil
}

func (s *Store) List(_ context.Context, filter orders.ListFilter) ([]orders.Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if filter.CustomerID != nil && (o.CustomerID == nil || *o.CustomerID != *filter.CustomerID) {
			continue
		}
		if filter.AssignedStaffID != nil && (o.AssignedStaffID == nil || *o.AssignedStaffID != *filter.AssignedStaffID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	start := filter.Page.Offset()
	if start > total {
		start = total
	}
	end := start + filter.Page.Limit()
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (s *Store) GetInvoiceByOrder(_ context.Context, orderID int64) (*orders.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[orderID]
	if !ok {
		return nil, orders.ErrInvoiceNotFound
	}
	return &inv, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, orders.TxRepository) error) error {
	return s.Atomic(func(tx orders.TxRepository) error {
		return fn(ctx, tx)
	})
}

type snapshot struct {
	orders        map[int64]orders.Order
	invoices      map[int64]orders.Invoice
	seq           map[string]int64
	nextOrderID   int64
	nextInvoiceID int64
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		orders:        make(map[int64]orders.Order, len(s.orders)),
		invoices:      make(map[int64]orders.Invoice, len(s.invoices)),
		seq:           make(map[string]int64, len(s.seq)),
		nextOrderID:   s.nextOrderID,
		nextInvoiceID: s.nextInvoiceID,
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	for k, v := range s.invoices {
		snap.invoices[k] = v
	}
	for k, v := range s.seq {
		snap.seq[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.orders = snap.orders
	s.invoices = snap.invoices
	s.seq = snap.seq
	s.nextOrderID = snap.nextOrderID
	s.nextInvoiceID = snap.nextInvoiceID
}

// txView mutates the store without locking; only valid inside Atomic.
type txView struct {
	s *Store
}

func (t *txView) GetForUpdate(_ context.Context, id int64) (*orders.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return &o, nil
}

func (t *txView) InsertOrder(_ context.Context, o orders.Order) (*orders.Order, error) {
	t.s.nextOrderID++
	o.ID = t.s.nextOrderID
	o.RevisionCount = 0
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	t.s.orders[o.ID] = o
	return &o, nil
}

func (t *txView) NextInvoiceNumber(_ context.Context, issuedAt time.Time) (string, error) {
	period := issuedAt.Format("2006")
	t.s.seq[period]++
	return orders.FormatInvoiceNumber(issuedAt, t.s.seq[period]), nil
}

func (t *txView) InsertInvoice(_ context.Context, inv orders.Invoice) (*orders.Invoice, error) {
	if t.s.FailInsertInvoice != nil {
		return nil, t.s.FailInsertInvoice
	}
	t.s.nextInvoiceID++
	inv.ID = t.s.nextInvoiceID
	t.s.invoices[inv.OrderID] = inv
	return &inv, nil
}

func (t *txView) UpdateStatus(_ context.Context, id int64, from, to orders.Status) error {
	o, ok := t.s.orders[id]
	if !ok || o.Status != from {
		return orders.ErrStaleStatus
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	t.s.orders[id] = o
	return nil
}

func (t *txView) UpdateAssignee(_ context.Context, id int64, staffID *int64) error {
	o, ok := t.s.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	o.AssignedStaffID = staffID
	t.s.orders[id] = o
	return nil
}

func (t *txView) IncrementRevisionCount(_ context.Context, id int64) (int, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return 0, orders.ErrNotFound
	}
	o.RevisionCount++
	t.s.orders[id] = o
	return o.RevisionCount, nil
}

func (t *txView) MarkInvoicePaid(_ context.Context, orderID int64, paidAt time.Time) error {
	inv, ok := t.s.invoices[orderID]
	if !ok || inv.PaidAt != nil {
		return nil
	}
	inv.PaidAt = &paidAt
	t.s.invoices[orderID] = inv
	return nil
}

// Invoice returns the stored invoice for an order.
func (s *Store) Invoice(orderID int64) (orders.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[orderID]
	return inv, ok
}

// SeedInvoice stores inv for its order.
func (s *Store) SeedInvoice(inv orders.Invoice) orders.Invoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == 0 {
		s.nextInvoiceID++
		inv.ID = s.nextInvoiceID
	}
	s.invoices[inv.OrderID] = inv
	return inv
}
