// Package quotestest provides an in-memory quote repository that shares its
// transactions with an orderstest.Store.
package quotestest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/orders/orderstest"
	"github.com/odyssey-erp/pressroom/internal/quotes"
)

// Store implements quotes.Repository in memory.
type Store struct {
	mu     sync.Mutex
	quotes map[int64]quotes.Quote
	nextID int64

	Orders *orderstest.Store
}

// NewStore returns an empty store whose transactions also cover ordersStore.
func NewStore(ordersStore *orderstest.Store) *Store {
	return &Store{quotes: make(map[int64]quotes.Quote), Orders: ordersStore}
}

// Seed inserts q as-is, assigning an id when zero.
func (s *Store) Seed(q quotes.Quote) quotes.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(q)
}

func (s *Store) insert(q quotes.Quote) quotes.Quote {
	if q.ID == 0 {
		s.nextID++
		q.ID = s.nextID
	} else if q.ID > s.nextID {
		s.nextID = q.ID
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
		q.UpdatedAt = q.CreatedAt
	}
	s.quotes[q.ID] = q
	return q
}

func (s *Store) Get(_ context.Context, id int64) (*quotes.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok {
		return nil, quotes.ErrNotFound
	}
	return &q, nil
}

func (s *Store) List(_ context.Context, filter quotes.ListFilter) ([]quotes.Quote, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []quotes.Quote
	for _, q := range s.quotes {
		if filter.CustomerID != nil && (q.CustomerID == nil || *q.CustomerID != *filter.CustomerID) {
			continue
		}
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	start := min(filter.Page.Offset(), total)
	end := min(start+filter.Page.Limit(), total)
	return out[start:end], total, nil
}

func (s *Store) Insert(_ context.Context, q quotes.Quote) (*quotes.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = 0
	q.CreatedAt = time.Time{}
	stored := s.insert(q)
	return &stored, nil
}

func (s *Store) UpdateStatus(_ context.Context, id int64, from, to quotes.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	if !ok || q.Status != from {
		return quotes.ErrStaleStatus
	}
	q.Status = to
	q.UpdatedAt = time.Now().UTC()
	s.quotes[id] = q
	return nil
}

// WithTx holds the quote lock for the whole callback and rolls quotes and
// orders back together when it fails.
func (s *Store) WithTx(ctx context.Context, fn func(context.Context, quotes.TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make(map[int64]quotes.Quote, len(s.quotes))
	for k, v := range s.quotes {
		saved[k] = v
	}
	err := s.Orders.Atomic(func(otx orders.TxRepository) error {
		return fn(ctx, &txView{s: s, orders: otx})
	})
	if err != nil {
		s.quotes = saved
	}
	return err
}

type txView struct {
	s      *Store
	orders orders.TxRepository
}

func (t *txView) GetForUpdate(_ context.Context, id int64) (*quotes.Quote, error) {
	q, ok := t.s.quotes[id]
	if !ok {
		return nil, quotes.ErrNotFound
	}
	return &q, nil
}

func (t *txView) MarkFinalized(_ context.Context, id int64, subtotal decimal.Decimal, notes *string, at time.Time) error {
	q, ok := t.s.quotes[id]
	if !ok {
		return quotes.ErrNotFound
	}
	q.Status = quotes.StatusFinalized
	q.FinalSubtotal = &subtotal
	if notes != nil {
		q.Notes = *notes
	}
	q.FinalizedAt = &at
	q.UpdatedAt = at
	t.s.quotes[id] = q
	return nil
}

func (t *txView) Orders() orders.TxRepository {
	return t.orders
}

// Quote returns a copy of the stored quote.
func (s *Store) Quote(id int64) (quotes.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[id]
	return q, ok
}
