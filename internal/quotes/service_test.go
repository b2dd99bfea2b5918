package quotes_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pressroom/internal/events"
	"github.com/odyssey-erp/pressroom/internal/events/eventstest"
	"github.com/odyssey-erp/pressroom/internal/orders"
	"github.com/odyssey-erp/pressroom/internal/orders/orderstest"
	"github.com/odyssey-erp/pressroom/internal/platform/httpx"
	"github.com/odyssey-erp/pressroom/internal/quotes"
	"github.com/odyssey-erp/pressroom/internal/quotes/quotestest"
	"github.com/odyssey-erp/pressroom/internal/rbac"
)

var (
	admin    = rbac.Principal{UserID: 1, Role: rbac.RoleAdmin}
	staff    = rbac.Principal{UserID: 2, Role: rbac.RoleStaff}
	customer = rbac.Principal{UserID: 40, Role: rbac.RoleCustomer}
	stranger = rbac.Principal{UserID: 41, Role: rbac.RoleCustomer}
)

type fixture struct {
	svc    *quotes.Service
	quotes *quotestest.Store
	orders *orderstest.Store
	events *eventstest.Recorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ordersStore := orderstest.NewStore()
	store := quotestest.NewStore(ordersStore)
	rec := &eventstest.Recorder{}
	pricing := quotes.Pricing{TaxRate: decimal.RequireFromString("0.08"), DepositPct: decimal.NewFromInt(50)}
	svc := quotes.NewService(store, pricing, rec, nil, nil)
	svc.WithClock(func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) })
	return fixture{svc: svc, quotes: store, orders: ordersStore, events: rec}
}

func (f fixture) seedQuote(status quotes.Status) quotes.Quote {
	owner := customer.UserID
	return f.quotes.Seed(quotes.Quote{CustomerID: &owner, ServiceID: 3, TierID: 2, Status: status})
}

func TestFinalizeCreatesOrderAndInvoice(t *testing.T) {
	f := newFixture(t)
	q := f.seedQuote(quotes.StatusSubmitted)

	res, err := f.svc.Finalize(context.Background(), q.ID, quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(150)}, admin)
	require.NoError(t, err)

	require.Equal(t, quotes.StatusFinalized, res.Quote.Status)
	require.Equal(t, orders.StatusPendingDeposit, res.Order.Status)
	require.Equal(t, "150.00", res.Order.TotalSubtotal.StringFixed(2))
	require.Equal(t, "12.00", res.Order.TaxAmount.StringFixed(2))
	require.Equal(t, "162.00", res.Order.TotalAmount.StringFixed(2))
	require.Equal(t, "81.00", res.Order.DepositAmount.StringFixed(2))
	require.Equal(t, 0, res.Order.RevisionCount)
	require.Equal(t, q.ID, *res.Order.QuoteID)
	require.Equal(t, customer.UserID, *res.Order.CustomerID)

	require.Regexp(t, `^INV-2026-\d{5}$`, res.Invoice.InvoiceNumber)
	require.Equal(t, res.Order.ID, res.Invoice.OrderID)
	require.True(t, res.Invoice.AmountDue.Equal(res.Order.TotalAmount))

	stored, ok := f.quotes.Quote(q.ID)
	require.True(t, ok)
	require.Equal(t, quotes.StatusFinalized, stored.Status)
	require.NotNil(t, stored.FinalizedAt)

	evts := f.events.Named(events.QuoteFinalized)
	require.Len(t, evts, 1)
	require.Equal(t, res.Order.ID, evts[0].Data["order_id"])
	require.Equal(t, res.Invoice.InvoiceNumber, evts[0].Data["invoice_number"])
	require.Equal(t, admin.UserID, evts[0].ActorID)
}

func TestFinalizeInvoiceNumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	first, err := f.svc.Finalize(context.Background(), f.seedQuote(quotes.StatusApproved).ID,
		quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(10)}, admin)
	require.NoError(t, err)
	second, err := f.svc.Finalize(context.Background(), f.seedQuote(quotes.StatusSubmitted).ID,
		quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(20)}, admin)
	require.NoError(t, err)

	require.Equal(t, "INV-2026-00001", first.Invoice.InvoiceNumber)
	require.Equal(t, "INV-2026-00002", second.Invoice.InvoiceNumber)
}

func TestFinalizeRollsBackOnInvoiceFailure(t *testing.T) {
	f := newFixture(t)
	q := f.seedQuote(quotes.StatusSubmitted)
	f.orders.FailInsertInvoice = errors.New("disk full")

	_, err := f.svc.Finalize(context.Background(), q.ID, quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(150)}, admin)
	require.Error(t, err)
	require.True(t, httpx.IsInternal(err))

	stored, _ := f.quotes.Quote(q.ID)
	require.Equal(t, quotes.StatusSubmitted, stored.Status)
	require.Nil(t, stored.FinalSubtotal)
	require.Zero(t, f.orders.Count())
	require.Zero(t, f.orders.InvoiceCount())
	require.Empty(t, f.events.Events())

	f.orders.FailInsertInvoice = nil
	res, err := f.svc.Finalize(context.Background(), q.ID, quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(150)}, admin)
	require.NoError(t, err)
	require.Equal(t, "INV-2026-00001", res.Invoice.InvoiceNumber)
}

func TestFinalizeTwiceIsRejected(t *testing.T) {
	f := newFixture(t)
	q := f.seedQuote(quotes.StatusSubmitted)

	_, err := f.svc.Finalize(context.Background(), q.ID, quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(150)}, admin)
	require.NoError(t, err)
	_, err = f.svc.Finalize(context.Background(), q.ID, quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(150)}, admin)
	require.ErrorIs(t, err, quotes.ErrNotFinalizable)
	require.ErrorIs(t, err, httpx.ErrBusinessRule)
	require.Equal(t, 1, f.orders.Count())
}

func TestFinalizePreconditions(t *testing.T) {
	f := newFixture(t)
	q := f.seedQuote(quotes.StatusSubmitted)
	rejected := f.seedQuote(quotes.StatusRejected)

	_, err := f.svc.Finalize(context.Background(), q.ID, quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(150)}, staff)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	_, err = f.svc.Finalize(context.Background(), q.ID, quotes.FinalizeInput{FinalSubtotal: decimal.Zero}, admin)
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.svc.Finalize(context.Background(), 999, quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(1)}, admin)
	require.ErrorIs(t, err, httpx.ErrNotFound)

	_, err = f.svc.Finalize(context.Background(), rejected.ID, quotes.FinalizeInput{FinalSubtotal: decimal.NewFromInt(1)}, admin)
	require.ErrorIs(t, err, httpx.ErrBusinessRule)
	require.Zero(t, f.orders.Count())
}

func TestFinalizeRejectsSubtotalsThatRoundToZero(t *testing.T) {
	cases := []struct {
		name     string
		subtotal string
	}{
		{"zero", "0"},
		{"negative", "-5"},
		{"sub cent", "0.004"},
		{"negative sub cent", "-0.001"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			q := f.seedQuote(quotes.StatusSubmitted)

			_, err := f.svc.Finalize(context.Background(), q.ID,
				quotes.FinalizeInput{FinalSubtotal: decimal.RequireFromString(tc.subtotal)}, admin)
			require.ErrorIs(t, err, quotes.ErrInvalidSubtotal)
			require.Zero(t, f.orders.Count())

			stored, ok := f.quotes.Quote(q.ID)
			require.True(t, ok)
			require.Equal(t, quotes.StatusSubmitted, stored.Status)
		})
	}
}

func TestFinalizeRoundsHalfCentSubtotalUp(t *testing.T) {
	f := newFixture(t)
	q := f.seedQuote(quotes.StatusSubmitted)

	res, err := f.svc.Finalize(context.Background(), q.ID,
		quotes.FinalizeInput{FinalSubtotal: decimal.RequireFromString("0.005")}, admin)
	require.NoError(t, err)
	require.Equal(t, "0.01", res.Order.TotalSubtotal.StringFixed(2))
}

func TestSubmitAndGuestSubmit(t *testing.T) {
	f := newFixture(t)

	q, err := f.svc.Submit(context.Background(), quotes.SubmitInput{ServiceID: 1, TierID: 2}, customer)
	require.NoError(t, err)
	require.Equal(t, quotes.StatusSubmitted, q.Status)
	require.Equal(t, customer.UserID, *q.CustomerID)
	require.Nil(t, q.GuestEmail)

	_, err = f.svc.Submit(context.Background(), quotes.SubmitInput{ServiceID: 1, TierID: 2}, staff)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	guest, err := f.svc.SubmitGuest(context.Background(), quotes.GuestInput{
		SubmitInput: quotes.SubmitInput{ServiceID: 1, TierID: 2},
		Name:        "Ana",
		Email:       "Ana@Example.com",
	})
	require.NoError(t, err)
	require.Nil(t, guest.CustomerID)
	require.Equal(t, "ana@example.com", *guest.GuestEmail)

	_, err = f.svc.SubmitGuest(context.Background(), quotes.GuestInput{
		SubmitInput: quotes.SubmitInput{ServiceID: 1, TierID: 2},
		Name:        "Ana",
		Email:       "not-an-email",
	})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestReviewTransitions(t *testing.T) {
	f := newFixture(t)
	q := f.seedQuote(quotes.StatusSubmitted)

	_, err := f.svc.Approve(context.Background(), q.ID, customer)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	approved, err := f.svc.Approve(context.Background(), q.ID, staff)
	require.NoError(t, err)
	require.Equal(t, quotes.StatusApproved, approved.Status)

	_, err = f.svc.Approve(context.Background(), q.ID, staff)
	require.ErrorIs(t, err, quotes.ErrNotPending)

	rejected, err := f.svc.Reject(context.Background(), q.ID, admin)
	require.NoError(t, err)
	require.Equal(t, quotes.StatusRejected, rejected.Status)
}

func TestGetAndListVisibility(t *testing.T) {
	f := newFixture(t)
	mine := f.seedQuote(quotes.StatusSubmitted)
	other := stranger.UserID
	f.quotes.Seed(quotes.Quote{CustomerID: &other, ServiceID: 1, TierID: 1, Status: quotes.StatusSubmitted})

	_, err := f.svc.Get(context.Background(), mine.ID, stranger)
	require.ErrorIs(t, err, httpx.ErrForbidden)

	items, page, err := f.svc.List(context.Background(), quotes.ListFilter{}, customer)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, page.Total)

	items, _, err = f.svc.List(context.Background(), quotes.ListFilter{}, staff)
	require.NoError(t, err)
	require.Len(t, items, 2)
}
