package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/pressroom/internal/events"
	jobmetrics "github.com/odyssey-erp/pressroom/internal/jobs"
	"github.com/odyssey-erp/pressroom/internal/payments"
)

type fakeBroker struct {
	got []events.Event
	err error
}

func (f *fakeBroker) Publish(_ context.Context, evt events.Event) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, evt)
	return nil
}

type fakeCleaner struct {
	olderThan time.Duration
}

func (f *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	f.olderThan = olderThan
	return 4, nil
}

type fakeDriftFinder struct {
	drift []payments.Drift
	err   error
}

func (f fakeDriftFinder) FindDrift(context.Context) ([]payments.Drift, error) {
	return f.drift, f.err
}

type fakeInspector struct{}

func (fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if queue == QueueDefault {
		return nil, asynq.ErrQueueNotFound
	}
	return &asynq.QueueInfo{Queue: queue, Pending: 2, Retry: 1}, nil
}

func TestEventDeliveryJobForwardsEvent(t *testing.T) {
	broker := &fakeBroker{}
	job := &EventDeliveryJob{Broker: broker}

	evt := events.New(events.BookingCreated, 5, map[string]any{"booking_id": 11})
	task, err := NewEventDeliverTask(evt)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, broker.got, 1)
	require.Equal(t, evt.ID, broker.got[0].ID)
	require.Equal(t, events.BookingCreated, broker.got[0].Name)
}

func TestEventDeliveryJobRetriesBrokerErrors(t *testing.T) {
	job := &EventDeliveryJob{Broker: &fakeBroker{err: errors.New("connection refused")}}
	task, err := NewEventDeliverTask(events.New(events.PaymentCreated, 1, nil))
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	require.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestEventDeliveryJobSkipsGarbage(t *testing.T) {
	job := &EventDeliveryJob{Broker: &fakeBroker{}}
	err := job.Handle(context.Background(), asynq.NewTask(TaskEventDeliver, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	empty, _ := json.Marshal(events.Event{})
	err = job.Handle(context.Background(), asynq.NewTask(TaskEventDeliver, empty))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestIdempotencyCleanupJob(t *testing.T) {
	cleaner := &fakeCleaner{}
	reg := prometheus.NewRegistry()
	job := &IdempotencyCleanupJob{Store: cleaner, Metrics: jobmetrics.NewMetrics(reg)}
	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, 48*time.Hour, cleaner.olderThan)

	count, err := testutil.GatherAndCount(reg, "pressroom_idempotency_keys_pruned_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestLedgerIntegrityJobReportsDrift(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := &LedgerIntegrityJob{
		Checker: fakeDriftFinder{drift: []payments.Drift{
			{OrderID: 3, InvoiceNumber: "INV-2026-00003", AmountDue: decimal.RequireFromString("162"), Completed: decimal.RequireFromString("200")},
			{OrderID: 8, InvoiceNumber: "INV-2026-00008", AmountDue: decimal.RequireFromString("50"), Completed: decimal.Zero},
		}},
		Metrics: metrics,
	}

	require.NoError(t, job.Handle(context.Background(), NewLedgerIntegrityTask()))
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP pressroom_ledger_drift_invoices Invoices whose paid marker disagreed with completed payments on the last check.
# TYPE pressroom_ledger_drift_invoices gauge
pressroom_ledger_drift_invoices 2
`), "pressroom_ledger_drift_invoices"))
}

func TestLedgerIntegrityJobPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	job := &LedgerIntegrityJob{Checker: fakeDriftFinder{err: boom}}
	require.ErrorIs(t, job.Handle(context.Background(), NewLedgerIntegrityTask()), boom)

	var unset *LedgerIntegrityJob
	require.Error(t, unset.Handle(context.Background(), NewLedgerIntegrityTask()))
}

func TestJobsHealth(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(fakeInspector{}, nil).MountRoutes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Queues []queueHealth `json:"queues"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Equal(t, []queueHealth{
		{Queue: QueueEvents, Pending: 2, Retry: 1},
		{Queue: QueueDefault},
	}, body.Queues)
}
