package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/pressroom/internal/jobs"
	"github.com/odyssey-erp/pressroom/internal/payments"
)

// TaskLedgerIntegrity cross-checks invoice paid markers against the ledger.
const TaskLedgerIntegrity = "maintenance:ledger_integrity"

// NewLedgerIntegrityTask constructs the nightly ledger check.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}

// DriftFinder reports ledger inconsistencies.
type DriftFinder interface {
	FindDrift(ctx context.Context) ([]payments.Drift, error)
}

// LedgerIntegrityJob logs every drifted invoice and publishes the count.
// It never repairs rows; drift is left for an operator.
type LedgerIntegrityJob struct {
	Checker DriftFinder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskLedgerIntegrity tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Checker == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	drift, err := j.Checker.FindDrift(ctx)
	if err != nil {
		return tracker.End(err)
	}
	j.Metrics.SetLedgerDrift(len(drift))

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, d := range drift {
		logger.Warn("ledger drift",
			slog.Int64("order_id", d.OrderID),
			slog.String("invoice", d.InvoiceNumber),
			slog.String("amount_due", d.AmountDue.StringFixed(2)),
			slog.String("completed", d.Completed.StringFixed(2)),
			slog.Bool("marked_paid", d.PaidAt != nil))
	}
	logger.Info("ledger integrity check executed", slog.String("job", "ledger_integrity"), slog.Int("drift", len(drift)))
	return tracker.End(nil)
}
