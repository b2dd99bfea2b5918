package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/pressroom/internal/events"
	jobmetrics "github.com/odyssey-erp/pressroom/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueEvents carries domain event deliveries.
	QueueEvents = "events"
	// TaskEventDeliver forwards one domain event to the broker.
	TaskEventDeliver = "events:deliver"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// NewEventDeliverTask constructs an Asynq task carrying evt.
func NewEventDeliverTask(evt events.Event) (*asynq.Task, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEventDeliver, data), nil
}

// EventDeliveryJob hands queued events to the fan-out broker.
type EventDeliveryJob struct {
	Broker  events.Publisher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskEventDeliver tasks. Broker errors are retried by asynq.
func (j *EventDeliveryJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Broker == nil {
		return errors.New("event delivery: handler not configured")
	}
	return j.Metrics.Track(TaskEventDeliver).End(j.deliver(ctx, t))
}

func (j *EventDeliveryJob) deliver(ctx context.Context, t *asynq.Task) error {
	var evt events.Event
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return fmt.Errorf("event delivery: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if evt.Name == "" {
		return fmt.Errorf("event delivery: missing event name: %w", asynq.SkipRetry)
	}
	if err := j.Broker.Publish(ctx, evt); err != nil {
		j.logger().Warn("deliver event", slog.String("event", string(evt.Name)), slog.String("event_id", evt.ID), slog.Any("error", err))
		return err
	}
	j.logger().Debug("event delivered", slog.String("event", string(evt.Name)), slog.String("event_id", evt.ID))
	return nil
}

func (j *EventDeliveryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// IdempotencyCleanupPayload configures key retention.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention.Hours())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}

// KeyCleaner removes idempotency keys older than a cutoff.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob prunes old idempotency keys.
type IdempotencyCleanupJob struct {
	Store   KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.RetentionHours <= 0 {
		payload.RetentionHours = 72
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	removed, err := j.Store.Cleanup(ctx, time.Duration(payload.RetentionHours)*time.Hour)
	if err != nil {
		return tracker.End(err)
	}
	j.Metrics.AddPruned(removed)
	if j.Logger != nil {
		j.Logger.Info("idempotency keys pruned", slog.Int64("removed", removed))
	}
	return tracker.End(nil)
}
