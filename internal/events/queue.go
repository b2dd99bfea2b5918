package events

import (
	"context"
	"errors"
)

// Enqueuer schedules an event for asynchronous delivery.
type Enqueuer interface {
	EnqueueEvent(ctx context.Context, evt Event) error
}

// QueuePublisher defers delivery to the background worker so that request
// handlers never wait on the broker.
type QueuePublisher struct {
	queue Enqueuer
}

// NewQueuePublisher wraps an Enqueuer.
func NewQueuePublisher(queue Enqueuer) *QueuePublisher {
	return &QueuePublisher{queue: queue}
}

// Publish implements Publisher.
func (p *QueuePublisher) Publish(ctx context.Context, evt Event) error {
	if p == nil || p.queue == nil {
		return errors.New("events: queue not configured")
	}
	return p.queue.EnqueueEvent(ctx, evt)
}
