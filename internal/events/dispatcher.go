package events

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Publisher hands a single event to a transport.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Emitter is what lifecycle services depend on. It never fails the caller.
type Emitter interface {
	Emit(ctx context.Context, evts ...Event)
}

// Dispatcher adapts a Publisher into a fire-and-forget Emitter.
type Dispatcher struct {
	publisher Publisher
	logger    *slog.Logger
	published *prometheus.CounterVec
}

// NewDispatcher wires a dispatcher. reg may be nil.
func NewDispatcher(publisher Publisher, logger *slog.Logger, reg prometheus.Registerer) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pressroom_events_published_total",
		Help: "Domain events handed to the fan-out transport, by name and outcome.",
	}, []string{"name", "outcome"})
	if reg != nil {
		if err := reg.Register(counter); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				counter = are.ExistingCollector.(*prometheus.CounterVec)
			} else {
				logger.Warn("register events counter", slog.Any("error", err))
			}
		}
	}
	return &Dispatcher{publisher: publisher, logger: logger, published: counter}
}

// Emit publishes each event, logging failures instead of returning them.
func (d *Dispatcher) Emit(ctx context.Context, evts ...Event) {
	if d == nil || d.publisher == nil {
		return
	}
	for _, evt := range evts {
		if err := d.publisher.Publish(ctx, evt); err != nil {
			d.published.WithLabelValues(string(evt.Name), "error").Inc()
			d.logger.Warn("publish domain event",
				slog.String("event", string(evt.Name)),
				slog.String("event_id", evt.ID),
				slog.Any("error", err))
			continue
		}
		d.published.WithLabelValues(string(evt.Name), "ok").Inc()
	}
}

// LogPublisher writes events to the log. Used when no queue is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

// Publish implements Publisher.
func (p LogPublisher) Publish(_ context.Context, evt Event) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("domain event",
		slog.String("event", string(evt.Name)),
		slog.String("event_id", evt.ID),
		slog.Int64("actor_id", evt.ActorID),
		slog.Any("data", evt.Data))
	return nil
}
