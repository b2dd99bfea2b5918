package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPBroker publishes events to a durable topic exchange. The routing key
// is the event name so listeners can bind to e.g. "proof.*".
type AMQPBroker struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPBroker dials lazily on the first publish.
func NewAMQPBroker(url, exchange string) *AMQPBroker {
	return &AMQPBroker{url: url, exchange: exchange}
}

// Publish implements Publisher.
func (b *AMQPBroker) Publish(ctx context.Context, evt Event) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", evt.Name, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ch, err := b.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, b.exchange, string(evt.Name), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Timestamp:    evt.OccurredAt,
		Type:         string(evt.Name),
		Body:         body,
	})
	if err != nil {
		b.reset()
		return fmt.Errorf("events: publish %s: %w", evt.Name, err)
	}
	return nil
}

// Close releases the broker connection.
func (b *AMQPBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	if b.ch != nil {
		errs = append(errs, b.ch.Close())
	}
	if b.conn != nil {
		errs = append(errs, b.conn.Close())
	}
	b.ch, b.conn = nil, nil
	return errors.Join(errs...)
}

func (b *AMQPBroker) channel() (*amqp.Channel, error) {
	if b.ch != nil && !b.ch.IsClosed() {
		return b.ch, nil
	}
	b.reset()
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, fmt.Errorf("events: dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("events: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(b.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("events: declare exchange: %w", err)
	}
	b.conn, b.ch = conn, ch
	return ch, nil
}

func (b *AMQPBroker) reset() {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
	b.ch, b.conn = nil, nil
}
