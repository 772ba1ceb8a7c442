package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/ec-checkout/internal/infrastructure/store"
)

// Channel is the subset of *amqp.Channel used here.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher publishes events to a durable topic exchange.
type Publisher struct {
	ch         Channel
	exchange   string
	routingKey string
}

// NewPublisher declares the exchange and returns a publisher bound to it.
func NewPublisher(ch Channel, exchange, routingKey string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{ch: ch, exchange: exchange, routingKey: routingKey}, nil
}

// Publish sends event as persistent JSON. Stored events are routed by
// "<routing key>.<event type>" so consumers can bind to a subset.
func (p *Publisher) Publish(ctx context.Context, key string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	routingKey := p.routingKey
	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: key,
		Timestamp:     time.Now(),
		Body:          body,
	}
	if e, ok := event.(*store.Event); ok {
		routingKey += "." + e.EventType
		msg.MessageId = e.ID
		msg.Type = e.EventType
	}

	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}
