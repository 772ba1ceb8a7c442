package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// ConsumerChannel is the subset of *amqp.Channel a consumer needs.
type ConsumerChannel interface {
	Channel
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

var ErrChannelClosed = errors.New("rabbitmq: delivery channel closed")

type Consumer struct {
	ch    ConsumerChannel
	queue string
	log   logrus.FieldLogger
}

// NewConsumer declares a durable queue bound to every event under
// routingKey on exchange.
func NewConsumer(ch ConsumerChannel, exchange, routingKey, queue string, log logrus.FieldLogger) (*Consumer, error) {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey+".#", exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set QoS: %w", err)
	}
	return &Consumer{ch: ch, queue: queue, log: log}, nil
}

// Consume hands each delivery to handler until ctx is done. Handled
// deliveries are acked; failed ones are rejected without requeue.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrChannelClosed
			}
			logger := c.log.WithFields(logrus.Fields{"message_id": d.MessageId, "type": d.Type})
			if err := handler(ctx, []byte(d.CorrelationId), d.Body); err != nil {
				logger.WithError(err).Error("error handling message")
				if err := d.Nack(false, false); err != nil {
					logger.WithError(err).Warn("nack failed")
				}
				continue
			}
			if err := d.Ack(false); err != nil {
				logger.WithError(err).Warn("ack failed")
			}
		}
	}
}
