package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type MessageHandler func(ctx context.Context, key, value []byte) error

// Reader is the subset of *kafka.Reader the consumer drives.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader Reader
	log    logrus.FieldLogger
}

func NewConsumer(brokers []string, topic, groupID string, log logrus.FieldLogger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})
	return NewConsumerWithReader(reader, log)
}

func NewConsumerWithReader(r Reader, log logrus.FieldLogger) *Consumer {
	return &Consumer{reader: r, log: log}
}

// Consume fetches messages until ctx is done. Offsets are committed after
// the handler runs, whether or not it succeeded, so a poison message does
// not stall the partition.
func (c *Consumer) Consume(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.log.WithError(err).Error("error reading message")
				continue
			}

			logger := c.log.WithFields(logrus.Fields{
				"partition":  msg.Partition,
				"offset":     msg.Offset,
				"event_type": EventType(msg),
			})
			if err := handler(ctx, msg.Key, msg.Value); err != nil {
				logger.WithError(err).Error("error handling message")
			}
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.WithError(err).Warn("commit failed")
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
