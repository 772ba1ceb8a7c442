package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/config"
	"github.com/example/ec-checkout/internal/email"
	"github.com/example/ec-checkout/internal/infrastructure/kafka"
	"github.com/example/ec-checkout/internal/infrastructure/rabbitmq"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/logging"
	"github.com/example/ec-checkout/internal/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		logrus.WithError(err).Fatal("configure logging")
	}
	logger := logging.Component(log, "notifier")

	if cfg.SendGrid.APIKey == "" {
		logger.Fatal("SENDGRID_API_KEY is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Product names for confirmation emails are read from the primary store.
	db, err := store.ConnectPostgres(ctx, cfg.DB.URL, cfg.DB.MaxOpenConns, cfg.DB.MaxIdleConns, cfg.DB.ConnMaxLifetime)
	if err != nil {
		logger.WithError(err).Fatal("connect to PostgreSQL")
	}
	defer db.Close()
	products := store.NewPostgresStore(db, logging.Component(log, "store"))

	emailSvc := email.NewService(cfg.SendGrid.APIKey, cfg.SendGrid.From, cfg.SendGrid.FromName, logging.Component(log, "email"))
	handler := notification.NewHandler(emailSvc, products, logger)

	logger.WithField("event_broker", cfg.EventBroker).Info("starting event consumer")
	switch cfg.EventBroker {
	case "kafka":
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, logging.Component(log, "kafka"))
		defer consumer.Close()
		err = consumer.Consume(ctx, handler.HandleEvent)
	case "rabbitmq":
		err = consumeRabbitMQ(ctx, cfg, log, handler)
	default:
		logger.Fatal("notifier needs EVENT_BROKER kafka or rabbitmq")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("consumer stopped")
	}
	logger.Info("shutting down")
}

func consumeRabbitMQ(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, handler *notification.Handler) error {
	conn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	consumer, err := rabbitmq.NewConsumer(ch, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey, cfg.RabbitMQ.Queue, logging.Component(log, "rabbitmq"))
	if err != nil {
		return err
	}
	return consumer.Consume(ctx, handler.HandleEvent)
}
