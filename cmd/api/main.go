package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/api"
	"github.com/example/ec-checkout/internal/api/middleware"
	"github.com/example/ec-checkout/internal/auth"
	"github.com/example/ec-checkout/internal/config"
	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/payment"
	"github.com/example/ec-checkout/internal/domain/product"
	"github.com/example/ec-checkout/internal/domain/user"
	"github.com/example/ec-checkout/internal/infrastructure/kafka"
	"github.com/example/ec-checkout/internal/infrastructure/rabbitmq"
	"github.com/example/ec-checkout/internal/infrastructure/redisqueue"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/logging"
	"github.com/example/ec-checkout/internal/notification"
	"github.com/example/ec-checkout/internal/notification/ws"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.Component(log, "api")
	logger.WithFields(logrus.Fields{
		"store":         cfg.Store,
		"event_broker":  cfg.EventBroker,
		"pending_queue": cfg.PendingQueue,
		"delivery_fee":  cfg.Checkout.DeliveryFee.String(),
	}).Info("starting ec-checkout api")

	s, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		logger.WithError(err).Fatal("open store")
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(cfg)
	if err != nil {
		logger.WithError(err).Fatal("open event broker")
	}
	defer closePublisher()

	queue, closeQueue, err := openPendingQueue(ctx, cfg, logging.Component(log, "pending_queue"))
	if err != nil {
		logger.WithError(err).Fatal("open pending queue")
	}
	defer closeQueue()

	hub := ws.NewHub(queue, logging.Component(log, "ws"))
	defer hub.Close()
	dispatcher := notification.NewDispatcher(hub, queue, s, logging.Component(log, "notification"))

	handlers := api.NewHandlers(api.Services{
		Carts:    cart.NewService(s, logging.Component(log, "cart")),
		Orders:   order.NewService(s, publisher, dispatcher, cfg.Checkout.DeliveryFee, logging.Component(log, "order")),
		Users:    user.NewService(s, auth.NewHasher(cfg.Checkout.BcryptCost), logging.Component(log, "user")),
		Products: product.NewService(s, logging.Component(log, "product")),
		Payments: payment.NewService(s, logging.Component(log, "payment")),
	}, s, logging.Component(log, "http"))

	limiter := middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, time.Duration(cfg.RateLimit.Expiry)*time.Minute)
	go limiter.Run(ctx, time.Minute)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handlers, logging.Component(log, "http"), api.RouterOptions{Live: hub, Limiter: limiter}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("addr", cfg.Server.Addr).Info("server started")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (store.Store, func(), error) {
	if cfg.Store == "memory" {
		return store.NewMemoryStore(), func() {}, nil
	}

	db, err := store.ConnectPostgres(ctx, cfg.DB.URL, cfg.DB.MaxOpenConns, cfg.DB.MaxIdleConns, cfg.DB.ConnMaxLifetime)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DB.Migrate {
		if err := store.Migrate(db.DB); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return store.NewPostgresStore(db, logging.Component(log, "store")), func() { db.Close() }, nil
}

// openPublisher returns a nil publisher when events are disabled.
func openPublisher(cfg *config.Config) (order.Publisher, func(), error) {
	switch cfg.EventBroker {
	case "kafka":
		p := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		return p, func() { p.Close() }, nil
	case "rabbitmq":
		conn, err := amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			return nil, nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		p, err := rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.RoutingKey)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return p, func() {
			ch.Close()
			conn.Close()
		}, nil
	default:
		return nil, func() {}, nil
	}
}

func openPendingQueue(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (notification.PendingQueue, func(), error) {
	if cfg.PendingQueue != "redis" {
		return notification.NewMemoryQueue(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return redisqueue.New(client, cfg.Redis.KeyPrefix, cfg.Redis.TTL, log), func() { client.Close() }, nil
}
