package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/model"
)

// Registry tracks users with an open live channel.
type Registry interface {
	IsConnected(userID string) bool
	Emit(ctx context.Context, userID string, event model.StatusEvent) error
}

// Flusher is implemented by registries that can push queued events to a
// connection that registered while an event was being queued.
type Flusher interface {
	Flush(ctx context.Context, userID string)
}

// PendingQueue holds status events for users who are offline.
type PendingQueue interface {
	Enqueue(ctx context.Context, userID string, event model.StatusEvent) error
	// Drain returns and removes every pending event for the user, oldest first.
	Drain(ctx context.Context, userID string) ([]model.StatusEvent, error)
}

// Recorder persists delivered notifications.
type Recorder interface {
	SaveNotification(ctx context.Context, n *model.Notification) error
}

// Dispatcher routes a status event to the live channel when the user is
// connected and to the pending queue otherwise.
type Dispatcher struct {
	registry Registry
	queue    PendingQueue
	recorder Recorder
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewDispatcher(registry Registry, queue PendingQueue, recorder Recorder, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		queue:    queue,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

// Dispatch delivers event to userID. A connected user gets it over the live
// channel and a durable record is kept. An event that cannot be emitted is
// queued for the next connection instead.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, event model.StatusEvent) error {
	logger := d.log.WithFields(logrus.Fields{
		"user_id":         userID,
		"order_id":        event.OrderID,
		"shipment_status": event.ShipmentStatus,
	})

	if d.registry.IsConnected(userID) {
		err := d.registry.Emit(ctx, userID, event)
		if err == nil {
			logger.Debug("status event emitted")
			return d.record(ctx, userID, event)
		}
		logger.WithError(err).Warn("emit failed, queueing status event")
	}

	if err := d.queue.Enqueue(ctx, userID, event); err != nil {
		return fmt.Errorf("enqueue status event: %w", err)
	}
	logger.Info("status event queued for offline user")

	// the user may have connected and drained before the enqueue landed
	if f, ok := d.registry.(Flusher); ok && d.registry.IsConnected(userID) {
		logger.Debug("user connected meanwhile, flushing queue")
		f.Flush(ctx, userID)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, userID string, event model.StatusEvent) error {
	n := &model.Notification{
		ID:        domain.NewID(),
		UserID:    userID,
		Status:    event,
		CreatedAt: d.now().UTC(),
	}
	if err := d.recorder.SaveNotification(ctx, n); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}
