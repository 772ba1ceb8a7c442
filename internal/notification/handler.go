package notification

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/email"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/model"
)

// Mailer sends customer emails.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to, orderID string, deliveryFee, total decimal.Decimal, items []email.OrderItem) error
	SendStatusUpdate(ctx context.Context, to, orderID, status string) error
}

// ProductReader looks up product names for email bodies.
type ProductReader interface {
	GetProduct(ctx context.Context, id string) (*model.Product, error)
}

// Handler processes events for sending notifications
type Handler struct {
	mailer   Mailer
	products ProductReader
	log      logrus.FieldLogger
}

// NewHandler creates a new notification handler
func NewHandler(mailer Mailer, products ProductReader, log logrus.FieldLogger) *Handler {
	return &Handler{
		mailer:   mailer,
		products: products,
		log:      log,
	}
}

// HandleEvent processes an event from the broker
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		h.log.WithError(err).Error("failed to unmarshal event")
		return err
	}

	switch event.EventType {
	case order.EventOrderCreated:
		return h.handleOrderCreated(ctx, event)
	case order.EventOrderStatusChanged:
		return h.handleStatusChanged(ctx, event)
	}
	return nil
}

func (h *Handler) handleOrderCreated(ctx context.Context, event store.Event) error {
	var e order.OrderCreated
	if err := event.Decode(&e); err != nil {
		h.log.WithError(err).Error("failed to unmarshal OrderCreated event")
		return err
	}

	logger := h.log.WithFields(logrus.Fields{"order_id": e.OrderID, "user_id": e.UserID})
	if e.UserEmail == "" {
		logger.Warn("order has no recipient address, skipping confirmation")
		return nil
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, item := range e.Items {
		name := item.ProductID
		if p, err := h.products.GetProduct(ctx, item.ProductID); err == nil {
			name = p.Name
		}
		items[i] = email.OrderItem{
			ProductID: item.ProductID,
			Name:      name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	if err := h.mailer.SendOrderConfirmation(ctx, e.UserEmail, e.OrderID, e.DeliveryFee, e.TotalPrice, items); err != nil {
		logger.WithError(err).Error("failed to send order confirmation")
		return err
	}
	logger.Info("order confirmation email sent")
	return nil
}

func (h *Handler) handleStatusChanged(ctx context.Context, event store.Event) error {
	var e order.OrderStatusChanged
	if err := event.Decode(&e); err != nil {
		h.log.WithError(err).Error("failed to unmarshal OrderStatusChanged event")
		return err
	}

	logger := h.log.WithFields(logrus.Fields{"order_id": e.OrderID, "user_id": e.UserID, "status": e.To})
	if e.UserEmail == "" {
		logger.Warn("order has no recipient address, skipping status email")
		return nil
	}

	if err := h.mailer.SendStatusUpdate(ctx, e.UserEmail, e.OrderID, string(e.To)); err != nil {
		logger.WithError(err).Error("failed to send status email")
		return err
	}
	logger.Info("status email sent")
	return nil
}
