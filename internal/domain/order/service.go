package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/inventory"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/model"
)

// Publisher forwards committed events to the message broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Dispatcher delivers shipment status changes to the order's owner.
type Dispatcher interface {
	Dispatch(ctx context.Context, userID string, event model.StatusEvent) error
}

// CreateOrderInput is the checkout request body.
type CreateOrderInput struct {
	PaymentID      string               `json:"paymentId"`
	ShipmentStatus model.ShipmentStatus `json:"shipmentStatus"`
	AddressIndex   *int                 `json:"userAddressIndex"`
}

// UserOrder is an order listed for its buyer.
type UserOrder struct {
	*model.Order
	PaymentType string `json:"paymentType"`
}

// OwnerOrders lists the orders holding a seller's products, each cut down
// to that seller's lines.
type OwnerOrders struct {
	MatchingOrders []*model.Order `json:"matchingOrders"`
	OrdersNumber   int            `json:"OrdersNumber"`
}

type Service struct {
	store       store.Store
	publisher   Publisher
	dispatcher  Dispatcher
	deliveryFee decimal.Decimal
	log         logrus.FieldLogger
	now         func() time.Time

	// observes checkout state changes in tests
	checkoutHook func(CheckoutState)
}

func NewService(s store.Store, publisher Publisher, dispatcher Dispatcher, deliveryFee decimal.Decimal, log logrus.FieldLogger) *Service {
	return &Service{
		store:       s,
		publisher:   publisher,
		dispatcher:  dispatcher,
		deliveryFee: deliveryFee,
		log:         log,
		now:         time.Now,
	}
}

func (s *Service) advance(c *checkout, to CheckoutState) error {
	if err := c.advance(to); err != nil {
		return err
	}
	if s.checkoutHook != nil {
		s.checkoutHook(to)
	}
	return nil
}

func (s *Service) validateCreate(userID string, in *CreateOrderInput) error {
	if !domain.ValidID(userID) {
		return fmt.Errorf("%w: %s", ErrInvalidUserID, userID)
	}
	if in.PaymentID == "" || in.AddressIndex == nil {
		return ErrMissingProperties
	}
	if !domain.ValidID(in.PaymentID) {
		return fmt.Errorf("%w: %s", ErrInvalidPaymentID, in.PaymentID)
	}
	if in.ShipmentStatus == "" {
		in.ShipmentStatus = model.StatusPending
	}
	if !in.ShipmentStatus.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, in.ShipmentStatus)
	}
	return nil
}

// CreateOrder materializes the user's cart into an order. Stock is taken,
// histories are appended and the cart is emptied in the same transaction as
// the order insert, so either all of it happens or none of it does.
func (s *Service) CreateOrder(ctx context.Context, userID string, in CreateOrderInput) (*model.Order, error) {
	if err := s.validateCreate(userID, &in); err != nil {
		return nil, err
	}

	o := &model.Order{ID: domain.NewID()}
	co := newCheckout(o.ID, s.log)
	var event *store.Event

	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		c, err := tx.LockCart(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrCartNotFound
		}
		if err != nil {
			return err
		}
		u, err := tx.GetUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if _, err := tx.GetPayment(ctx, in.PaymentID); errors.Is(err, store.ErrNotFound) {
			return ErrPaymentNotFound
		} else if err != nil {
			return err
		}

		idx := *in.AddressIndex
		if idx < 0 || idx >= len(u.Addresses) {
			return fmt.Errorf("%w: %d", ErrInvalidAddressIndex, idx)
		}
		if len(c.CartItems) == 0 {
			return ErrEmptyCart
		}
		cart.Recalculate(c)

		o.UserID = userID
		o.UserName = u.FullName()
		o.Date = s.now().UTC()
		o.DeliveryFee = s.deliveryFee
		o.PaymentID = in.PaymentID
		o.UserAddress = u.Addresses[idx]
		o.TotalPrice = c.TotalPrice.Add(s.deliveryFee)
		o.CartItems = model.CloneLineItems(c.CartItems)
		o.ShipmentStatus = in.ShipmentStatus

		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}

		if err := inventory.Reserve(ctx, tx, o.ID, o.CartItems); err != nil {
			return err
		}
		if err := s.advance(co, CheckoutStockReserved); err != nil {
			return err
		}

		if err := tx.AppendUserOrder(ctx, userID, o.ID); err != nil {
			return err
		}
		if err := tx.AppendPaymentOrder(ctx, in.PaymentID, o.ID); err != nil {
			return err
		}

		itemIDs := c.ItemIDs()
		cart.Reset(c)
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		if err := tx.RemoveCartRefs(ctx, itemIDs); err != nil {
			return err
		}

		event, err = store.NewEvent(o.ID, AggregateType, EventOrderCreated, OrderCreated{
			OrderID:        o.ID,
			UserID:         userID,
			UserName:       o.UserName,
			UserEmail:      u.Email,
			PaymentID:      o.PaymentID,
			Items:          o.CartItems,
			DeliveryFee:    o.DeliveryFee,
			TotalPrice:     o.TotalPrice,
			ShipmentStatus: o.ShipmentStatus,
			CreatedAt:      o.Date,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		co.rollback()
		if s.checkoutHook != nil {
			s.checkoutHook(CheckoutRolledBack)
		}
		s.log.WithFields(logrus.Fields{"user_id": userID, "order_id": o.ID}).WithError(err).Warn("checkout rolled back")
		return nil, err
	}
	if err := s.advance(co, CheckoutCommitted); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":     userID,
		"order_id":    o.ID,
		"total_price": o.TotalPrice.String(),
		"items":       len(o.CartItems),
	}).Info("order created")

	s.publish(ctx, event)
	return o, nil
}

// UpdateOrderStatus moves an order to status. The owner is notified only
// when the status actually changes; re-applying the current status is a
// successful no-op.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status model.ShipmentStatus) (*model.Order, error) {
	if !domain.ValidID(orderID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrderID, orderID)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var (
		updated *model.Order
		event   *store.Event
	)
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		if err != nil {
			return err
		}
		updated = o
		if o.ShipmentStatus == status {
			return nil
		}

		from := o.ShipmentStatus
		if err := tx.UpdateOrderStatus(ctx, orderID, status); err != nil {
			return err
		}
		o.ShipmentStatus = status

		var email string
		if u, err := tx.GetUser(ctx, o.UserID); err == nil {
			email = u.Email
		}
		event, err = store.NewEvent(orderID, AggregateType, EventOrderStatusChanged, OrderStatusChanged{
			OrderID:   orderID,
			UserID:    o.UserID,
			UserEmail: email,
			From:      from,
			To:        status,
			ChangedAt: s.now().UTC(),
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	if event == nil {
		return updated, nil
	}

	logger := s.log.WithFields(logrus.Fields{"order_id": orderID, "user_id": updated.UserID, "status": status})
	logger.Info("order status updated")

	if s.dispatcher != nil {
		statusEvent := model.StatusEvent{OrderID: orderID, ShipmentStatus: status}
		if err := s.dispatcher.Dispatch(ctx, updated.UserID, statusEvent); err != nil {
			logger.WithError(err).Error("failed to dispatch status notification")
		}
	}
	s.publish(ctx, event)
	return updated, nil
}

func (s *Service) publish(ctx context.Context, event *store.Event) {
	if s.publisher == nil || event == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event.AggregateID, event); err != nil {
		s.log.WithFields(logrus.Fields{
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID,
		}).WithError(err).Error("failed to publish event")
	}
}

func (s *Service) GetOrders(ctx context.Context) ([]*model.Order, error) {
	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []*model.Order{}
	}
	return orders, nil
}

// GetOrder returns nil without an error when no order has the id.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	if !domain.ValidID(orderID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidOrderID, orderID)
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return o, err
}

// GetOrdersForUser lists a buyer's orders with the buyer's current name and
// each order's payment type.
func (s *Service) GetOrdersForUser(ctx context.Context, userID string) ([]UserOrder, error) {
	if !domain.ValidID(userID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUserID, userID)
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]UserOrder, 0, len(orders))
	for _, o := range orders {
		paymentType := "Unknown"
		p, err := s.store.GetPayment(ctx, o.PaymentID)
		switch {
		case err == nil:
			paymentType = p.Type
		case !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
		o.UserName = u.FullName()
		result = append(result, UserOrder{Order: o, PaymentType: paymentType})
	}
	return result, nil
}

// GetOwnerOrders finds the orders containing products sold by the user,
// matched on the seller name stamped on each line.
func (s *Service) GetOwnerOrders(ctx context.Context, userID string) (*OwnerOrders, error) {
	if !domain.ValidID(userID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUserID, userID)
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	owner := u.FullName()

	orders, err := s.store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	result := &OwnerOrders{MatchingOrders: []*model.Order{}}
	for _, o := range orders {
		var lines []model.LineItem
		total := decimal.Zero
		for _, item := range o.CartItems {
			if item.OwnerName == owner {
				lines = append(lines, item)
				total = total.Add(item.ItemTotalPrice)
			}
		}
		if len(lines) == 0 {
			continue
		}
		o.CartItems = lines
		o.TotalPrice = total
		result.MatchingOrders = append(result.MatchingOrders, o)
	}
	result.OrdersNumber = len(result.MatchingOrders)
	return result, nil
}
