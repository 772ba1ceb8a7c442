package order

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/inventory"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/infrastructure/store/mocks"
	"github.com/example/ec-checkout/internal/model"
)

// ============================================
// Test doubles
// ============================================

type recordingPublisher struct {
	mu     sync.Mutex
	events []*store.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event.(*store.Event))
	return nil
}

type dispatchCall struct {
	UserID string
	Event  model.StatusEvent
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (d *recordingDispatcher) Dispatch(_ context.Context, userID string, event model.StatusEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{UserID: userID, Event: event})
	return nil
}

type testEnv struct {
	service    *Service
	carts      *cart.Service
	store      *mocks.MockStore
	publisher  *recordingPublisher
	dispatcher *recordingDispatcher

	mu     sync.Mutex
	states []CheckoutState
}

func newTestOrderService() *testEnv {
	s := mocks.NewMockStore()
	log := logrus.New()
	log.SetOutput(io.Discard)

	env := &testEnv{
		store:      s,
		publisher:  &recordingPublisher{},
		dispatcher: &recordingDispatcher{},
		carts:      cart.NewService(s, log),
	}
	env.service = NewService(s, env.publisher, env.dispatcher, decimal.NewFromInt(5), log)
	env.service.checkoutHook = func(state CheckoutState) {
		env.mu.Lock()
		env.states = append(env.states, state)
		env.mu.Unlock()
	}
	return env
}

func (e *testEnv) newUser(t *testing.T, first, last string) *model.User {
	t.Helper()
	ctx := context.Background()
	u := &model.User{
		ID:        domain.NewID(),
		FirstName: first,
		LastName:  last,
		Email:     domain.NewID() + "@example.com",
		Addresses: []model.Address{
			{Street: "1 Main St", PostalCode: "10001", State: "NY", City: "New York"},
			{Street: "9 Side Rd", PostalCode: "94105", State: "CA", City: "San Francisco"},
		},
		CreatedAt: time.Now().UTC(),
	}
	c := &model.Cart{ID: domain.NewID(), UserID: u.ID, CartItems: []model.LineItem{}, TotalPrice: decimal.Zero}
	u.CartID = c.ID
	require.NoError(t, e.store.RunInTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertUser(ctx, u); err != nil {
			return err
		}
		return tx.InsertCart(ctx, c)
	}))
	return u
}

func (e *testEnv) newProduct(t *testing.T, owner string, price int64, stock int) *model.Product {
	t.Helper()
	ctx := context.Background()
	p := &model.Product{
		ID:               domain.NewID(),
		Name:             "Lamp",
		Price:            decimal.NewFromInt(price),
		AvailableInStock: stock,
		Owner:            owner,
		CartItems:        []string{},
	}
	require.NoError(t, e.store.RunInTx(ctx, func(tx store.Tx) error {
		return tx.InsertProduct(ctx, p)
	}))
	return p
}

func (e *testEnv) newPayment(t *testing.T, kind string) *model.Payment {
	t.Helper()
	ctx := context.Background()
	p := &model.Payment{ID: domain.NewID(), Type: kind}
	require.NoError(t, e.store.RunInTx(ctx, func(tx store.Tx) error {
		return tx.InsertPayment(ctx, p)
	}))
	return p
}

func (e *testEnv) add(t *testing.T, userID, productID string, qty int) {
	t.Helper()
	result, err := e.carts.AddItem(context.Background(), userID, productID, qty)
	require.NoError(t, err)
	require.True(t, result.Accepted)
}

func (e *testEnv) stock(t *testing.T, productID string) int {
	t.Helper()
	p, err := e.store.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.AvailableInStock
}

func index(i int) *int { return &i }

// ============================================

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.ShipmentStatus
		want     bool
	}{
		{model.StatusPending, model.StatusProcessing, true},
		{model.StatusPending, model.StatusShipped, true},
		{model.StatusPending, model.StatusCancelled, true},
		{model.StatusPending, model.StatusDelivered, false},
		{model.StatusProcessing, model.StatusShipped, true},
		{model.StatusProcessing, model.StatusCancelled, true},
		{model.StatusProcessing, model.StatusPending, false},
		{model.StatusShipped, model.StatusDelivered, true},
		{model.StatusShipped, model.StatusCancelled, false},
		{model.StatusDelivered, model.StatusPending, false},
		{model.StatusCancelled, model.StatusProcessing, false},
		{"lost", model.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransitionError(t *testing.T) {
	assert.ErrorIs(t, transitionError(model.StatusCancelled, model.StatusShipped), ErrOrderCancelled)
	assert.ErrorIs(t, transitionError(model.StatusDelivered, model.StatusShipped), ErrOrderDelivered)

	err := transitionError(model.StatusShipped, model.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "from shipped to pending")
}

// ============================================
// CreateOrder Tests
// ============================================

func TestService_CreateOrder_Success(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	u := env.newUser(t, "Alice", "Buyer")
	p := env.newProduct(t, "Sam Seller", 10, 5)
	pay := env.newPayment(t, "card")
	env.add(t, u.ID, p.ID, 3)
	before, err := env.store.GetCartByUser(ctx, u.ID)
	require.NoError(t, err)

	o, err := env.service.CreateOrder(ctx, u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(1)})

	require.NoError(t, err)
	assert.Equal(t, "35", o.TotalPrice.String())
	assert.Equal(t, "5", o.DeliveryFee.String())
	assert.Equal(t, model.StatusPending, o.ShipmentStatus)
	assert.Equal(t, "Alice Buyer", o.UserName)
	assert.Equal(t, u.Addresses[1], o.UserAddress)
	assert.Equal(t, before.CartItems, o.CartItems)
	assert.Equal(t, []CheckoutState{CheckoutStockReserved, CheckoutCommitted}, env.states)

	assert.Equal(t, 2, env.stock(t, p.ID))

	c, err := env.store.GetCartByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, before.ID, c.ID)
	assert.Empty(t, c.CartItems)
	assert.True(t, c.TotalPrice.IsZero())
	assert.Zero(t, c.TotalItems)

	stored, err := env.store.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.CartItems)

	user, err := env.store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{o.ID}, user.Orders)
	payment, err := env.store.GetPayment(ctx, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{o.ID}, payment.Orders)

	persisted, err := env.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, persisted.ID)

	require.Len(t, env.publisher.events, 1)
	assert.Equal(t, EventOrderCreated, env.publisher.events[0].EventType)
	var data OrderCreated
	require.NoError(t, env.publisher.events[0].Decode(&data))
	assert.Equal(t, u.Email, data.UserEmail)
	assert.Len(t, data.Items, 1)
}

func TestService_CreateOrder_SnapshotIsIndependentOfCart(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	u := env.newUser(t, "Alice", "Buyer")
	p := env.newProduct(t, "Sam Seller", 10, 10)
	pay := env.newPayment(t, "card")
	env.add(t, u.ID, p.ID, 2)

	o, err := env.service.CreateOrder(ctx, u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)})
	require.NoError(t, err)

	env.add(t, u.ID, p.ID, 1)

	persisted, err := env.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, persisted.CartItems, 1)
	assert.Equal(t, 2, persisted.CartItems[0].Quantity)
	assert.Equal(t, "Sam Seller", persisted.CartItems[0].OwnerName)
}

func TestService_CreateOrder_Validation(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	u := env.newUser(t, "Alice", "Buyer")
	p := env.newProduct(t, "Sam Seller", 10, 5)
	pay := env.newPayment(t, "card")
	env.add(t, u.ID, p.ID, 1)
	empty := env.newUser(t, "Eve", "Empty")

	tests := []struct {
		name    string
		userID  string
		in      CreateOrderInput
		wantErr error
	}{
		{"malformed user id", "bad", CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)}, ErrInvalidUserID},
		{"missing payment id", u.ID, CreateOrderInput{AddressIndex: index(0)}, ErrMissingProperties},
		{"missing address index", u.ID, CreateOrderInput{PaymentID: pay.ID}, ErrMissingProperties},
		{"malformed payment id", u.ID, CreateOrderInput{PaymentID: "bad", AddressIndex: index(0)}, ErrInvalidPaymentID},
		{"unknown status", u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0), ShipmentStatus: "lost"}, ErrInvalidStatus},
		{"no cart", domain.NewID(), CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)}, ErrCartNotFound},
		{"missing payment", u.ID, CreateOrderInput{PaymentID: domain.NewID(), AddressIndex: index(0)}, ErrPaymentNotFound},
		{"negative address index", u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(-1)}, ErrInvalidAddressIndex},
		{"address index out of range", u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(2)}, ErrInvalidAddressIndex},
		{"empty cart", empty.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)}, ErrEmptyCart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := env.service.CreateOrder(ctx, tt.userID, tt.in)
			assert.Nil(t, o)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	orders, err := env.store.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 5, env.stock(t, p.ID))
	assert.Empty(t, env.publisher.events)
}

func TestService_CreateOrder_InsufficientStockRollsBack(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	u := env.newUser(t, "Alice", "Buyer")
	plenty := env.newProduct(t, "Sam Seller", 10, 10)
	scarce := env.newProduct(t, "Sam Seller", 4, 3)
	pay := env.newPayment(t, "card")
	env.add(t, u.ID, plenty.ID, 2)
	env.add(t, u.ID, scarce.ID, 3)

	// stock moves between cart-add and checkout
	require.NoError(t, env.store.RunInTx(ctx, func(tx store.Tx) error {
		return tx.DecrementStock(ctx, scarce.ID, 2)
	}))

	o, err := env.service.CreateOrder(ctx, u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)})

	assert.Nil(t, o)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, []CheckoutState{CheckoutRolledBack}, env.states)

	assert.Equal(t, 10, env.stock(t, plenty.ID))
	assert.Equal(t, 1, env.stock(t, scarce.ID))
	c, err := env.store.GetCartByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, c.CartItems, 2)
	orders, err := env.store.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestService_CreateOrder_LateFailureRollsBackEverything(t *testing.T) {
	tests := []struct {
		name   string
		inject func(s *mocks.MockStore)
	}{
		{"user history", func(s *mocks.MockStore) { s.AppendUserOrderErr = errors.New("user write failed") }},
		{"payment history", func(s *mocks.MockStore) { s.AppendPaymentOrderErr = errors.New("payment write failed") }},
		{"cart reset", func(s *mocks.MockStore) { s.SaveCartErr = errors.New("cart write failed") }},
		{"back references", func(s *mocks.MockStore) { s.RemoveCartRefsErr = errors.New("product write failed") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestOrderService()
			ctx := context.Background()
			u := env.newUser(t, "Alice", "Buyer")
			p := env.newProduct(t, "Sam Seller", 10, 5)
			pay := env.newPayment(t, "card")
			env.add(t, u.ID, p.ID, 3)
			tt.inject(env.store)

			o, err := env.service.CreateOrder(ctx, u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)})

			assert.Nil(t, o)
			require.Error(t, err)
			assert.Equal(t, []CheckoutState{CheckoutStockReserved, CheckoutRolledBack}, env.states)

			assert.Equal(t, 5, env.stock(t, p.ID))
			c, err := env.store.GetCartByUser(ctx, u.ID)
			require.NoError(t, err)
			assert.Len(t, c.CartItems, 1)
			assert.Equal(t, "30", c.TotalPrice.String())
			stored, err := env.store.GetProduct(ctx, p.ID)
			require.NoError(t, err)
			assert.Len(t, stored.CartItems, 1)
			user, err := env.store.GetUser(ctx, u.ID)
			require.NoError(t, err)
			assert.Empty(t, user.Orders)
			orders, err := env.store.ListOrders(ctx)
			require.NoError(t, err)
			assert.Empty(t, orders)
			assert.Empty(t, env.publisher.events)
		})
	}
}

func TestService_CreateOrder_DecrementFailureRollsBack(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	u := env.newUser(t, "Alice", "Buyer")
	p := env.newProduct(t, "Sam Seller", 10, 5)
	pay := env.newPayment(t, "card")
	env.add(t, u.ID, p.ID, 1)
	env.store.DecrementStockErr = errors.New("timeout")

	_, err := env.service.CreateOrder(ctx, u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)})

	require.Error(t, err)
	assert.Equal(t, []CheckoutState{CheckoutRolledBack}, env.states)
	orders, err := env.store.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestService_CreateOrder_PublishFailureKeepsOrder(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	u := env.newUser(t, "Alice", "Buyer")
	p := env.newProduct(t, "Sam Seller", 10, 5)
	pay := env.newPayment(t, "card")
	env.add(t, u.ID, p.ID, 1)
	env.publisher.err = errors.New("broker down")

	o, err := env.service.CreateOrder(ctx, u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)})

	require.NoError(t, err)
	persisted, err := env.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, persisted.ID)
}

func TestService_CreateOrder_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	p := env.newProduct(t, "Sam Seller", 10, 5)
	pay := env.newPayment(t, "card")

	const buyers = 8
	users := make([]*model.User, buyers)
	for i := range users {
		users[i] = env.newUser(t, "Buyer", "Number")
		env.add(t, users[i].ID, p.ID, 2)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := env.service.CreateOrder(ctx, userID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
		}(u.ID)
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, env.stock(t, p.ID))
	orders, err := env.store.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

// ============================================
// UpdateOrderStatus Tests
// ============================================

func (e *testEnv) placeOrder(t *testing.T) (*model.User, *model.Order) {
	t.Helper()
	u := e.newUser(t, "Alice", "Buyer")
	p := e.newProduct(t, "Sam Seller", 10, 5)
	pay := e.newPayment(t, "card")
	e.add(t, u.ID, p.ID, 1)
	o, err := e.service.CreateOrder(context.Background(), u.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)})
	require.NoError(t, err)
	return u, o
}

func TestService_UpdateOrderStatus_DispatchesOnChange(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	u, o := env.placeOrder(t)

	updated, err := env.service.UpdateOrderStatus(ctx, o.ID, model.StatusShipped)

	require.NoError(t, err)
	assert.Equal(t, model.StatusShipped, updated.ShipmentStatus)
	require.Len(t, env.dispatcher.calls, 1)
	assert.Equal(t, dispatchCall{
		UserID: u.ID,
		Event:  model.StatusEvent{OrderID: o.ID, ShipmentStatus: model.StatusShipped},
	}, env.dispatcher.calls[0])

	persisted, err := env.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusShipped, persisted.ShipmentStatus)

	require.Len(t, env.publisher.events, 2)
	var data OrderStatusChanged
	require.NoError(t, env.publisher.events[1].Decode(&data))
	assert.Equal(t, model.StatusPending, data.From)
	assert.Equal(t, model.StatusShipped, data.To)
	assert.Equal(t, u.Email, data.UserEmail)
}

func TestService_UpdateOrderStatus_SameStatusIsNoop(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	_, o := env.placeOrder(t)

	updated, err := env.service.UpdateOrderStatus(ctx, o.ID, model.StatusPending)

	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, updated.ShipmentStatus)
	assert.Empty(t, env.dispatcher.calls)
	assert.Len(t, env.publisher.events, 1)
}

func TestService_UpdateOrderStatus_AnyValidStatusIsAccepted(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()

	_, first := env.placeOrder(t)
	updated, err := env.service.UpdateOrderStatus(ctx, first.ID, model.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDelivered, updated.ShipmentStatus)
	require.Len(t, env.dispatcher.calls, 1)
	assert.Equal(t, model.StatusDelivered, env.dispatcher.calls[0].Event.ShipmentStatus)

	_, second := env.placeOrder(t)
	_, err = env.service.UpdateOrderStatus(ctx, second.ID, model.StatusShipped)
	require.NoError(t, err)
	require.Len(t, env.dispatcher.calls, 2)

	updated, err = env.service.UpdateOrderStatus(ctx, second.ID, model.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, updated.ShipmentStatus)
	require.Len(t, env.dispatcher.calls, 3)
	assert.Equal(t, model.StatusEvent{OrderID: second.ID, ShipmentStatus: model.StatusProcessing}, env.dispatcher.calls[2].Event)

	persisted, err := env.store.GetOrder(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusProcessing, persisted.ShipmentStatus)
}

func TestService_UpdateOrderStatus_Errors(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	_, o := env.placeOrder(t)

	tests := []struct {
		name    string
		orderID string
		status  model.ShipmentStatus
		wantErr error
	}{
		{"malformed id", "bad", model.StatusShipped, ErrInvalidOrderID},
		{"unknown status", o.ID, "lost", ErrInvalidStatus},
		{"missing order", domain.NewID(), model.StatusShipped, ErrOrderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.UpdateOrderStatus(ctx, tt.orderID, tt.status)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, env.dispatcher.calls)
}

// ============================================
// Query Tests
// ============================================

func TestService_GetOrder(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	_, o := env.placeOrder(t)

	got, err := env.service.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	missing, err := env.service.GetOrder(ctx, domain.NewID())
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = env.service.GetOrder(ctx, "bad")
	assert.ErrorIs(t, err, ErrInvalidOrderID)
}

func TestService_GetOrders(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()

	orders, err := env.service.GetOrders(ctx)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)

	env.placeOrder(t)
	env.placeOrder(t)
	orders, err = env.service.GetOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestService_GetOrdersForUser(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	u, o := env.placeOrder(t)

	// an order whose payment record has gone away
	orphan := &model.Order{
		ID: domain.NewID(), UserID: u.ID, PaymentID: domain.NewID(),
		CartItems: []model.LineItem{}, ShipmentStatus: model.StatusPending,
	}
	require.NoError(t, env.store.RunInTx(ctx, func(tx store.Tx) error { return tx.InsertOrder(ctx, orphan) }))

	orders, err := env.service.GetOrdersForUser(ctx, u.ID)

	require.NoError(t, err)
	require.Len(t, orders, 2)
	types := map[string]string{}
	for _, uo := range orders {
		assert.Equal(t, "Alice Buyer", uo.UserName)
		types[uo.ID] = uo.PaymentType
	}
	assert.Equal(t, map[string]string{o.ID: "card", orphan.ID: "Unknown"}, types)

	_, err = env.service.GetOrdersForUser(ctx, domain.NewID())
	assert.ErrorIs(t, err, ErrUserNotFound)
	_, err = env.service.GetOrdersForUser(ctx, "bad")
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestService_GetOwnerOrders(t *testing.T) {
	env := newTestOrderService()
	ctx := context.Background()
	seller := env.newUser(t, "Sam", "Seller")
	buyer := env.newUser(t, "Alice", "Buyer")
	mine := env.newProduct(t, "Sam Seller", 10, 10)
	theirs := env.newProduct(t, "Other Shop", 7, 10)
	pay := env.newPayment(t, "card")

	env.add(t, buyer.ID, mine.ID, 2)
	env.add(t, buyer.ID, theirs.ID, 1)
	_, err := env.service.CreateOrder(ctx, buyer.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)})
	require.NoError(t, err)

	env.add(t, buyer.ID, theirs.ID, 3)
	_, err = env.service.CreateOrder(ctx, buyer.ID, CreateOrderInput{PaymentID: pay.ID, AddressIndex: index(0)})
	require.NoError(t, err)

	result, err := env.service.GetOwnerOrders(ctx, seller.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, result.OrdersNumber)
	require.Len(t, result.MatchingOrders, 1)
	matched := result.MatchingOrders[0]
	require.Len(t, matched.CartItems, 1)
	assert.Equal(t, mine.ID, matched.CartItems[0].ProductID)
	assert.Equal(t, "20", matched.TotalPrice.String())

	_, err = env.service.GetOwnerOrders(ctx, domain.NewID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}
