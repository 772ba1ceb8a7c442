package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/model"
)

// storeContract runs the behaviour every Store implementation must share.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("missing documents", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetUser(ctx, domain.NewID())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetCartByUser(ctx, domain.NewID())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetProduct(ctx, domain.NewID())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetOrder(ctx, domain.NewID())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetPayment(ctx, domain.NewID())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("round trip of embedded documents", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		f := seed(t, s, 5)

		cart, err := s.GetCartByUser(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Empty(t, cart.CartItems)
		assert.True(t, cart.TotalPrice.IsZero())

		cart.CartItems = []model.LineItem{{
			ID: domain.NewID(), ProductID: f.product.ID, Price: decimal.NewFromInt(10),
			Quantity: 2, ItemTotalPrice: decimal.NewFromInt(20), OwnerName: "Sam Seller",
		}}
		cart.TotalPrice = decimal.NewFromInt(20)
		cart.TotalItems = 1
		require.NoError(t, s.RunInTx(ctx, func(tx Tx) error { return tx.SaveCart(ctx, cart) }))

		got, err := s.GetCartByUser(ctx, f.user.ID)
		require.NoError(t, err)
		require.Len(t, got.CartItems, 1)
		assert.Equal(t, "Sam Seller", got.CartItems[0].OwnerName)
		assert.True(t, got.TotalPrice.Equal(decimal.NewFromInt(20)))

		user, err := s.GetUser(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Equal(t, f.user.Addresses, user.Addresses)

		byEmail, err := s.GetUserByEmail(ctx, f.user.Email)
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, byEmail.ID)
	})

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		f := seed(t, s, 5)
		boom := errors.New("boom")

		err := s.RunInTx(ctx, func(tx Tx) error {
			require.NoError(t, tx.DecrementStock(ctx, f.product.ID, 3))
			require.NoError(t, tx.AddCartRef(ctx, f.product.ID, "item-1"))
			require.NoError(t, tx.AppendPaymentOrder(ctx, f.payment.ID, "order-1"))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		p, err := s.GetProduct(ctx, f.product.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, p.AvailableInStock)
		assert.Empty(t, p.CartItems)

		pay, err := s.GetPayment(ctx, f.payment.ID)
		require.NoError(t, err)
		assert.Empty(t, pay.Orders)
	})

	t.Run("conditional stock decrement", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		f := seed(t, s, 5)

		err := s.RunInTx(ctx, func(tx Tx) error { return tx.DecrementStock(ctx, f.product.ID, 6) })
		assert.ErrorIs(t, err, ErrInsufficientStock)

		err = s.RunInTx(ctx, func(tx Tx) error { return tx.DecrementStock(ctx, domain.NewID(), 1) })
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.RunInTx(ctx, func(tx Tx) error { return tx.DecrementStock(ctx, f.product.ID, 5) }))
		p, err := s.GetProduct(ctx, f.product.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, p.AvailableInStock)
	})

	t.Run("concurrent decrements never oversell", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		f := seed(t, s, 10)

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.RunInTx(ctx, func(tx Tx) error { return tx.DecrementStock(ctx, f.product.ID, 1) })
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		p, err := s.GetProduct(ctx, f.product.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, succeeded)
		assert.Equal(t, 0, p.AvailableInStock)
	})

	t.Run("concurrent cart updates are serialized", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		f := seed(t, s, 50)
		price := decimal.NewFromInt(10)

		const workers = 10
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.RunInTx(ctx, func(tx Tx) error {
					cart, err := tx.LockCart(ctx, f.user.ID)
					if err != nil {
						return err
					}
					if len(cart.CartItems) == 0 {
						cart.CartItems = []model.LineItem{{
							ID: domain.NewID(), ProductID: f.product.ID, Price: price, OwnerName: "Sam Seller",
						}}
					}
					line := &cart.CartItems[0]
					line.Quantity++
					line.ItemTotalPrice = price.Mul(decimal.NewFromInt(int64(line.Quantity)))
					cart.TotalPrice = line.ItemTotalPrice
					cart.TotalItems = 1
					return tx.SaveCart(ctx, cart)
				})
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		cart, err := s.GetCartByUser(ctx, f.user.ID)
		require.NoError(t, err)
		require.Len(t, cart.CartItems, 1)
		assert.Equal(t, workers, cart.CartItems[0].Quantity)
		assert.True(t, cart.TotalPrice.Equal(decimal.NewFromInt(10*workers)), cart.TotalPrice.String())
	})

	t.Run("back references", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		f := seed(t, s, 5)

		require.NoError(t, s.RunInTx(ctx, func(tx Tx) error {
			require.NoError(t, tx.AddCartRef(ctx, f.product.ID, "a"))
			require.NoError(t, tx.AddCartRef(ctx, f.product.ID, "a"))
			require.NoError(t, tx.AddCartRef(ctx, f.product.ID, "b"))
			return tx.AddCartRef(ctx, f.product.ID, "c")
		}))
		p, err := s.GetProduct(ctx, f.product.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, p.CartItems)

		require.NoError(t, s.RunInTx(ctx, func(tx Tx) error { return tx.RemoveCartRefs(ctx, []string{"a", "c", "zzz"}) }))
		p, err = s.GetProduct(ctx, f.product.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, p.CartItems)

		err = s.RunInTx(ctx, func(tx Tx) error { return tx.AddCartRef(ctx, domain.NewID(), "x") })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("orders and histories", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		f := seed(t, s, 5)

		first := testOrder(f.user.ID, f.payment.ID)
		second := testOrder(f.user.ID, f.payment.ID)
		require.NoError(t, s.RunInTx(ctx, func(tx Tx) error {
			for _, o := range []*model.Order{first, second} {
				if err := tx.InsertOrder(ctx, o); err != nil {
					return err
				}
				if err := tx.AppendUserOrder(ctx, f.user.ID, o.ID); err != nil {
					return err
				}
				if err := tx.AppendPaymentOrder(ctx, f.payment.ID, o.ID); err != nil {
					return err
				}
			}
			return tx.UpdateOrderStatus(ctx, second.ID, model.StatusShipped)
		}))

		all, err := s.ListOrders(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, first.ID, all[0].ID)
		assert.Equal(t, model.StatusShipped, all[1].ShipmentStatus)

		mine, err := s.ListOrdersByUser(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Len(t, mine, 2)

		got, err := s.GetOrder(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.UserAddress, got.UserAddress)
		assert.True(t, got.TotalPrice.Equal(first.TotalPrice))
		require.Len(t, got.CartItems, 1)

		user, err := s.GetUser(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{first.ID, second.ID}, user.Orders)

		pay, err := s.GetPayment(ctx, f.payment.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{first.ID, second.ID}, pay.Orders)

		err = s.RunInTx(ctx, func(tx Tx) error {
			return tx.UpdateOrderStatus(ctx, domain.NewID(), model.StatusShipped)
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		f := seed(t, s, 1)

		dup := *f.user
		dup.ID = domain.NewID()
		err := s.RunInTx(ctx, func(tx Tx) error { return tx.InsertUser(ctx, &dup) })
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("notifications and events", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		f := seed(t, s, 1)

		n := &model.Notification{
			ID:        domain.NewID(),
			UserID:    f.user.ID,
			Status:    model.StatusEvent{OrderID: "o1", ShipmentStatus: model.StatusShipped},
			CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		}
		require.NoError(t, s.SaveNotification(ctx, n))

		got, err := s.ListNotifications(ctx, f.user.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, n.Status, got[0].Status)

		require.NoError(t, s.RunInTx(ctx, func(tx Tx) error {
			for i := 0; i < 2; i++ {
				e, err := NewEvent("agg-1", "Order", "OrderCreated", map[string]int{"n": i})
				if err != nil {
					return err
				}
				if err := tx.AppendEvent(ctx, e); err != nil {
					return err
				}
			}
			return nil
		}))
		events, err := s.GetEvents(ctx, "agg-1")
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, 1, events[0].Version)
		assert.Equal(t, 2, events[1].Version)

		var payload map[string]int
		require.NoError(t, events[1].Decode(&payload))
		assert.Equal(t, 1, payload["n"])
	})
}

type fixture struct {
	user    *model.User
	product *model.Product
	payment *model.Payment
}

func seed(t *testing.T, s Store, stock int) fixture {
	t.Helper()
	ctx := context.Background()

	user := &model.User{
		ID:           domain.NewID(),
		FirstName:    "Alice",
		LastName:     "Buyer",
		Email:        domain.NewID() + "@example.com",
		PasswordHash: "x",
		Role:         "customer",
		Addresses:    []model.Address{{Street: "1 Main St", PostalCode: "10001", State: "NY", City: "New York"}},
		CreatedAt:    time.Now().UTC(),
	}
	cart := &model.Cart{ID: domain.NewID(), UserID: user.ID, CartItems: []model.LineItem{}}
	user.CartID = cart.ID
	product := &model.Product{
		ID:               domain.NewID(),
		Name:             "Lamp",
		Price:            decimal.NewFromInt(10),
		AvailableInStock: stock,
		Owner:            "Sam Seller",
		CreatedAt:        time.Now().UTC(),
	}
	payment := &model.Payment{ID: domain.NewID(), Type: "card", CreatedAt: time.Now().UTC()}

	require.NoError(t, s.RunInTx(ctx, func(tx Tx) error {
		if err := tx.InsertUser(ctx, user); err != nil {
			return err
		}
		if err := tx.InsertCart(ctx, cart); err != nil {
			return err
		}
		if err := tx.InsertProduct(ctx, product); err != nil {
			return err
		}
		return tx.InsertPayment(ctx, payment)
	}))
	return fixture{user: user, product: product, payment: payment}
}

func testOrder(userID, paymentID string) *model.Order {
	return &model.Order{
		ID:          domain.NewID(),
		UserID:      userID,
		UserName:    "Alice Buyer",
		Date:        time.Now().UTC().Truncate(time.Millisecond),
		DeliveryFee: decimal.NewFromInt(5),
		PaymentID:   paymentID,
		UserAddress: model.Address{Street: "1 Main St", PostalCode: "10001", State: "NY", City: "New York"},
		TotalPrice:  decimal.NewFromInt(35),
		CartItems: []model.LineItem{{
			ID: domain.NewID(), ProductID: domain.NewID(), Price: decimal.NewFromInt(10),
			Quantity: 3, ItemTotalPrice: decimal.NewFromInt(30), OwnerName: "Sam Seller",
		}},
		ShipmentStatus: model.StatusPending,
	}
}
