package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/model"
)

// MockStore wraps a MemoryStore, records transactional writes and injects
// failures into selected transaction steps.
type MockStore struct {
	*store.MemoryStore

	mu sync.Mutex

	// For tracking calls in tests
	TxCount        int
	DecrementCalls []DecrementCall
	SavedCarts     []*model.Cart
	Notifications  []*model.Notification

	// Injected failures, returned from the matching Tx method
	DecrementStockErr     error
	AppendUserOrderErr    error
	AppendPaymentOrderErr error
	SaveCartErr           error
	RemoveCartRefsErr     error
	SaveNotificationErr   error
}

// DecrementCall records parameters passed to DecrementStock
type DecrementCall struct {
	ProductID string
	Quantity  int
}

func NewMockStore() *MockStore {
	return &MockStore{MemoryStore: store.NewMemoryStore()}
}

// RunInTx runs fn against the wrapped store through a failure-injecting tx.
func (m *MockStore) RunInTx(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	m.TxCount++
	m.mu.Unlock()

	return m.MemoryStore.RunInTx(ctx, func(tx store.Tx) error {
		return fn(&mockTx{Tx: tx, m: m})
	})
}

// SaveNotification records n, or fails with SaveNotificationErr.
func (m *MockStore) SaveNotification(ctx context.Context, n *model.Notification) error {
	m.mu.Lock()
	err := m.SaveNotificationErr
	if err == nil {
		m.Notifications = append(m.Notifications, n)
	}
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.MemoryStore.SaveNotification(ctx, n)
}

type mockTx struct {
	store.Tx
	m *MockStore
}

func (t *mockTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	t.m.mu.Lock()
	t.m.DecrementCalls = append(t.m.DecrementCalls, DecrementCall{ProductID: productID, Quantity: qty})
	err := t.m.DecrementStockErr
	t.m.mu.Unlock()
	if err != nil {
		return err
	}
	return t.Tx.DecrementStock(ctx, productID, qty)
}

func (t *mockTx) AppendUserOrder(ctx context.Context, userID, orderID string) error {
	if t.m.AppendUserOrderErr != nil {
		return t.m.AppendUserOrderErr
	}
	return t.Tx.AppendUserOrder(ctx, userID, orderID)
}

func (t *mockTx) AppendPaymentOrder(ctx context.Context, paymentID, orderID string) error {
	if t.m.AppendPaymentOrderErr != nil {
		return t.m.AppendPaymentOrderErr
	}
	return t.Tx.AppendPaymentOrder(ctx, paymentID, orderID)
}

func (t *mockTx) SaveCart(ctx context.Context, c *model.Cart) error {
	t.m.mu.Lock()
	t.m.SavedCarts = append(t.m.SavedCarts, c.Clone())
	err := t.m.SaveCartErr
	t.m.mu.Unlock()
	if err != nil {
		return err
	}
	return t.Tx.SaveCart(ctx, c)
}

func (t *mockTx) RemoveCartRefs(ctx context.Context, itemIDs []string) error {
	if t.m.RemoveCartRefsErr != nil {
		return t.m.RemoveCartRefsErr
	}
	return t.Tx.RemoveCartRefs(ctx, itemIDs)
}
