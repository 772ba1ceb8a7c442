package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/example/ec-checkout/internal/model"
)

// MemoryStore is an in-process Store. Transactions are serialized by a
// single lock and a failed transaction restores the snapshot taken when it
// began.
type MemoryStore struct {
	mu   sync.RWMutex
	data *memoryData
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemoryData()}
}

type memoryData struct {
	users         map[string]*model.User
	carts         map[string]*model.Cart // userID -> cart
	products      map[string]*model.Product
	payments      map[string]*model.Payment
	orders        map[string]*model.Order
	orderSeq      []string
	notifications []*model.Notification
	events        []Event
}

func newMemoryData() *memoryData {
	return &memoryData{
		users:    make(map[string]*model.User),
		carts:    make(map[string]*model.Cart),
		products: make(map[string]*model.Product),
		payments: make(map[string]*model.Payment),
		orders:   make(map[string]*model.Order),
	}
}

func (d *memoryData) clone() *memoryData {
	cp := newMemoryData()
	for k, v := range d.users {
		cp.users[k] = v.Clone()
	}
	for k, v := range d.carts {
		cp.carts[k] = v.Clone()
	}
	for k, v := range d.products {
		cp.products[k] = v.Clone()
	}
	for k, v := range d.payments {
		cp.payments[k] = v.Clone()
	}
	for k, v := range d.orders {
		cp.orders[k] = v.Clone()
	}
	cp.orderSeq = slices.Clone(d.orderSeq)
	for _, n := range d.notifications {
		nc := *n
		cp.notifications = append(cp.notifications, &nc)
	}
	cp.events = slices.Clone(d.events)
	return cp
}

// RunInTx implements Store.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.data.clone()
	if err := fn(&memoryTx{d: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) SaveNotification(ctx context.Context, n *model.Notification) error {
	return s.RunInTx(ctx, func(tx Tx) error {
		return tx.SaveNotification(ctx, n)
	})
}

func (s *MemoryStore) read() (*memoryTx, func()) {
	s.mu.RLock()
	return &memoryTx{d: s.data}, s.mu.RUnlock
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	r, done := s.read()
	defer done()
	return r.GetUser(ctx, id)
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	r, done := s.read()
	defer done()
	return r.GetUserByEmail(ctx, email)
}

func (s *MemoryStore) GetCartByUser(ctx context.Context, userID string) (*model.Cart, error) {
	r, done := s.read()
	defer done()
	return r.GetCartByUser(ctx, userID)
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	r, done := s.read()
	defer done()
	return r.GetProduct(ctx, id)
}

func (s *MemoryStore) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	r, done := s.read()
	defer done()
	return r.GetPayment(ctx, id)
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	r, done := s.read()
	defer done()
	return r.GetOrder(ctx, id)
}

func (s *MemoryStore) ListOrders(ctx context.Context) ([]*model.Order, error) {
	r, done := s.read()
	defer done()
	return r.ListOrders(ctx)
}

func (s *MemoryStore) ListOrdersByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	r, done := s.read()
	defer done()
	return r.ListOrdersByUser(ctx, userID)
}

func (s *MemoryStore) ListNotifications(ctx context.Context, userID string) ([]*model.Notification, error) {
	r, done := s.read()
	defer done()
	return r.ListNotifications(ctx, userID)
}

func (s *MemoryStore) GetEvents(ctx context.Context, aggregateID string) ([]Event, error) {
	r, done := s.read()
	defer done()
	return r.GetEvents(ctx, aggregateID)
}

// memoryTx operates on the live data while the owning lock is held.
type memoryTx struct {
	d *memoryData
}

func (t *memoryTx) GetUser(_ context.Context, id string) (*model.User, error) {
	u, ok := t.d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u.Clone(), nil
}

func (t *memoryTx) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range t.d.users {
		if u.Email == email {
			return u.Clone(), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
}

func (t *memoryTx) GetCartByUser(_ context.Context, userID string) (*model.Cart, error) {
	c, ok := t.d.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %s: %w", userID, ErrNotFound)
	}
	return c.Clone(), nil
}

func (t *memoryTx) GetProduct(_ context.Context, id string) (*model.Product, error) {
	p, ok := t.d.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return p.Clone(), nil
}

func (t *memoryTx) GetPayment(_ context.Context, id string) (*model.Payment, error) {
	p, ok := t.d.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	return p.Clone(), nil
}

func (t *memoryTx) GetOrder(_ context.Context, id string) (*model.Order, error) {
	o, ok := t.d.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return o.Clone(), nil
}

func (t *memoryTx) ListOrders(_ context.Context) ([]*model.Order, error) {
	orders := make([]*model.Order, 0, len(t.d.orderSeq))
	for _, id := range t.d.orderSeq {
		orders = append(orders, t.d.orders[id].Clone())
	}
	return orders, nil
}

func (t *memoryTx) ListOrdersByUser(_ context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	for _, id := range t.d.orderSeq {
		if o := t.d.orders[id]; o.UserID == userID {
			orders = append(orders, o.Clone())
		}
	}
	return orders, nil
}

func (t *memoryTx) ListNotifications(_ context.Context, userID string) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range t.d.notifications {
		if n.UserID == userID {
			nc := *n
			out = append(out, &nc)
		}
	}
	return out, nil
}

func (t *memoryTx) GetEvents(_ context.Context, aggregateID string) ([]Event, error) {
	var out []Event
	for _, e := range t.d.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memoryTx) LockCart(ctx context.Context, userID string) (*model.Cart, error) {
	return t.GetCartByUser(ctx, userID)
}

func (t *memoryTx) LockOrder(ctx context.Context, id string) (*model.Order, error) {
	return t.GetOrder(ctx, id)
}

func (t *memoryTx) InsertUser(_ context.Context, u *model.User) error {
	if _, ok := t.d.users[u.ID]; ok {
		return fmt.Errorf("user %s: %w", u.ID, ErrDuplicate)
	}
	for _, existing := range t.d.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user email %s: %w", u.Email, ErrDuplicate)
		}
	}
	t.d.users[u.ID] = u.Clone()
	return nil
}

func (t *memoryTx) InsertCart(_ context.Context, c *model.Cart) error {
	if _, ok := t.d.carts[c.UserID]; ok {
		return fmt.Errorf("cart for user %s: %w", c.UserID, ErrDuplicate)
	}
	t.d.carts[c.UserID] = c.Clone()
	return nil
}

func (t *memoryTx) SaveCart(_ context.Context, c *model.Cart) error {
	if _, ok := t.d.carts[c.UserID]; !ok {
		return fmt.Errorf("cart for user %s: %w", c.UserID, ErrNotFound)
	}
	t.d.carts[c.UserID] = c.Clone()
	return nil
}

func (t *memoryTx) InsertProduct(_ context.Context, p *model.Product) error {
	if _, ok := t.d.products[p.ID]; ok {
		return fmt.Errorf("product %s: %w", p.ID, ErrDuplicate)
	}
	t.d.products[p.ID] = p.Clone()
	return nil
}

func (t *memoryTx) InsertPayment(_ context.Context, p *model.Payment) error {
	if _, ok := t.d.payments[p.ID]; ok {
		return fmt.Errorf("payment %s: %w", p.ID, ErrDuplicate)
	}
	t.d.payments[p.ID] = p.Clone()
	return nil
}

func (t *memoryTx) InsertOrder(_ context.Context, o *model.Order) error {
	if _, ok := t.d.orders[o.ID]; ok {
		return fmt.Errorf("order %s: %w", o.ID, ErrDuplicate)
	}
	t.d.orders[o.ID] = o.Clone()
	t.d.orderSeq = append(t.d.orderSeq, o.ID)
	return nil
}

func (t *memoryTx) UpdateOrderStatus(_ context.Context, orderID string, status model.ShipmentStatus) error {
	o, ok := t.d.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	o.ShipmentStatus = status
	return nil
}

func (t *memoryTx) AddCartRef(_ context.Context, productID, itemID string) error {
	p, ok := t.d.products[productID]
	if !ok {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	if !slices.Contains(p.CartItems, itemID) {
		p.CartItems = append(p.CartItems, itemID)
	}
	return nil
}

func (t *memoryTx) RemoveCartRefs(_ context.Context, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	for _, p := range t.d.products {
		p.CartItems = slices.DeleteFunc(p.CartItems, func(id string) bool {
			return slices.Contains(itemIDs, id)
		})
	}
	return nil
}

func (t *memoryTx) DecrementStock(_ context.Context, productID string, qty int) error {
	p, ok := t.d.products[productID]
	if !ok {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	if p.AvailableInStock < qty {
		return fmt.Errorf("product %s has %d, need %d: %w", productID, p.AvailableInStock, qty, ErrInsufficientStock)
	}
	p.AvailableInStock -= qty
	return nil
}

func (t *memoryTx) AppendUserOrder(_ context.Context, userID, orderID string) error {
	u, ok := t.d.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	u.Orders = append(u.Orders, orderID)
	return nil
}

func (t *memoryTx) AppendPaymentOrder(_ context.Context, paymentID, orderID string) error {
	p, ok := t.d.payments[paymentID]
	if !ok {
		return fmt.Errorf("payment %s: %w", paymentID, ErrNotFound)
	}
	p.Orders = append(p.Orders, orderID)
	return nil
}

func (t *memoryTx) SaveNotification(_ context.Context, n *model.Notification) error {
	nc := *n
	t.d.notifications = append(t.d.notifications, &nc)
	return nil
}

func (t *memoryTx) AppendEvent(_ context.Context, e *Event) error {
	version := 0
	for _, existing := range t.d.events {
		if existing.AggregateID == e.AggregateID && existing.Version > version {
			version = existing.Version
		}
	}
	e.Version = version + 1
	t.d.events = append(t.d.events, *e)
	return nil
}
