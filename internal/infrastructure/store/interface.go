package store

import (
	"context"
	"errors"

	"github.com/example/ec-checkout/internal/model"
)

var (
	ErrNotFound          = errors.New("store: not found")
	ErrInsufficientStock = errors.New("store: insufficient stock")
	ErrDuplicate         = errors.New("store: duplicate key")
)

// Reader exposes the read side shared by the store and its transactions.
// Every getter returns ErrNotFound when the document does not exist, and
// every returned document is a private copy.
type Reader interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetCartByUser(ctx context.Context, userID string) (*model.Cart, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context) ([]*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]*model.Order, error)
	ListNotifications(ctx context.Context, userID string) ([]*model.Notification, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
}

// Tx is a single unit of work. Writes become visible to other callers only
// when the enclosing RunInTx returns nil.
type Tx interface {
	Reader

	// LockCart loads the user's cart and holds it exclusively until the
	// transaction ends.
	LockCart(ctx context.Context, userID string) (*model.Cart, error)
	// LockOrder loads an order and holds it exclusively until the
	// transaction ends.
	LockOrder(ctx context.Context, id string) (*model.Order, error)

	InsertUser(ctx context.Context, u *model.User) error
	InsertCart(ctx context.Context, c *model.Cart) error
	SaveCart(ctx context.Context, c *model.Cart) error
	InsertProduct(ctx context.Context, p *model.Product) error
	InsertPayment(ctx context.Context, p *model.Payment) error
	InsertOrder(ctx context.Context, o *model.Order) error
	UpdateOrderStatus(ctx context.Context, orderID string, status model.ShipmentStatus) error

	// AddCartRef records itemID on the product's back-reference list. It is
	// a no-op when the reference is already present.
	AddCartRef(ctx context.Context, productID, itemID string) error
	// RemoveCartRefs drops every listed line-item id from every product.
	RemoveCartRefs(ctx context.Context, itemIDs []string) error
	// DecrementStock subtracts qty from the product's stock iff the result
	// stays non-negative, otherwise it returns ErrInsufficientStock.
	DecrementStock(ctx context.Context, productID string, qty int) error

	AppendUserOrder(ctx context.Context, userID, orderID string) error
	AppendPaymentOrder(ctx context.Context, paymentID, orderID string) error

	SaveNotification(ctx context.Context, n *model.Notification) error
	AppendEvent(ctx context.Context, e *Event) error
}

// Store is the document store backing carts, products, orders and the
// collaborators they reference.
type Store interface {
	Reader

	// RunInTx runs fn in one transaction. An error from fn discards every
	// write made through tx and is returned unchanged.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	SaveNotification(ctx context.Context, n *model.Notification) error
	Ping(ctx context.Context) error
}
