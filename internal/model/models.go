package model

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers both on the wire and inside JSONB columns.
	decimal.MarshalJSONWithoutQuotes = true
}

// LineItem is one product entry embedded in a cart or an order.
type LineItem struct {
	ID             string          `json:"_id"`
	ProductID      string          `json:"productId"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	ItemTotalPrice decimal.Decimal `json:"itemTotalPrice"`
	OwnerName      string          `json:"ownerName"`
}

// Cart is the per-user mutable collection of line items.
type Cart struct {
	ID         string          `json:"_id"`
	UserID     string          `json:"userId"`
	CartItems  []LineItem      `json:"cartItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	TotalItems int             `json:"totalItems"`
}

// Clone returns a deep copy of c.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.CartItems = CloneLineItems(c.CartItems)
	return &cp
}

// ItemIDs returns the ids of every line item in the cart.
func (c *Cart) ItemIDs() []string {
	ids := make([]string, 0, len(c.CartItems))
	for _, item := range c.CartItems {
		ids = append(ids, item.ID)
	}
	return ids
}

// CloneLineItems deep-copies a line item slice. A nil input yields an empty slice.
func CloneLineItems(items []LineItem) []LineItem {
	cp := make([]LineItem, len(items))
	copy(cp, items)
	return cp
}

// Product holds the stock ledger entry and the weak back-references to
// line items that currently point at it.
type Product struct {
	ID               string          `json:"_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	AvailableInStock int             `json:"availableInStock"`
	ImageURL         string          `json:"imageUrl"`
	Owner            string          `json:"owner"`
	AverageRating    float64         `json:"averageRating"`
	CategoryID       string          `json:"categoryId,omitempty"`
	CartItems        []string        `json:"cartItems"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CartItems = append([]string{}, p.CartItems...)
	return &cp
}

// Address is a postal address stored on a user and snapshotted into orders.
type Address struct {
	Street     string `json:"street" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	State      string `json:"state" validate:"required"`
	City       string `json:"city" validate:"required"`
}

// User is the profile collaborator read by checkout.
type User struct {
	ID           string    `json:"_id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	PasswordHash string    `json:"-"`
	ImageURL     string    `json:"imageUrl"`
	Role         string    `json:"role"`
	Addresses    []Address `json:"addresses"`
	CartID       string    `json:"cart"`
	Orders       []string  `json:"orders"`
	CreatedAt    time.Time `json:"createdAt"`
}

// FullName is the display name used as a seller identity on line items.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.Addresses = append([]Address{}, u.Addresses...)
	cp.Orders = append([]string{}, u.Orders...)
	return &cp
}

// Payment is the payment collaborator; only its order history is touched here.
type Payment struct {
	ID        string    `json:"_id"`
	Type      string    `json:"type"`
	Orders    []string  `json:"orders"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Orders = append([]string{}, p.Orders...)
	return &cp
}

// ShipmentStatus is the only mutable part of an order.
type ShipmentStatus string

const (
	StatusPending    ShipmentStatus = "pending"
	StatusProcessing ShipmentStatus = "processing"
	StatusShipped    ShipmentStatus = "shipped"
	StatusDelivered  ShipmentStatus = "delivered"
	StatusCancelled  ShipmentStatus = "cancelled"
)

// Valid reports whether s is a known shipment status.
func (s ShipmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is an immutable snapshot of a checked-out cart.
type Order struct {
	ID             string          `json:"_id"`
	UserID         string          `json:"userId"`
	UserName       string          `json:"userName"`
	Date           time.Time       `json:"date"`
	DeliveryFee    decimal.Decimal `json:"deliveryFee"`
	PaymentID      string          `json:"paymentId"`
	UserAddress    Address         `json:"userAddress"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	CartItems      []LineItem      `json:"cartItems"`
	ShipmentStatus ShipmentStatus  `json:"shipmentStatus"`
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.CartItems = CloneLineItems(o.CartItems)
	return &cp
}

// StatusEvent is the payload pushed to a user when an order's status changes.
type StatusEvent struct {
	OrderID        string         `json:"orderId"`
	ShipmentStatus ShipmentStatus `json:"shipmentStatus"`
}

// Notification is the durable record of a status event.
type Notification struct {
	ID        string      `json:"_id"`
	UserID    string      `json:"userId"`
	Status    StatusEvent `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}
