package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/example/ec-checkout/internal/model"
)

// Embedded documents are stored as JSONB. They are scanned as raw bytes and
// written as strings, since lib/pq sends []byte parameters as bytea.

type userRow struct {
	ID           string         `db:"id"`
	FirstName    string         `db:"first_name"`
	LastName     string         `db:"last_name"`
	Email        string         `db:"email"`
	Mobile       string         `db:"mobile"`
	PasswordHash string         `db:"password_hash"`
	ImageURL     string         `db:"image_url"`
	Role         string         `db:"role"`
	Addresses    []byte         `db:"addresses"`
	CartID       string         `db:"cart_id"`
	Orders       pq.StringArray `db:"orders"`
	CreatedAt    time.Time      `db:"created_at"`
}

func (r userRow) toModel() (*model.User, error) {
	u := &model.User{
		ID:           r.ID,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		Mobile:       r.Mobile,
		PasswordHash: r.PasswordHash,
		ImageURL:     r.ImageURL,
		Role:         r.Role,
		CartID:       r.CartID,
		Orders:       []string(r.Orders),
		CreatedAt:    r.CreatedAt,
	}
	if err := json.Unmarshal(r.Addresses, &u.Addresses); err != nil {
		return nil, fmt.Errorf("decode addresses of user %s: %w", r.ID, err)
	}
	return u, nil
}

type cartRow struct {
	ID         string          `db:"id"`
	UserID     string          `db:"user_id"`
	CartItems  []byte          `db:"cart_items"`
	TotalPrice decimal.Decimal `db:"total_price"`
	TotalItems int             `db:"total_items"`
}

func (r cartRow) toModel() (*model.Cart, error) {
	c := &model.Cart{
		ID:         r.ID,
		UserID:     r.UserID,
		TotalPrice: r.TotalPrice,
		TotalItems: r.TotalItems,
	}
	if err := json.Unmarshal(r.CartItems, &c.CartItems); err != nil {
		return nil, fmt.Errorf("decode items of cart %s: %w", r.ID, err)
	}
	if c.CartItems == nil {
		c.CartItems = []model.LineItem{}
	}
	return c, nil
}

type productRow struct {
	ID               string          `db:"id"`
	Name             string          `db:"name"`
	Description      string          `db:"description"`
	Price            decimal.Decimal `db:"price"`
	AvailableInStock int             `db:"available_in_stock"`
	ImageURL         string          `db:"image_url"`
	Owner            string          `db:"owner"`
	AverageRating    float64         `db:"average_rating"`
	CategoryID       string          `db:"category_id"`
	CartItems        pq.StringArray  `db:"cart_items"`
	CreatedAt        time.Time       `db:"created_at"`
}

func (r productRow) toModel() *model.Product {
	return &model.Product{
		ID:               r.ID,
		Name:             r.Name,
		Description:      r.Description,
		Price:            r.Price,
		AvailableInStock: r.AvailableInStock,
		ImageURL:         r.ImageURL,
		Owner:            r.Owner,
		AverageRating:    r.AverageRating,
		CategoryID:       r.CategoryID,
		CartItems:        []string(r.CartItems),
		CreatedAt:        r.CreatedAt,
	}
}

type paymentRow struct {
	ID        string         `db:"id"`
	Type      string         `db:"type"`
	Orders    pq.StringArray `db:"orders"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r paymentRow) toModel() *model.Payment {
	return &model.Payment{
		ID:        r.ID,
		Type:      r.Type,
		Orders:    []string(r.Orders),
		CreatedAt: r.CreatedAt,
	}
}

type orderRow struct {
	ID             string          `db:"id"`
	UserID         string          `db:"user_id"`
	UserName       string          `db:"user_name"`
	Date           time.Time       `db:"date"`
	DeliveryFee    decimal.Decimal `db:"delivery_fee"`
	PaymentID      string          `db:"payment_id"`
	UserAddress    []byte          `db:"user_address"`
	TotalPrice     decimal.Decimal `db:"total_price"`
	CartItems      []byte          `db:"cart_items"`
	ShipmentStatus string          `db:"shipment_status"`
}

func (r orderRow) toModel() (*model.Order, error) {
	o := &model.Order{
		ID:             r.ID,
		UserID:         r.UserID,
		UserName:       r.UserName,
		Date:           r.Date,
		DeliveryFee:    r.DeliveryFee,
		PaymentID:      r.PaymentID,
		TotalPrice:     r.TotalPrice,
		ShipmentStatus: model.ShipmentStatus(r.ShipmentStatus),
	}
	if err := json.Unmarshal(r.UserAddress, &o.UserAddress); err != nil {
		return nil, fmt.Errorf("decode address of order %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.CartItems, &o.CartItems); err != nil {
		return nil, fmt.Errorf("decode items of order %s: %w", r.ID, err)
	}
	return o, nil
}

type notificationRow struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	OrderID        string    `db:"order_id"`
	ShipmentStatus string    `db:"shipment_status"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r notificationRow) toModel() *model.Notification {
	return &model.Notification{
		ID:     r.ID,
		UserID: r.UserID,
		Status: model.StatusEvent{
			OrderID:        r.OrderID,
			ShipmentStatus: model.ShipmentStatus(r.ShipmentStatus),
		},
		CreatedAt: r.CreatedAt,
	}
}

type eventRow struct {
	ID            string    `db:"id"`
	AggregateID   string    `db:"aggregate_id"`
	AggregateType string    `db:"aggregate_type"`
	EventType     string    `db:"event_type"`
	Data          []byte    `db:"data"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r eventRow) toEvent() Event {
	return Event{
		ID:            r.ID,
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		EventType:     r.EventType,
		Data:          r.Data,
		Timestamp:     r.CreatedAt,
		Version:       r.Version,
	}
}

func jsonString(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
