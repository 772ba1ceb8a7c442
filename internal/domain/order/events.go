package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/ec-checkout/internal/model"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

type OrderCreated struct {
	OrderID        string               `json:"order_id"`
	UserID         string               `json:"user_id"`
	UserName       string               `json:"user_name"`
	UserEmail      string               `json:"user_email"`
	PaymentID      string               `json:"payment_id"`
	Items          []model.LineItem     `json:"items"`
	DeliveryFee    decimal.Decimal      `json:"delivery_fee"`
	TotalPrice     decimal.Decimal      `json:"total_price"`
	ShipmentStatus model.ShipmentStatus `json:"shipment_status"`
	CreatedAt      time.Time            `json:"created_at"`
}

type OrderStatusChanged struct {
	OrderID   string               `json:"order_id"`
	UserID    string               `json:"user_id"`
	UserEmail string               `json:"user_email"`
	From      model.ShipmentStatus `json:"from"`
	To        model.ShipmentStatus `json:"to"`
	ChangedAt time.Time            `json:"changed_at"`
}
