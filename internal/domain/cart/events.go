package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventItemAdded     = "ItemAddedToCart"
	EventItemRemoved   = "ItemRemovedFromCart"
	EventItemDecreased = "ItemQuantityDecreased"
	EventCartCleared   = "CartCleared"
)

type ItemAddedToCart struct {
	CartID    string          `json:"cart_id"`
	UserID    string          `json:"user_id"`
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	AddedAt   time.Time       `json:"added_at"`
}

type ItemQuantityDecreased struct {
	CartID      string    `json:"cart_id"`
	UserID      string    `json:"user_id"`
	ItemID      string    `json:"item_id"`
	ProductID   string    `json:"product_id"`
	Quantity    int       `json:"quantity"`
	DecreasedAt time.Time `json:"decreased_at"`
}

type ItemRemovedFromCart struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	ProductID string    `json:"product_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type CartCleared struct {
	CartID    string    `json:"cart_id"`
	UserID    string    `json:"user_id"`
	ClearedAt time.Time `json:"cleared_at"`
}
