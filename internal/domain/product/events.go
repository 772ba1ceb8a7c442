package product

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventProductCreated = "ProductCreated"
)

type ProductCreated struct {
	ProductID        string          `json:"product_id"`
	Name             string          `json:"name"`
	Owner            string          `json:"owner"`
	Price            decimal.Decimal `json:"price"`
	AvailableInStock int             `json:"available_in_stock"`
	CreatedAt        time.Time       `json:"created_at"`
}
