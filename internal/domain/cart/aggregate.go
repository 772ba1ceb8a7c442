package cart

import (
	"github.com/shopspring/decimal"

	"github.com/example/ec-checkout/internal/model"
)

const AggregateType = "Cart"

// Recalculate resums the cart totals from its line items.
func Recalculate(c *model.Cart) {
	total := decimal.Zero
	for i := range c.CartItems {
		item := &c.CartItems[i]
		item.ItemTotalPrice = lineTotal(item.Price, item.Quantity)
		total = total.Add(item.ItemTotalPrice)
	}
	c.TotalPrice = total
	c.TotalItems = len(c.CartItems)
}

// Reset empties the cart in place. The cart document itself survives.
func Reset(c *model.Cart) {
	c.CartItems = []model.LineItem{}
	c.TotalPrice = decimal.Zero
	c.TotalItems = 0
}

func lineTotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty)))
}

// findLine returns the index of the line for productID, or -1.
func findLine(c *model.Cart, productID string) int {
	for i, item := range c.CartItems {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func removeLine(c *model.Cart, i int) model.LineItem {
	item := c.CartItems[i]
	c.CartItems = append(c.CartItems[:i], c.CartItems[i+1:]...)
	return item
}
