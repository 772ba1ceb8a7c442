package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/model"
)

const AggregateType = "Inventory"

var (
	ErrInsufficientStock = domain.Conflict("Insufficient stock for one or more products")
	ErrProductNotFound   = domain.NotFound("Product does not exist")
	ErrInvalidQuantity   = domain.InvalidArgument("quantity must be positive")
)

// Available reports whether qty units of p can still be promised to a cart.
// It is advisory: stock is only taken at checkout.
func Available(p *model.Product, qty int) bool {
	return qty <= p.AvailableInStock
}

// Demand sums the ordered quantity per product.
func Demand(items []model.LineItem) map[string]int {
	demand := make(map[string]int, len(items))
	for _, item := range items {
		demand[item.ProductID] += item.Quantity
	}
	return demand
}

// Reserve takes the ordered quantities out of the stock ledger inside tx.
// Products are decremented in id order so concurrent checkouts lock rows
// in the same sequence. A failed decrement leaves tx unusable and the
// caller must roll it back; no partial decrement survives.
func Reserve(ctx context.Context, tx store.Tx, orderID string, items []model.LineItem) error {
	demand := Demand(items)

	ids := make([]string, 0, len(demand))
	for id := range demand {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now().UTC()
	for _, id := range ids {
		qty := demand[id]
		if qty < 1 {
			return fmt.Errorf("%w: product %s", ErrInvalidQuantity, id)
		}

		err := tx.DecrementStock(ctx, id, qty)
		switch {
		case errors.Is(err, store.ErrInsufficientStock):
			return fmt.Errorf("%w: product %s", ErrInsufficientStock, id)
		case errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("%w: %s", ErrProductNotFound, id)
		case err != nil:
			return err
		}

		event, err := store.NewEvent(id, AggregateType, EventStockDeducted, StockDeducted{
			ProductID:  id,
			OrderID:    orderID,
			Quantity:   qty,
			DeductedAt: now,
		})
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
