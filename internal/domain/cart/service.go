package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/domain/inventory"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/model"
)

var (
	ErrInvalidUserID    = domain.InvalidArgument("Invalid user ID")
	ErrInvalidProductID = domain.InvalidArgument("Invalid product ID")
	ErrInvalidQuantity  = domain.InvalidArgument("quantity must be at least 1")
	ErrUserNotFound     = domain.NotFound("User does not exist")
	ErrProductNotFound  = domain.NotFound("Product does not exist")
	// ErrCartNotFound is returned by Fetch when a user has no cart document.
	ErrCartNotFound = domain.NotFound("Invalid User")
	// ErrNoCart is returned by the mutating operations for the same case.
	ErrNoCart = domain.NotFound("Cart not found for the user")
)

// ItemView is a line item joined with the product's current details.
type ItemView struct {
	model.LineItem
	AverageRating float64 `json:"averageRating"`
	ProductName   string  `json:"productName"`
	ProductImage  string  `json:"productImage"`
}

// View is a cart as returned to its owner.
type View struct {
	ID         string          `json:"_id"`
	UserID     string          `json:"userId"`
	CartItems  []ItemView      `json:"cartItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	TotalItems int             `json:"totalItems"`
}

// AddResult reports the outcome of AddItem. When Accepted is false the
// cart is unchanged and Available holds the product's current stock.
type AddResult struct {
	Item      *model.LineItem
	Accepted  bool
	Available int
}

// RemoveResult reports the outcome of a removal. Found is false when the
// cart holds no line for the product. Removed is true when the whole line
// was dropped rather than decremented.
type RemoveResult struct {
	Item    *model.LineItem
	Found   bool
	Removed bool
}

type Service struct {
	store store.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(s store.Store, log logrus.FieldLogger) *Service {
	return &Service{store: s, log: log, now: time.Now}
}

func checkIDs(userID, productID string) error {
	if !domain.ValidID(userID) {
		return fmt.Errorf("%w: %s", ErrInvalidUserID, userID)
	}
	if !domain.ValidID(productID) {
		return fmt.Errorf("%w: %s", ErrInvalidProductID, productID)
	}
	return nil
}

func notFound(err, kind error) error {
	if errors.Is(err, store.ErrNotFound) {
		return kind
	}
	return err
}

// Fetch returns the user's cart with every line joined to its product. A
// line whose product no longer exists fails the whole call.
func (s *Service) Fetch(ctx context.Context, userID string) (*View, error) {
	if !domain.ValidID(userID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUserID, userID)
	}

	c, err := s.store.GetCartByUser(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrCartNotFound)
	}

	view := &View{
		ID:         c.ID,
		UserID:     c.UserID,
		CartItems:  make([]ItemView, 0, len(c.CartItems)),
		TotalPrice: c.TotalPrice,
		TotalItems: c.TotalItems,
	}
	for _, item := range c.CartItems {
		p, err := s.store.GetProduct(ctx, item.ProductID)
		if err != nil {
			s.log.WithFields(logrus.Fields{"user_id": userID, "product_id": item.ProductID}).
				WithError(err).Warn("cart line references a missing product")
			return nil, notFound(err, ErrProductNotFound)
		}
		view.CartItems = append(view.CartItems, ItemView{
			LineItem:      item,
			AverageRating: p.AverageRating,
			ProductName:   p.Name,
			ProductImage:  p.ImageURL,
		})
	}
	return view, nil
}

// AddItem adds quantity units of a product to the user's cart. Stock is
// checked but not taken. Exceeding it is a soft failure, not an error.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*AddResult, error) {
	if err := checkIDs(userID, productID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var result *AddResult
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		p, err := tx.GetProduct(ctx, productID)
		if err != nil {
			return notFound(err, ErrProductNotFound)
		}
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return notFound(err, ErrUserNotFound)
		}
		c, err := tx.LockCart(ctx, userID)
		if err != nil {
			return notFound(err, ErrNoCart)
		}

		var item model.LineItem
		if i := findLine(c, productID); i >= 0 {
			total := c.CartItems[i].Quantity + quantity
			if !inventory.Available(p, total) {
				result = &AddResult{Available: p.AvailableInStock}
				return nil
			}
			c.CartItems[i].Quantity = total
			c.CartItems[i].ItemTotalPrice = lineTotal(c.CartItems[i].Price, total)
			item = c.CartItems[i]
		} else {
			if !inventory.Available(p, quantity) {
				result = &AddResult{Available: p.AvailableInStock}
				return nil
			}
			item = model.LineItem{
				ID:             domain.NewID(),
				ProductID:      p.ID,
				Price:          p.Price,
				Quantity:       quantity,
				ItemTotalPrice: lineTotal(p.Price, quantity),
				OwnerName:      p.Owner,
			}
			c.CartItems = append(c.CartItems, item)
		}
		Recalculate(c)

		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		if err := tx.AddCartRef(ctx, p.ID, item.ID); err != nil {
			return err
		}

		event, err := store.NewEvent(c.ID, AggregateType, EventItemAdded, ItemAddedToCart{
			CartID:    c.ID,
			UserID:    userID,
			ItemID:    item.ID,
			ProductID: p.ID,
			Quantity:  quantity,
			Price:     item.Price,
			AddedAt:   s.now().UTC(),
		})
		if err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, event); err != nil {
			return err
		}

		result = &AddResult{Item: &item, Accepted: true, Available: p.AvailableInStock}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
		"accepted":   result.Accepted,
	}).Debug("add item to cart")
	return result, nil
}

// RemoveOneUnit takes one unit of a product out of the cart, dropping the
// line when its quantity reaches zero.
func (s *Service) RemoveOneUnit(ctx context.Context, userID, productID string) (*RemoveResult, error) {
	return s.remove(ctx, userID, productID, false)
}

// RemoveItem drops the product's line regardless of its quantity.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*RemoveResult, error) {
	return s.remove(ctx, userID, productID, true)
}

func (s *Service) remove(ctx context.Context, userID, productID string, whole bool) (*RemoveResult, error) {
	if err := checkIDs(userID, productID); err != nil {
		return nil, err
	}

	result := &RemoveResult{}
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetProduct(ctx, productID); err != nil {
			return notFound(err, ErrProductNotFound)
		}
		c, err := tx.LockCart(ctx, userID)
		if err != nil {
			return notFound(err, ErrNoCart)
		}

		i := findLine(c, productID)
		if i < 0 {
			return nil
		}
		result.Found = true

		var (
			item      model.LineItem
			eventType string
			data      any
		)
		now := s.now().UTC()
		if whole || c.CartItems[i].Quantity <= 1 {
			item = removeLine(c, i)
			result.Removed = true
			if err := tx.RemoveCartRefs(ctx, []string{item.ID}); err != nil {
				return err
			}
			eventType = EventItemRemoved
			data = ItemRemovedFromCart{CartID: c.ID, UserID: userID, ItemID: item.ID, ProductID: productID, RemovedAt: now}
		} else {
			c.CartItems[i].Quantity--
			c.CartItems[i].ItemTotalPrice = lineTotal(c.CartItems[i].Price, c.CartItems[i].Quantity)
			item = c.CartItems[i]
			eventType = EventItemDecreased
			data = ItemQuantityDecreased{
				CartID: c.ID, UserID: userID, ItemID: item.ID, ProductID: productID,
				Quantity: item.Quantity, DecreasedAt: now,
			}
		}
		Recalculate(c)
		result.Item = &item

		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		event, err := store.NewEvent(c.ID, AggregateType, eventType, data)
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Clear empties the user's cart. It reports false when the user has no cart.
func (s *Service) Clear(ctx context.Context, userID string) (bool, error) {
	if !domain.ValidID(userID) {
		return false, fmt.Errorf("%w: %s", ErrInvalidUserID, userID)
	}

	found := false
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		c, err := tx.LockCart(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		if err := tx.RemoveCartRefs(ctx, c.ItemIDs()); err != nil {
			return err
		}
		Reset(c)
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}

		event, err := store.NewEvent(c.ID, AggregateType, EventCartCleared, CartCleared{
			CartID:    c.ID,
			UserID:    userID,
			ClearedAt: s.now().UTC(),
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return false, err
	}

	if found {
		s.log.WithField("user_id", userID).Info("cart cleared")
	}
	return found, nil
}
