package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/model"
	"github.com/example/ec-checkout/internal/validate"
)

const AggregateType = "Product"

var (
	ErrInvalidProductID = domain.InvalidArgument("Invalid product ID")
	ErrProductNotFound  = domain.NotFound("Product does not exist")
	ErrOwnerNotFound    = domain.NotFound("Owner does not exist")
	ErrInvalidPrice     = domain.InvalidArgument("price must be positive")
)

// CreateInput carries a new product listing.
type CreateInput struct {
	OwnerID          string          `json:"ownerId" validate:"required,objectid"`
	Name             string          `json:"name" validate:"required"`
	Description      string          `json:"description" validate:"required"`
	Price            decimal.Decimal `json:"price"`
	AvailableInStock int             `json:"availableInStock" validate:"gte=0"`
	ImageURL         string          `json:"imageUrl" validate:"required"`
	CategoryID       string          `json:"categoryId"`
}

type Service struct {
	store store.Store
	log   logrus.FieldLogger
}

func NewService(s store.Store, log logrus.FieldLogger) *Service {
	return &Service{store: s, log: log}
}

// Create lists a product. Its owner name is the creating user's full name,
// which is what cart lines and seller order lookups match on.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Product, error) {
	if err := validate.Check(in); err != nil {
		return nil, err
	}
	if !in.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}

	var created *model.Product
	err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		owner, err := tx.GetUser(ctx, in.OwnerID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrOwnerNotFound
		}
		if err != nil {
			return err
		}

		created = &model.Product{
			ID:               domain.NewID(),
			Name:             in.Name,
			Description:      in.Description,
			Price:            in.Price,
			AvailableInStock: in.AvailableInStock,
			ImageURL:         in.ImageURL,
			Owner:            owner.FullName(),
			CategoryID:       in.CategoryID,
			CartItems:        []string{},
			CreatedAt:        time.Now().UTC(),
		}
		if err := tx.InsertProduct(ctx, created); err != nil {
			return err
		}

		event, err := store.NewEvent(created.ID, AggregateType, EventProductCreated, ProductCreated{
			ProductID:        created.ID,
			Name:             created.Name,
			Owner:            created.Owner,
			Price:            created.Price,
			AvailableInStock: created.AvailableInStock,
			CreatedAt:        created.CreatedAt,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"product_id": created.ID, "owner": created.Owner}).Info("product created")
	return created, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Product, error) {
	if !domain.ValidID(id) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProductID, id)
	}
	p, err := s.store.GetProduct(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}
