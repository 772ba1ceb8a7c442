package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/model"
	"github.com/example/ec-checkout/internal/validate"
)

var (
	ErrInvalidPaymentID = domain.InvalidArgument("Invalid payment ID")
	ErrPaymentNotFound  = domain.NotFound("Payment does not exist")
)

type CreateInput struct {
	Type string `json:"type" validate:"required,oneof=card cash wallet"`
}

type Service struct {
	store store.Store
	log   logrus.FieldLogger
}

func NewService(s store.Store, log logrus.FieldLogger) *Service {
	return &Service{store: s, log: log}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Payment, error) {
	if err := validate.Check(in); err != nil {
		return nil, err
	}

	p := &model.Payment{
		ID:        domain.NewID(),
		Type:      in.Type,
		Orders:    []string{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.RunInTx(ctx, func(tx store.Tx) error {
		return tx.InsertPayment(ctx, p)
	}); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"payment_id": p.ID, "type": p.Type}).Debug("payment created")
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Payment, error) {
	if !domain.ValidID(id) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPaymentID, id)
	}
	p, err := s.store.GetPayment(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPaymentNotFound
	}
	return p, err
}
