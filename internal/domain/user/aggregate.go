package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/auth"
	"github.com/example/ec-checkout/internal/domain"
	"github.com/example/ec-checkout/internal/infrastructure/store"
	"github.com/example/ec-checkout/internal/model"
	"github.com/example/ec-checkout/internal/validate"
)

const AggregateType = "User"

const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
)

var (
	ErrInvalidUserID  = domain.InvalidArgument("Invalid user ID")
	ErrUserNotFound   = domain.NotFound("User does not exist")
	ErrEmailTaken     = domain.InvalidArgument("Email is already registered")
	ErrPasswordLength = domain.InvalidArgument(auth.ErrPasswordTooShort.Error())
)

// RegisterInput carries a new account.
type RegisterInput struct {
	FirstName string          `json:"firstName" validate:"required"`
	LastName  string          `json:"lastName" validate:"required"`
	Email     string          `json:"email" validate:"required,email"`
	Password  string          `json:"password" validate:"required"`
	Mobile    string          `json:"mobile"`
	ImageURL  string          `json:"imageUrl"`
	Role      string          `json:"role" validate:"omitempty,oneof=customer seller"`
	Addresses []model.Address `json:"addresses" validate:"dive"`
}

// Service handles user domain operations
type Service struct {
	store  store.Store
	hasher *auth.Hasher
	log    logrus.FieldLogger
}

// NewService creates a new user service
func NewService(s store.Store, hasher *auth.Hasher, log logrus.FieldLogger) *Service {
	return &Service{store: s, hasher: hasher, log: log}
}

// Register creates a user together with the empty cart every user owns.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := validate.Check(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		return nil, ErrPasswordLength
	}
	if err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = RoleCustomer
	}

	now := time.Now().UTC()
	u := &model.User{
		ID:           domain.NewID(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Mobile:       in.Mobile,
		PasswordHash: hash,
		ImageURL:     in.ImageURL,
		Role:         role,
		Addresses:    append([]model.Address{}, in.Addresses...),
		Orders:       []string{},
		CreatedAt:    now,
	}
	c := &model.Cart{
		ID:         domain.NewID(),
		UserID:     u.ID,
		CartItems:  []model.LineItem{},
		TotalPrice: decimal.Zero,
	}
	u.CartID = c.ID

	err = s.store.RunInTx(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUserByEmail(ctx, u.Email); err == nil {
			return ErrEmailTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tx.InsertUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrEmailTaken
			}
			return err
		}
		if err := tx.InsertCart(ctx, c); err != nil {
			return err
		}

		event, err := store.NewEvent(u.ID, AggregateType, EventUserCreated, UserCreated{
			UserID:    u.ID,
			Email:     u.Email,
			Name:      u.FullName(),
			Role:      u.Role,
			CartID:    c.ID,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": u.Role}).Info("user registered")
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.User, error) {
	if !domain.ValidID(id) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUserID, id)
	}
	u, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}
