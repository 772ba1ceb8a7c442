package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/domain/cart"
	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/domain/payment"
	"github.com/example/ec-checkout/internal/domain/product"
	"github.com/example/ec-checkout/internal/domain/user"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the domain services the handlers call.
type Services struct {
	Carts    *cart.Service
	Orders   *order.Service
	Users    *user.Service
	Products *product.Service
	Payments *payment.Service
}

type Handlers struct {
	carts    *cart.Service
	orders   *order.Service
	users    *user.Service
	products *product.Service
	payments *payment.Service
	health   Pinger
	log      logrus.FieldLogger
}

func NewHandlers(svc Services, health Pinger, log logrus.FieldLogger) *Handlers {
	return &Handlers{
		carts:    svc.Carts,
		orders:   svc.Orders,
		users:    svc.Users,
		products: svc.Products,
		payments: svc.Payments,
		health:   health,
		log:      log,
	}
}

// Health answers 200 while the store is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		h.log.WithError(err).Warn("health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
