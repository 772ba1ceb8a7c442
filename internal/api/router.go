package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/api/middleware"
)

// RouterOptions carries the optional pieces of the router.
type RouterOptions struct {
	// Live serves the websocket channel at /ws when set.
	Live http.Handler
	// Limiter enables per-IP rate limiting when set.
	Limiter *middleware.Limiter
}

func NewRouter(handlers *Handlers, log logrus.FieldLogger, opts RouterOptions) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", handlers.Health).Methods(http.MethodGet)
	if opts.Live != nil {
		r.Handle("/ws", opts.Live).Methods(http.MethodGet)
	}

	r.HandleFunc("/api/register", handlers.Register).Methods(http.MethodPost)

	// Products and payments
	r.HandleFunc("/products", handlers.CreateProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", handlers.GetProduct).Methods(http.MethodGet)
	r.HandleFunc("/payments", handlers.CreatePayment).Methods(http.MethodPost)

	// Cart
	r.HandleFunc("/cart/{id}", handlers.GetCart).Methods(http.MethodGet)
	r.HandleFunc("/cart/{userId}", handlers.ClearCart).Methods(http.MethodDelete)
	r.HandleFunc("/cart/{userId}/{productId}", handlers.AddItem).Methods(http.MethodPost)
	r.HandleFunc("/cart/{userId}/{productId}", handlers.RemoveOneUnit).Methods(http.MethodDelete)
	r.HandleFunc("/cart/{userId}/{productId}/all", handlers.RemoveItem).Methods(http.MethodDelete)

	// Orders
	r.HandleFunc("/orders", handlers.GetOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders/user/{id}", handlers.GetOrdersForUser).Methods(http.MethodGet)
	r.HandleFunc("/orders/owner/{id}", handlers.GetOwnerOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", handlers.GetOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", handlers.CreateOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}", handlers.UpdateOrderStatus).Methods(http.MethodPatch)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondJSONError(w, "Route not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondJSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	var h http.Handler = r
	if opts.Limiter != nil {
		h = middleware.RateLimit(opts.Limiter)(h)
	}
	h = middleware.Recover(log)(h)
	h = middleware.Logger(log)(h)
	return middleware.RequestID(h)
}
