package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/ec-checkout/internal/domain/payment"
	"github.com/example/ec-checkout/internal/domain/product"
	"github.com/example/ec-checkout/internal/domain/user"
)

// Register creates a user together with an empty cart.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in user.RegisterInput
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	u, err := h.users.Register(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, keyMessage, "Thanks for registering", u)
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in product.CreateInput
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	p, err := h.products.Create(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, keyMessage, "Product created successfully", p)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, keyMessage, "Product fetched successfully", p)
}

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var in payment.CreateInput
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	p, err := h.payments.Create(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, keyMessage, "Payment created successfully", p)
}
