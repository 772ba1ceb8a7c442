package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/ec-checkout/internal/domain/order"
	"github.com/example/ec-checkout/internal/model"
)

// CreateOrder checks out the cart of the user in the path.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in order.CreateOrderInput
	if err := decodeBody(r, &in); err != nil {
		h.respondErr(w, r, err)
		return
	}

	created, err := h.orders.CreateOrder(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, keyMsg, "Order created successfully", created)
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.GetOrders(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, keyMsg, "Orders fetched successfully", orders)
}

// GetOrder answers a missing order with 200 and null data.
func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, keyMsg, "Order fetched successfully", o)
}

func (h *Handlers) GetOrdersForUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.GetOrdersForUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, keyMsg, "Orders fetched successfully for the user", orders)
}

func (h *Handlers) GetOwnerOrders(w http.ResponseWriter, r *http.Request) {
	result, err := h.orders.GetOwnerOrders(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, keyMessage, "Owner orders fetched successfully", result)
}

type updateStatusRequest struct {
	ShipmentStatus model.ShipmentStatus `json:"shipmentStatus"`
}

func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}

	updated, err := h.orders.UpdateOrderStatus(r.Context(), mux.Vars(r)["id"], req.ShipmentStatus)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, keyMessage, "Order status updated successfully", updated)
}
