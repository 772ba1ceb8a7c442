package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/ec-checkout/internal/domain/cart"
)

// GetCart returns the user's cart joined with product details. A user
// without a cart is answered with 403.
func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	view, err := h.carts.Fetch(r.Context(), userID)
	if errors.Is(err, cart.ErrCartNotFound) {
		respondJSONError(w, err.Error(), http.StatusForbidden)
		return
	}
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, keyMessage, "Cart successfully Fetched", view)
}

type addItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}

	result, err := h.carts.AddItem(r.Context(), vars["userId"], vars["productId"], req.Quantity)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if !result.Accepted {
		respondSoft(w, "Required quantity more than the available", map[string]any{
			"available_quantity": result.Available,
		})
		return
	}
	respondOK(w, http.StatusOK, keyMessage, "Item Added to Cart Successfully", result.Item)
}

// RemoveOneUnit decrements the product's line by one unit.
func (h *Handlers) RemoveOneUnit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.carts.RemoveOneUnit(r.Context(), vars["userId"], vars["productId"])
	h.respondRemove(w, r, result, err, "Quantity Decreased by 1 for the Item in Cart")
}

// RemoveItem drops the product's line whatever its quantity.
func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.carts.RemoveItem(r.Context(), vars["userId"], vars["productId"])
	h.respondRemove(w, r, result, err, "")
}

func (h *Handlers) respondRemove(w http.ResponseWriter, r *http.Request, result *cart.RemoveResult, err error, decreased string) {
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if !result.Found {
		respondSoft(w, "Item not found in the cart", nil)
		return
	}
	message := "Item Removed from Cart Successfully"
	if !result.Removed {
		message = decreased
	}
	respondOK(w, http.StatusOK, keyMessage, message, result.Item)
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	found, err := h.carts.Clear(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if !found {
		respondSoft(w, "Cart not found for the user", nil)
		return
	}
	respondOK(w, http.StatusOK, keyMessage, "Cart Cleared Successfully", struct{}{})
}
