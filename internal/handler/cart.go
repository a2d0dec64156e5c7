package handler

import (
	"net/http"
	"time"

	"github.com/xenking/luxe-store/internal/domain/cart"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Load(r.Context(), cart.OwnerKey(identity(r).UserID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) saveCart(w http.ResponseWriter, r *http.Request) {
	var c cart.Cart
	if err := h.decode(w, r, &c); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := c.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	c.OwnerKey = cart.OwnerKey(identity(r).UserID)
	c.UpdatedAt = time.Now().UTC()

	if err := h.carts.Save(r.Context(), &c); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, &c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), cart.OwnerKey(identity(r).UserID)); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
