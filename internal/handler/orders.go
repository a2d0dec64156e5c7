package handler

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/luxe-store/internal/domain/checkout"
	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/payment"
)

// IdempotencyKeyHeader lets clients retry checkout requests safely.
const IdempotencyKeyHeader = "Idempotency-Key"

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	method, err := payment.ParseMethod(req.PaymentMethod)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.checkout.PlaceOrder(r.Context(), checkout.Request{
		UserID:           identity(r).UserID,
		Items:            req.cartItems(),
		ShippingAddress:  req.ShippingAddress,
		PaymentMethod:    method,
		PaymentReference: req.PaymentIntentID,
		IdempotencyKey:   r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderEnvelope{Message: "Order created successfully", Order: newOrder(o)})
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.ListByUser(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersEnvelope{Orders: newOrders(list)})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if id := identity(r); o.UserID != id.UserID && !id.IsAdmin() {
		writeJSON(w, http.StatusForbidden, errorResponse{Message: "Not authorized to view this order"})
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Order orderResponse `json:"order"`
	}{newOrder(o)})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f order.Filter
	if s := q.Get("status"); s != "" {
		st, err := order.ParseStatus(s)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		f.Status = st
	}
	var err error
	if f.Page, err = queryInt(q, "page"); err != nil {
		h.fail(w, r, err)
		return
	}
	if f.Limit, err = queryInt(q, "limit"); err != nil {
		h.fail(w, r, err)
		return
	}

	list, page, err := h.orders.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ordersEnvelope{Orders: newOrders(list), Pagination: &page})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	u := order.StatusUpdate{TrackingNumber: req.TrackingNumber, Notes: req.Notes}
	raw := req.OrderStatus
	if raw == "" {
		raw = req.Status
	}
	if raw != "" {
		st, err := order.ParseStatus(raw)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		u.Status = st
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderEnvelope{Message: "Order status updated successfully", Order: newOrder(o)})
}

// queryInt parses an optional integer query parameter. Absent values are
// zero and take the filter default.
func queryInt(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("Invalid " + name + " parameter")
	}
	return n, nil
}
