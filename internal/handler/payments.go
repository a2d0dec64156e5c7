package handler

import (
	"net/http"

	"github.com/xenking/luxe-store/internal/domain/checkout"
	"github.com/xenking/luxe-store/internal/domain/payment"
)

func (h *Handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.checkout.CreatePaymentIntent(r.Context(), checkout.Request{
		UserID:          identity(r).UserID,
		Items:           req.cartItems(),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   payment.MethodCard,
		IdempotencyKey:  r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, intentResponse{
		ClientSecret:    res.ClientSecret,
		PaymentIntentID: res.Reference,
		Amount:          res.Quote.Breakdown.Total.InexactFloat64(),
		Currency:        res.Quote.Currency,
		Breakdown:       newBreakdown(res.Quote.Breakdown),
	})
}

func (h *Handler) confirmPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.checkout.ConfirmPayment(r.Context(), checkout.ConfirmRequest{
		UserID:         identity(r).UserID,
		Reference:      req.PaymentIntentID,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderEnvelope{Message: "Payment confirmed and order created", Order: newOrder(o)})
}

func (h *Handler) createCODOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	o, err := h.checkout.PlaceCODOrder(r.Context(), checkout.Request{
		UserID:          identity(r).UserID,
		Items:           req.cartItems(),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   payment.MethodCOD,
		IdempotencyKey:  r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderEnvelope{Message: "COD order created successfully", Order: newOrder(o)})
}

func (h *Handler) paymentMethods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		PaymentMethods []payment.Info `json:"paymentMethods"`
	}{payment.Catalog()})
}
