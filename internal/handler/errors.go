package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/luxe-store/internal/domain/cart"
	"github.com/xenking/luxe-store/internal/domain/checkout"
	"github.com/xenking/luxe-store/internal/domain/inventory"
	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/payment"
	"github.com/xenking/luxe-store/internal/domain/pricing"
	"github.com/xenking/luxe-store/internal/domain/product"
)

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// requestError is a malformed request detected before reaching the domain.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error { return &requestError{msg: msg} }

// classify maps a domain error to a status code and a client-safe message.
func classify(err error) (int, string) {
	var (
		reqErr   *requestError
		valErr   *order.ValidationError
		lineErr  *pricing.InvalidLineItemError
		missing  *product.NotFoundError
		stockErr *inventory.InsufficientStockError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.msg
	case errors.As(err, &valErr):
		return http.StatusBadRequest, valErr.Error()
	case errors.As(err, &lineErr):
		return http.StatusBadRequest, lineErr.Error()
	case errors.Is(err, pricing.ErrNoItems):
		return http.StatusBadRequest, "No order items"
	case errors.Is(err, cart.ErrInvalidItem):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, payment.ErrUnknownMethod):
		return http.StatusBadRequest, "Invalid payment method"
	case errors.Is(err, payment.ErrMethodUnsupported):
		return http.StatusBadRequest, "Payment method not available"
	case errors.Is(err, payment.ErrPaymentNotCompleted):
		return http.StatusBadRequest, "Payment not completed"
	case errors.Is(err, payment.ErrGatewayRejected):
		return http.StatusBadRequest, "Payment was rejected"
	case errors.As(err, &missing):
		return http.StatusNotFound, missing.Error()
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, checkout.ErrQuoteNotFound):
		return http.StatusNotFound, "Payment intent not found"
	case errors.Is(err, order.ErrNotFound), errors.Is(err, order.ErrInvalidReference):
		return http.StatusNotFound, "Order not found"
	case errors.Is(err, checkout.ErrQuoteOwner):
		return http.StatusForbidden, "Not authorized for this payment"
	case errors.As(err, &stockErr):
		return http.StatusConflict, stockErr.Error()
	case errors.Is(err, checkout.ErrAmountMismatch):
		return http.StatusConflict, "Payment amount does not match order total"
	case errors.Is(err, order.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "Invalid status transition"
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return http.StatusConflict, "Checkout with this idempotency key is in progress"
	case errors.Is(err, order.ErrDuplicatePaymentReference):
		return http.StatusConflict, "Payment reference already used"
	case errors.Is(err, checkout.ErrIdempotencyKeyReused):
		return http.StatusUnprocessableEntity, "Idempotency key reused with a different request"
	case errors.Is(err, payment.ErrGatewayUnavailable):
		return http.StatusBadGateway, "Payment gateway unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Request timed out"
	default:
		return http.StatusInternalServerError, "Server error"
	}
}

// fail writes the error response for err.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := classify(err)

	lg := zctx.From(r.Context())
	if code >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Int("status", code), zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.Int("status", code), zap.Error(err))
	}

	resp := errorResponse{Message: msg}
	if h.debug {
		resp.Error = err.Error()
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return badRequest("Request body too large")
		}
		return badRequest("Malformed JSON body")
	}
	return nil
}
