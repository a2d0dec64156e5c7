package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
)

// Routes returns the API router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(nameSpan, h.authenticate)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Message: "Method not allowed"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/payments/payment-methods", h.paymentMethods)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/orders", h.createOrder)
			r.Get("/orders/my-orders", h.myOrders)
			r.Get("/orders/{id}", h.getOrder)

			r.Post("/payments/create-payment-intent", h.createPaymentIntent)
			r.Post("/payments/confirm-payment-intent", h.confirmPaymentIntent)
			r.Post("/payments/cod-order", h.createCODOrder)

			r.Get("/cart", h.getCart)
			r.Put("/cart", h.saveCart)
			r.Delete("/cart", h.clearCart)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)

			r.Get("/orders", h.listOrders)
			r.Put("/orders/{id}/status", h.updateOrderStatus)
		})
	})
	return r
}

// nameSpan renames the request span after routing so traces group by
// route pattern instead of raw path.
func nameSpan(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		rc := chi.RouteContext(r.Context())
		if rc == nil {
			return
		}
		if pattern := rc.RoutePattern(); pattern != "" {
			trace.SpanFromContext(r.Context()).SetName(r.Method + " " + pattern)
		}
	})
}
