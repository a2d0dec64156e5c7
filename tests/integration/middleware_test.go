//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

const paymentMethodsPath = "/api/payments/payment-methods"

func TestRequestID(t *testing.T) {
	resp := doGet(t, "/livez")
	resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID header not present")
	}

	resp = do(t, http.MethodGet, "/livez", "", nil, "X-Request-ID", "checkout-trace-7")
	defer resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "checkout-trace-7" {
		t.Errorf("X-Request-ID: got %q, want %q", got, "checkout-trace-7")
	}
}

func TestCORS_Preflight(t *testing.T) {
	resp := do(t, http.MethodOptions, paymentMethodsPath, "", nil,
		"Origin", "http://shop.example.com",
		"Access-Control-Request-Method", "POST",
		"Access-Control-Request-Headers", "api_key, Idempotency-Key",
	)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNoContent)

	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
	allowed := strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers"))
	for _, h := range []string{"api_key", "idempotency-key"} {
		if !strings.Contains(allowed, h) {
			t.Errorf("Access-Control-Allow-Headers %q does not include %s", allowed, h)
		}
	}
}

func TestCORS_SimpleRequest(t *testing.T) {
	resp := do(t, http.MethodGet, paymentMethodsPath, "", nil, "Origin", "http://shop.example.com")
	defer resp.Body.Close()

	if resp.Header.Get("Access-Control-Allow-Origin") == "" {
		t.Error("Access-Control-Allow-Origin header not present")
	}
}

func TestRateLimit_Headers(t *testing.T) {
	resp := doGet(t, paymentMethodsPath)
	defer resp.Body.Close()

	for _, h := range []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"} {
		if resp.Header.Get(h) == "" {
			t.Errorf("%s header not present", h)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	resp := doGet(t, "/api/nowhere")
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)
}
