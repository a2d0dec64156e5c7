// Package gateway is an HTTP client for a Stripe-style payment intents API.
package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/luxe-store/internal/domain/payment"
)

// DefaultURL is the public Stripe API endpoint.
const DefaultURL = "https://api.stripe.com"

const maxBodySize = 1 << 20

var _ payment.Gateway = (*Client)(nil)

// Config configures the gateway client.
type Config struct {
	URL       string
	SecretKey string
	// HTTPClient overrides the instrumented default client.
	HTTPClient *http.Client
	// TracerProvider and MeterProvider instrument the default client.
	// Global providers are used when nil.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Client implements payment.Gateway over HTTPS.
type Client struct {
	base   *url.URL
	secret string
	http   *http.Client
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	raw := cfg.URL
	if raw == "" {
		raw = DefaultURL
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse gateway url")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		var opts []otelhttp.Option
		if cfg.TracerProvider != nil {
			opts = append(opts, otelhttp.WithTracerProvider(cfg.TracerProvider))
		}
		if cfg.MeterProvider != nil {
			opts = append(opts, otelhttp.WithMeterProvider(cfg.MeterProvider))
		}
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport, opts...)}
	}
	return &Client{base: base, secret: cfg.SecretKey, http: hc}, nil
}

// CreateIntent implements payment.Gateway.
func (c *Client) CreateIntent(ctx context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")

	keys := make([]string, 0, len(req.Metadata))
	for k := range req.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		form.Set("metadata["+k+"]", req.Metadata[k])
	}

	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/v1/payment_intents"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	hr.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IdempotencyKey != "" {
		hr.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	return c.do(hr)
}

// RetrieveIntent implements payment.Gateway.
func (c *Client) RetrieveIntent(ctx context.Context, reference string) (*payment.Intent, error) {
	if reference == "" {
		return nil, errors.Wrap(payment.ErrGatewayRejected, "empty intent reference")
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/v1/payment_intents/"+url.PathEscape(reference)), http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return c.do(hr)
}

func (c *Client) endpoint(path string) string {
	return c.base.String() + path
}

func (c *Client) do(req *http.Request) (*payment.Intent, error) {
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(payment.ErrGatewayUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(payment.ErrGatewayUnavailable, "read body: "+err.Error())
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, errors.Wrapf(payment.ErrGatewayUnavailable, "status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		msg := decodeErrorMessage(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, errors.Wrap(payment.ErrGatewayRejected, msg)
	}

	intent, err := decodeIntent(body)
	if err != nil {
		return nil, errors.Wrap(payment.ErrGatewayUnavailable, "decode intent: "+err.Error())
	}
	return intent, nil
}
