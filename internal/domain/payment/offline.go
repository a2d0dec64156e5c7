package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CODAdapter settles cash-on-delivery orders: nothing is collected up front.
type CODAdapter struct{}

// Method implements Adapter.
func (CODAdapter) Method() Method { return MethodCOD }

// Settle implements Adapter. The payment stays pending until delivery.
func (CODAdapter) Settle(context.Context, string) (Settlement, error) {
	return Settlement{}, nil
}

// SimulatedAdapter stands in for UPI, net banking and wallets, which have no
// live integration. It confirms after a fixed delay with a synthetic
// reference.
type SimulatedAdapter struct {
	method  Method
	delay   time.Duration
	enabled bool
}

// NewSimulatedAdapter returns a placeholder adapter for method. When enabled
// is false every settlement fails with ErrMethodUnsupported.
func NewSimulatedAdapter(method Method, delay time.Duration, enabled bool) *SimulatedAdapter {
	return &SimulatedAdapter{method: method, delay: delay, enabled: enabled}
}

// Method implements Adapter.
func (s *SimulatedAdapter) Method() Method { return s.method }

// Settle implements Adapter.
func (s *SimulatedAdapter) Settle(ctx context.Context, reference string) (Settlement, error) {
	if !s.enabled {
		return Settlement{}, fmt.Errorf("%s: %w", s.method, ErrMethodUnsupported)
	}

	if reference == "" {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Settlement{}, ctx.Err()
		case <-timer.C:
		}
		reference = fmt.Sprintf("sim_%s_%s", s.method, uuid.NewString())
	}

	zctx.From(ctx).Warn("Simulated payment confirmation",
		zap.String("method", string(s.method)),
		zap.String("reference", reference),
	)
	return Settlement{Reference: reference, Paid: true, Simulated: true}, nil
}
