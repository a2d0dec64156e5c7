package payment

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// DefaultGatewayTimeout bounds every gateway round trip.
const DefaultGatewayTimeout = 10 * time.Second

// CardAdapter settles card payments through the gateway.
type CardAdapter struct {
	gw      Gateway
	timeout time.Duration
}

// NewCardAdapter wraps gw with a per-call timeout.
func NewCardAdapter(gw Gateway, timeout time.Duration) *CardAdapter {
	if timeout <= 0 {
		timeout = DefaultGatewayTimeout
	}
	return &CardAdapter{gw: gw, timeout: timeout}
}

// Method implements Adapter.
func (c *CardAdapter) Method() Method { return MethodCard }

// Settle trusts a reference that the client or a gateway webhook already
// confirmed. Without a reference the order stays pending.
func (c *CardAdapter) Settle(_ context.Context, reference string) (Settlement, error) {
	if reference == "" {
		return Settlement{}, nil
	}
	return Settlement{Reference: reference, Paid: true}, nil
}

// CreateIntent opens a payment intent for client-side authorization.
func (c *CardAdapter) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	intent, err := c.gw.CreateIntent(ctx, req)
	if err != nil {
		return nil, timeoutAsUnavailable(err)
	}
	return intent, nil
}

// Verify retrieves the intent and requires it to have succeeded.
func (c *CardAdapter) Verify(ctx context.Context, reference string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	intent, err := c.gw.RetrieveIntent(ctx, reference)
	if err != nil {
		return nil, timeoutAsUnavailable(err)
	}
	if intent.Status != IntentSucceeded {
		return intent, errors.Wrapf(ErrPaymentNotCompleted, "intent %s is %s", reference, intent.Status)
	}
	return intent, nil
}

func timeoutAsUnavailable(err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrGatewayUnavailable) {
		return errors.Wrap(ErrGatewayUnavailable, err.Error())
	}
	return err
}
