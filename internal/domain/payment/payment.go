// Package payment models payment methods and the boundary to the external
// payment gateway.
package payment

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// Method enumerates the accepted payment methods.
type Method string

const (
	MethodCard       Method = "card"
	MethodUPI        Method = "upi"
	MethodNetBanking Method = "netbanking"
	MethodWallet     Method = "wallet"
	MethodCOD        Method = "cod"
)

// ParseMethod validates a client-supplied method. "stripe" is accepted as a
// legacy alias for card.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodCard, MethodUPI, MethodNetBanking, MethodWallet, MethodCOD:
		return m, nil
	case "stripe":
		return MethodCard, nil
	default:
		return "", errors.Wrapf(ErrUnknownMethod, "%q", s)
	}
}

var (
	// ErrUnknownMethod is returned for a method outside the enum.
	ErrUnknownMethod = errors.New("unknown payment method")
	// ErrMethodUnsupported is returned for a method that has no live
	// integration and simulation is disabled.
	ErrMethodUnsupported = errors.New("payment method not supported")
	// ErrGatewayUnavailable indicates a transport failure, timeout, or 5xx
	// from the gateway.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected indicates the gateway refused the request.
	ErrGatewayRejected = errors.New("payment gateway rejected request")
	// ErrPaymentNotCompleted indicates an intent that has not succeeded.
	ErrPaymentNotCompleted = errors.New("payment not completed")
)

// IntentStatus is the gateway-side state of a payment intent.
type IntentStatus string

const (
	IntentRequiresAction IntentStatus = "requires_action"
	IntentSucceeded      IntentStatus = "succeeded"
	IntentFailed         IntentStatus = "failed"
)

// IntentRequest asks the gateway to create a payment intent.
type IntentRequest struct {
	// AmountMinor is the amount in the smallest currency unit.
	AmountMinor    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the gateway record of an authorization attempt.
type Intent struct {
	Reference    string
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Status       IntentStatus
}

// Gateway is the external payment provider contract.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, reference string) (*Intent, error)
}

// Settlement is the payment outcome recorded on a new order.
type Settlement struct {
	// Reference is the external payment reference, empty when none exists.
	Reference string
	// Paid reports whether the payment is already collected.
	Paid bool
	// Simulated marks placeholder confirmations without a real provider.
	Simulated bool
}

// Adapter settles payment for one method at order placement time.
type Adapter interface {
	Method() Method
	Settle(ctx context.Context, reference string) (Settlement, error)
}

// Adapters indexes adapters by method.
type Adapters map[Method]Adapter

// NewAdapters builds an index from the given adapters.
func NewAdapters(list ...Adapter) Adapters {
	out := make(Adapters, len(list))
	for _, a := range list {
		out[a.Method()] = a
	}
	return out
}

// For returns the adapter registered for m.
func (a Adapters) For(m Method) (Adapter, error) {
	ad, ok := a[m]
	if !ok {
		return nil, errors.Wrapf(ErrMethodUnsupported, "%s", m)
	}
	return ad, nil
}
