package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	intent  *Intent
	err     error
	block   bool
	lastReq IntentRequest
}

func (m *mockGateway) wait(ctx context.Context) error {
	if !m.block {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockGateway) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	m.lastReq = req
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.intent, m.err
}

func (m *mockGateway) RetrieveIntent(ctx context.Context, _ string) (*Intent, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.intent, m.err
}

func TestParseMethod(t *testing.T) {
	for in, want := range map[string]Method{
		"card":       MethodCard,
		"stripe":     MethodCard,
		" UPI ":      MethodUPI,
		"netbanking": MethodNetBanking,
		"wallet":     MethodWallet,
		"cod":        MethodCOD,
	} {
		got, err := ParseMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMethod("bitcoin")
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestCardAdapter_Settle(t *testing.T) {
	c := NewCardAdapter(&mockGateway{}, 0)

	s, err := c.Settle(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, Settlement{Reference: "pi_1", Paid: true}, s)

	s, err = c.Settle(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, s.Paid)
	assert.Empty(t, s.Reference)
}

func TestCardAdapter_Verify(t *testing.T) {
	t.Run("Succeeded", func(t *testing.T) {
		c := NewCardAdapter(&mockGateway{intent: &Intent{Reference: "pi_1", Status: IntentSucceeded, AmountMinor: 100}}, time.Second)
		intent, err := c.Verify(context.Background(), "pi_1")
		require.NoError(t, err)
		assert.Equal(t, int64(100), intent.AmountMinor)
	})

	t.Run("RequiresAction", func(t *testing.T) {
		c := NewCardAdapter(&mockGateway{intent: &Intent{Reference: "pi_1", Status: IntentRequiresAction}}, time.Second)
		_, err := c.Verify(context.Background(), "pi_1")
		require.ErrorIs(t, err, ErrPaymentNotCompleted)
	})

	t.Run("Timeout", func(t *testing.T) {
		c := NewCardAdapter(&mockGateway{block: true}, 10*time.Millisecond)
		_, err := c.Verify(context.Background(), "pi_1")
		require.ErrorIs(t, err, ErrGatewayUnavailable)
	})

	t.Run("Rejected", func(t *testing.T) {
		c := NewCardAdapter(&mockGateway{err: errors.Wrap(ErrGatewayRejected, "no such intent")}, time.Second)
		_, err := c.Verify(context.Background(), "pi_x")
		require.ErrorIs(t, err, ErrGatewayRejected)
	})
}

func TestCardAdapter_CreateIntent(t *testing.T) {
	gw := &mockGateway{intent: &Intent{Reference: "pi_1", ClientSecret: "secret", Status: IntentRequiresAction}}
	c := NewCardAdapter(gw, time.Second)

	intent, err := c.CreateIntent(context.Background(), IntentRequest{AmountMinor: 35400, Currency: "inr", IdempotencyKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "secret", intent.ClientSecret)
	assert.Equal(t, int64(35400), gw.lastReq.AmountMinor)
	assert.Equal(t, "k", gw.lastReq.IdempotencyKey)
}

func TestSimulatedAdapter(t *testing.T) {
	t.Run("GeneratesReference", func(t *testing.T) {
		s := NewSimulatedAdapter(MethodUPI, time.Millisecond, true)

		got, err := s.Settle(context.Background(), "")
		require.NoError(t, err)
		assert.True(t, got.Paid)
		assert.True(t, got.Simulated)
		assert.True(t, strings.HasPrefix(got.Reference, "sim_upi_"), got.Reference)
	})

	t.Run("UniqueReferences", func(t *testing.T) {
		s := NewSimulatedAdapter(MethodUPI, 0, true)

		seen := make(map[string]struct{}, 100)
		for range 100 {
			got, err := s.Settle(context.Background(), "")
			require.NoError(t, err)
			require.NotContains(t, seen, got.Reference)
			seen[got.Reference] = struct{}{}
		}
	})

	t.Run("KeepsReference", func(t *testing.T) {
		s := NewSimulatedAdapter(MethodWallet, time.Hour, true)
		got, err := s.Settle(context.Background(), "ext_1")
		require.NoError(t, err)
		assert.Equal(t, "ext_1", got.Reference)
	})

	t.Run("Cancelled", func(t *testing.T) {
		s := NewSimulatedAdapter(MethodNetBanking, time.Hour, true)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Settle(ctx, "")
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Disabled", func(t *testing.T) {
		s := NewSimulatedAdapter(MethodUPI, 0, false)
		_, err := s.Settle(context.Background(), "")
		require.ErrorIs(t, err, ErrMethodUnsupported)
	})
}

func TestAdapters(t *testing.T) {
	a := NewAdapters(CODAdapter{}, NewCardAdapter(&mockGateway{}, 0))

	ad, err := a.For(MethodCOD)
	require.NoError(t, err)
	s, err := ad.Settle(context.Background(), "ignored")
	require.NoError(t, err)
	assert.False(t, s.Paid)
	assert.Empty(t, s.Reference)

	_, err = a.For(MethodUPI)
	require.ErrorIs(t, err, ErrMethodUnsupported)

	assert.Len(t, Catalog(), 5)
}
