package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/luxe-store/internal/domain/payment"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestCanTransition(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusShipped, StatusOutForDelivery, StatusDelivered, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusProcessing}:       true,
		{StatusProcessing, StatusShipped}:       true,
		{StatusShipped, StatusOutForDelivery}:   true,
		{StatusOutForDelivery, StatusDelivered}: true,
		{StatusPending, StatusCancelled}:        true,
		{StatusProcessing, StatusCancelled}:     true,
		{StatusShipped, StatusCancelled}:        true,
		{StatusOutForDelivery, StatusCancelled}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestApply_DeliveredUnreachableFromPending(t *testing.T) {
	o := &Order{Status: StatusPending, PaymentMethod: payment.MethodCOD, PaymentStatus: PaymentPending}

	err := o.Apply(StatusUpdate{Status: StatusDelivered}, testNow)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
}

func TestApply_CODDeliveryMarksPaid(t *testing.T) {
	o := &Order{Status: StatusOutForDelivery, PaymentMethod: payment.MethodCOD, PaymentStatus: PaymentPending}

	require.NoError(t, o.Apply(StatusUpdate{Status: StatusDelivered}, testNow))
	assert.Equal(t, StatusDelivered, o.Status)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, testNow, o.UpdatedAt)
}

func TestApply_CardDeliveryKeepsPaymentStatus(t *testing.T) {
	o := &Order{Status: StatusOutForDelivery, PaymentMethod: payment.MethodCard, PaymentStatus: PaymentPending}

	require.NoError(t, o.Apply(StatusUpdate{Status: StatusDelivered}, testNow))
	assert.Equal(t, PaymentPending, o.PaymentStatus)
}

func TestApply_ShippedSetsEstimate(t *testing.T) {
	o := &Order{Status: StatusProcessing}
	require.NoError(t, o.Apply(StatusUpdate{Status: StatusShipped}, testNow))
	require.NotNil(t, o.EstimatedDelivery)
	assert.Equal(t, testNow.Add(72*time.Hour), *o.EstimatedDelivery)

	preset := testNow.Add(time.Hour)
	o = &Order{Status: StatusProcessing, EstimatedDelivery: &preset}
	require.NoError(t, o.Apply(StatusUpdate{Status: StatusShipped}, testNow))
	assert.Equal(t, preset, *o.EstimatedDelivery)
}

func TestApply_Metadata(t *testing.T) {
	tracking, notes := "TRK123", "left at door"
	o := &Order{Status: StatusShipped}

	require.NoError(t, o.Apply(StatusUpdate{TrackingNumber: &tracking, Notes: &notes}, testNow))
	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, "TRK123", o.TrackingNumber)
	assert.Equal(t, "left at door", o.Notes)

	var vErr *ValidationError
	require.ErrorAs(t, o.Apply(StatusUpdate{}, testNow), &vErr)
}

func TestApply_TerminalAndSameState(t *testing.T) {
	o := &Order{Status: StatusCancelled}
	require.ErrorIs(t, o.Apply(StatusUpdate{Status: StatusProcessing}, testNow), ErrInvalidTransition)

	o = &Order{Status: StatusProcessing}
	require.ErrorIs(t, o.Apply(StatusUpdate{Status: StatusProcessing}, testNow), ErrInvalidTransition)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, StatusOutForDelivery, s)

	_, err = ParseStatus("lost")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}
