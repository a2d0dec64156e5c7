package order

import (
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/luxe-store/internal/domain/payment"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// DeliveryEstimate is added to the shipping time when no estimate exists.
const DeliveryEstimate = 3 * 24 * time.Hour

// next holds the single forward step out of each non-terminal status.
var next = map[Status]Status{
	StatusPending:        StatusProcessing,
	StatusProcessing:     StatusShipped,
	StatusShipped:        StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusProcessing, StatusShipped, StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", invalid("status", "unknown status "+s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	return next[from] == to
}

// StatusUpdate is an administrative change. An empty Status leaves the
// lifecycle untouched and only applies tracking metadata.
type StatusUpdate struct {
	Status         Status
	TrackingNumber *string
	Notes          *string
}

// Apply performs u on o at time now. Entering delivered on a
// cash-on-delivery order marks it paid; entering shipped sets the delivery
// estimate when it is missing.
func (o *Order) Apply(u StatusUpdate, now time.Time) error {
	if u.Status == "" && u.TrackingNumber == nil && u.Notes == nil {
		return invalid("status", "nothing to update")
	}

	if u.Status != "" {
		if !CanTransition(o.Status, u.Status) {
			return errors.Wrapf(ErrInvalidTransition, "%s -> %s", o.Status, u.Status)
		}
		o.Status = u.Status

		switch u.Status {
		case StatusShipped:
			if o.EstimatedDelivery == nil {
				eta := now.Add(DeliveryEstimate)
				o.EstimatedDelivery = &eta
			}
		case StatusDelivered:
			if o.PaymentMethod == payment.MethodCOD {
				o.PaymentStatus = PaymentPaid
			}
		}
	}

	if u.TrackingNumber != nil {
		o.TrackingNumber = *u.TrackingNumber
	}
	if u.Notes != nil {
		o.Notes = *u.Notes
	}
	o.UpdatedAt = now
	return nil
}
