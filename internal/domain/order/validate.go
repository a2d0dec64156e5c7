package order

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultCountry is applied to addresses without a country.
const DefaultCountry = "India"

var (
	phonePattern      = regexp.MustCompile(`^[6-9]\d{9}$`)
	postalCodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// ValidationError reports malformed checkout input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// Normalize trims whitespace and applies the default country.
func (a ShippingAddress) Normalize() ShippingAddress {
	for _, f := range []*string{&a.Name, &a.Phone, &a.Street, &a.Area, &a.City, &a.District, &a.State, &a.PostalCode, &a.Country} {
		*f = strings.TrimSpace(*f)
	}
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	return a
}

// Validate checks that every field is present and well formed.
func (a ShippingAddress) Validate() error {
	required := []struct {
		field, value string
	}{
		{"shippingAddress.name", a.Name},
		{"shippingAddress.phone", a.Phone},
		{"shippingAddress.street", a.Street},
		{"shippingAddress.area", a.Area},
		{"shippingAddress.city", a.City},
		{"shippingAddress.district", a.District},
		{"shippingAddress.state", a.State},
		{"shippingAddress.pincode", a.PostalCode},
	}
	for _, r := range required {
		if r.value == "" {
			return invalid(r.field, "is required")
		}
	}
	if !phonePattern.MatchString(a.Phone) {
		return invalid("shippingAddress.phone", "must be a valid 10-digit mobile number")
	}
	if !postalCodePattern.MatchString(a.PostalCode) {
		return invalid("shippingAddress.pincode", "must be a valid 6-digit pincode")
	}
	return nil
}

// ValidateItems rejects an empty list or any incomplete line item.
func ValidateItems(items []LineItem) error {
	if len(items) == 0 {
		return invalid("items", "no order items")
	}
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case it.Product.ID() == "":
			return invalid(field+".product", "is required")
		case it.Quantity < 1:
			return invalid(field+".quantity", "must be at least 1")
		case it.UnitPrice.IsNegative():
			return invalid(field+".price", "must not be negative")
		}
	}
	return nil
}
