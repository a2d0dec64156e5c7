package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/luxe-store/internal/domain/checkout"
	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/pricing"
)

type itemRequest struct {
	Product   string           `json:"product"`
	ProductID string           `json:"productId"`
	Title     string           `json:"title"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
	Size      string           `json:"size"`
	Color     string           `json:"color"`
}

type checkoutRequest struct {
	Items           []itemRequest         `json:"items"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	PaymentIntentID string                `json:"paymentIntentId"`
}

func (c checkoutRequest) cartItems() []checkout.CartItem {
	out := make([]checkout.CartItem, len(c.Items))
	for i, it := range c.Items {
		id := it.Product
		if id == "" {
			id = it.ProductID
		}
		out[i] = checkout.CartItem{
			ProductID: id,
			Title:     it.Title,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Size:      it.Size,
			Color:     it.Color,
		}
	}
	return out
}

type confirmRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

type statusRequest struct {
	OrderStatus    string  `json:"orderStatus"`
	Status         string  `json:"status"`
	TrackingNumber *string `json:"trackingNumber"`
	Notes          *string `json:"notes"`
}

type breakdownResponse struct {
	Subtotal     float64 `json:"subtotal"`
	Tax          float64 `json:"tax"`
	ShippingCost float64 `json:"shippingCost"`
	Total        float64 `json:"total"`
}

func newBreakdown(b pricing.Breakdown) breakdownResponse {
	return breakdownResponse{
		Subtotal:     b.Subtotal.InexactFloat64(),
		Tax:          b.Tax.InexactFloat64(),
		ShippingCost: b.Shipping.InexactFloat64(),
		Total:        b.Total.InexactFloat64(),
	}
}

type lineItemResponse struct {
	Product     string  `json:"product"`
	Managed     bool    `json:"managed"`
	Title       string  `json:"title"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Size        string  `json:"size,omitempty"`
	Color       string  `json:"color,omitempty"`
	Backordered bool    `json:"backordered,omitempty"`
}

type orderResponse struct {
	ID                string                `json:"_id"`
	OrderNumber       string                `json:"orderNumber"`
	User              string                `json:"user"`
	Items             []lineItemResponse    `json:"items"`
	ShippingAddress   order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod     string                `json:"paymentMethod"`
	PaymentStatus     string                `json:"paymentStatus"`
	OrderStatus       string                `json:"orderStatus"`
	PaymentIntentID   string                `json:"paymentIntentId,omitempty"`
	CODAmount         float64               `json:"codAmount,omitempty"`
	TrackingNumber    string                `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time            `json:"estimatedDelivery,omitempty"`
	Notes             string                `json:"notes,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
	breakdownResponse
}

func newOrder(o *order.Order) orderResponse {
	items := make([]lineItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = lineItemResponse{
			Product:     it.Product.ID(),
			Managed:     it.Product.IsManaged(),
			Title:       it.Title,
			Quantity:    it.Quantity,
			Price:       it.UnitPrice.InexactFloat64(),
			Size:        it.Size,
			Color:       it.Color,
			Backordered: it.Backordered,
		}
	}
	return orderResponse{
		ID:                o.ID,
		OrderNumber:       o.Number,
		User:              o.UserID,
		Items:             items,
		ShippingAddress:   o.ShippingAddress,
		PaymentMethod:     string(o.PaymentMethod),
		PaymentStatus:     string(o.PaymentStatus),
		OrderStatus:       string(o.Status),
		PaymentIntentID:   o.PaymentReference,
		CODAmount:         o.CODAmount.InexactFloat64(),
		TrackingNumber:    o.TrackingNumber,
		EstimatedDelivery: o.EstimatedDelivery,
		Notes:             o.Notes,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		breakdownResponse: newBreakdown(o.Breakdown),
	}
}

func newOrders(list []order.Order) []orderResponse {
	out := make([]orderResponse, len(list))
	for i := range list {
		out[i] = newOrder(&list[i])
	}
	return out
}

type orderEnvelope struct {
	Message string        `json:"message"`
	Order   orderResponse `json:"order"`
}

type ordersEnvelope struct {
	Orders     []orderResponse   `json:"orders"`
	Pagination *order.Pagination `json:"pagination,omitempty"`
}

type intentResponse struct {
	ClientSecret    string            `json:"clientSecret"`
	PaymentIntentID string            `json:"paymentIntentId"`
	Amount          float64           `json:"amount"`
	Currency        string            `json:"currency"`
	Breakdown       breakdownResponse `json:"breakdown"`
}
