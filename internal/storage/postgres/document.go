package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/product"
)

// lineItemDoc is the JSONB shape of an order line item.
type lineItemDoc struct {
	ProductID   string          `json:"productId"`
	Managed     bool            `json:"managed"`
	Title       string          `json:"title"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Size        string          `json:"size,omitempty"`
	Color       string          `json:"color,omitempty"`
	Backordered bool            `json:"backordered,omitempty"`
}

func marshalItems(items []order.LineItem) ([]byte, error) {
	docs := make([]lineItemDoc, len(items))
	for i, it := range items {
		docs[i] = lineItemDoc{
			ProductID:   it.Product.ID(),
			Managed:     it.Product.IsManaged(),
			Title:       it.Title,
			Quantity:    it.Quantity,
			Price:       it.UnitPrice,
			Size:        it.Size,
			Color:       it.Color,
			Backordered: it.Backordered,
		}
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return nil, fmt.Errorf("marshaling line items: %w", err)
	}
	return b, nil
}

func unmarshalItems(data []byte) ([]order.LineItem, error) {
	var docs []lineItemDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("unmarshaling line items: %w", err)
	}
	items := make([]order.LineItem, len(docs))
	for i, d := range docs {
		ref := product.External(d.ProductID)
		if d.Managed {
			ref = product.Managed(d.ProductID)
		}
		items[i] = order.LineItem{
			Product:     ref,
			Title:       d.Title,
			Quantity:    d.Quantity,
			UnitPrice:   d.Price,
			Size:        d.Size,
			Color:       d.Color,
			Backordered: d.Backordered,
		}
	}
	return items, nil
}

func marshalAddress(a order.ShippingAddress) ([]byte, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshaling shipping address: %w", err)
	}
	return b, nil
}

func unmarshalAddress(data []byte) (order.ShippingAddress, error) {
	var a order.ShippingAddress
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	return a, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
