//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func placeCOD(t *testing.T, productID string, qty int) order {
	t.Helper()

	resp := do(t, http.MethodPost, "/api/payments/cod-order", customerKey, checkoutRequest{
		Items:           []itemRequest{{Product: productID, Quantity: qty}},
		ShippingAddress: validAddress(),
	})
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusCreated)

	return decodeJSON[orderEnvelope](t, resp).Order
}

func updateStatus(t *testing.T, id string, body map[string]string, want int) order {
	t.Helper()

	resp := do(t, http.MethodPut, "/api/orders/"+id+"/status", adminKey, body)
	defer resp.Body.Close()
	expectStatus(t, resp, want)
	if want != http.StatusOK {
		return order{}
	}
	return decodeJSON[orderEnvelope](t, resp).Order
}

func TestOrders_MyOrders(t *testing.T) {
	placed := placeCOD(t, "lx-kurta-linen", 1)

	resp := do(t, http.MethodGet, "/api/orders/my-orders", customerKey, nil)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	list := decodeJSON[ordersEnvelope](t, resp)
	if len(list.Orders) == 0 || list.Orders[0].ID != placed.ID {
		t.Fatalf("expected newest order %s first, got %d orders", placed.ID, len(list.Orders))
	}
}

func TestOrders_GetSingle(t *testing.T) {
	placed := placeCOD(t, "lx-kurta-linen", 1)

	for _, key := range []string{customerKey, adminKey} {
		resp := do(t, http.MethodGet, "/api/orders/"+placed.ID, key, nil)
		expectStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}

	resp := do(t, http.MethodGet, "/api/orders/does-not-exist", customerKey, nil)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusNotFound)
}

func TestOrders_AdminList(t *testing.T) {
	placeCOD(t, "lx-kurta-linen", 1)

	resp := do(t, http.MethodGet, "/api/orders", customerKey, nil)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = do(t, http.MethodGet, "/api/orders?status=pending&limit=1", adminKey, nil)
	defer resp.Body.Close()
	expectStatus(t, resp, http.StatusOK)

	list := decodeJSON[ordersEnvelope](t, resp)
	if list.Pagination == nil || list.Pagination.Limit != 1 || list.Pagination.Page != 1 {
		t.Fatalf("pagination: got %+v", list.Pagination)
	}
	if len(list.Orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(list.Orders))
	}
	if list.Orders[0].OrderStatus != "pending" {
		t.Errorf("status filter ignored: got %s", list.Orders[0].OrderStatus)
	}

	bad := do(t, http.MethodGet, "/api/orders?page=two", adminKey, nil)
	defer bad.Body.Close()
	expectStatus(t, bad, http.StatusBadRequest)
}

func TestOrders_Lifecycle(t *testing.T) {
	placed := placeCOD(t, "lx-bangles-brass", 1)

	// Skipping states is rejected.
	updateStatus(t, placed.ID, map[string]string{"orderStatus": "delivered"}, http.StatusUnprocessableEntity)

	o := updateStatus(t, placed.ID, map[string]string{"orderStatus": "processing"}, http.StatusOK)
	if o.OrderStatus != "processing" {
		t.Fatalf("status: got %s", o.OrderStatus)
	}

	o = updateStatus(t, placed.ID, map[string]string{"orderStatus": "shipped", "trackingNumber": "TRK-42"}, http.StatusOK)
	if o.TrackingNumber != "TRK-42" || o.EstimatedDelivery == nil {
		t.Fatalf("shipping metadata: got %q / %v", o.TrackingNumber, o.EstimatedDelivery)
	}

	updateStatus(t, placed.ID, map[string]string{"orderStatus": "out_for_delivery"}, http.StatusOK)
	o = updateStatus(t, placed.ID, map[string]string{"orderStatus": "delivered"}, http.StatusOK)
	if o.PaymentStatus != "paid" {
		t.Errorf("cash on delivery should be paid on delivery, got %s", o.PaymentStatus)
	}

	// Terminal.
	updateStatus(t, placed.ID, map[string]string{"orderStatus": "cancelled"}, http.StatusUnprocessableEntity)
}

func TestOrders_CancelFromPending(t *testing.T) {
	placed := placeCOD(t, "lx-bangles-brass", 1)

	o := updateStatus(t, placed.ID, map[string]string{"orderStatus": "cancelled", "notes": "customer request"}, http.StatusOK)
	if o.OrderStatus != "cancelled" {
		t.Fatalf("status: got %s", o.OrderStatus)
	}
}

func TestOrders_UpdateUnknown(t *testing.T) {
	updateStatus(t, "does-not-exist", map[string]string{"orderStatus": "processing"}, http.StatusNotFound)
}
