package checkout

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/luxe-store/internal/domain/inventory"
	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/payment"
	"github.com/xenking/luxe-store/internal/domain/product"
)

type fixture struct {
	orch    *Orchestrator
	stock   *mockStock
	orders  *mockOrders
	quotes  *mockQuotes
	gateway *mockGateway
	carts   *mockCarts
	idem    *mockIdempotency

	deps Deps
	cfg  Config
}

func newFixture(t *testing.T, codPolicy inventory.Mode) *fixture {
	t.Helper()
	f := &fixture{
		stock:   newMockStock(map[string]int{"P1": 5, "P2": 1}),
		orders:  newMockOrders(),
		quotes:  &mockQuotes{byID: map[string]*Quote{}},
		gateway: newMockGateway(),
		carts:   &mockCarts{},
		idem:    &mockIdempotency{recs: map[string]IdempotencyRecord{}},
	}
	products := &mockProducts{byID: map[string]product.Product{
		"P1": {ID: "P1", Title: "Silk Saree", Price: decimal.NewFromInt(1500)},
		"P2": {ID: "P2", Title: "Kurta", Price: decimal.NewFromInt(800)},
	}}
	card := payment.NewCardAdapter(f.gateway, 0)

	f.deps = Deps{
		Products:    products,
		Ledger:      inventory.NewLedger(f.stock),
		Builder:     order.NewBuilder(order.NewNumberGenerator()),
		Orders:      f.orders,
		Adapters:    payment.NewAdapters(card, payment.CODAdapter{}, payment.NewSimulatedAdapter(payment.MethodUPI, 0, true)),
		Card:        card,
		Quotes:      f.quotes,
		Idempotency: f.idem,
		Carts:       f.carts,
	}
	f.cfg = Config{CODStockPolicy: codPolicy}
	f.orch = f.replica(t, f.idem)
	return f
}

// replica builds another orchestrator over the same stock, orders and
// quotes, as a second API instance would. idem is the idempotency store it
// sees: the shared one, or a private one for a per-process store.
func (f *fixture) replica(t *testing.T, idem IdempotencyStore) *Orchestrator {
	t.Helper()
	deps := f.deps
	deps.Idempotency = idem
	deps.Builder = order.NewBuilder(order.NewNumberGenerator())
	orch, err := New(deps, f.cfg)
	require.NoError(t, err)
	return orch
}

func address() order.ShippingAddress {
	return order.ShippingAddress{
		Name: "Asha Rao", Phone: "9876543210", Street: "12 MG Road", Area: "Indiranagar",
		City: "Bengaluru", District: "Bengaluru Urban", State: "Karnataka", PostalCode: "560038",
	}
}

func price(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestPlaceCODOrder(t *testing.T) {
	f := newFixture(t, inventory.Strict)

	o, err := f.orch.PlaceCODOrder(context.Background(), Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P1", Quantity: 2, Price: price(1500)}},
		ShippingAddress: address(),
	})
	require.NoError(t, err)

	assert.True(t, o.Breakdown.Subtotal.Equal(decimal.NewFromInt(3000)))
	assert.True(t, o.Breakdown.Tax.Equal(decimal.NewFromInt(540)))
	assert.True(t, o.Breakdown.Shipping.IsZero())
	assert.True(t, o.Breakdown.Total.Equal(decimal.NewFromInt(3540)))
	assert.Equal(t, order.PaymentPending, o.PaymentStatus)
	assert.True(t, o.CODAmount.Equal(decimal.NewFromInt(3540)))
	assert.Equal(t, payment.MethodCOD, o.PaymentMethod)
	assert.Equal(t, 3, f.stock.stock("P1"))
	assert.Equal(t, 1, f.orders.count())
	assert.Equal(t, []string{"cart:u1"}, f.carts.cleared)
}

func TestPlaceOrder_CatalogPriceWins(t *testing.T) {
	f := newFixture(t, inventory.Strict)

	o, err := f.orch.PlaceOrder(context.Background(), Request{
		UserID:           "u1",
		Items:            []CartItem{{ProductID: "P2", Title: "client title", Quantity: 1, Price: price(1)}},
		ShippingAddress:  address(),
		PaymentMethod:    payment.MethodCard,
		PaymentReference: "pi_ext",
	})
	require.NoError(t, err)
	assert.True(t, o.Items[0].UnitPrice.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, "Kurta", o.Items[0].Title)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, "pi_ext", o.PaymentReference)
}

func TestPlaceOrder_ExternalProduct(t *testing.T) {
	f := newFixture(t, inventory.Strict)

	o, err := f.orch.PlaceCODOrder(context.Background(), Request{
		UserID: "u1",
		Items: []CartItem{
			{ProductID: "fakestore-9", Title: "Backpack", Quantity: 1, Price: price(110), Size: "L", Color: "blue"},
		},
		ShippingAddress: address(),
	})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)

	line := o.Items[0]
	assert.False(t, line.Product.IsManaged())
	assert.Equal(t, "fakestore-9", line.Product.ID())
	assert.Equal(t, "Backpack", line.Title)
	assert.Equal(t, "L", line.Size)
	assert.Equal(t, "blue", line.Color)
	assert.True(t, line.UnitPrice.Equal(decimal.NewFromInt(110)))
	assert.Zero(t, f.stock.touched["fakestore-9"])
	assert.Equal(t, 5, f.stock.stock("P1"))
}

func TestPlaceOrder_ExternalProductNeedsPrice(t *testing.T) {
	f := newFixture(t, inventory.Strict)

	_, err := f.orch.PlaceCODOrder(context.Background(), Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "fakestore-9", Quantity: 1}},
		ShippingAddress: address(),
	})
	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "items[0].price", vErr.Field)
}

func TestPlaceOrder_InvalidAddressTouchesNothing(t *testing.T) {
	f := newFixture(t, inventory.Strict)
	addr := address()
	addr.PostalCode = "12345"

	_, err := f.orch.PlaceOrder(context.Background(), Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P1", Quantity: 1}},
		ShippingAddress: addr,
		PaymentMethod:   payment.MethodUPI,
	})
	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 5, f.stock.stock("P1"))
	assert.Zero(t, f.orders.count())
	assert.Empty(t, f.carts.cleared)
}

func TestPlaceOrder_CardRequiresReference(t *testing.T) {
	f := newFixture(t, inventory.Strict)

	_, err := f.orch.PlaceOrder(context.Background(), Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P1", Quantity: 1}},
		ShippingAddress: address(),
		PaymentMethod:   payment.MethodCard,
	})
	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestPlaceOrder_UnsupportedMethod(t *testing.T) {
	f := newFixture(t, inventory.Strict)

	_, err := f.orch.PlaceOrder(context.Background(), Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P1", Quantity: 1}},
		ShippingAddress: address(),
		PaymentMethod:   payment.MethodWallet,
	})
	require.ErrorIs(t, err, payment.ErrMethodUnsupported)
}

func TestPlaceOrder_SimulatedPayment(t *testing.T) {
	f := newFixture(t, inventory.Strict)

	o, err := f.orch.PlaceOrder(context.Background(), Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P1", Quantity: 1}},
		ShippingAddress: address(),
		PaymentMethod:   payment.MethodUPI,
	})
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Contains(t, o.PaymentReference, "sim_upi_")
	assert.True(t, o.Breakdown.Shipping.Equal(decimal.NewFromInt(100)))
}

func TestPlaceOrder_InsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t, inventory.Strict)

	_, err := f.orch.PlaceOrder(context.Background(), Request{
		UserID: "u1",
		Items: []CartItem{
			{ProductID: "P1", Quantity: 2},
			{ProductID: "P2", Quantity: 3},
		},
		ShippingAddress:  address(),
		PaymentMethod:    payment.MethodCard,
		PaymentReference: "pi_1",
	})
	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "P2", stockErr.ProductID)
	assert.Equal(t, 5, f.stock.stock("P1"))
	assert.Equal(t, 1, f.stock.stock("P2"))
	assert.Zero(t, f.orders.count())
	assert.Empty(t, f.carts.cleared)
}

func TestPlaceOrder_PersistFailureReleasesStock(t *testing.T) {
	f := newFixture(t, inventory.Strict)
	f.orders.createErr = []error{errors.New("connection refused")}

	_, err := f.orch.PlaceCODOrder(context.Background(), Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P1", Quantity: 2}},
		ShippingAddress: address(),
	})
	require.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 5, f.stock.stock("P1"))
	assert.Empty(t, f.carts.cleared)
}

func TestPlaceOrder_RetriesNumberCollision(t *testing.T) {
	f := newFixture(t, inventory.Strict)
	f.orders.createErr = []error{order.ErrDuplicateNumber, nil}

	o, err := f.orch.PlaceCODOrder(context.Background(), Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P1", Quantity: 1}},
		ShippingAddress: address(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.orders.creates)
	assert.Equal(t, 4, f.stock.stock("P1"))
	assert.NotEmpty(t, o.Number)
}

func TestPlaceCODOrder_StockPolicy(t *testing.T) {
	req := Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P2", Quantity: 3}},
		ShippingAddress: address(),
	}

	t.Run("Strict", func(t *testing.T) {
		f := newFixture(t, inventory.Strict)
		_, err := f.orch.PlaceCODOrder(context.Background(), req)
		require.ErrorIs(t, err, inventory.ErrInsufficientStock)
		assert.Equal(t, 1, f.stock.stock("P2"))
	})

	t.Run("Backorder", func(t *testing.T) {
		f := newFixture(t, inventory.Backorder)
		o, err := f.orch.PlaceCODOrder(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, o.Items[0].Backordered)
		assert.Equal(t, 1, f.stock.stock("P2"))
	})
}

func TestPlaceOrder_Idempotent(t *testing.T) {
	f := newFixture(t, inventory.Strict)
	req := Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P1", Quantity: 1}},
		ShippingAddress: address(),
		PaymentMethod:   payment.MethodCOD,
		IdempotencyKey:  "attempt-1",
	}

	var (
		wg  sync.WaitGroup
		ids = make([]string, 8)
	)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := f.orch.PlaceOrder(context.Background(), req)
			if assert.NoError(t, err) {
				ids[i] = o.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, f.orders.count())
	assert.Equal(t, 4, f.stock.stock("P1"))

	again, err := f.orch.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ids[0], again.ID)

	req.Items[0].Quantity = 2
	_, err = f.orch.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, ErrIdempotencyKeyReused)

	// Keys are scoped per user.
	req.UserID = "u2"
	_, err = f.orch.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, f.orders.count())
}

func TestPlaceOrder_ConcurrentSimulatedPayments(t *testing.T) {
	f := newFixture(t, inventory.Strict)

	const callers = 20
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{}, callers)
	)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := f.orch.PlaceOrder(context.Background(), Request{
				UserID:          []string{"u1", "u2"}[i%2],
				Items:           []CartItem{{ProductID: "fakestore-1", Quantity: 1, Price: price(250)}},
				ShippingAddress: address(),
				PaymentMethod:   payment.MethodUPI,
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			ids[o.ID] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, callers)
	assert.Equal(t, callers, f.orders.count())
}

func TestPlaceOrder_DuplicateReference(t *testing.T) {
	ctx := context.Background()

	t.Run("SimulatedIsRejected", func(t *testing.T) {
		f := newFixture(t, inventory.Strict)
		req := Request{
			UserID:           "u1",
			Items:            []CartItem{{ProductID: "P1", Quantity: 1}},
			ShippingAddress:  address(),
			PaymentMethod:    payment.MethodUPI,
			PaymentReference: "upi_txn_1",
		}

		_, err := f.orch.PlaceOrder(ctx, req)
		require.NoError(t, err)
		_, err = f.orch.PlaceOrder(ctx, req)
		require.ErrorIs(t, err, order.ErrDuplicatePaymentReference)

		assert.Equal(t, 1, f.orders.count())
		assert.Equal(t, 4, f.stock.stock("P1"))
	})

	t.Run("CardReplaysOwnOrder", func(t *testing.T) {
		f := newFixture(t, inventory.Strict)
		req := Request{
			UserID:           "u1",
			Items:            []CartItem{{ProductID: "P1", Quantity: 1}},
			ShippingAddress:  address(),
			PaymentMethod:    payment.MethodCard,
			PaymentReference: "pi_ext",
		}

		first, err := f.orch.PlaceOrder(ctx, req)
		require.NoError(t, err)
		again, err := f.orch.PlaceOrder(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)

		req.UserID = "u2"
		_, err = f.orch.PlaceOrder(ctx, req)
		require.ErrorIs(t, err, order.ErrDuplicatePaymentReference)

		assert.Equal(t, 1, f.orders.count())
		assert.Equal(t, 4, f.stock.stock("P1"))
	})
}

func codRequest(key string) Request {
	return Request{
		UserID:          "u1",
		Items:           []CartItem{{ProductID: "P1", Quantity: 1}},
		ShippingAddress: address(),
		PaymentMethod:   payment.MethodCOD,
		IdempotencyKey:  key,
	}
}

func TestPlaceOrder_IdempotentAcrossReplicas(t *testing.T) {
	f := newFixture(t, inventory.Strict)
	replicas := []*Orchestrator{f.orch, f.replica(t, f.idem)}
	req := codRequest("k1")

	var (
		wg      sync.WaitGroup
		results = make([]*order.Order, 8)
		errs    = make([]error, len(results))
	)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = replicas[i%len(replicas)].PlaceCODOrder(context.Background(), req)
		}()
	}
	wg.Wait()

	var placed string
	for i, err := range errs {
		if errors.Is(err, ErrCheckoutInProgress) {
			continue
		}
		require.NoError(t, err)
		if placed == "" {
			placed = results[i].ID
		}
		assert.Equal(t, placed, results[i].ID)
	}
	require.NotEmpty(t, placed)
	assert.Equal(t, 1, f.orders.count())
	assert.Equal(t, 4, f.stock.stock("P1"))

	again, err := replicas[1].PlaceCODOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, placed, again.ID)
}

func TestPlaceOrder_IdempotencyKeyUniqueInStorage(t *testing.T) {
	f := newFixture(t, inventory.Strict)
	// Each replica remembers keys only in its own process.
	other := f.replica(t, &mockIdempotency{recs: map[string]IdempotencyRecord{}})
	ctx := context.Background()
	req := codRequest("k1")

	first, err := f.orch.PlaceCODOrder(ctx, req)
	require.NoError(t, err)
	second, err := other.PlaceCODOrder(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.orders.count())
	assert.Equal(t, 4, f.stock.stock("P1"))
}

func TestPlaceOrder_IdempotencyClaim(t *testing.T) {
	f := newFixture(t, inventory.Strict)
	ctx := context.Background()
	req := codRequest("k1")
	scoped := scopedKey("u1", "k1")

	f.idem.recs[scoped] = IdempotencyRecord{Fingerprint: fingerprint(req)}
	_, err := f.orch.PlaceCODOrder(ctx, req)
	require.ErrorIs(t, err, ErrCheckoutInProgress)
	assert.Zero(t, f.orders.count())
	assert.Equal(t, 5, f.stock.stock("P1"))

	// A failed attempt gives the key back.
	delete(f.idem.recs, scoped)
	req.Items[0].Quantity = 10
	_, err = f.orch.PlaceCODOrder(ctx, req)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.NotContains(t, f.idem.recs, scoped)

	req.Items[0].Quantity = 1
	o, err := f.orch.PlaceCODOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, IdempotencyRecord{OrderID: o.ID, Fingerprint: fingerprint(req)}, f.idem.recs[scoped])
}
