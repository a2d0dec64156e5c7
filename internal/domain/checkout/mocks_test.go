package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/luxe-store/internal/domain/cart"
	"github.com/xenking/luxe-store/internal/domain/inventory"
	"github.com/xenking/luxe-store/internal/domain/order"
	"github.com/xenking/luxe-store/internal/domain/payment"
	"github.com/xenking/luxe-store/internal/domain/product"
)

type mockProducts struct {
	byID map[string]product.Product
}

func (m *mockProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockStock struct {
	mu      sync.Mutex
	records map[string]*inventory.Record
	touched map[string]int
}

func newMockStock(stock map[string]int) *mockStock {
	m := &mockStock{records: map[string]*inventory.Record{}, touched: map[string]int{}}
	for id, n := range stock {
		m.records[id] = &inventory.Record{ProductID: id, Stock: n}
	}
	return m
}

func (m *mockStock) Get(_ context.Context, id string) (*inventory.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[id]++
	r, ok := m.records[id]
	if !ok {
		return nil, inventory.ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockStock) CompareAndSwap(_ context.Context, id string, version int64, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched[id]++
	r := m.records[id]
	if r.Version != version {
		return inventory.ErrVersionConflict
	}
	r.Stock, r.Version = stock, r.Version+1
	return nil
}

func (m *mockStock) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id].Stock
}

type mockOrders struct {
	mu        sync.Mutex
	byID      map[string]*order.Order
	createErr []error
	creates   int
}

func newMockOrders() *mockOrders {
	return &mockOrders{byID: map[string]*order.Order{}}
}

func (m *mockOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if len(m.createErr) > 0 {
		err := m.createErr[0]
		m.createErr = m.createErr[1:]
		if err != nil {
			return err
		}
	}
	for _, existing := range m.byID {
		if o.PaymentReference != "" && existing.PaymentReference == o.PaymentReference {
			return order.ErrDuplicatePaymentReference
		}
		if o.IdempotencyKey != "" && existing.UserID == o.UserID && existing.IdempotencyKey == o.IdempotencyKey {
			return order.ErrDuplicateIdempotencyKey
		}
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) FindByPaymentReference(_ context.Context, ref string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.PaymentReference == ref {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrders) FindByIdempotencyKey(_ context.Context, userID, key string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.UserID == userID && o.IdempotencyKey == key {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrders) ListByUser(context.Context, string) ([]order.Order, error) { return nil, nil }

func (m *mockOrders) List(context.Context, order.Filter) ([]order.Order, int, error) {
	return nil, 0, nil
}

func (m *mockOrders) UpdateStatus(context.Context, *order.Order, order.Status) error { return nil }

func (m *mockOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type mockQuotes struct {
	mu   sync.Mutex
	byID map[string]*Quote
}

func (m *mockQuotes) Save(_ context.Context, q *Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[q.Reference] = q
	return nil
}

func (m *mockQuotes) Get(_ context.Context, ref string) (*Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.byID[ref]
	if !ok {
		return nil, ErrQuoteNotFound
	}
	return q, nil
}

type mockIdempotency struct {
	mu   sync.Mutex
	recs map[string]IdempotencyRecord
}

func (m *mockIdempotency) Get(_ context.Context, key string) (*IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[key]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &r, nil
}

func (m *mockIdempotency) Claim(_ context.Context, key string, rec IdempotencyRecord, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recs[key]; ok {
		return false, nil
	}
	m.recs[key] = rec
	return true, nil
}

func (m *mockIdempotency) Put(_ context.Context, key string, rec IdempotencyRecord, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[key] = rec
	return nil
}

func (m *mockIdempotency) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, key)
	return nil
}

// mockGateway keeps one intent per idempotency key, like the real provider.
type mockGateway struct {
	mu      sync.Mutex
	byKey   map[string]*payment.Intent
	byRef   map[string]*payment.Intent
	created int
	status  payment.IntentStatus

	// When hold is set RetrieveIntent signals entered and blocks until
	// hold is closed.
	entered chan struct{}
	hold    chan struct{}
}

func newMockGateway() *mockGateway {
	return &mockGateway{byKey: map[string]*payment.Intent{}, byRef: map[string]*payment.Intent{}, status: payment.IntentSucceeded}
}

func (m *mockGateway) CreateIntent(_ context.Context, req payment.IntentRequest) (*payment.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in, ok := m.byKey[req.IdempotencyKey]; ok {
		return in, nil
	}
	m.created++
	in := &payment.Intent{
		Reference:    "pi_" + decimal.NewFromInt(int64(m.created)).String(),
		ClientSecret: "secret",
		AmountMinor:  req.AmountMinor,
		Currency:     req.Currency,
		Status:       payment.IntentRequiresAction,
	}
	m.byKey[req.IdempotencyKey] = in
	m.byRef[in.Reference] = in
	return in, nil
}

func (m *mockGateway) RetrieveIntent(_ context.Context, ref string) (*payment.Intent, error) {
	if m.hold != nil {
		m.entered <- struct{}{}
		<-m.hold
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.byRef[ref]
	if !ok {
		return nil, payment.ErrGatewayRejected
	}
	cp := *in
	cp.Status = m.status
	return &cp, nil
}

type mockCarts struct {
	mu      sync.Mutex
	cleared []string
}

func (m *mockCarts) Load(_ context.Context, key string) (*cart.Cart, error) {
	return &cart.Cart{OwnerKey: key}, nil
}

func (m *mockCarts) Save(context.Context, *cart.Cart) error { return nil }

func (m *mockCarts) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, key)
	return nil
}
