package usecase

import (
	"context"
	"sync"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
)

// memStagingRepo is an in-memory StagingRepo.
type memStagingRepo struct {
	mu       sync.Mutex
	attempts map[string]*domain.StagedAttempt
	err      error
}

func newMemStagingRepo() *memStagingRepo {
	return &memStagingRepo{attempts: map[string]*domain.StagedAttempt{}}
}

func (r *memStagingRepo) Create(_ context.Context, a *domain.StagedAttempt) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.attempts[a.StagingToken] = &cp
	return nil
}

func (r *memStagingRepo) GetByToken(_ context.Context, token string) (*domain.StagedAttempt, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

// memOrderRepo enforces the payment_id and staging_token unique keys the way
// the database does, so guard races can be exercised with goroutines.
type memOrderRepo struct {
	mu        sync.Mutex
	orders    []*domain.Order
	createErr error
}

func newMemOrderRepo() *memOrderRepo { return &memOrderRepo{} }

func (r *memOrderRepo) Create(_ context.Context, o *domain.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.orders {
		if o.PaymentID != "" && ex.PaymentID == o.PaymentID {
			return ErrDuplicatePayment
		}
		if o.StagingToken != "" && ex.StagingToken == o.StagingToken {
			return ErrDuplicateStaging
		}
	}
	cp := *o
	r.orders = append(r.orders, &cp)
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.ID == id })
}

func (r *memOrderRepo) GetByPaymentID(_ context.Context, paymentID string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.PaymentID == paymentID && paymentID != "" })
}

func (r *memOrderRepo) GetByStagingToken(_ context.Context, token string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.StagingToken == token && token != "" })
}

func (r *memOrderRepo) SearchByPhone(_ context.Context, phone string) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, o := range r.orders {
		if o.CustomerPhone == phone {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListRecent(_ context.Context, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for i := len(r.orders) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *r.orders[i])
	}
	return out, nil
}

func (r *memOrderRepo) UpdateStatusIf(_ context.Context, id string, from, to domain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == id && o.Status == from {
			o.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (r *memOrderRepo) find(match func(*domain.Order) bool) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if match(o) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

// mockGateway returns canned payments and counts fetches.
type mockGateway struct {
	mu         sync.Mutex
	payments   map[string]*domain.PaymentRecord
	prefID     string
	prefURL    string
	prefErr    error
	getErr     error
	fetchCount int
}

func newMockGateway() *mockGateway {
	return &mockGateway{payments: map[string]*domain.PaymentRecord{}}
}

func (g *mockGateway) CreatePreference(_ context.Context, _ *domain.StagedAttempt) (*Preference, error) {
	if g.prefErr != nil {
		return nil, g.prefErr
	}
	return &Preference{ID: g.prefID, RedirectURL: g.prefURL}, nil
}

func (g *mockGateway) GetPayment(_ context.Context, paymentID string) (*domain.PaymentRecord, error) {
	g.mu.Lock()
	g.fetchCount++
	g.mu.Unlock()
	if g.getErr != nil {
		return nil, g.getErr
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, ErrProcessorUnavailable
	}
	cp := *p
	return &cp, nil
}

// memOutbox records inserted events.
type memOutbox struct {
	mu        sync.Mutex
	events    []OutboxEvent
	insertErr error
	nextID    int64
}

func (o *memOutbox) InsertEvent(_ context.Context, channel string, payload []byte) error {
	if o.insertErr != nil {
		return o.insertErr
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	o.events = append(o.events, OutboxEvent{ID: o.nextID, Channel: channel, Payload: payload})
	return nil
}

func (o *memOutbox) FetchPending(_ context.Context, limit int) ([]OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.events) > limit {
		return append([]OutboxEvent(nil), o.events[:limit]...), nil
	}
	return append([]OutboxEvent(nil), o.events...), nil
}

func (o *memOutbox) MarkPublished(_ context.Context, _ int64) error { return nil }

func (o *memOutbox) byChannel(channel string) []OutboxEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []OutboxEvent
	for _, ev := range o.events {
		if ev.Channel == channel {
			out = append(out, ev)
		}
	}
	return out
}

// memReconcileCache is a map-backed ReconcileCache.
type memReconcileCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemReconcileCache() *memReconcileCache { return &memReconcileCache{m: map[string]string{}} }

func (c *memReconcileCache) Remember(_ context.Context, paymentID, orderID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[paymentID] = orderID
	return nil
}

func (c *memReconcileCache) Recall(_ context.Context, paymentID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[paymentID]
	return v, ok, nil
}

type memStatusCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemStatusCache() *memStatusCache { return &memStatusCache{m: map[string]string{}} }

func (c *memStatusCache) SetStatus(_ context.Context, orderID, status string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[orderID] = status
	return nil
}

func (c *memStatusCache) GetStatus(_ context.Context, orderID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[orderID]
	return v, ok, nil
}
