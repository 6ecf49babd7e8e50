package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Handler tests run real usecases over in-memory port implementations, so the
// full error mapping from repo/gateway up through the JSON surface is covered.

type stubStagingRepo struct {
	mu       sync.Mutex
	attempts map[string]*domain.StagedAttempt
}

func newStubStagingRepo() *stubStagingRepo {
	return &stubStagingRepo{attempts: map[string]*domain.StagedAttempt{}}
}

func (r *stubStagingRepo) Create(_ context.Context, a *domain.StagedAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.attempts[a.StagingToken] = &cp
	return nil
}

func (r *stubStagingRepo) GetByToken(_ context.Context, token string) (*domain.StagedAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[token]
	if !ok {
		return nil, usecase.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

type stubOrderRepo struct {
	mu     sync.Mutex
	orders []*domain.Order
}

func (r *stubOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.orders {
		if o.PaymentID != "" && ex.PaymentID == o.PaymentID {
			return usecase.ErrDuplicatePayment
		}
		if o.StagingToken != "" && ex.StagingToken == o.StagingToken {
			return usecase.ErrDuplicateStaging
		}
	}
	cp := *o
	r.orders = append(r.orders, &cp)
	return nil
}

func (r *stubOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.ID == id })
}

func (r *stubOrderRepo) GetByPaymentID(_ context.Context, paymentID string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.PaymentID == paymentID && paymentID != "" })
}

func (r *stubOrderRepo) GetByStagingToken(_ context.Context, token string) (*domain.Order, error) {
	return r.find(func(o *domain.Order) bool { return o.StagingToken == token && token != "" })
}

func (r *stubOrderRepo) SearchByPhone(_ context.Context, phone string) ([]domain.Order, error) {
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

func (r *stubOrderRepo) ListRecent(_ context.Context, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for i := len(r.orders) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *r.orders[i])
	}
	return out, nil
}

func (r *stubOrderRepo) UpdateStatusIf(_ context.Context, id string, from, to domain.Status) (bool, error) {
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

func (r *stubOrderRepo) find(match func(*domain.Order) bool) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if match(o) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, usecase.ErrNotFound
}

func (r *stubOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

type stubGateway struct {
	payments map[string]*domain.PaymentRecord
	prefErr  error
	getErr   error
}

func (g *stubGateway) CreatePreference(_ context.Context, a *domain.StagedAttempt) (*usecase.Preference, error) {
	if g.prefErr != nil {
		return nil, g.prefErr
	}
	return &usecase.Preference{ID: "pref-" + a.StagingToken, RedirectURL: "https://mp.example/redirect"}, nil
}

func (g *stubGateway) GetPayment(_ context.Context, paymentID string) (*domain.PaymentRecord, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, usecase.ErrProcessorUnavailable
	}
	cp := *p
	return &cp, nil
}

type stubOutbox struct {
	mu     sync.Mutex
	events []usecase.OutboxEvent
}

func (o *stubOutbox) InsertEvent(_ context.Context, channel string, payload []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, usecase.OutboxEvent{ID: int64(len(o.events) + 1), Channel: channel, Payload: payload})
	return nil
}

func (o *stubOutbox) FetchPending(_ context.Context, limit int) ([]usecase.OutboxEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]usecase.OutboxEvent(nil), o.events...), nil
}

func (o *stubOutbox) MarkPublished(_ context.Context, _ int64) error { return nil }

type apiFixture struct {
	router  *gin.Engine
	staging *stubStagingRepo
	orders  *stubOrderRepo
	gateway *stubGateway
	outbox  *stubOutbox
}

func newAPIFixture() *apiFixture {
	f := &apiFixture{
		staging: newStubStagingRepo(),
		orders:  &stubOrderRepo{},
		gateway: &stubGateway{payments: map[string]*domain.PaymentRecord{}},
		outbox:  &stubOutbox{},
	}

	zones := map[string]decimal.Decimal{
		"La Plata":  decimal.RequireFromString("1500"),
		"City Bell": decimal.RequireFromString("2000"),
	}
	stage := usecase.NewStageCheckout(f.staging, zones)
	issue := usecase.NewIssuePreference(f.staging, f.gateway)
	cash := usecase.NewPlaceCashOrder(f.staging, f.orders)
	reconcile := usecase.NewReconcilePayment(f.orders, f.staging, f.gateway, nil, nil, f.outbox)

	co := NewCheckoutHandler(stage, issue, cash)
	pay := NewPaymentsHandler(reconcile)
	oh := NewOrderHandler(f.orders, nil)

	r := gin.New()
	r.POST("/webhooks/mercadopago", pay.Webhook)
	v1 := r.Group("/v1")
	v1.POST("/checkout", co.StageCheckout)
	v1.POST("/checkout/preference", co.IssuePreference)
	v1.POST("/orders/cash", co.PlaceCashOrder)
	v1.POST("/payments/verify", pay.Verify)
	v1.GET("/orders/:id", oh.GetOrderByID)
	v1.GET("/orders", oh.SearchByPhone)
	f.router = r
	return f
}

func (f *apiFixture) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) stageAttempt(token string, method domain.PaymentMethod) {
	_ = f.staging.Create(context.Background(), &domain.StagedAttempt{
		StagingToken: token,
		Items: []domain.CartLine{{
			ProductID: "ravioles-ricota",
			UnitPrice: decimal.RequireFromString("5000"),
			Quantity:  decimal.RequireFromString("2"),
			Unit:      domain.UnitKg,
		}},
		Delivery:      domain.DeliveryChoice{Mode: domain.ModeDelivery, Zone: "La Plata"},
		PaymentMethod: method,
		Total:         decimal.RequireFromString("11500"),
		CustomerName:  "Marta",
		CustomerPhone: "221555000",
		CreatedAt:     time.Now().UTC(),
	})
}

func (f *apiFixture) approvePayment(id, token string) {
	f.gateway.payments[id] = &domain.PaymentRecord{
		ID:     id,
		Status: domain.PaymentApproved,
		Amount: decimal.RequireFromString("11500"),
		Correlation: domain.CorrelationData{
			StagingToken:  token,
			PaymentMethod: string(domain.PaymentMercadoPago),
		},
	}
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return m
}
