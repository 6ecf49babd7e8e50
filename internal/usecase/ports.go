package usecase

import (
	"context"
	"errors"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidCart          = errors.New("invalid cart")
	ErrProcessorUnavailable = errors.New("payment processor unavailable")
	ErrStagingNotFound      = errors.New("staged attempt not found")
	ErrDuplicatePayment     = errors.New("duplicate payment id")
	ErrDuplicateStaging     = errors.New("order already placed for staging token")
)

type OrderRepo interface {
	// Create inserts the order. A payment_id collision surfaces as
	// ErrDuplicatePayment, a staging_token collision as ErrDuplicateStaging.
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error)
	GetByStagingToken(ctx context.Context, token string) (*domain.Order, error)
	SearchByPhone(ctx context.Context, phone string) ([]domain.Order, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Order, error)
	UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error)
}

// StagingRepo is insert-only: staged attempts are never updated or deleted.
type StagingRepo interface {
	Create(ctx context.Context, a *domain.StagedAttempt) error
	GetByToken(ctx context.Context, token string) (*domain.StagedAttempt, error)
}

type Preference struct {
	ID          string
	RedirectURL string
}

type PaymentGateway interface {
	CreatePreference(ctx context.Context, a *domain.StagedAttempt) (*Preference, error)
	GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)
}

// ReconcileCache is a best-effort fast path for repeat deliveries. The unique
// index on orders.payment_id is the correctness backstop, never this cache.
type ReconcileCache interface {
	Remember(ctx context.Context, paymentID, orderID string) error
	Recall(ctx context.Context, paymentID string) (string, bool, error)
}

type StatusCache interface {
	SetStatus(ctx context.Context, orderID, status string) error
	GetStatus(ctx context.Context, orderID string) (string, bool, error)
}

type OutboxEvent struct {
	ID      int64
	Channel string
	Payload []byte
}

type OutboxRepo interface {
	InsertEvent(ctx context.Context, channel string, payload []byte) error
	FetchPending(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64) error
}
