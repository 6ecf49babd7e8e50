package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/google/uuid"
)

type ReconcileOutcome string

const (
	OutcomeCreated           ReconcileOutcome = "created"
	OutcomeAlreadyReconciled ReconcileOutcome = "already_reconciled"
	OutcomeNotApproved       ReconcileOutcome = "not_approved"
)

// ReconcilePayment is the idempotency guard shared by the webhook and the
// post-redirect verification path. Both may run concurrently for the same
// payment id; neither arrival order is assumed. The unique index on
// orders.payment_id closes the check-then-insert window.
type ReconcilePayment struct {
	orders  OrderRepo
	staging StagingRepo
	gateway PaymentGateway
	cache   ReconcileCache // optional
	status  StatusCache    // optional
	out     OutboxRepo
}

func NewReconcilePayment(orders OrderRepo, staging StagingRepo, gateway PaymentGateway,
	cache ReconcileCache, status StatusCache, out OutboxRepo) *ReconcilePayment {
	return &ReconcilePayment{orders: orders, staging: staging, gateway: gateway,
		cache: cache, status: status, out: out}
}

func (uc *ReconcilePayment) Execute(ctx context.Context, paymentID string) (*domain.Order, ReconcileOutcome, error) {
	// Fast path: a repeat delivery for a payment we already settled.
	if uc.cache != nil {
		if orderID, ok, _ := uc.cache.Recall(ctx, paymentID); ok {
			if o, err := uc.orders.GetByID(ctx, orderID); err == nil {
				return o, OutcomeAlreadyReconciled, nil
			}
		}
	}
	if o, err := uc.orders.GetByPaymentID(ctx, paymentID); err == nil {
		uc.remember(ctx, o)
		return o, OutcomeAlreadyReconciled, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, "", fmt.Errorf("lookup payment %s: %w", paymentID, err)
	}

	// Slow, network-bound step. No lock is held here.
	pay, err := uc.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, "", err
	}
	if !pay.Approved() {
		return nil, OutcomeNotApproved, nil
	}

	attempt, err := uc.resolveStaging(ctx, pay)
	if err != nil {
		return nil, "", err
	}

	order := &domain.Order{
		ID:            uuid.NewString(),
		PaymentID:     pay.ID,
		StagingToken:  attempt.StagingToken,
		Items:         attempt.Items,
		Delivery:      attempt.Delivery,
		Total:         attempt.Total,
		Status:        domain.StatusConfirmado,
		PaymentMethod: attempt.PaymentMethod,
		PaymentRaw:    pay.RawPayload,
		CustomerName:  attempt.CustomerName,
		CustomerPhone: attempt.CustomerPhone,
		CreatedAt:     time.Now().UTC(),
	}

	if err := uc.orders.Create(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicatePayment) || errors.Is(err, ErrDuplicateStaging) {
			// Lost the race; the other path's order is the order.
			existing, gerr := uc.orders.GetByPaymentID(ctx, paymentID)
			if gerr != nil {
				return nil, "", fmt.Errorf("reread after conflict on %s: %w", paymentID, gerr)
			}
			uc.remember(ctx, existing)
			return existing, OutcomeAlreadyReconciled, nil
		}
		return nil, "", fmt.Errorf("insert order for payment %s: %w", paymentID, err)
	}

	payload, _ := json.Marshal(OrderConfirmedMsg{
		OrderID:       order.ID,
		PaymentID:     order.PaymentID,
		Total:         order.Total.String(),
		CustomerPhone: order.CustomerPhone,
	})
	_ = uc.out.InsertEvent(ctx, ChannelOrderConfirmed, payload)
	uc.remember(ctx, order)

	return order, OutcomeCreated, nil
}

// resolveStaging maps the payment's correlation data back to its staged
// attempt. An approved payment with no resolvable attempt is the one fatal
// condition: it is flagged for manual reconciliation, never silently dropped.
func (uc *ReconcilePayment) resolveStaging(ctx context.Context, pay *domain.PaymentRecord) (*domain.StagedAttempt, error) {
	token := pay.Correlation.StagingToken
	if token == "" {
		if ferr := uc.flagManualReview(ctx, pay.ID, "", "no staging token in payment metadata"); ferr != nil {
			return nil, ferr
		}
		return nil, fmt.Errorf("payment %s: %w", pay.ID, ErrStagingNotFound)
	}
	attempt, err := uc.staging.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if ferr := uc.flagManualReview(ctx, pay.ID, token, "staging token does not resolve"); ferr != nil {
				return nil, ferr
			}
			return nil, fmt.Errorf("payment %s token %s: %w", pay.ID, token, ErrStagingNotFound)
		}
		return nil, fmt.Errorf("load staged attempt %s: %w", token, err)
	}
	return attempt, nil
}

// The flag must land durably before the caller acknowledges the delivery:
// an approved payment with lost correlation is never silently dropped.
func (uc *ReconcilePayment) flagManualReview(ctx context.Context, paymentID, token, reason string) error {
	payload, _ := json.Marshal(ManualReviewMsg{
		PaymentID:    paymentID,
		StagingToken: token,
		Reason:       reason,
	})
	if err := uc.out.InsertEvent(ctx, ChannelReconcileManual, payload); err != nil {
		return fmt.Errorf("flag manual review for payment %s: %w", paymentID, err)
	}
	return nil
}

func (uc *ReconcilePayment) remember(ctx context.Context, o *domain.Order) {
	if uc.cache != nil {
		_ = uc.cache.Remember(ctx, o.PaymentID, o.ID)
	}
	if uc.status != nil {
		_ = uc.status.SetStatus(ctx, o.ID, string(o.Status))
	}
}
