package usecase

import (
	"context"
	"fmt"
	"time"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StageCheckoutInput struct {
	Items         []domain.CartLine
	Delivery      domain.DeliveryChoice
	PaymentMethod domain.PaymentMethod
	Total         decimal.Decimal
	CustomerName  string
	CustomerPhone string
}

type StageCheckoutOutput struct {
	StagingToken string
	Total        domain.CheckoutTotal
}

// StageCheckout snapshots a cart into the staging store. The total is
// computed here, once, and never recomputed from processor data.
type StageCheckout struct {
	staging StagingRepo
	zones   map[string]decimal.Decimal
}

func NewStageCheckout(staging StagingRepo, zones map[string]decimal.Decimal) *StageCheckout {
	return &StageCheckout{staging: staging, zones: zones}
}

func (uc *StageCheckout) Execute(ctx context.Context, in StageCheckoutInput) (StageCheckoutOutput, error) {
	if len(in.Items) == 0 {
		return StageCheckoutOutput{}, fmt.Errorf("%w: no items", ErrInvalidCart)
	}
	if in.PaymentMethod != domain.PaymentMercadoPago && in.PaymentMethod != domain.PaymentEfectivo {
		return StageCheckoutOutput{}, fmt.Errorf("%w: unknown payment method %q", ErrInvalidCart, in.PaymentMethod)
	}

	subtotal := decimal.Zero
	for i := range in.Items {
		if err := in.Items[i].Validate(); err != nil {
			return StageCheckoutOutput{}, fmt.Errorf("%w: line %d: %v", ErrInvalidCart, i, err)
		}
		subtotal = subtotal.Add(in.Items[i].Subtotal())
	}

	shipping, err := uc.shippingCost(in.Delivery)
	if err != nil {
		return StageCheckoutOutput{}, err
	}

	total := subtotal.Add(shipping)
	// The client-sent total is a checksum of what the user saw, nothing more.
	if !total.Equal(in.Total) {
		return StageCheckoutOutput{}, fmt.Errorf("%w: total mismatch, got %s want %s", ErrInvalidCart, in.Total, total)
	}

	attempt := &domain.StagedAttempt{
		StagingToken:  uuid.NewString(),
		Items:         in.Items,
		Delivery:      in.Delivery,
		PaymentMethod: in.PaymentMethod,
		Total:         total,
		CustomerName:  in.CustomerName,
		CustomerPhone: in.CustomerPhone,
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.staging.Create(ctx, attempt); err != nil {
		return StageCheckoutOutput{}, fmt.Errorf("stage attempt: %w", err)
	}

	return StageCheckoutOutput{
		StagingToken: attempt.StagingToken,
		Total: domain.CheckoutTotal{
			Subtotal:     subtotal,
			ShippingCost: shipping,
			Total:        total,
		},
	}, nil
}

func (uc *StageCheckout) shippingCost(d domain.DeliveryChoice) (decimal.Decimal, error) {
	switch d.Mode {
	case domain.ModePickup:
		return decimal.Zero, nil
	case domain.ModeDelivery:
		price, ok := uc.zones[d.Zone]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: zone %q", ErrInvalidCart, d.Zone)
		}
		return price, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: delivery mode %q", ErrInvalidCart, d.Mode)
	}
}
