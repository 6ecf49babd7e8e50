package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/google/uuid"
)

// PlaceCashOrder materializes a cash-on-delivery attempt directly, with no
// processor involved. The order starts Pendiente; confirmation on delivery
// belongs to the back office.
type PlaceCashOrder struct {
	staging StagingRepo
	orders  OrderRepo
}

func NewPlaceCashOrder(staging StagingRepo, orders OrderRepo) *PlaceCashOrder {
	return &PlaceCashOrder{staging: staging, orders: orders}
}

func (uc *PlaceCashOrder) Execute(ctx context.Context, stagingToken string) (*domain.Order, error) {
	attempt, err := uc.staging.GetByToken(ctx, stagingToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("token %s: %w", stagingToken, ErrStagingNotFound)
		}
		return nil, fmt.Errorf("load staged attempt: %w", err)
	}
	if attempt.PaymentMethod != domain.PaymentEfectivo {
		return nil, fmt.Errorf("%w: attempt is not cash on delivery", ErrInvalidCart)
	}

	order := &domain.Order{
		ID:            uuid.NewString(),
		StagingToken:  attempt.StagingToken,
		Items:         attempt.Items,
		Delivery:      attempt.Delivery,
		Total:         attempt.Total,
		Status:        domain.StatusPendiente,
		PaymentMethod: domain.PaymentEfectivo,
		CustomerName:  attempt.CustomerName,
		CustomerPhone: attempt.CustomerPhone,
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.orders.Create(ctx, order); err != nil {
		if errors.Is(err, ErrDuplicateStaging) {
			// Double submit; the first order wins.
			return uc.orders.GetByStagingToken(ctx, stagingToken)
		}
		return nil, fmt.Errorf("insert cash order: %w", err)
	}
	return order, nil
}
