package usecase

import (
	"context"
	"testing"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceCashOrder_CreatesPendingOrder(t *testing.T) {
	staging := newMemStagingRepo()
	orders := newMemOrderRepo()
	uc := NewPlaceCashOrder(staging, orders)

	ctx := context.Background()
	attempt := stagedAttempt("tok-cash")
	attempt.PaymentMethod = domain.PaymentEfectivo
	require.NoError(t, staging.Create(ctx, attempt))

	order, err := uc.Execute(ctx, "tok-cash")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPendiente, order.Status)
	assert.Equal(t, domain.PaymentEfectivo, order.PaymentMethod)
	assert.Empty(t, order.PaymentID, "cash orders have no processor payment")
	assert.True(t, order.Total.Equal(attempt.Total))
}

func TestPlaceCashOrder_DoubleSubmitReturnsFirst(t *testing.T) {
	staging := newMemStagingRepo()
	orders := newMemOrderRepo()
	uc := NewPlaceCashOrder(staging, orders)

	ctx := context.Background()
	attempt := stagedAttempt("tok-cash")
	attempt.PaymentMethod = domain.PaymentEfectivo
	require.NoError(t, staging.Create(ctx, attempt))

	first, err := uc.Execute(ctx, "tok-cash")
	require.NoError(t, err)
	second, err := uc.Execute(ctx, "tok-cash")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, orders.count())
}

func TestPlaceCashOrder_RejectsNonCashAttempt(t *testing.T) {
	staging := newMemStagingRepo()
	uc := NewPlaceCashOrder(staging, newMemOrderRepo())

	ctx := context.Background()
	require.NoError(t, staging.Create(ctx, stagedAttempt("tok-mp")))

	_, err := uc.Execute(ctx, "tok-mp")
	assert.ErrorIs(t, err, ErrInvalidCart)
}

func TestPlaceCashOrder_UnknownToken(t *testing.T) {
	uc := NewPlaceCashOrder(newMemStagingRepo(), newMemOrderRepo())

	_, err := uc.Execute(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrStagingNotFound)
}
