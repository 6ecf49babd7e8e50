package kafka

import (
	"context"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
)

// OrderStatusChangedHandler applies back-office status changes. Only
// cancellations are acted on here: confirmations of paid orders come solely
// from the reconciliation guard, and the Pendiente precondition keeps a
// confirmed order from ever being clobbered.
type OrderStatusChangedHandler struct {
	Repo  usecase.OrderRepo
	Cache usecase.StatusCache // optional
}

func NewOrderStatusChangedHandler(repo usecase.OrderRepo, cache usecase.StatusCache) *OrderStatusChangedHandler {
	return &OrderStatusChangedHandler{Repo: repo, Cache: cache}
}

func (h *OrderStatusChangedHandler) Handle(ctx context.Context, ev usecase.OrderStatusChangedMsg) error {
	if ev.Status != "CANCELLED" {
		return nil
	}

	changed, err := h.Repo.UpdateStatusIf(ctx, ev.OrderID, domain.StatusPendiente, domain.StatusCancelado)
	if err != nil {
		return err
	}
	if changed && h.Cache != nil {
		// best-effort
		_ = h.Cache.SetStatus(ctx, ev.OrderID, string(domain.StatusCancelado))
	}
	return nil
}
