package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CheckoutHandler struct {
	stage *usecase.StageCheckout
	issue *usecase.IssuePreference
	cash  *usecase.PlaceCashOrder
}

func NewCheckoutHandler(stage *usecase.StageCheckout, issue *usecase.IssuePreference, cash *usecase.PlaceCashOrder) *CheckoutHandler {
	return &CheckoutHandler{stage: stage, issue: issue, cash: cash}
}

type cartLineReq struct {
	ProductID   string          `json:"productId" binding:"required"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit" binding:"required"`
}

type deliveryReq struct {
	Mode    string `json:"mode" binding:"required"`
	Zone    string `json:"zone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type stageCheckoutReq struct {
	Items         []cartLineReq   `json:"items" binding:"required"`
	Delivery      deliveryReq     `json:"delivery" binding:"required"`
	PaymentMethod string          `json:"paymentMethod" binding:"required"`
	Total         decimal.Decimal `json:"total"`
	CustomerName  string          `json:"customerName" binding:"required"`
	CustomerPhone string          `json:"customerPhone" binding:"required"`
}

type stageCheckoutResp struct {
	StagingToken string `json:"stagingToken"`
	Subtotal     string `json:"subtotal"`
	ShippingCost string `json:"shippingCost"`
	Total        string `json:"total"`
}

// StageCheckout snapshots the cart into the staging store and returns the
// token the rest of the checkout flow correlates on.
func (h *CheckoutHandler) StageCheckout(c *gin.Context) {
	var req stageCheckoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	items := make([]domain.CartLine, 0, len(req.Items))
	for _, l := range req.Items {
		items = append(items, domain.CartLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Unit:        domain.Unit(l.Unit),
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	out, err := h.stage.Execute(ctx, usecase.StageCheckoutInput{
		Items: items,
		Delivery: domain.DeliveryChoice{
			Mode:    domain.DeliveryMode(req.Delivery.Mode),
			Zone:    req.Delivery.Zone,
			Address: req.Delivery.Address,
			Notes:   req.Delivery.Notes,
		},
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		Total:         req.Total,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, stageCheckoutResp{
		StagingToken: out.StagingToken,
		Subtotal:     out.Total.Subtotal.StringFixed(2),
		ShippingCost: out.Total.ShippingCost.StringFixed(2),
		Total:        out.Total.Total.StringFixed(2),
	})
}

type preferenceReq struct {
	StagingToken string `json:"stagingToken" binding:"required"`
}

type preferenceResp struct {
	PreferenceID string `json:"preferenceId"`
	RedirectURL  string `json:"redirectUrl"`
}

func (h *CheckoutHandler) IssuePreference(c *gin.Context) {
	var req preferenceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	// Preference creation calls out to the processor; give it room.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	pref, err := h.issue.Execute(ctx, req.StagingToken)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, preferenceResp{PreferenceID: pref.ID, RedirectURL: pref.RedirectURL})
}

type cashOrderReq struct {
	StagingToken string `json:"stagingToken" binding:"required"`
}

func (h *CheckoutHandler) PlaceCashOrder(c *gin.Context) {
	var req cashOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	order, err := h.cash.Execute(ctx, req.StagingToken)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, orderToJSON(order))
}

func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrStagingNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "could not locate checkout attempt"})
	case errors.Is(err, usecase.ErrProcessorUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment processor unavailable"})
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
