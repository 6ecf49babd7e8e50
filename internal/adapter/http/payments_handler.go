package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/logging"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var reconcileOutcomes = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reconcile_outcomes_total",
		Help: "Reconciliation attempts by entry path and outcome",
	},
	[]string{"path", "outcome"},
)

// PaymentsHandler owns the two reconciliation entry points: the processor
// webhook (authoritative) and the post-redirect verification (fallback).
// Both funnel into the same guard and may run concurrently for one payment.
type PaymentsHandler struct {
	reconcile *usecase.ReconcilePayment
}

func NewPaymentsHandler(reconcile *usecase.ReconcilePayment) *PaymentsHandler {
	return &PaymentsHandler{reconcile: reconcile}
}

type webhookReq struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Webhook is invoked by the processor at least once per status change. It
// answers 200 for every benign no-op so the processor stops redelivering,
// and an error status only when the decision could not be made durable.
func (h *PaymentsHandler) Webhook(c *gin.Context) {
	paymentID := ""
	var req webhookReq
	if err := c.ShouldBindJSON(&req); err == nil {
		paymentID = req.Data.ID
	}
	// body wins; query params cover the legacy notification format
	if paymentID == "" {
		paymentID = c.Query("data.id")
	}
	if paymentID == "" {
		paymentID = c.Query("id")
	}
	if paymentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing payment id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	order, outcome, err := h.reconcile.Execute(ctx, paymentID)
	if err != nil {
		h.reportFailure(c, "webhook", paymentID, err)
		return
	}

	reconcileOutcomes.WithLabelValues("webhook", string(outcome)).Inc()
	if order != nil {
		logging.From(c).Info("payment reconciled", "payment_id", paymentID, "order_id", order.ID, "outcome", outcome)
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type verifyReq struct {
	PaymentID string `json:"paymentId" binding:"required"`
}

// Verify is called by the client after the redirect back from the processor.
// It may run before the webhook, and reloads must be harmless.
func (h *PaymentsHandler) Verify(c *gin.Context) {
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing payment id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	_, outcome, err := h.reconcile.Execute(ctx, req.PaymentID)
	if err != nil {
		h.reportFailure(c, "verify", req.PaymentID, err)
		return
	}

	reconcileOutcomes.WithLabelValues("verify", string(outcome)).Inc()
	if outcome == usecase.OutcomeNotApproved {
		c.JSON(http.StatusOK, gin.H{"status": "pending"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *PaymentsHandler) reportFailure(c *gin.Context, path, paymentID string, err error) {
	logging.From(c).Error("reconcile failed", "path", path, "payment_id", paymentID, "err", err)

	switch {
	case errors.Is(err, usecase.ErrStagingNotFound):
		reconcileOutcomes.WithLabelValues(path, "manual_review").Inc()
		if path == "webhook" {
			// The manual-review flag is already durable; redelivery buys nothing.
			c.JSON(http.StatusOK, gin.H{"status": "manual_review"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not confirm your order, contact support"})
	case errors.Is(err, usecase.ErrProcessorUnavailable):
		reconcileOutcomes.WithLabelValues(path, "processor_error").Inc()
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment processor unavailable"})
	default:
		reconcileOutcomes.WithLabelValues(path, "error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
