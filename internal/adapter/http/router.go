package http

import (
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/adapter/http/middleware"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(co *CheckoutHandler, pay *PaymentsHandler, oh *OrderHandler,
	th *TokenHandler, authz *middleware.Authz, webhookSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", th.IssueToken)

	// processor-initiated, signature-checked
	r.POST("/webhooks/mercadopago", middleware.VerifyWebhook(webhookSecret), pay.Webhook)

	v1 := r.Group("/v1")
	{
		v1.POST("/checkout", co.StageCheckout)
		v1.POST("/checkout/preference", co.IssuePreference)
		v1.POST("/orders/cash", co.PlaceCashOrder)
		v1.POST("/payments/verify", pay.Verify)

		// track-my-order, keyed by opaque id or phone
		v1.GET("/orders/:id", oh.GetOrderByID)
		v1.GET("/orders", oh.SearchByPhone)

		v1.GET("/admin/orders", authz.Require("orders.read"), oh.ListRecent)
	}

	return r
}
