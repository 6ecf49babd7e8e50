package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	domain "github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/entity"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

// OrderHandler serves the read-only order surface: the public "track my
// order" lookups and the back-office listing.
type OrderHandler struct {
	query  usecase.OrderRepo
	status usecase.StatusCache // optional
}

func NewOrderHandler(query usecase.OrderRepo, status usecase.StatusCache) *OrderHandler {
	return &OrderHandler{query: query, status: status}
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	id := c.Param("id")
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	order, err := h.query.GetByID(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	// overlay a fresher cached status if one exists
	if h.status != nil {
		if s, ok, _ := h.status.GetStatus(ctx, order.ID); ok {
			order.Status = domain.Status(s)
		}
	}
	c.JSON(http.StatusOK, orderToJSON(order))
}

func (h *OrderHandler) SearchByPhone(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	orders, err := h.query.SearchByPhone(ctx, phone)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, ordersToJSON(orders))
}

func (h *OrderHandler) ListRecent(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	orders, err := h.query.ListRecent(ctx, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, ordersToJSON(orders))
}

type orderLineJSON struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	UnitPrice   string `json:"unitPrice"`
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`
}

type orderJSON struct {
	ID            string          `json:"id"`
	PaymentID     string          `json:"paymentId,omitempty"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	Total         string          `json:"total"`
	Items         []orderLineJSON `json:"items"`
	Delivery      gin.H           `json:"delivery"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func orderToJSON(o *domain.Order) orderJSON {
	items := make([]orderLineJSON, 0, len(o.Items))
	for _, l := range o.Items {
		items = append(items, orderLineJSON{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			Quantity:    l.Quantity.String(),
			Unit:        string(l.Unit),
		})
	}
	return orderJSON{
		ID:            o.ID,
		PaymentID:     o.PaymentID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		Total:         o.Total.StringFixed(2),
		Items:         items,
		Delivery: gin.H{
			"mode":    o.Delivery.Mode,
			"zone":    o.Delivery.Zone,
			"address": o.Delivery.Address,
			"notes":   o.Delivery.Notes,
		},
		CustomerName:  o.CustomerName,
		CustomerPhone: o.CustomerPhone,
		CreatedAt:     o.CreatedAt,
	}
}

func ordersToJSON(orders []domain.Order) []orderJSON {
	out := make([]orderJSON, 0, len(orders))
	for i := range orders {
		out = append(out, orderToJSON(&orders[i]))
	}
	return out
}
