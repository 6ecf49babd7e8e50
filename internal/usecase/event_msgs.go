package usecase

// Outbox channels drained to RabbitMQ by the poller.
const (
	ChannelOrderConfirmed  = "order.confirmed"
	ChannelReconcileManual = "reconcile.manual"
)

// Published when the guard materializes an order.
type OrderConfirmedMsg struct {
	OrderID       string `json:"orderId"`
	PaymentID     string `json:"paymentId"`
	Total         string `json:"total"`
	CustomerPhone string `json:"customerPhone"`
}

// Published when an approved payment cannot be traced back to a staged
// attempt. Consumed by the back office for manual reconciliation.
type ManualReviewMsg struct {
	PaymentID    string `json:"paymentId"`
	StagingToken string `json:"stagingToken,omitempty"`
	Reason       string `json:"reason"`
}

// Sent by the back office on Kafka when an order's status changes there.
type OrderStatusChangedMsg struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"` // e.g. "CANCELLED"
}
