package domain

import "github.com/shopspring/decimal"

// PaymentStatus mirrors the processor's payment status values.
type PaymentStatus string

const (
	PaymentApproved PaymentStatus = "approved"
	PaymentPending  PaymentStatus = "pending"
	PaymentRejected PaymentStatus = "rejected"
)

// CorrelationData is the metadata round-tripped through the processor so a
// status report can be traced back to its staged attempt. Decoded once at the
// gateway boundary; fields are optional because the processor echoes whatever
// the preference carried.
type CorrelationData struct {
	StagingToken  string
	PaymentMethod string
}

// PaymentRecord is the read-only view of a processor payment. RawPayload keeps
// the processor's response body verbatim for audit.
type PaymentRecord struct {
	ID          string
	Status      PaymentStatus
	Amount      decimal.Decimal
	PayerEmail  string
	Correlation CorrelationData
	RawPayload  []byte
}

func (p *PaymentRecord) Approved() bool { return p.Status == PaymentApproved }
