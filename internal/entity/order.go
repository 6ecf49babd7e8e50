package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendiente  Status = "Pendiente"
	StatusConfirmado Status = "Confirmado"
	StatusCancelado  Status = "Cancelado"
)

type PaymentMethod string

const (
	PaymentMercadoPago PaymentMethod = "mercadopago"
	PaymentEfectivo    PaymentMethod = "efectivo"
)

var (
	ErrInvalidTotal      = errors.New("invalid total")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CanTransition reports whether s -> to is an allowed move.
// Confirmado and Cancelado are terminal.
func (s Status) CanTransition(to Status) bool {
	if s != StatusPendiente {
		return false
	}
	return to == StatusConfirmado || to == StatusCancelado
}

type Order struct {
	ID            string
	PaymentID     string // empty for cash orders
	StagingToken  string
	Items         []CartLine
	Delivery      DeliveryChoice
	Total         decimal.Decimal
	Status        Status
	PaymentMethod PaymentMethod
	PaymentRaw    []byte // processor response body, kept verbatim for audit
	CustomerName  string
	CustomerPhone string
	CreatedAt     time.Time
}

func (o *Order) Validate() error {
	if len(o.Items) == 0 {
		return ErrEmptyCart
	}
	for i := range o.Items {
		if err := o.Items[i].Validate(); err != nil {
			return err
		}
	}
	if !o.Total.IsPositive() {
		return ErrInvalidTotal
	}
	return nil
}
