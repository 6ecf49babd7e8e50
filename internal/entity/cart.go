package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the selling unit of a product. Pasta is sold by weight (kg),
// by piece (unit) or by sheet (plancha).
type Unit string

const (
	UnitKg    Unit = "kg"
	UnitPiece Unit = "unit"
	UnitSheet Unit = "sheet"
)

var (
	ErrEmptyCart       = errors.New("empty cart")
	ErrUnknownUnit     = errors.New("unknown unit")
	ErrInvalidQuantity = errors.New("invalid quantity for unit")
	ErrInvalidPrice    = errors.New("invalid unit price")
	ErrUnknownZone     = errors.New("unknown delivery zone")
)

var quarterKg = decimal.NewFromFloat(0.25)

// Step returns the quantity increment for the unit.
func (u Unit) Step() decimal.Decimal {
	if u == UnitKg {
		return quarterKg
	}
	return decimal.NewFromInt(1)
}

// Min returns the smallest purchasable quantity. It equals the step.
func (u Unit) Min() decimal.Decimal { return u.Step() }

func (u Unit) valid() bool {
	return u == UnitKg || u == UnitPiece || u == UnitSheet
}

type CartLine struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	Unit        Unit
}

// Validate enforces the quantity-step invariant: quantities are a multiple
// of the unit's step and never below its minimum.
func (l *CartLine) Validate() error {
	if !l.Unit.valid() {
		return ErrUnknownUnit
	}
	if !l.UnitPrice.IsPositive() {
		return ErrInvalidPrice
	}
	step := l.Unit.Step()
	if l.Quantity.LessThan(l.Unit.Min()) || !l.Quantity.Mod(step).IsZero() {
		return ErrInvalidQuantity
	}
	return nil
}

// Subtotal is price * quantity for the line.
func (l *CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}

type DeliveryMode string

const (
	ModePickup   DeliveryMode = "pickup"
	ModeDelivery DeliveryMode = "delivery"
)

type DeliveryChoice struct {
	Mode    DeliveryMode
	Zone    string
	Address string
	Notes   string
}

type CheckoutTotal struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal
}

// StagedAttempt is the immutable snapshot of a checkout taken before the
// payment is confirmed. It is never updated or deleted; a later Order
// supersedes it.
type StagedAttempt struct {
	StagingToken  string
	Items         []CartLine
	Delivery      DeliveryChoice
	PaymentMethod PaymentMethod
	Total         decimal.Decimal
	CustomerName  string
	CustomerPhone string
	CreatedAt     time.Time
}
