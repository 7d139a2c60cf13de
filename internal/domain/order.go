package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusProcessing      OrderStatus = "PROCESSING"
	StatusPaid            OrderStatus = "PAID"
	StatusClosed          OrderStatus = "CLOSED"
	StatusPartialRefunded OrderStatus = "PARTIAL_REFUNDED"
	StatusRefunded        OrderStatus = "REFUNDED"
)

// Channel selects the gateway checkout flavour for the buyer's browser.
type Channel string

const (
	ChannelDesktop Channel = "desktop"
	ChannelMobile  Channel = "mobile"
)

func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelDesktop, "":
		return ChannelDesktop, true
	case ChannelMobile:
		return ChannelMobile, true
	}
	return "", false
}

// transitions lists every edge of the order state machine.
// PROCESSING -> PENDING is the only backwards edge (claim rollback).
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusProcessing, StatusPaid, StatusClosed},
	StatusProcessing: {StatusPending, StatusPaid, StatusClosed},
	StatusPaid:       {StatusPartialRefunded, StatusRefunded},
}

func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusPaid, StatusClosed, StatusPartialRefunded, StatusRefunded:
		return true
	}
	return false
}

// IsPaid reports whether the buyer's money reached the gateway at some point.
func (s OrderStatus) IsPaid() bool {
	return s == StatusPaid || s == StatusPartialRefunded || s == StatusRefunded
}

// Visible is the status shown to a polling client: an order held by a
// reconciler is still pending from the client's point of view.
func (s OrderStatus) Visible() OrderStatus {
	if s == StatusProcessing {
		return StatusPending
	}
	return s
}

type Order struct {
	ID        string
	OrderRef  string
	UserID    string
	Amount    decimal.Decimal
	Subject   string
	Channel   Channel
	Status    OrderStatus
	CreatedAt time.Time
	ExpireAt  time.Time
	UpdatedAt time.Time

	ClaimToken           string
	ClaimedAt            *time.Time
	GatewayTransactionID string
	PaidAt               *time.Time
	ClosedAt             *time.Time
	RefundedAt           *time.Time

	RefundRef        string
	RefundAmount     *decimal.Decimal
	RefundReason     string
	RefundOperatorID string

	// ApplicationSynced holds the last status the admissions application
	// was told about (PAID or REFUNDED), empty if none yet.
	ApplicationSynced OrderStatus

	LastError       string
	RawNotification []byte
}

func (o *Order) Expired(now time.Time) bool {
	return now.After(o.ExpireAt)
}

// OrderPatch carries the columns written together with a status change.
// Nil fields are left untouched.
type OrderPatch struct {
	GatewayTransactionID *string
	PaidAt               *time.Time
	ClosedAt             *time.Time
	RefundedAt           *time.Time
	RefundAmount         *decimal.Decimal
	RefundReason         *string
	RefundOperatorID     *string
	LastError            *string
	RawNotification      []byte
}

// Transition is a compare-and-set on the order status. Leaving PROCESSING
// requires the ClaimToken written by the claim; when RefundRef is set the
// reserved refund reference must match.
type Transition struct {
	From       OrderStatus
	To         OrderStatus
	ClaimToken string
	RefundRef  string
	Patch      OrderPatch
}
