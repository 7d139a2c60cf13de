package domain

import (
	"context"
	"time"
)

type PaymentEvent struct {
	EventID              string
	OrderRef             string
	UserID               string
	Status               OrderStatus
	Amount               string
	RefundAmount         string
	GatewayTransactionID string
	Source               string
	OccurredAt           time.Time
}

type EventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
}

// OrphanIntentStore parks orders whose gateway intent was created but whose
// local insert failed, so a later sweep can re-insert them.
type OrphanIntentStore interface {
	Park(ctx context.Context, order *Order) error
	List(ctx context.Context, limit int) ([]*Order, error)
	Remove(ctx context.Context, orderRef string) error
}
