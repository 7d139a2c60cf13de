package publisher

import (
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
)

// PaymentEvent is the wire form of a lifecycle change on the payment-events topic.
type PaymentEvent struct {
	EventID              string    `json:"event_id"`
	OrderRef             string    `json:"order_ref"`
	UserID               string    `json:"user_id"`
	Status               string    `json:"status"`
	Amount               string    `json:"amount"`
	RefundAmount         string    `json:"refund_amount,omitempty"`
	GatewayTransactionID string    `json:"gateway_transaction_id,omitempty"`
	Source               string    `json:"source"`
	OccurredAt           time.Time `json:"occurred_at"`
}

func toPaymentEvent(e domain.PaymentEvent) PaymentEvent {
	return PaymentEvent{
		EventID:              e.EventID,
		OrderRef:             e.OrderRef,
		UserID:               e.UserID,
		Status:               string(e.Status),
		Amount:               e.Amount,
		RefundAmount:         e.RefundAmount,
		GatewayTransactionID: e.GatewayTransactionID,
		Source:               e.Source,
		OccurredAt:           e.OccurredAt.UTC(),
	}
}
