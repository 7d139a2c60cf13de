package application

import "time"

type MarkPaidRequest struct {
	OrderRef string    `json:"order_ref"`
	Amount   string    `json:"amount"`
	PaidAt   time.Time `json:"paid_at"`
}

type MarkWithdrawnRequest struct {
	RefundedAt time.Time `json:"refunded_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
