package paymentdto

import "github.com/shopspring/decimal"

type CreateOrderInput struct {
	UserID    string
	Amount    decimal.Decimal
	Subject   string
	ReturnURL string
	Channel   string
}

// PollInput selects an order by OrderRef, or the latest order of UserID
// when OrderRef is empty.
type PollInput struct {
	OrderRef string
	UserID   string
}

type RefundInput struct {
	OrderRef   string
	Amount     decimal.Decimal
	Reason     string
	OperatorID string
}
