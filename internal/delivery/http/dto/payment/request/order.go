package request

import "github.com/shopspring/decimal"

type CreateOrderRequest struct {
	UserID    string          `json:"user_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Subject   string          `json:"subject" binding:"required"`
	ReturnURL string          `json:"return_url"`
	Channel   string          `json:"channel"`
}

type StatusQuery struct {
	OrderRef string `form:"order_ref"`
	UserID   string `form:"user_id"`
}

type RefundRequest struct {
	OrderRef     string          `json:"order_ref" binding:"required"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Reason       string          `json:"reason"`
	OperatorID   string          `json:"operator_id" binding:"required"`
}
