package response

import "time"

const (
	CodeOK             = 0
	CodeInvalidRequest = 40001
	CodeInvalidAmount  = 40002
	CodeUnauthorized   = 40101
	CodeNotFound       = 40401
	CodeInvalidState   = 40901
	CodeRateLimited    = 42901
	CodeInternal       = 50001
	CodeGateway        = 50201
)

// Envelope wraps every JSON answer; Code is 0 on success.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type CreateOrderResponse struct {
	PayURL   string `json:"pay_url"`
	OrderRef string `json:"order_ref"`
}

type StatusResponse struct {
	OrderRef string     `json:"order_ref"`
	Status   string     `json:"status"`
	ExpireAt *time.Time `json:"expire_at,omitempty"`
}

type RefundResponse struct {
	RefundRef string `json:"refund_ref"`
	Status    string `json:"status"`
}
