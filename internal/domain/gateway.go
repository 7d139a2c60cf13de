package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus is the gateway's view of a trade, parsed at the adapter boundary.
type TradeStatus string

const (
	TradeSuccess     TradeStatus = "SUCCESS"
	TradeClosed      TradeStatus = "CLOSED"
	TradeWaitPayment TradeStatus = "WAIT_PAYMENT"
	TradeNotFound    TradeStatus = "NOT_FOUND"
	TradeUnknown     TradeStatus = "UNKNOWN"
)

type PaymentIntent struct {
	OrderRef  string
	Amount    decimal.Decimal
	Subject   string
	ReturnURL string
	Channel   Channel
	ExpireAt  time.Time
}

type TradeQueryResult struct {
	Found                bool
	Status               TradeStatus
	GatewayTransactionID string
	Amount               decimal.Decimal
	Raw                  []byte
}

type RefundRequest struct {
	OrderRef  string
	RefundRef string
	Amount    decimal.Decimal
	Reason    string
}

type RefundResult struct {
	Success bool
	Code    string
	Message string
}

// CallbackFields are the business fields of a notification whose signature
// has already been verified.
type CallbackFields struct {
	OrderRef             string
	TradeStatus          TradeStatus
	GatewayTransactionID string
	Amount               decimal.Decimal
	NotifyID             string
	Raw                  []byte
}

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, intent PaymentIntent) (string, error)
	QueryTrade(ctx context.Context, orderRef string) (*TradeQueryResult, error)
	CloseTrade(ctx context.Context, orderRef string) error
	RefundTrade(ctx context.Context, req RefundRequest) (*RefundResult, error)
	VerifyCallback(ctx context.Context, rawPayload []byte) (*CallbackFields, error)
}
