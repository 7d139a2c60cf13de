package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/smartwalle/alipay/v3"
)

// The SDK returns an error for transport failures, unsigned error bodies and
// bad response signatures. All of them are retryable; only a signed
// response node is allowed to decide anything.

func (c *Client) QueryTrade(ctx context.Context, orderRef string) (*domain.TradeQueryResult, error) {
	start := c.Now()
	rsp, err := c.api.TradeQuery(ctx, alipay.TradeQuery{OutTradeNo: orderRef})
	if err != nil {
		c.record("query", "error", start)
		return nil, fmt.Errorf("%w: query %s: %v", domain.ErrGatewayRequest, orderRef, err)
	}
	raw, _ := json.Marshal(rsp)

	if isTradeNotExist(string(rsp.Code), rsp.SubCode) {
		c.record("query", "not_found", start)
		return &domain.TradeQueryResult{Found: false, Status: domain.TradeNotFound, Raw: raw}, nil
	}
	if string(rsp.Code) != codeSuccess {
		c.record("query", "error", start)
		return nil, fmt.Errorf("%w: query %s: %s %s", domain.ErrGatewayRequest, orderRef, rsp.Code, rsp.SubMsg)
	}

	result := &domain.TradeQueryResult{
		Found:                true,
		Status:               parseTradeStatus(string(rsp.TradeStatus)),
		GatewayTransactionID: rsp.TradeNo,
		Raw:                  raw,
	}
	if rsp.TotalAmount != "" {
		amount, err := decimal.NewFromString(rsp.TotalAmount)
		if err != nil {
			c.record("query", "error", start)
			return nil, fmt.Errorf("%w: query total_amount %q: %v", domain.ErrGatewayRequest, rsp.TotalAmount, err)
		}
		result.Amount = amount
	}
	c.record("query", "ok", start)
	return result, nil
}

// CloseTrade asks the gateway to close an unpaid trade. A trade the gateway
// never created counts as closed.
func (c *Client) CloseTrade(ctx context.Context, orderRef string) error {
	start := c.Now()
	rsp, err := c.api.TradeClose(ctx, alipay.TradeClose{OutTradeNo: orderRef})
	if err != nil {
		c.record("close", "error", start)
		return fmt.Errorf("%w: close %s: %v", domain.ErrGatewayRequest, orderRef, err)
	}
	if string(rsp.Code) != codeSuccess && !isTradeNotExist(string(rsp.Code), rsp.SubCode) {
		c.record("close", "error", start)
		return fmt.Errorf("%w: close %s: %s %s", domain.ErrGatewayRequest, orderRef, rsp.Code, rsp.SubMsg)
	}
	c.record("close", "ok", start)
	return nil
}

// RefundTrade returns Success=false with the gateway's message for business
// rejections (4xxxx codes). Everything else that is not a success stays an
// error: the refund may or may not have happened.
func (c *Client) RefundTrade(ctx context.Context, req domain.RefundRequest) (*domain.RefundResult, error) {
	start := c.Now()
	rsp, err := c.api.TradeRefund(ctx, alipay.TradeRefund{
		OutTradeNo:   req.OrderRef,
		RefundAmount: req.Amount.StringFixed(2),
		OutRequestNo: req.RefundRef,
		RefundReason: req.Reason,
	})
	if err != nil {
		c.record("refund", "error", start)
		return nil, fmt.Errorf("%w: refund %s: %v", domain.ErrGatewayRequest, req.OrderRef, err)
	}

	code := string(rsp.Code)
	switch {
	case code == codeSuccess:
		c.record("refund", "ok", start)
		return &domain.RefundResult{Success: true, Code: code}, nil
	case strings.HasPrefix(code, "4"):
		c.record("refund", "rejected", start)
		msg := rsp.SubMsg
		if msg == "" {
			msg = rsp.Msg
		}
		return &domain.RefundResult{Success: false, Code: rsp.SubCode, Message: msg}, nil
	default:
		c.record("refund", "error", start)
		return nil, fmt.Errorf("%w: refund %s: %s %s", domain.ErrGatewayRequest, req.OrderRef, code, rsp.SubMsg)
	}
}
