package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// VerifyCallback checks an asynchronous notification body (form encoded) and
// extracts its business fields. Nothing in the payload is trusted until the
// signature and app_id check out.
func (c *Client) VerifyCallback(ctx context.Context, rawPayload []byte) (*domain.CallbackFields, error) {
	form, err := url.ParseQuery(string(rawPayload))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed body: %v", domain.ErrGatewaySignatureInvalid, err)
	}
	if form.Get("sign") == "" {
		return nil, fmt.Errorf("%w: missing sign", domain.ErrGatewaySignatureInvalid)
	}
	if err := c.api.VerifySign(ctx, form); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewaySignatureInvalid, err)
	}
	if form.Get("app_id") != c.appID {
		return nil, fmt.Errorf("%w: app_id %q", domain.ErrGatewaySignatureInvalid, form.Get("app_id"))
	}

	if form.Get("out_trade_no") == "" {
		return nil, fmt.Errorf("%w: notification without out_trade_no", domain.ErrInvalidRequest)
	}
	amount, err := decimal.NewFromString(form.Get("total_amount"))
	if err != nil {
		return nil, fmt.Errorf("%w: total_amount %q", domain.ErrInvalidRequest, form.Get("total_amount"))
	}

	params := make(map[string]string, len(form))
	for k := range form {
		if k != "sign" {
			params[k] = form.Get(k)
		}
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}

	return &domain.CallbackFields{
		OrderRef:             form.Get("out_trade_no"),
		TradeStatus:          parseTradeStatus(form.Get("trade_status")),
		GatewayTransactionID: form.Get("trade_no"),
		Amount:               amount,
		NotifyID:             form.Get("notify_id"),
		Raw:                  raw,
	}, nil
}
