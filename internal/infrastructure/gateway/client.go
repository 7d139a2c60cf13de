package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
	_ "time/tzdata"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/smartwalle/alipay/v3"
)

const (
	productPagePay = "FAST_INSTANT_TRADE_PAY"
	productWapPay  = "QUICK_WAP_WAY"

	timeLayout      = "2006-01-02 15:04:05"
	DefaultTimeZone = "Asia/Shanghai"
)

// CallRecorder receives the latency and outcome of every outbound call.
type CallRecorder interface {
	RecordGatewayCall(operation, outcome string, duration time.Duration)
}

type Config struct {
	Endpoint  string
	AppID     string
	NotifyURL string
	Timeout   time.Duration
	// PrivateKey and GatewayPublicKey are bare base64 DER, as LoadKey returns.
	PrivateKey       string
	GatewayPublicKey string
	// Location is the zone the gateway reads time_expire and timestamp in.
	// DefaultTimeZone when nil.
	Location *time.Location
}

// Client adapts the Alipay open API SDK to domain.PaymentGateway.
type Client struct {
	api       *alipay.Client
	appID     string
	notifyURL string
	location  *time.Location

	Recorder CallRecorder
	Now      func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" || cfg.AppID == "" {
		return nil, errors.New("gateway endpoint and app id are required")
	}
	if cfg.PrivateKey == "" || cfg.GatewayPublicKey == "" {
		return nil, errors.New("gateway keys are required")
	}

	location := cfg.Location
	if location == nil {
		var err error
		if location, err = time.LoadLocation(DefaultTimeZone); err != nil {
			return nil, fmt.Errorf("load gateway time zone: %w", err)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	api, err := alipay.New(cfg.AppID, cfg.PrivateKey, true,
		alipay.WithProductionGateway(cfg.Endpoint),
		alipay.WithTimeLocation(location),
		alipay.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("init gateway client: %w", err)
	}
	if err := api.LoadAliPayPublicKey(cfg.GatewayPublicKey); err != nil {
		return nil, fmt.Errorf("load gateway public key: %w", err)
	}

	return &Client{
		api:       api,
		appID:     cfg.AppID,
		notifyURL: cfg.NotifyURL,
		location:  location,
		Now:       time.Now,
	}, nil
}

// CreatePaymentIntent signs a checkout request and returns the URL the buyer's
// browser is redirected to. The trade itself is created by the gateway when
// the buyer opens it.
func (c *Client) CreatePaymentIntent(ctx context.Context, intent domain.PaymentIntent) (string, error) {
	start := c.Now()
	trade := alipay.Trade{
		NotifyURL:   c.notifyURL,
		ReturnURL:   intent.ReturnURL,
		Subject:     intent.Subject,
		OutTradeNo:  intent.OrderRef,
		TotalAmount: intent.Amount.StringFixed(2),
	}
	if !intent.ExpireAt.IsZero() {
		trade.TimeExpire = c.gatewayTime(intent.ExpireAt)
	}

	var (
		payURL *url.URL
		err    error
	)
	if intent.Channel == domain.ChannelMobile {
		trade.ProductCode = productWapPay
		payURL, err = c.api.TradeWapPay(alipay.TradeWapPay{Trade: trade, QuitURL: intent.ReturnURL})
	} else {
		trade.ProductCode = productPagePay
		payURL, err = c.api.TradePagePay(alipay.TradePagePay{Trade: trade})
	}
	if err != nil {
		c.record("create", "error", start)
		return "", fmt.Errorf("%w: build pay url: %v", domain.ErrGatewayRequest, err)
	}
	c.record("create", "ok", start)
	return payURL.String(), nil
}

// gatewayTime renders t as wall-clock time in the gateway's zone.
func (c *Client) gatewayTime(t time.Time) string {
	return t.In(c.location).Format(timeLayout)
}

func (c *Client) record(operation, outcome string, start time.Time) {
	if c.Recorder == nil {
		return
	}
	c.Recorder.RecordGatewayCall(operation, outcome, c.Now().Sub(start))
}
