package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

// HTTPApplicationClient calls the admissions portal's internal API.
type HTTPApplicationClient struct {
	Address string
	Token   string
	client  *http.Client
}

var _ domain.ApplicationStore = (*HTTPApplicationClient)(nil)

func NewHTTPApplicationClient(address, token string, timeout time.Duration) *HTTPApplicationClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPApplicationClient{
		Address: address,
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPApplicationClient) MarkPaid(ctx context.Context, userID, orderRef string, amount decimal.Decimal, paidAt time.Time) error {
	return c.post(ctx, fmt.Sprintf("%s/internal/applications/%s/paid", c.Address, url.PathEscape(userID)), MarkPaidRequest{
		OrderRef: orderRef,
		Amount:   amount.StringFixed(2),
		PaidAt:   paidAt,
	})
}

func (c *HTTPApplicationClient) MarkWithdrawn(ctx context.Context, userID string, refundedAt time.Time) error {
	return c.post(ctx, fmt.Sprintf("%s/internal/applications/%s/withdrawn", c.Address, url.PathEscape(userID)), MarkWithdrawnRequest{
		RefundedAt: refundedAt,
	})
}

func (c *HTTPApplicationClient) post(ctx context.Context, endpoint string, payload any) error {
	requestBodyBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBodyBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	response, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("application service: %w", err)
	}
	defer response.Body.Close()
	responseBodyBytes, err := io.ReadAll(io.LimitReader(response.Body, 64<<10))
	if err != nil {
		return err
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return nil
	}
	var errorResponse ErrorResponse
	if err := json.Unmarshal(responseBodyBytes, &errorResponse); err != nil || errorResponse.Error == "" {
		return fmt.Errorf("application service returned status %d", response.StatusCode)
	}
	return errors.New(errorResponse.Error)
}
