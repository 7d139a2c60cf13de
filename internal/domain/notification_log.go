package domain

import (
	"context"
	"time"
)

type NotificationResult string

const (
	NotificationHandled  NotificationResult = "handled"
	NotificationIgnored  NotificationResult = "ignored"
	NotificationRejected NotificationResult = "rejected"
)

type NotificationLog struct {
	ID                   string
	OrderRef             string
	GatewayTransactionID string
	TradeStatus          TradeStatus
	Amount               string
	Verified             bool
	Result               NotificationResult
	Reason               string
	Payload              []byte
	ReceivedAt           time.Time
}

type NotificationLogger interface {
	LogNotification(ctx context.Context, entry *NotificationLog) error
}
