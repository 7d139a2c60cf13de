package logger

import (
	"context"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentNotificationLog is the audit row for one inbound gateway notification.
type PaymentNotificationLog struct {
	ID                   string         `gorm:"primaryKey;type:uuid"`
	OrderRef             string         `gorm:"index;size:64"`
	GatewayTransactionID string         `gorm:"size:64"`
	TradeStatus          string         `gorm:"size:32"`
	Amount               string         `gorm:"size:32"`
	Verified             bool           `gorm:"not null"`
	Result               string         `gorm:"size:16;not null"`
	Reason               string
	Payload              datatypes.JSON `gorm:"type:jsonb"`
	ReceivedAt           time.Time      `gorm:"index;not null"`
}

type PGNotificationLogger struct {
	db *gorm.DB
}

func NewPGNotificationLogger(db *gorm.DB) *PGNotificationLogger {
	return &PGNotificationLogger{db: db}
}

func (l *PGNotificationLogger) LogNotification(ctx context.Context, entry *domain.NotificationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	row := PaymentNotificationLog{
		ID:                   entry.ID,
		OrderRef:             entry.OrderRef,
		GatewayTransactionID: entry.GatewayTransactionID,
		TradeStatus:          string(entry.TradeStatus),
		Amount:               entry.Amount,
		Verified:             entry.Verified,
		Result:               string(entry.Result),
		Reason:               entry.Reason,
		ReceivedAt:           entry.ReceivedAt,
	}
	// unverified payloads are attacker controlled and not guaranteed JSON
	if entry.Verified && len(entry.Payload) > 0 {
		row.Payload = datatypes.JSON(entry.Payload)
	}
	return l.db.WithContext(ctx).Create(&row).Error
}

func (l *PGNotificationLogger) ListByOrderRef(ctx context.Context, orderRef string) ([]*domain.NotificationLog, error) {
	var rows []PaymentNotificationLog
	if err := l.db.WithContext(ctx).
		Where("order_ref = ?", orderRef).
		Order("received_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*domain.NotificationLog, len(rows))
	for i, row := range rows {
		out[i] = &domain.NotificationLog{
			ID:                   row.ID,
			OrderRef:             row.OrderRef,
			GatewayTransactionID: row.GatewayTransactionID,
			TradeStatus:          domain.TradeStatus(row.TradeStatus),
			Amount:               row.Amount,
			Verified:             row.Verified,
			Result:               domain.NotificationResult(row.Result),
			Reason:               row.Reason,
			Payload:              []byte(row.Payload),
			ReceivedAt:           row.ReceivedAt,
		}
	}
	return out, nil
}
