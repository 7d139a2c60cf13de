package models

import (
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type PaymentOrderModel struct {
	ID        string             `gorm:"primaryKey;type:uuid"`
	OrderRef  string             `gorm:"uniqueIndex;size:64;not null"`
	UserID    string             `gorm:"index:idx_user_created;size:64;not null"`
	Amount    decimal.Decimal    `gorm:"type:numeric(12,2);not null"`
	Subject   string             `gorm:"size:256"`
	Channel   string             `gorm:"size:16"`
	Status    domain.OrderStatus `gorm:"index:idx_status_expire;size:32;not null"`
	ExpireAt  time.Time          `gorm:"index:idx_status_expire;not null"`
	CreatedAt time.Time          `gorm:"index:idx_user_created"`
	UpdatedAt time.Time

	ClaimToken *string `gorm:"size:64"`
	ClaimedAt  *time.Time

	GatewayTransactionID *string `gorm:"size:64"`
	PaidAt               *time.Time
	ClosedAt             *time.Time
	RefundedAt           *time.Time

	RefundRef        *string             `gorm:"uniqueIndex;size:64"`
	RefundAmount     decimal.NullDecimal `gorm:"type:numeric(12,2)"`
	RefundReason     *string
	RefundOperatorID *string `gorm:"size:64"`

	ApplicationSynced string `gorm:"size:32;not null;default:''"`

	LastError       *string
	RawNotification datatypes.JSON `gorm:"type:jsonb"`
}

func (PaymentOrderModel) TableName() string { return "payment_orders" }
