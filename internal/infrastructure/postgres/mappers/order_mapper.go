package mappers

import (
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

func ToDomainOrder(model *models.PaymentOrderModel) *domain.Order {
	order := &domain.Order{
		ID:                   model.ID,
		OrderRef:             model.OrderRef,
		UserID:               model.UserID,
		Amount:               model.Amount,
		Subject:              model.Subject,
		Channel:              domain.Channel(model.Channel),
		Status:               model.Status,
		CreatedAt:            model.CreatedAt,
		ExpireAt:             model.ExpireAt,
		UpdatedAt:            model.UpdatedAt,
		ClaimToken:           deref(model.ClaimToken),
		ClaimedAt:            model.ClaimedAt,
		GatewayTransactionID: deref(model.GatewayTransactionID),
		PaidAt:               model.PaidAt,
		ClosedAt:             model.ClosedAt,
		RefundedAt:           model.RefundedAt,
		RefundRef:            deref(model.RefundRef),
		RefundReason:         deref(model.RefundReason),
		RefundOperatorID:     deref(model.RefundOperatorID),
		ApplicationSynced:    domain.OrderStatus(model.ApplicationSynced),
		LastError:            deref(model.LastError),
	}
	if model.RefundAmount.Valid {
		amount := model.RefundAmount.Decimal
		order.RefundAmount = &amount
	}
	if len(model.RawNotification) > 0 {
		order.RawNotification = []byte(model.RawNotification)
	}
	return order
}

func ToGORMOrder(order *domain.Order) *models.PaymentOrderModel {
	model := &models.PaymentOrderModel{
		ID:                   order.ID,
		OrderRef:             order.OrderRef,
		UserID:               order.UserID,
		Amount:               order.Amount,
		Subject:              order.Subject,
		Channel:              string(order.Channel),
		Status:               order.Status,
		ExpireAt:             order.ExpireAt,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
		ClaimToken:           ref(order.ClaimToken),
		ClaimedAt:            order.ClaimedAt,
		GatewayTransactionID: ref(order.GatewayTransactionID),
		PaidAt:               order.PaidAt,
		ClosedAt:             order.ClosedAt,
		RefundedAt:           order.RefundedAt,
		RefundRef:            ref(order.RefundRef),
		RefundReason:         ref(order.RefundReason),
		RefundOperatorID:     ref(order.RefundOperatorID),
		ApplicationSynced:    string(order.ApplicationSynced),
		LastError:            ref(order.LastError),
	}
	if order.RefundAmount != nil {
		model.RefundAmount = decimal.NewNullDecimal(*order.RefundAmount)
	}
	if len(order.RawNotification) > 0 {
		model.RawNotification = datatypes.JSON(order.RawNotification)
	}
	return model
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
