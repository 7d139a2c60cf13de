package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/models"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DefaultOrderRepository struct {
	DB *gorm.DB
}

func NewDefaultOrderRepository(db *gorm.DB) *DefaultOrderRepository {
	return &DefaultOrderRepository{DB: db}
}

func (r *DefaultOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	orderModel := mappers.ToGORMOrder(order)
	if err := r.DB.WithContext(ctx).Create(orderModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderRef, order.OrderRef)
		}
		return err
	}
	order.CreatedAt = orderModel.CreatedAt
	order.UpdatedAt = orderModel.UpdatedAt
	return nil
}

func (r *DefaultOrderRepository) GetOrderByRef(ctx context.Context, orderRef string) (*domain.Order, error) {
	var order models.PaymentOrderModel
	if err := r.DB.WithContext(ctx).First(&order, "order_ref = ?", orderRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	return mappers.ToDomainOrder(&order), nil
}

func (r *DefaultOrderRepository) GetLatestOrderByUserID(ctx context.Context, userID string) (*domain.Order, error) {
	var order models.PaymentOrderModel
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []domain.OrderStatus{domain.StatusPending, domain.StatusProcessing}).
		Order("created_at DESC").
		First(&order).Error
	if err == nil {
		return mappers.ToDomainOrder(&order), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return mappers.ToDomainOrder(&order), nil
}

func (r *DefaultOrderRepository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Order, error) {
	var orderModels []models.PaymentOrderModel
	if err := r.DB.WithContext(ctx).
		Where("status = ?", domain.StatusPending).
		Where("expire_at < ?", now).
		Order("expire_at ASC").
		Limit(limit).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	return toDomainOrders(orderModels), nil
}

func (r *DefaultOrderRepository) FindStaleClaims(ctx context.Context, claimedBefore time.Time, limit int) ([]*domain.Order, error) {
	var orderModels []models.PaymentOrderModel
	if err := r.DB.WithContext(ctx).
		Where("status = ?", domain.StatusProcessing).
		Where("claimed_at < ?", claimedBefore).
		Order("claimed_at ASC").
		Limit(limit).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	return toDomainOrders(orderModels), nil
}

func (r *DefaultOrderRepository) FindApplicationSyncBacklog(ctx context.Context, changedBefore time.Time, limit int) ([]*domain.Order, error) {
	var orderModels []models.PaymentOrderModel
	if err := r.DB.WithContext(ctx).
		Where(
			r.DB.Where("status IN ? AND application_synced = ?",
				[]domain.OrderStatus{domain.StatusPaid, domain.StatusPartialRefunded}, "").
				Or("status = ? AND application_synced <> ?", domain.StatusRefunded, domain.StatusRefunded),
		).
		Where("updated_at < ?", changedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}

	return toDomainOrders(orderModels), nil
}

func (r *DefaultOrderRepository) ClaimForProcessing(ctx context.Context, orderRef, claimToken string, now time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.PaymentOrderModel{}).
		Where("order_ref = ? AND status = ?", orderRef, domain.StatusPending).
		Updates(map[string]interface{}{
			"status":      domain.StatusProcessing,
			"claim_token": claimToken,
			"claimed_at":  now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ApplyTransition is the only status writer besides ClaimForProcessing.
// It refuses edges outside the state machine, and claim resolutions without
// a token, before touching the database.
func (r *DefaultOrderRepository) ApplyTransition(ctx context.Context, orderRef string, tr domain.Transition) (bool, error) {
	if !domain.CanTransition(tr.From, tr.To) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, tr.From, tr.To)
	}
	if tr.From == domain.StatusProcessing && tr.ClaimToken == "" {
		return false, fmt.Errorf("%w: leaving PROCESSING requires the claim token", domain.ErrIllegalTransition)
	}

	updates := patchColumns(tr.Patch)
	updates["status"] = tr.To
	updates["updated_at"] = time.Now().UTC()
	if tr.From == domain.StatusProcessing {
		updates["claim_token"] = nil
		updates["claimed_at"] = nil
	}

	query := r.DB.WithContext(ctx).
		Model(&models.PaymentOrderModel{}).
		Where("order_ref = ? AND status = ?", orderRef, tr.From)
	if tr.ClaimToken != "" {
		query = query.Where("claim_token = ?", tr.ClaimToken)
	}
	if tr.RefundRef != "" {
		query = query.Where("refund_ref = ?", tr.RefundRef)
	}

	res := query.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultOrderRepository) ReserveRefund(ctx context.Context, orderRef, refundRef string, amount decimal.Decimal) (bool, error) {
	res := r.DB.WithContext(ctx).
		Model(&models.PaymentOrderModel{}).
		Where("order_ref = ? AND status = ? AND refund_ref IS NULL", orderRef, domain.StatusPaid).
		Updates(map[string]interface{}{
			"refund_ref":    refundRef,
			"refund_amount": amount,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *DefaultOrderRepository) ReleaseRefund(ctx context.Context, orderRef, refundRef, lastError string) error {
	updates := map[string]interface{}{
		"refund_ref":    nil,
		"refund_amount": nil,
		"updated_at":    time.Now().UTC(),
	}
	if lastError != "" {
		updates["last_error"] = lastError
	}
	return r.DB.WithContext(ctx).
		Model(&models.PaymentOrderModel{}).
		Where("order_ref = ? AND status = ? AND refund_ref = ?", orderRef, domain.StatusPaid, refundRef).
		Updates(updates).Error
}

func (r *DefaultOrderRepository) MarkApplicationSynced(ctx context.Context, orderRef string, status domain.OrderStatus) error {
	// updated_at is left alone so the sync backlog ordering stays stable
	return r.DB.WithContext(ctx).
		Model(&models.PaymentOrderModel{}).
		Where("order_ref = ?", orderRef).
		UpdateColumn("application_synced", string(status)).Error
}

func (r *DefaultOrderRepository) RecordError(ctx context.Context, orderRef, lastError string) error {
	return r.DB.WithContext(ctx).
		Model(&models.PaymentOrderModel{}).
		Where("order_ref = ?", orderRef).
		UpdateColumn("last_error", lastError).Error
}

func patchColumns(p domain.OrderPatch) map[string]interface{} {
	cols := make(map[string]interface{})
	if p.GatewayTransactionID != nil {
		cols["gateway_transaction_id"] = *p.GatewayTransactionID
	}
	if p.PaidAt != nil {
		cols["paid_at"] = *p.PaidAt
	}
	if p.ClosedAt != nil {
		cols["closed_at"] = *p.ClosedAt
	}
	if p.RefundedAt != nil {
		cols["refunded_at"] = *p.RefundedAt
	}
	if p.RefundAmount != nil {
		cols["refund_amount"] = *p.RefundAmount
	}
	if p.RefundReason != nil {
		cols["refund_reason"] = *p.RefundReason
	}
	if p.RefundOperatorID != nil {
		cols["refund_operator_id"] = *p.RefundOperatorID
	}
	if p.LastError != nil {
		cols["last_error"] = *p.LastError
	}
	if len(p.RawNotification) > 0 {
		cols["raw_notification"] = datatypes.JSON(p.RawNotification)
	}
	return cols
}

func toDomainOrders(orderModels []models.PaymentOrderModel) []*domain.Order {
	orders := make([]*domain.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = mappers.ToDomainOrder(&orderModels[i])
	}
	return orders
}
