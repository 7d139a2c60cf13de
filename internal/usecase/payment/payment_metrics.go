package usecase

import (
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
)

func (uc *DefaultPaymentUsecase) recordOrderCreatedMetrics(order *domain.Order) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordOrderCreated(string(order.Channel), order.Amount.InexactFloat64())
}

func (uc *DefaultPaymentUsecase) recordOrderPaidMetrics(order *domain.Order, source string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordOrderPaid(source, order.Amount.InexactFloat64())
}

func (uc *DefaultPaymentUsecase) recordOrderClosedMetrics(source string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordOrderClosed(source)
}

func (uc *DefaultPaymentUsecase) recordRefundMetrics(order *domain.Order) {
	if uc.Metrics == nil || order.RefundAmount == nil {
		return
	}
	uc.Metrics.RecordRefund(string(order.Status), order.RefundAmount.InexactFloat64())
}

func (uc *DefaultPaymentUsecase) recordNotification(outcome paymentdto.NotifyOutcome) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordNotification(string(outcome))
}

func (uc *DefaultPaymentUsecase) recordOrphan(action string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordOrphanIntent(action)
}

func (uc *DefaultPaymentUsecase) recordApplicationError(operation string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordApplicationError(operation)
}

func (uc *DefaultPaymentUsecase) recordError(operation, kind string) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordError(operation, kind)
}

func (uc *DefaultPaymentUsecase) recordSweepMetrics(res *paymentdto.SweepResult, duration time.Duration) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordSweep(duration, map[string]int{
		"paid":      res.Paid,
		"closed":    res.Closed,
		"released":  res.Released,
		"skipped":   res.Skipped,
		"failed":    res.Failed,
		"recovered": res.Recovered,
		"synced":    res.Synced,
	})
}
