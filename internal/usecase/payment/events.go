package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// publishEvent sends a lifecycle event without holding up the caller.
func (uc *DefaultPaymentUsecase) publishEvent(ctx context.Context, order *domain.Order, source string) {
	if uc.Publisher == nil {
		return
	}

	event := domain.PaymentEvent{
		EventID:              uuid.New().String(),
		OrderRef:             order.OrderRef,
		UserID:               order.UserID,
		Status:               order.Status,
		Amount:               order.Amount.StringFixed(2),
		GatewayTransactionID: order.GatewayTransactionID,
		Source:               source,
		OccurredAt:           uc.now(),
	}
	if order.RefundAmount != nil {
		event.RefundAmount = order.RefundAmount.StringFixed(2)
	}

	uc.inflight.Add(1)
	go func(ctx context.Context, event domain.PaymentEvent) {
		defer uc.inflight.Done()
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := uc.Publisher.PublishPaymentEvent(ctx, event); err != nil {
			slog.Error("failed to publish payment event",
				"order_ref", event.OrderRef,
				"status", event.Status,
				"error", err.Error(),
			)
		}
	}(context.WithoutCancel(ctx), event)
}

// WaitForEvents blocks until every pending event publish has returned or
// ctx is done.
func (uc *DefaultPaymentUsecase) WaitForEvents(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		uc.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
