package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
)

// HandleCallback processes one asynchronous gateway notification. It only
// refuses (Ack=false) bad signatures, unusable payloads, amount mismatches
// and store failures; everything else is acknowledged so the gateway stops
// redelivering. The returned error, if any, is for logging only.
func (uc *DefaultPaymentUsecase) HandleCallback(ctx context.Context, rawPayload []byte) (*paymentdto.NotifyResult, error) {
	receivedAt := uc.now()

	fields, err := uc.Gateway.VerifyCallback(ctx, rawPayload)
	if err != nil {
		outcome := paymentdto.NotifyRejectedPayload
		if errors.Is(err, domain.ErrGatewaySignatureInvalid) {
			outcome = paymentdto.NotifyRejectedSignature
			slog.Error("gateway notification failed verification",
				"error", err.Error(),
				"payload_size", len(rawPayload),
			)
		} else {
			slog.Warn("gateway notification could not be parsed", "error", err.Error())
		}
		uc.logNotification(ctx, &domain.NotificationLog{
			Verified:   false,
			Result:     domain.NotificationRejected,
			Reason:     err.Error(),
			ReceivedAt: receivedAt,
		})
		uc.recordNotification(outcome)
		return &paymentdto.NotifyResult{Ack: false, Outcome: outcome}, err
	}

	result, err := uc.applyCallback(ctx, fields)
	result.OrderRef = fields.OrderRef
	uc.recordNotification(result.Outcome)

	entry := &domain.NotificationLog{
		OrderRef:             fields.OrderRef,
		GatewayTransactionID: fields.GatewayTransactionID,
		TradeStatus:          fields.TradeStatus,
		Amount:               fields.Amount.String(),
		Verified:             true,
		Result:               notificationResult(result),
		Reason:               string(result.Outcome),
		Payload:              fields.Raw,
		ReceivedAt:           receivedAt,
	}
	if err != nil {
		entry.Reason = err.Error()
	}
	uc.logNotification(ctx, entry)

	return result, err
}

func (uc *DefaultPaymentUsecase) applyCallback(ctx context.Context, fields *domain.CallbackFields) (*paymentdto.NotifyResult, error) {
	order, err := uc.OrderRepo.GetOrderByRef(ctx, fields.OrderRef)
	if errors.Is(err, domain.ErrOrderNotFound) {
		slog.Warn("notification for unknown order", "order_ref", fields.OrderRef)
		return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyUnknownOrder}, nil
	}
	if err != nil {
		return &paymentdto.NotifyResult{Ack: false, Outcome: paymentdto.NotifyStoreError}, fmt.Errorf("load %s: %w", fields.OrderRef, err)
	}

	if !amountsMatch(order.Amount, fields.Amount) {
		slog.Error("notification amount does not match order",
			"order_ref", order.OrderRef,
			"order_amount", order.Amount.StringFixed(2),
			"notified_amount", fields.Amount.StringFixed(2),
			"trade_status", fields.TradeStatus,
		)
		return &paymentdto.NotifyResult{Ack: false, Outcome: paymentdto.NotifyRejectedAmount}, domain.ErrAmountMismatch
	}

	switch fields.TradeStatus {
	case domain.TradeSuccess:
		return uc.applyPaidCallback(ctx, order, fields)
	case domain.TradeClosed:
		return uc.applyClosedCallback(ctx, order)
	default:
		return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyIgnored}, nil
	}
}

func (uc *DefaultPaymentUsecase) applyPaidCallback(ctx context.Context, order *domain.Order, fields *domain.CallbackFields) (*paymentdto.NotifyResult, error) {
	switch {
	case order.Status.IsPaid():
		return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyDuplicate}, nil
	case order.Status == domain.StatusClosed:
		// money arrived after we gave up on the order; needs a manual refund
		slog.Error("payment received for a closed order",
			"order_ref", order.OrderRef,
			"user_id", order.UserID,
			"gateway_transaction_id", fields.GatewayTransactionID,
			"amount", fields.Amount.StringFixed(2),
		)
		uc.recordError("webhook", "late_payment")
		if err := uc.OrderRepo.RecordError(ctx, order.OrderRef, "late payment "+fields.GatewayTransactionID); err != nil {
			slog.Error("failed to record late payment", "order_ref", order.OrderRef, "error", err.Error())
		}
		return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyLatePayment}, nil
	case order.Status == domain.StatusProcessing:
		// the claim holder queries the gateway and will see the same success
		return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyInProgress}, nil
	}

	if fields.GatewayTransactionID == "" {
		return &paymentdto.NotifyResult{Ack: false, Outcome: paymentdto.NotifyRejectedPayload},
			fmt.Errorf("%w: success notification without trade_no", domain.ErrInvalidRequest)
	}

	paidAt := uc.now()
	txID := fields.GatewayTransactionID
	won, err := uc.OrderRepo.ApplyTransition(ctx, order.OrderRef, domain.Transition{
		From: domain.StatusPending,
		To:   domain.StatusPaid,
		Patch: domain.OrderPatch{
			GatewayTransactionID: &txID,
			PaidAt:               &paidAt,
			RawNotification:      fields.Raw,
		},
	})
	if err != nil {
		return &paymentdto.NotifyResult{Ack: false, Outcome: paymentdto.NotifyStoreError}, fmt.Errorf("mark %s paid: %w", order.OrderRef, err)
	}
	if !won {
		return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyDuplicate}, nil
	}

	order.Status = domain.StatusPaid
	order.GatewayTransactionID = txID
	order.PaidAt = &paidAt
	uc.afterPaid(ctx, order, "webhook")
	return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyPaid}, nil
}

func (uc *DefaultPaymentUsecase) applyClosedCallback(ctx context.Context, order *domain.Order) (*paymentdto.NotifyResult, error) {
	if order.Status != domain.StatusPending {
		// already closed, being reconciled, or a full refund closing the trade
		return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyDuplicate}, nil
	}

	closedAt := uc.now()
	won, err := uc.OrderRepo.ApplyTransition(ctx, order.OrderRef, domain.Transition{
		From:  domain.StatusPending,
		To:    domain.StatusClosed,
		Patch: domain.OrderPatch{ClosedAt: &closedAt},
	})
	if err != nil {
		return &paymentdto.NotifyResult{Ack: false, Outcome: paymentdto.NotifyStoreError}, fmt.Errorf("mark %s closed: %w", order.OrderRef, err)
	}
	if !won {
		return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyDuplicate}, nil
	}

	order.Status = domain.StatusClosed
	order.ClosedAt = &closedAt
	uc.afterClosed(ctx, order, "webhook")
	return &paymentdto.NotifyResult{Ack: true, Outcome: paymentdto.NotifyClosed}, nil
}

func (uc *DefaultPaymentUsecase) logNotification(ctx context.Context, entry *domain.NotificationLog) {
	if uc.NotificationLog == nil {
		return
	}
	if err := uc.NotificationLog.LogNotification(ctx, entry); err != nil {
		slog.Error("failed to store notification log", "order_ref", entry.OrderRef, "error", err.Error())
	}
}

func notificationResult(res *paymentdto.NotifyResult) domain.NotificationResult {
	switch {
	case !res.Ack:
		return domain.NotificationRejected
	case res.Outcome == paymentdto.NotifyPaid || res.Outcome == paymentdto.NotifyClosed:
		return domain.NotificationHandled
	default:
		return domain.NotificationIgnored
	}
}
