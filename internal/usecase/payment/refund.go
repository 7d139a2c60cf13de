package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	"github.com/shopspring/decimal"
)

// Refund returns money for a PAID order. The refund reference and amount are
// reserved on the row before the gateway is called, so two operators cannot
// refund the same order at once. Only a business rejection releases the
// reservation: after a transport failure the gateway may have paid out, and
// a retry for the same amount resends the same reference.
func (uc *DefaultPaymentUsecase) Refund(ctx context.Context, input *paymentdto.RefundInput) (*paymentdto.RefundOutput, error) {
	if input == nil || strings.TrimSpace(input.OrderRef) == "" {
		return nil, fmt.Errorf("%w: order_ref is required", domain.ErrInvalidRequest)
	}
	if !validAmount(input.Amount) {
		return nil, fmt.Errorf("%w: refund_amount must be > 0 with at most two decimals", domain.ErrInvalidRequest)
	}

	order, err := uc.OrderRepo.GetOrderByRef(ctx, input.OrderRef)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.StatusPaid {
		return nil, fmt.Errorf("%w: order %s is %s", domain.ErrInvalidState, order.OrderRef, order.Status)
	}
	if input.Amount.GreaterThan(order.Amount) {
		return nil, fmt.Errorf("%w: %s exceeds order amount %s", domain.ErrInvalidAmount,
			input.Amount.StringFixed(2), order.Amount.StringFixed(2))
	}

	refundRef, err := uc.reserveRefund(ctx, order, input.Amount)
	if err != nil {
		return nil, err
	}

	result, err := uc.Gateway.RefundTrade(ctx, domain.RefundRequest{
		OrderRef:  order.OrderRef,
		RefundRef: refundRef,
		Amount:    input.Amount,
		Reason:    input.Reason,
	})
	if err != nil {
		// outcome unknown; out_request_no makes the retry idempotent at the gateway
		slog.Warn("refund outcome unknown, reservation kept",
			"order_ref", order.OrderRef,
			"refund_ref", refundRef,
			"amount", input.Amount.StringFixed(2),
			"error", err.Error(),
		)
		uc.recordFailure(ctx, order.OrderRef, "refund pending: "+err.Error())
		uc.recordError("refund", "gateway")
		if !errors.Is(err, domain.ErrGatewayRequest) {
			err = fmt.Errorf("%w: %v", domain.ErrGatewayRequest, err)
		}
		return nil, fmt.Errorf("refund %s: %w", order.OrderRef, err)
	}
	if !result.Success {
		uc.releaseRefund(ctx, order.OrderRef, refundRef, result.Message)
		uc.recordError("refund", "rejected")
		slog.Warn("gateway rejected refund",
			"order_ref", order.OrderRef,
			"refund_ref", refundRef,
			"code", result.Code,
			"message", result.Message,
		)
		return nil, &domain.RefundRejectedError{Code: result.Code, Message: result.Message}
	}

	target := domain.StatusPartialRefunded
	if input.Amount.Equal(order.Amount) {
		target = domain.StatusRefunded
	}
	refundedAt := uc.now()
	amount := input.Amount
	reason := input.Reason
	operator := input.OperatorID

	won, err := uc.OrderRepo.ApplyTransition(ctx, order.OrderRef, domain.Transition{
		From:      domain.StatusPaid,
		To:        target,
		RefundRef: refundRef,
		Patch: domain.OrderPatch{
			RefundedAt:       &refundedAt,
			RefundAmount:     &amount,
			RefundReason:     &reason,
			RefundOperatorID: &operator,
		},
	})
	if err == nil && !won {
		if current, gerr := uc.OrderRepo.GetOrderByRef(ctx, order.OrderRef); gerr == nil &&
			current.RefundRef == refundRef && current.Status != domain.StatusPaid {
			// a concurrent retry of the same refund recorded it first
			return &paymentdto.RefundOutput{RefundRef: refundRef, Status: current.Status}, nil
		}
	}
	if err != nil || !won {
		// the gateway moved the money; the reservation stays so nobody refunds twice
		slog.Error("refund executed at gateway but not recorded",
			"order_ref", order.OrderRef,
			"refund_ref", refundRef,
			"amount", amount.StringFixed(2),
			"won", won,
			"error", err,
		)
		uc.recordError("refund", "store")
		if err == nil {
			err = domain.ErrInvalidState
		}
		return nil, fmt.Errorf("record refund %s: %w", refundRef, err)
	}

	order.Status = target
	order.RefundRef = refundRef
	order.RefundedAt = &refundedAt
	order.RefundAmount = &amount
	order.RefundReason = reason
	order.RefundOperatorID = operator

	slog.Info("payment order refunded",
		"order_ref", order.OrderRef,
		"refund_ref", refundRef,
		"amount", amount.StringFixed(2),
		"status", target,
		"operator_id", operator,
	)

	if target == domain.StatusRefunded {
		uc.syncApplication(ctx, order)
	}
	uc.publishEvent(ctx, order, "refund")
	uc.recordRefundMetrics(order)

	return &paymentdto.RefundOutput{RefundRef: refundRef, Status: target}, nil
}

// reserveRefund returns the reference to send to the gateway. An unresolved
// reservation is reused when the amount matches.
func (uc *DefaultPaymentUsecase) reserveRefund(ctx context.Context, order *domain.Order, amount decimal.Decimal) (string, error) {
	if order.RefundRef != "" {
		if order.RefundAmount == nil || !order.RefundAmount.Equal(amount) {
			pending := "unknown amount"
			if order.RefundAmount != nil {
				pending = order.RefundAmount.StringFixed(2)
			}
			return "", fmt.Errorf("%w: refund %s (%s) for %s is unresolved", domain.ErrInvalidState,
				order.RefundRef, pending, order.OrderRef)
		}
		slog.Info("retrying pending refund",
			"order_ref", order.OrderRef,
			"refund_ref", order.RefundRef,
			"amount", amount.StringFixed(2),
		)
		return order.RefundRef, nil
	}

	refundRef := newRefundRef(uc.now())
	reserved, err := uc.OrderRepo.ReserveRefund(ctx, order.OrderRef, refundRef, amount)
	if err != nil {
		return "", fmt.Errorf("reserve refund for %s: %w", order.OrderRef, err)
	}
	if !reserved {
		return "", fmt.Errorf("%w: a refund for %s is already in progress", domain.ErrInvalidState, order.OrderRef)
	}
	return refundRef, nil
}

func (uc *DefaultPaymentUsecase) recordFailure(ctx context.Context, orderRef, msg string) {
	if err := uc.OrderRepo.RecordError(context.WithoutCancel(ctx), orderRef, msg); err != nil {
		slog.Error("failed to record order error", "order_ref", orderRef, "error", err.Error())
	}
}

func (uc *DefaultPaymentUsecase) releaseRefund(ctx context.Context, orderRef, refundRef, reason string) {
	if err := uc.OrderRepo.ReleaseRefund(context.WithoutCancel(ctx), orderRef, refundRef, "refund failed: "+reason); err != nil {
		slog.Error("failed to release refund reservation",
			"order_ref", orderRef,
			"refund_ref", refundRef,
			"error", err.Error(),
		)
	}
}
