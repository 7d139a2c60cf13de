package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/google/uuid"
)

type reconcileOutcome string

const (
	outcomePaid   reconcileOutcome = "paid"
	outcomeClosed reconcileOutcome = "closed"
	// claim handed back, order still payable
	outcomeReleased reconcileOutcome = "released"
	// another writer holds or already resolved the order
	outcomeSkipped reconcileOutcome = "skipped"
	// the claim itself could not be written
	outcomeClaimError reconcileOutcome = "claim_error"
	outcomeFailed     reconcileOutcome = "failed"
)

// reconcile runs claim, query and resolve for one PENDING order. On return
// order reflects what this call wrote. An order that has not expired is
// never closed unless the gateway itself reports the trade closed.
func (uc *DefaultPaymentUsecase) reconcile(ctx context.Context, order *domain.Order, source string) (reconcileOutcome, error) {
	claimedAt := uc.now()
	token := uuid.New().String()

	won, err := uc.OrderRepo.ClaimForProcessing(ctx, order.OrderRef, token, claimedAt)
	if err != nil {
		return outcomeClaimError, fmt.Errorf("claim %s: %w", order.OrderRef, err)
	}
	if !won {
		return outcomeSkipped, domain.ErrConcurrentClaimLost
	}
	order.Status = domain.StatusProcessing
	order.ClaimToken = token
	order.ClaimedAt = &claimedAt

	trade, err := uc.Gateway.QueryTrade(ctx, order.OrderRef)
	if err != nil {
		uc.releaseClaim(ctx, order, err.Error())
		uc.recordError(source, "gateway")
		return outcomeFailed, fmt.Errorf("query trade %s: %w", order.OrderRef, err)
	}

	expired := order.Expired(uc.now())
	switch trade.Status {
	case domain.TradeSuccess:
		if !amountsMatch(order.Amount, trade.Amount) {
			slog.Error("gateway reports a paid amount different from the order",
				"order_ref", order.OrderRef,
				"order_amount", order.Amount.StringFixed(2),
				"gateway_amount", trade.Amount.StringFixed(2),
				"source", source,
			)
			uc.recordError(source, "amount_mismatch")
			uc.releaseClaim(ctx, order, fmt.Sprintf("amount mismatch: gateway reported %s", trade.Amount.StringFixed(2)))
			return outcomeFailed, fmt.Errorf("%w: %s", domain.ErrAmountMismatch, order.OrderRef)
		}
		if trade.GatewayTransactionID == "" {
			uc.releaseClaim(ctx, order, "gateway reported success without a transaction id")
			return outcomeFailed, fmt.Errorf("%w: success without trade_no for %s", domain.ErrGatewayRequest, order.OrderRef)
		}
		return uc.resolvePaid(ctx, order, trade.GatewayTransactionID, trade.Raw, source)

	case domain.TradeClosed:
		return uc.resolveClosed(ctx, order, source)

	case domain.TradeNotFound:
		if !expired {
			uc.releaseClaim(ctx, order, "")
			return outcomeReleased, nil
		}
		return uc.resolveClosed(ctx, order, source)

	case domain.TradeWaitPayment:
		if !expired {
			uc.releaseClaim(ctx, order, "")
			return outcomeReleased, nil
		}
		// the buyer may still be on the checkout page; only a confirmed close
		// makes CLOSED safe to record, until the fallback deadline passes
		if err := uc.Gateway.CloseTrade(ctx, order.OrderRef); err != nil {
			uc.recordError(source, "gateway")
			if uc.now().Before(order.ExpireAt.Add(uc.Params.CloseFallbackAfter)) {
				uc.releaseClaim(ctx, order, "close trade: "+err.Error())
				return outcomeFailed, fmt.Errorf("close trade %s: %w", order.OrderRef, err)
			}
			slog.Error("gateway still refuses to close trade, closing locally",
				"order_ref", order.OrderRef,
				"expire_at", order.ExpireAt,
				"error", err.Error(),
				"source", source,
			)
			uc.recordError(source, "close_fallback")
		}
		return uc.resolveClosed(ctx, order, source)

	default:
		slog.Warn("unrecognised trade status, leaving order pending",
			"order_ref", order.OrderRef,
			"status", trade.Status,
		)
		uc.releaseClaim(ctx, order, "unrecognised trade status")
		return outcomeReleased, nil
	}
}

// storeTimeout bounds writes that must land after the caller has gone away.
const storeTimeout = 5 * time.Second

// resolvePaid and resolveClosed write under a context detached from the
// caller: once the gateway has answered, a dropped poll must not leave the
// order PROCESSING until the claim expires.
func (uc *DefaultPaymentUsecase) resolvePaid(ctx context.Context, order *domain.Order, txID string, raw []byte, source string) (reconcileOutcome, error) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	paidAt := uc.now()
	won, err := uc.OrderRepo.ApplyTransition(storeCtx, order.OrderRef, domain.Transition{
		From:       domain.StatusProcessing,
		To:         domain.StatusPaid,
		ClaimToken: order.ClaimToken,
		Patch: domain.OrderPatch{
			GatewayTransactionID: &txID,
			PaidAt:               &paidAt,
			RawNotification:      raw,
		},
	})
	if err != nil {
		uc.releaseClaim(ctx, order, "mark paid: "+err.Error())
		uc.recordError(source, "store")
		return outcomeFailed, fmt.Errorf("mark %s paid: %w", order.OrderRef, err)
	}
	if !won {
		return outcomeSkipped, domain.ErrConcurrentClaimLost
	}

	order.Status = domain.StatusPaid
	order.GatewayTransactionID = txID
	order.PaidAt = &paidAt
	order.ClaimToken = ""
	order.ClaimedAt = nil
	uc.afterPaid(ctx, order, source)
	return outcomePaid, nil
}

func (uc *DefaultPaymentUsecase) resolveClosed(ctx context.Context, order *domain.Order, source string) (reconcileOutcome, error) {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	closedAt := uc.now()
	won, err := uc.OrderRepo.ApplyTransition(storeCtx, order.OrderRef, domain.Transition{
		From:       domain.StatusProcessing,
		To:         domain.StatusClosed,
		ClaimToken: order.ClaimToken,
		Patch:      domain.OrderPatch{ClosedAt: &closedAt},
	})
	if err != nil {
		uc.releaseClaim(ctx, order, "mark closed: "+err.Error())
		uc.recordError(source, "store")
		return outcomeFailed, fmt.Errorf("mark %s closed: %w", order.OrderRef, err)
	}
	if !won {
		return outcomeSkipped, domain.ErrConcurrentClaimLost
	}

	order.Status = domain.StatusClosed
	order.ClosedAt = &closedAt
	order.ClaimToken = ""
	order.ClaimedAt = nil
	uc.afterClosed(ctx, order, source)
	return outcomeClosed, nil
}

// releaseClaim moves a claimed order back to PENDING. It runs even when ctx
// is already cancelled so a dropped poll does not strand the claim.
func (uc *DefaultPaymentUsecase) releaseClaim(ctx context.Context, order *domain.Order, lastError string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	tr := domain.Transition{
		From:       domain.StatusProcessing,
		To:         domain.StatusPending,
		ClaimToken: order.ClaimToken,
	}
	if lastError != "" {
		tr.Patch.LastError = &lastError
	}

	won, err := uc.OrderRepo.ApplyTransition(ctx, order.OrderRef, tr)
	if err != nil {
		slog.Error("failed to release claim; it will expire",
			"order_ref", order.OrderRef,
			"error", err.Error(),
		)
		return
	}
	if won {
		order.Status = domain.StatusPending
		order.ClaimToken = ""
		order.ClaimedAt = nil
		if lastError != "" {
			order.LastError = lastError
		}
	}
}

func (uc *DefaultPaymentUsecase) afterPaid(ctx context.Context, order *domain.Order, source string) {
	slog.Info("payment order paid",
		"order_ref", order.OrderRef,
		"user_id", order.UserID,
		"gateway_transaction_id", order.GatewayTransactionID,
		"source", source,
	)
	uc.syncApplication(ctx, order)
	uc.publishEvent(ctx, order, source)
	uc.recordOrderPaidMetrics(order, source)
}

func (uc *DefaultPaymentUsecase) afterClosed(ctx context.Context, order *domain.Order, source string) {
	slog.Info("payment order closed",
		"order_ref", order.OrderRef,
		"user_id", order.UserID,
		"source", source,
	)
	uc.publishEvent(ctx, order, source)
	uc.recordOrderClosedMetrics(source)
}

// syncApplication tells the admissions application about the order's
// current paid or refunded state. Failures are left for the sweep backlog.
func (uc *DefaultPaymentUsecase) syncApplication(ctx context.Context, order *domain.Order) bool {
	var (
		target domain.OrderStatus
		err    error
	)
	switch order.Status {
	case domain.StatusPaid, domain.StatusPartialRefunded:
		target = domain.StatusPaid
		err = uc.Applications.MarkPaid(ctx, order.UserID, order.OrderRef, order.Amount, timeOr(order.PaidAt, order.UpdatedAt))
	case domain.StatusRefunded:
		target = domain.StatusRefunded
		err = uc.Applications.MarkWithdrawn(ctx, order.UserID, timeOr(order.RefundedAt, order.UpdatedAt))
	default:
		return false
	}
	if err != nil {
		slog.Error("failed to update application; sweep will retry",
			"order_ref", order.OrderRef,
			"user_id", order.UserID,
			"target", target,
			"error", err.Error(),
		)
		uc.recordApplicationError(string(target))
		return false
	}

	if err := uc.OrderRepo.MarkApplicationSynced(ctx, order.OrderRef, target); err != nil {
		slog.Warn("application updated but sync marker not stored",
			"order_ref", order.OrderRef,
			"error", err.Error(),
		)
	}
	order.ApplicationSynced = target
	return true
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t != nil {
		return *t
	}
	return fallback
}

func isClaimLost(err error) bool {
	return errors.Is(err, domain.ErrConcurrentClaimLost)
}
