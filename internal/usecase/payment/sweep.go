package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
)

// Sweep is one reconciliation pass: re-insert parked orphan intents, hand
// back stale claims, resolve expired PENDING orders against the gateway and
// retry application updates that did not go through. A failing order never
// aborts the batch; only a failed expired-order lookup is returned as an error.
func (uc *DefaultPaymentUsecase) Sweep(ctx context.Context) (*paymentdto.SweepResult, error) {
	startedAt := uc.now()
	res := &paymentdto.SweepResult{}
	defer func() {
		uc.recordSweepMetrics(res, uc.now().Sub(startedAt))
	}()

	res.Recovered = uc.recoverOrphans(ctx)
	res.Released += uc.releaseStaleClaims(ctx)

	orders, err := uc.OrderRepo.FindExpiredPending(ctx, startedAt, uc.Params.BatchSize)
	if err != nil {
		return res, fmt.Errorf("find expired orders: %w", err)
	}
	res.Scanned = len(orders)

	for _, order := range orders {
		if ctx.Err() != nil {
			slog.Warn("sweep interrupted", "scanned", res.Scanned, "claimed", res.Claimed)
			break
		}

		outcome, err := uc.reconcile(ctx, order, "sweep")
		switch outcome {
		case outcomeSkipped:
			res.Skipped++
			continue
		case outcomeClaimError:
			res.Failed++
		case outcomePaid:
			res.Claimed++
			res.Paid++
		case outcomeClosed:
			res.Claimed++
			res.Closed++
		case outcomeReleased:
			res.Claimed++
			res.Released++
		case outcomeFailed:
			res.Claimed++
			res.Failed++
		}
		if err != nil {
			slog.Warn("sweep could not resolve order",
				"order_ref", order.OrderRef,
				"outcome", outcome,
				"error", err.Error(),
			)
		}
	}

	res.Synced = uc.syncApplicationBacklog(ctx)

	slog.Info("payment sweep finished",
		"scanned", res.Scanned,
		"claimed", res.Claimed,
		"paid", res.Paid,
		"closed", res.Closed,
		"released", res.Released,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"recovered", res.Recovered,
		"synced", res.Synced,
	)
	return res, nil
}

// recoverOrphans inserts orders whose gateway intent exists but whose first
// insert failed. A duplicate means an earlier attempt landed after all.
func (uc *DefaultPaymentUsecase) recoverOrphans(ctx context.Context) int {
	if uc.Orphans == nil {
		return 0
	}
	parked, err := uc.Orphans.List(ctx, uc.Params.BatchSize)
	if err != nil {
		slog.Error("failed to list orphan intents", "error", err.Error())
		return 0
	}

	recovered := 0
	for _, order := range parked {
		err := uc.OrderRepo.CreateOrder(ctx, order)
		switch {
		case err == nil:
			recovered++
			uc.recordOrphan("recovered")
			slog.Info("orphan payment intent recovered", "order_ref", order.OrderRef, "user_id", order.UserID)
		case errors.Is(err, domain.ErrDuplicateOrderRef):
		default:
			slog.Error("orphan payment intent still cannot be stored", "order_ref", order.OrderRef, "error", err.Error())
			continue
		}
		if err := uc.Orphans.Remove(ctx, order.OrderRef); err != nil {
			slog.Warn("failed to remove recovered orphan intent", "order_ref", order.OrderRef, "error", err.Error())
		}
	}
	return recovered
}

func (uc *DefaultPaymentUsecase) releaseStaleClaims(ctx context.Context) int {
	cutoff := uc.now().Add(-uc.Params.ClaimTTL)
	stale, err := uc.OrderRepo.FindStaleClaims(ctx, cutoff, uc.Params.BatchSize)
	if err != nil {
		slog.Error("failed to find stale claims", "error", err.Error())
		return 0
	}

	released := 0
	for _, order := range stale {
		lastError := "claim expired"
		won, err := uc.OrderRepo.ApplyTransition(ctx, order.OrderRef, domain.Transition{
			From:       domain.StatusProcessing,
			To:         domain.StatusPending,
			ClaimToken: order.ClaimToken,
			Patch:      domain.OrderPatch{LastError: &lastError},
		})
		if err != nil {
			slog.Error("failed to release stale claim", "order_ref", order.OrderRef, "error", err.Error())
			continue
		}
		if won {
			released++
			slog.Warn("released stale claim", "order_ref", order.OrderRef, "claimed_at", order.ClaimedAt)
		}
	}
	return released
}

// syncApplicationBacklog retries application updates for paid and refunded
// orders whose sync marker is behind their status.
func (uc *DefaultPaymentUsecase) syncApplicationBacklog(ctx context.Context) int {
	backlog, err := uc.OrderRepo.FindApplicationSyncBacklog(ctx, uc.now().Add(-uc.Params.SyncGrace), uc.Params.BatchSize)
	if err != nil {
		slog.Error("failed to load application sync backlog", "error", err.Error())
		return 0
	}

	synced := 0
	for _, order := range backlog {
		if ctx.Err() != nil {
			break
		}
		if uc.syncApplication(ctx, order) {
			synced++
		}
	}
	return synced
}
