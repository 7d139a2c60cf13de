package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
)

// PollStatus answers a waiting browser. A PENDING order gets one
// claim, query and resolve attempt; anything uncertain is reported as PENDING.
func (uc *DefaultPaymentUsecase) PollStatus(ctx context.Context, input *paymentdto.PollInput) (*paymentdto.PollOutput, error) {
	order, err := uc.findPolledOrder(ctx, input)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.StatusPending {
		return pollOutput(order), nil
	}

	outcome, err := uc.reconcile(ctx, order, "poll")
	switch {
	case err == nil:
	case isClaimLost(err):
		// someone else is resolving it; report what the store says now
		if fresh, loadErr := uc.OrderRepo.GetOrderByRef(ctx, order.OrderRef); loadErr == nil {
			order = fresh
		}
	case outcome == outcomeClaimError:
		return nil, err
	default:
		slog.Warn("poll could not resolve order",
			"order_ref", order.OrderRef,
			"outcome", outcome,
			"error", err.Error(),
		)
	}

	return pollOutput(order), nil
}

func (uc *DefaultPaymentUsecase) findPolledOrder(ctx context.Context, input *paymentdto.PollInput) (*domain.Order, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: order_ref or user_id is required", domain.ErrInvalidRequest)
	}
	ref := strings.TrimSpace(input.OrderRef)
	userID := strings.TrimSpace(input.UserID)

	var (
		order *domain.Order
		err   error
	)
	switch {
	case ref != "":
		order, err = uc.OrderRepo.GetOrderByRef(ctx, ref)
	case userID != "":
		order, err = uc.OrderRepo.GetLatestOrderByUserID(ctx, userID)
	default:
		return nil, fmt.Errorf("%w: order_ref or user_id is required", domain.ErrInvalidRequest)
	}
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}

func pollOutput(order *domain.Order) *paymentdto.PollOutput {
	out := &paymentdto.PollOutput{
		OrderRef: order.OrderRef,
		Status:   order.Status.Visible(),
	}
	if out.Status == domain.StatusPending {
		expireAt := order.ExpireAt
		out.ExpireAt = &expireAt
	}
	return out
}
