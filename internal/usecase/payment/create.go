package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
	"github.com/google/uuid"
)

// CreateOrder asks the gateway for a payment intent first and only then
// records the order. A failed insert after a successful intent still returns
// the URL: the buyer can pay, and the parked order is re-inserted by the sweep.
func (uc *DefaultPaymentUsecase) CreateOrder(ctx context.Context, input *paymentdto.CreateOrderInput) (*paymentdto.CreateOrderOutput, error) {
	if input == nil || strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidRequest)
	}
	if !validAmount(input.Amount) {
		return nil, fmt.Errorf("%w: amount must be > 0 with at most two decimals", domain.ErrInvalidRequest)
	}
	channel, ok := domain.ParseChannel(input.Channel)
	if !ok {
		return nil, fmt.Errorf("%w: unknown channel %q", domain.ErrInvalidRequest, input.Channel)
	}
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrInvalidRequest)
	}

	now := uc.now()
	order := &domain.Order{
		ID:        uuid.New().String(),
		OrderRef:  newOrderRef(uc.Params.OrderRefPrefix, now),
		UserID:    input.UserID,
		Amount:    input.Amount,
		Subject:   subject,
		Channel:   channel,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		ExpireAt:  now.Add(uc.Params.Window),
	}

	payURL, err := uc.Gateway.CreatePaymentIntent(ctx, domain.PaymentIntent{
		OrderRef:  order.OrderRef,
		Amount:    order.Amount,
		Subject:   order.Subject,
		ReturnURL: input.ReturnURL,
		Channel:   order.Channel,
		ExpireAt:  order.ExpireAt,
	})
	if err != nil {
		uc.recordError("create", "gateway")
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	if err := uc.OrderRepo.CreateOrder(ctx, order); err != nil {
		slog.Error("payment intent created but order was not stored",
			"order_ref", order.OrderRef,
			"user_id", order.UserID,
			"error", err.Error(),
		)
		uc.recordError("create", "store")
		uc.parkOrphan(ctx, order)
	} else {
		slog.Info("payment order created",
			"order_ref", order.OrderRef,
			"user_id", order.UserID,
			"amount", order.Amount.StringFixed(2),
			"channel", order.Channel,
		)
	}
	uc.recordOrderCreatedMetrics(order)

	return &paymentdto.CreateOrderOutput{
		PaymentURL: payURL,
		OrderRef:   order.OrderRef,
	}, nil
}

func (uc *DefaultPaymentUsecase) parkOrphan(ctx context.Context, order *domain.Order) {
	if uc.Orphans == nil {
		return
	}
	if err := uc.Orphans.Park(ctx, order); err != nil {
		slog.Error("failed to park orphan payment intent; order must be recovered by hand",
			"order_ref", order.OrderRef,
			"user_id", order.UserID,
			"amount", order.Amount.StringFixed(2),
			"error", err.Error(),
		)
		return
	}
	uc.recordOrphan("parked")
}
