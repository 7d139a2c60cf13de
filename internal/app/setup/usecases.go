package setup

import (
	paymentuc "github.com/LavaJover/shvark-payment-service/internal/usecase/payment"
)

type UseCases struct {
	PaymentUsecase *paymentuc.DefaultPaymentUsecase
}

func InitializeUseCases(deps *Dependencies) *UseCases {
	cfg := deps.Config.Payment

	uc := paymentuc.NewDefaultPaymentUsecase(
		deps.Repositories.OrderRepo,
		deps.Gateway,
		deps.Applications,
		paymentuc.Params{
			Window:             cfg.Window,
			BatchSize:          cfg.SweepBatchSize,
			ClaimTTL:           cfg.ClaimTTL,
			SyncGrace:          cfg.SyncGrace,
			CloseFallbackAfter: cfg.CloseFallbackAfter,
			OrderRefPrefix:     cfg.OrderRefPrefix,
		},
	)
	uc.Orphans = deps.Repositories.Orphans
	uc.NotificationLog = deps.Repositories.NotificationLog
	uc.Metrics = deps.Metrics
	// a nil *KafkaPublisher must not become a non-nil interface
	if deps.Publisher != nil {
		uc.Publisher = deps.Publisher
	}

	return &UseCases{PaymentUsecase: uc}
}
