package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/metrics"
	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
)

type PaymentUsecase interface {
	CreateOrder(ctx context.Context, input *paymentdto.CreateOrderInput) (*paymentdto.CreateOrderOutput, error)
	HandleCallback(ctx context.Context, rawPayload []byte) (*paymentdto.NotifyResult, error)
	Sweep(ctx context.Context) (*paymentdto.SweepResult, error)
	PollStatus(ctx context.Context, input *paymentdto.PollInput) (*paymentdto.PollOutput, error)
	Refund(ctx context.Context, input *paymentdto.RefundInput) (*paymentdto.RefundOutput, error)
}

type Params struct {
	// Window is how long a buyer has to pay before the sweeper may close the order.
	Window    time.Duration
	BatchSize int
	// ClaimTTL bounds how long an order may stay PROCESSING before a sweep
	// hands it back to PENDING.
	ClaimTTL time.Duration
	// SyncGrace leaves fresh transitions to the writer that made them before
	// the sweep retries the application call.
	SyncGrace time.Duration
	// CloseFallbackAfter bounds how long past expiry an order waits for the
	// gateway to confirm a close before it is closed locally.
	CloseFallbackAfter time.Duration
	OrderRefPrefix     string
}

func DefaultParams() Params {
	return Params{
		Window:             30 * time.Minute,
		BatchSize:          100,
		ClaimTTL:           5 * time.Minute,
		SyncGrace:          time.Minute,
		CloseFallbackAfter: time.Hour,
		OrderRefPrefix:     "ADM",
	}
}

type DefaultPaymentUsecase struct {
	OrderRepo    domain.OrderRepository
	Gateway      domain.PaymentGateway
	Applications domain.ApplicationStore

	// Optional collaborators; nil disables them.
	Publisher       domain.EventPublisher
	Orphans         domain.OrphanIntentStore
	NotificationLog domain.NotificationLogger
	Metrics         *metrics.PaymentMetrics

	Params Params
	Now    func() time.Time

	inflight sync.WaitGroup
}

func NewDefaultPaymentUsecase(
	orderRepo domain.OrderRepository,
	gateway domain.PaymentGateway,
	applications domain.ApplicationStore,
	params Params,
) *DefaultPaymentUsecase {
	defaults := DefaultParams()
	if params.Window <= 0 {
		params.Window = defaults.Window
	}
	if params.BatchSize <= 0 {
		params.BatchSize = defaults.BatchSize
	}
	if params.ClaimTTL <= 0 {
		params.ClaimTTL = defaults.ClaimTTL
	}
	if params.SyncGrace <= 0 {
		params.SyncGrace = defaults.SyncGrace
	}
	if params.CloseFallbackAfter <= 0 {
		params.CloseFallbackAfter = defaults.CloseFallbackAfter
	}
	if params.OrderRefPrefix == "" {
		params.OrderRefPrefix = defaults.OrderRefPrefix
	}

	return &DefaultPaymentUsecase{
		OrderRepo:    orderRepo,
		Gateway:      gateway,
		Applications: applications,
		Params:       params,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DefaultPaymentUsecase) now() time.Time {
	return uc.Now()
}
