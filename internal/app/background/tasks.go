package background

import (
	"context"
	"log/slog"
	"time"

	paymentdto "github.com/LavaJover/shvark-payment-service/internal/usecase/dto/payment"
)

type Sweeper interface {
	Sweep(ctx context.Context) (*paymentdto.SweepResult, error)
}

// SweepObserver is told how each pass ended; the gRPC health reporter
// implements it.
type SweepObserver interface {
	SweepFinished(err error)
}

type BackgroundTasks struct {
	Sweeper       Sweeper
	SweepInterval time.Duration
	Observer      SweepObserver
}

func NewBackgroundTasks(sweeper Sweeper, interval time.Duration, observer SweepObserver) *BackgroundTasks {
	return &BackgroundTasks{
		Sweeper:       sweeper,
		SweepInterval: interval,
		Observer:      observer,
	}
}

// StartAll launches the periodic jobs; they stop when ctx is cancelled.
// The returned channel is closed once every job has returned.
func (bt *BackgroundTasks) StartAll(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bt.startPaymentSweep(ctx)
	}()
	return done
}

func (bt *BackgroundTasks) startPaymentSweep(ctx context.Context) {
	ticker := time.NewTicker(bt.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.RunSweep(ctx)
		}
	}
}

// RunSweep executes one pass and reports it to the observer.
func (bt *BackgroundTasks) RunSweep(ctx context.Context) {
	_, err := bt.Sweeper.Sweep(ctx)
	if err != nil && ctx.Err() == nil {
		slog.Error("payment sweep failed", "error", err.Error())
	}
	if bt.Observer != nil {
		bt.Observer.SweepFinished(err)
	}
}
