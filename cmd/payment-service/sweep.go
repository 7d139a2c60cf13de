package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/LavaJover/shvark-payment-service/internal/app/setup"
	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reconciliation pass and exit",
		Long: `Run one reconciliation pass and exit.

Meant for an external scheduler when serve runs with --no-sweep:
  payment-service sweep --config /etc/payment/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			deps, err := setup.InitializeDependencies(ctx, cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			uc := setup.InitializeUseCases(deps).PaymentUsecase
			res, err := uc.Sweep(ctx)
			if err != nil {
				return err
			}
			slog.Info("sweep complete", "processed", res.ProcessedCount(), "failed", res.Failed)

			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			uc.WaitForEvents(flushCtx)
			return nil
		},
	}
}
