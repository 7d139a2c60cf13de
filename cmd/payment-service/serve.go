package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/app/background"
	"github.com/LavaJover/shvark-payment-service/internal/app/setup"
	"github.com/LavaJover/shvark-payment-service/internal/delivery/grpcapi"
	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/handlers"
	"github.com/LavaJover/shvark-payment-service/internal/delivery/http/router"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/migrate"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var (
		skipMigrations bool
		noSweep        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the gRPC health endpoint and the reconciliation sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), !skipMigrations, !noSweep)
		},
	}
	cmd.Flags().BoolVar(&skipMigrations, "skip-migrations", false, "do not apply database migrations on start")
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not run the in-process sweeper (use an external cron with `sweep`)")
	return cmd
}

func runServe(parent context.Context, applyMigrations, runSweeper bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := setup.InitializeDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	if applyMigrations {
		if err := migrate.RunMigrations(deps.DB, cfg.PaymentDB.MigrationsPath); err != nil {
			return err
		}
	}

	usecases := setup.InitializeUseCases(deps)
	health := grpcapi.NewHealthReporter()

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	router.Setup(engine, handlers.NewPaymentHandler(usecases.PaymentUsecase), deps.Redis, router.Options{
		AdminToken:     cfg.Payment.AdminToken,
		PollRateLimit:  cfg.Payment.PollRateLimit,
		PollRateWindow: cfg.Payment.PollRateWindow,
		Gatherer:       deps.Registry,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
	}

	grpcServer := grpc.NewServer()
	health.Register(grpcServer)
	grpcAddr := net.JoinHostPort(cfg.GRPCServer.Host, cfg.GRPCServer.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		slog.Info("gRPC health server started", "addr", grpcAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		slog.Info("HTTP server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var sweepDone <-chan struct{}
	if runSweeper {
		tasks := background.NewBackgroundTasks(usecases.PaymentUsecase, cfg.Payment.SweepInterval, health)
		sweepDone = tasks.StartAll(ctx)
		slog.Info("payment sweeper started", "interval", cfg.Payment.SweepInterval)
	}
	health.SetReady(true)

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case serveErr = <-errCh:
		slog.Error("server stopped unexpectedly", "error", serveErr.Error())
		stop()
	}

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown did not complete", "error", err.Error())
	}
	grpcServer.GracefulStop()

	if runSweeper {
		select {
		case <-sweepDone:
		case <-shutdownCtx.Done():
			slog.Warn("sweeper did not stop before shutdown timeout")
		}
	}
	usecases.PaymentUsecase.WaitForEvents(shutdownCtx)
	return serveErr
}
