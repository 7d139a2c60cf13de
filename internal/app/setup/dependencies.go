package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/config"
	"github.com/LavaJover/shvark-payment-service/internal/domain"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/application"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/gateway"
	publisher "github.com/LavaJover/shvark-payment-service/internal/infrastructure/kafka"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/logger"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres"
	"github.com/LavaJover/shvark-payment-service/internal/infrastructure/postgres/repository"
	cache "github.com/LavaJover/shvark-payment-service/internal/infrastructure/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	rd "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config       *config.PaymentConfig
	DB           *gorm.DB
	Redis        *rd.Client
	Publisher    *publisher.KafkaPublisher
	Gateway      *gateway.Client
	Applications *application.HTTPApplicationClient
	Registry     *prometheus.Registry
	Metrics      *metrics.PaymentMetrics
	Repositories *Repositories
}

type Repositories struct {
	OrderRepo       domain.OrderRepository
	NotificationLog domain.NotificationLogger
	Orphans         domain.OrphanIntentStore
}

func InitializeDependencies(ctx context.Context, cfg *config.PaymentConfig) (*Dependencies, error) {
	db, err := postgres.InitDB(cfg)
	if err != nil {
		return nil, err
	}
	deps := &Dependencies{Config: cfg, DB: db}

	deps.Redis, err = cache.NewRedisClient(ctx, cfg.RedisService)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	deps.Registry = prometheus.NewRegistry()
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.Metrics = metrics.NewPaymentMetrics(deps.Registry)

	deps.Gateway, err = initGateway(cfg.Gateway)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("gateway: %w", err)
	}
	deps.Gateway.Recorder = deps.Metrics

	deps.Publisher, err = initPaymentPublisher(cfg.KafkaService)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("payment publisher: %w", err)
	}

	deps.Applications = application.NewHTTPApplicationClient(
		cfg.ApplicationService.BaseURL,
		cfg.ApplicationService.Token,
		cfg.ApplicationService.Timeout,
	)

	deps.Repositories = &Repositories{
		OrderRepo:       repository.NewDefaultOrderRepository(db),
		NotificationLog: logger.NewPGNotificationLogger(db),
		Orphans:         cache.NewRedisOrphanIntentStore(deps.Redis),
	}

	return deps, nil
}

// Close releases every connection that was opened; safe on a partial set.
func (d *Dependencies) Close() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			slog.Warn("failed to close kafka writer", "error", err.Error())
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err.Error())
		}
	}
	if d.DB != nil {
		if sqlDB, err := d.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func initGateway(cfg config.Gateway) (*gateway.Client, error) {
	privateKey, err := gateway.LoadKey(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load app private key: %w", err)
	}
	publicKey, err := gateway.LoadKey(cfg.GatewayPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load gateway public key: %w", err)
	}
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("gateway time zone: %w", err)
	}

	return gateway.NewClient(gateway.Config{
		Endpoint:         cfg.Endpoint,
		AppID:            cfg.AppID,
		NotifyURL:        cfg.NotifyURL,
		Timeout:          cfg.Timeout,
		PrivateKey:       privateKey,
		GatewayPublicKey: publicKey,
		Location:         location,
	})
}

// initPaymentPublisher returns nil when no brokers are configured; lifecycle
// events are then skipped.
func initPaymentPublisher(cfg config.KafkaService) (*publisher.KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		slog.Warn("kafka brokers not configured, payment events disabled")
		return nil, nil
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return publisher.NewKafkaPublisher(publisher.KafkaConfig{
		Brokers:    cfg.Brokers,
		Topic:      cfg.Topic,
		Username:   cfg.Username,
		Password:   cfg.Password,
		Mechanism:  cfg.Mechanism,
		TLSEnabled: cfg.TLSEnabled,
	})
}
