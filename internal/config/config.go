package config

import (
	"fmt"
	"log"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
)

type PaymentConfig struct {
	Env                string `yaml:"env" env:"PAYMENT_ENV" env-default:"local"`
	HTTPServer         `yaml:"http_server"`
	GRPCServer         `yaml:"grpc_server"`
	PaymentDB          `yaml:"payment_db"`
	LogConfig          `yaml:"log_config"`
	RedisService       `yaml:"redis"`
	KafkaService       `yaml:"kafka"`
	Gateway            `yaml:"gateway"`
	ApplicationService `yaml:"application_service"`
	Payment            `yaml:"payment"`
}

type HTTPServer struct {
	Host         string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port         string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"15s"`
}

type GRPCServer struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"9090"`
}

type PaymentDB struct {
	Dsn            string `yaml:"dsn" env:"PAYMENT_DB_DSN" env-required:"true"`
	MigrationsPath string `yaml:"migrations_path" env:"PAYMENT_MIGRATIONS_PATH" env-default:"migrations"`
	MaxOpenConns   int    `yaml:"max_open_conns" env-default:"20"`
}

type LogConfig struct {
	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`
	LogOutput string `yaml:"log_output" env:"LOG_OUTPUT" env-default:"stdout"`
}

type RedisService struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type KafkaService struct {
	Brokers    []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic      string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"payment-events"`
	Username   string   `yaml:"username" env:"KAFKA_USERNAME"`
	Password   string   `yaml:"password" env:"KAFKA_PASSWORD"`
	Mechanism  string   `yaml:"mechanism" env:"KAFKA_MECHANISM"`
	TLSEnabled bool     `yaml:"tls_enabled" env:"KAFKA_TLS_ENABLED"`
}

type Gateway struct {
	Endpoint             string        `yaml:"endpoint" env:"GATEWAY_ENDPOINT" env-required:"true"`
	AppID                string        `yaml:"app_id" env:"GATEWAY_APP_ID" env-required:"true"`
	PrivateKeyPath       string        `yaml:"private_key_path" env:"GATEWAY_PRIVATE_KEY_PATH" env-required:"true"`
	GatewayPublicKeyPath string        `yaml:"gateway_public_key_path" env:"GATEWAY_PUBLIC_KEY_PATH" env-required:"true"`
	NotifyURL            string        `yaml:"notify_url" env:"GATEWAY_NOTIFY_URL" env-required:"true"`
	Timeout              time.Duration `yaml:"timeout" env:"GATEWAY_TIMEOUT" env-default:"8s"`
	// TimeZone is the zone the gateway reads time_expire and timestamp in.
	TimeZone string `yaml:"time_zone" env:"GATEWAY_TIME_ZONE" env-default:"Asia/Shanghai"`
}

type ApplicationService struct {
	BaseURL string        `yaml:"base_url" env:"APPLICATION_SERVICE_URL" env-required:"true"`
	Token   string        `yaml:"token" env:"APPLICATION_SERVICE_TOKEN"`
	Timeout time.Duration `yaml:"timeout" env-default:"5s"`
}

type Payment struct {
	Window         time.Duration `yaml:"window" env:"PAYMENT_WINDOW" env-default:"30m"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"PAYMENT_SWEEP_INTERVAL" env-default:"2m"`
	SweepBatchSize int           `yaml:"sweep_batch_size" env:"PAYMENT_SWEEP_BATCH_SIZE" env-default:"100"`
	ClaimTTL       time.Duration `yaml:"claim_ttl" env:"PAYMENT_CLAIM_TTL" env-default:"5m"`
	SyncGrace      time.Duration `yaml:"sync_grace" env-default:"1m"`
	// CloseFallbackAfter is how long past expiry a trade the gateway refuses
	// to close stays PENDING before it is closed locally.
	CloseFallbackAfter time.Duration `yaml:"close_fallback_after" env:"PAYMENT_CLOSE_FALLBACK_AFTER" env-default:"1h"`
	AdminToken     string        `yaml:"admin_token" env:"PAYMENT_ADMIN_TOKEN" env-required:"true"`
	PollRateLimit  int           `yaml:"poll_rate_limit" env-default:"30"`
	PollRateWindow time.Duration `yaml:"poll_rate_window" env-default:"1m"`
	OrderRefPrefix string        `yaml:"order_ref_prefix" env-default:"ADM"`
}

// Load reads the YAML file at path; environment variables override it.
func Load(path string) (*PaymentConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	var cfg PaymentConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if cfg.Payment.Window <= 0 {
		return nil, fmt.Errorf("payment.window must be > 0")
	}
	if cfg.Payment.SweepBatchSize <= 0 {
		return nil, fmt.Errorf("payment.sweep_batch_size must be > 0")
	}
	if cfg.Payment.SweepInterval <= 0 {
		return nil, fmt.Errorf("payment.sweep_interval must be > 0")
	}
	if cfg.Gateway.Timeout <= 0 || cfg.Gateway.Timeout > time.Minute {
		return nil, fmt.Errorf("gateway.timeout must be within (0, 1m]")
	}
	if _, err := time.LoadLocation(cfg.Gateway.TimeZone); err != nil {
		return nil, fmt.Errorf("gateway.time_zone: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *PaymentConfig {
	// Processing env config variable and file
	configPath := os.Getenv("PAYMENT_CONFIG_PATH")

	if configPath == "" {
		log.Fatalf("PAYMENT_CONFIG_PATH was not found\n")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	return cfg
}
