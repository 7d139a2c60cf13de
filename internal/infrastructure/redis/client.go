package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/config"
	rd "github.com/redis/go-redis/v9"
)

func NewRedisClient(ctx context.Context, cfg config.RedisService) (*rd.Client, error) {
	rdb := rd.NewClient(&rd.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}
