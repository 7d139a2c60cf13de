package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/LavaJover/shvark-payment-service/internal/domain"
	rd "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// orphanIntent is the parked form of an order the gateway knows about but
// the database does not.
type orphanIntent struct {
	ID        string    `json:"id"`
	OrderRef  string    `json:"order_ref"`
	UserID    string    `json:"user_id"`
	Amount    string    `json:"amount"`
	Subject   string    `json:"subject"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
	ExpireAt  time.Time `json:"expire_at"`
}

type RedisOrphanIntentStore struct {
	rdb *rd.Client
}

var _ domain.OrphanIntentStore = (*RedisOrphanIntentStore)(nil)

func NewRedisOrphanIntentStore(rdb *rd.Client) *RedisOrphanIntentStore {
	return &RedisOrphanIntentStore{rdb: rdb}
}

func (s *RedisOrphanIntentStore) Park(ctx context.Context, order *domain.Order) error {
	v, err := json.Marshal(orphanIntent{
		ID:        order.ID,
		OrderRef:  order.OrderRef,
		UserID:    order.UserID,
		Amount:    order.Amount.String(),
		Subject:   order.Subject,
		Channel:   string(order.Channel),
		CreatedAt: order.CreatedAt,
		ExpireAt:  order.ExpireAt,
	})
	if err != nil {
		return err
	}
	return s.rdb.HSet(ctx, OrphanIntentsKey(), order.OrderRef, v).Err()
}

// List returns up to limit parked orders, oldest first. Entries that no
// longer decode are dropped from the hash.
func (s *RedisOrphanIntentStore) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	m, err := s.rdb.HGetAll(ctx, OrphanIntentsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list orphan intents: %w", err)
	}

	orders := make([]*domain.Order, 0, len(m))
	for ref, raw := range m {
		var oi orphanIntent
		if err := json.Unmarshal([]byte(raw), &oi); err != nil {
			slog.Error("dropping undecodable orphan intent", "order_ref", ref, "error", err)
			_ = s.rdb.HDel(ctx, OrphanIntentsKey(), ref).Err()
			continue
		}
		amount, err := decimal.NewFromString(oi.Amount)
		if err != nil {
			slog.Error("dropping orphan intent with bad amount", "order_ref", ref, "amount", oi.Amount)
			_ = s.rdb.HDel(ctx, OrphanIntentsKey(), ref).Err()
			continue
		}
		orders = append(orders, &domain.Order{
			ID:        oi.ID,
			OrderRef:  oi.OrderRef,
			UserID:    oi.UserID,
			Amount:    amount,
			Subject:   oi.Subject,
			Channel:   domain.Channel(oi.Channel),
			Status:    domain.StatusPending,
			CreatedAt: oi.CreatedAt,
			UpdatedAt: oi.CreatedAt,
			ExpireAt:  oi.ExpireAt,
		})
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *RedisOrphanIntentStore) Remove(ctx context.Context, orderRef string) error {
	return s.rdb.HDel(ctx, OrphanIntentsKey(), orderRef).Err()
}
