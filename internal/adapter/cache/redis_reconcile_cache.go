package cache

import (
	"context"
	"time"

	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/usecase"
	"github.com/redis/go-redis/v9"
)

// RedisReconcileCache remembers which order settled a payment so repeat
// webhook deliveries and page reloads skip the processor round trip.
// Advisory only: the orders.payment_id unique index is the real guard.
type RedisReconcileCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisReconcileCache(rdb *redis.Client, ttl time.Duration) *RedisReconcileCache {
	return &RedisReconcileCache{rdb: rdb, ttl: ttl}
}

func (s *RedisReconcileCache) Remember(ctx context.Context, paymentID, orderID string) error {
	return s.rdb.Set(ctx, "reconcile:"+paymentID, orderID, s.ttl).Err()
}

func (s *RedisReconcileCache) Recall(ctx context.Context, paymentID string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, "reconcile:"+paymentID).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

var _ usecase.ReconcileCache = (*RedisReconcileCache)(nil)
