package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "webhook:clerk:delivery:"

// RedisLedger shares claims between replicas using SET NX with a TTL.
type RedisLedger struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ Ledger = (*RedisLedger)(nil)

// NewRedisLedger constructs a Redis-backed ledger.
func NewRedisLedger(client redis.UniversalClient, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Claim(ctx context.Context, deliveryID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, redisKeyPrefix+deliveryID, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim delivery: %w", err)
	}
	return ok, nil
}

func (l *RedisLedger) Release(ctx context.Context, deliveryID string) error {
	if err := l.client.Del(ctx, redisKeyPrefix+deliveryID).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release delivery: %w", err)
	}
	return nil
}
