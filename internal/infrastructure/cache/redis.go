package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/honeynil/BankTransactionService/internal/infrastructure/redis"
	"github.com/sony/gobreaker"
)

// Redis keeps cache entries in Redis behind a circuit breaker, so an
// unavailable server turns into fast misses instead of slow requests.
type Redis struct {
	client  redis.RedisClient
	ttl     time.Duration
	breaker *gobreaker.CircuitBreaker
}

func NewRedis(client redis.RedisClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "redis-cache",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	res, err := r.breaker.Execute(func() (interface{}, error) {
		val, err := r.client.Get(ctx, key)
		if errors.Is(err, redis.ErrKeyNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return val, nil
	})
	if err != nil {
		slog.Warn("redis cache get failed", "key", key, "error", err)
		recordLookup("redis", false)
		return nil, false
	}

	val, ok := res.(string)
	recordLookup("redis", ok)
	if !ok {
		return nil, false
	}
	return []byte(val), true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Set(ctx, key, string(value), r.ttl)
	})
	if err != nil {
		slog.Warn("redis cache set failed", "key", key, "error", err)
	}
}

func (r *Redis) Delete(ctx context.Context, key string) {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.Del(ctx, key)
	})
	if err != nil {
		slog.Error("redis cache delete failed", "key", key, "error", err)
	}
}

func (r *Redis) DeletePrefix(ctx context.Context, prefix string) {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.client.DelByPrefix(ctx, prefix)
	})
	if err != nil {
		slog.Error("redis cache prefix delete failed", "prefix", prefix, "error", err)
	}
}
