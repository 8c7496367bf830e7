package cache

import (
	"context"

	"github.com/honeynil/BankTransactionService/internal/infrastructure/observability"
)

// Cache stores serialized read results. Implementations never return errors:
// a failing backend behaves like an empty one.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	Delete(ctx context.Context, key string)
	DeletePrefix(ctx context.Context, prefix string)
}

func recordLookup(name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	observability.CacheRequests.WithLabelValues(name, result).Inc()
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool) { return nil, false }

func (Nop) Set(context.Context, string, []byte) {}

func (Nop) Delete(context.Context, string) {}

func (Nop) DeletePrefix(context.Context, string) {}
