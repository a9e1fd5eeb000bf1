package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedKeyPrefix = "processed:"

// RedisGate implements IdempotencyGate with SET NX EX: the single round trip
// both claims the key and attaches the window, so racing consumers cannot
// observe a claimed-but-unexpiring marker.
type RedisGate struct {
	client redis.Cmdable
}

func NewRedisGate(client redis.Cmdable) *RedisGate {
	return &RedisGate{client: client}
}

func (g *RedisGate) MarkProcessed(ctx context.Context, requestID string, ttl time.Duration) (bool, error) {
	if requestID == "" {
		return false, nil
	}
	ok, err := g.client.SetNX(ctx, processedKeyPrefix+requestID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx processed: %w", err)
	}
	return ok, nil
}

// gateSweepThreshold caps how many markers accumulate before expired ones
// are purged in bulk.
const gateSweepThreshold = 1024

// MemoryGate is the in-process gate for tests and Redis-less local runs.
// Expired markers are dropped lazily: on lookup for their own key, and in a
// full sweep once the map crosses gateSweepThreshold, so a long-running
// Redis-less process does not accumulate one entry per request forever.
type MemoryGate struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryGate() *MemoryGate {
	return &MemoryGate{seen: make(map[string]time.Time)}
}

func (g *MemoryGate) MarkProcessed(_ context.Context, requestID string, ttl time.Duration) (bool, error) {
	if requestID == "" {
		return false, nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	now := time.Now()
	if dl, ok := g.seen[requestID]; ok {
		if now.Before(dl) {
			return false, nil
		}
		delete(g.seen, requestID)
	}
	if len(g.seen) >= gateSweepThreshold {
		for id, dl := range g.seen {
			if now.After(dl) {
				delete(g.seen, id)
			}
		}
	}
	g.seen[requestID] = now.Add(ttl)
	return true, nil
}
