package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventLedger remembers which provider event ids have already been handled,
// within a bounded window. It exists because the provider delivers at least
// once and the fixed-status writes are only coincidentally idempotent.
type EventLedger interface {
	// MarkProcessed records the event id. It returns false when the id was
	// already present, i.e. the delivery is a duplicate.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

const ledgerKeyPrefix = "webhook:event:"

// RedisLedger is an EventLedger over Redis, shared across replicas.
type RedisLedger struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisLedger creates a RedisLedger with the given window.
func NewRedisLedger(client redis.UniversalClient, ttl time.Duration) *RedisLedger {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLedger{client: client, ttl: ttl}
}

// MarkProcessed records the event id via SETNX with a TTL.
func (l *RedisLedger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	fresh, err := l.client.SetNX(ctx, ledgerKeyPrefix+eventID, 1, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ledger setnx: %w", err)
	}
	return fresh, nil
}

// MemoryLedger is an in-process EventLedger for single-replica deployments
// without Redis, and for tests. Entries are pruned lazily on insert.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

// NewMemoryLedger creates a MemoryLedger with the given window.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryLedger{seen: make(map[string]time.Time), ttl: ttl}
}

// MarkProcessed records the event id.
func (l *MemoryLedger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for id, at := range l.seen {
		if now.Sub(at) > l.ttl {
			delete(l.seen, id)
		}
	}

	if _, ok := l.seen[eventID]; ok {
		return false, nil
	}
	l.seen[eventID] = now
	return true, nil
}
