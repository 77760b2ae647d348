package consumer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Deduper short-circuits redeliveries of already-stored events before they
// reach the store. An event is marked only after its persist succeeds, so a
// hit always means the ledger already holds the row; an unpersisted event is
// never acknowledged as a duplicate. It is a fast path only: the
// authoritative idempotency guard is the store's insert-if-absent by event ID.
type Deduper interface {
	// Seen reports whether an earlier delivery already stored the event.
	Seen(ctx context.Context, eventID uuid.UUID) (bool, error)
	// Mark records that the event was stored.
	Mark(ctx context.Context, eventID uuid.UUID) error
}

// RedisDeduper marks stored events with a TTL. Expired marks cost one extra
// store round trip, which the store-level guard absorbs.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func dedupeKey(eventID uuid.UUID) string {
	return "audit:event:" + eventID.String()
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID uuid.UUID) (bool, error) {
	n, err := d.client.Exists(ctx, dedupeKey(eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) Mark(ctx context.Context, eventID uuid.UUID) error {
	return d.client.Set(ctx, dedupeKey(eventID), 1, d.ttl).Err()
}

// MemoryDeduper is the in-process equivalent for tests and single-instance
// deployments.
type MemoryDeduper struct {
	mu     sync.Mutex
	stored map[uuid.UUID]struct{}
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{stored: make(map[uuid.UUID]struct{})}
}

func (d *MemoryDeduper) Seen(_ context.Context, eventID uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.stored[eventID]
	return ok, nil
}

func (d *MemoryDeduper) Mark(_ context.Context, eventID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stored[eventID] = struct{}{}
	return nil
}
