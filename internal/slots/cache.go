package slots

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is a read-through Redis cache for unfiltered slot listings. Entries
// are short-lived and deleted eagerly after booking writes, so a stale
// listing only survives until the advisory re-check catches it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(serviceID uuid.UUID, localDate string) string {
	return fmt.Sprintf("slots:%s:%s", serviceID, localDate)
}

// Get returns the cached listing and whether it was present. Any Redis or
// decode failure is a miss, never an error: the caller recomputes.
func (c *Cache) Get(ctx context.Context, serviceID uuid.UUID, localDate string) ([]PublicSlot, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey(serviceID, localDate)).Bytes()
	if err != nil {
		return nil, false
	}
	var out []PublicSlot
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Set stores a listing; failures are swallowed since the cache is advisory.
func (c *Cache) Set(ctx context.Context, serviceID uuid.UUID, localDate string, listing []PublicSlot) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(listing)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(serviceID, localDate), raw, c.ttl).Err()
}

// Invalidate drops the cached listing for a service/date after a write.
func (c *Cache) Invalidate(ctx context.Context, serviceID uuid.UUID, localDate string) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, cacheKey(serviceID, localDate)).Err(); err != nil {
		return fmt.Errorf("slots: invalidate cache: %w", err)
	}
	return nil
}
