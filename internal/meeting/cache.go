package meeting

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"meettrack/internal/model"
)

const latestKey = "meettrack:latest_meeting"

// LatestCache keeps the latest meeting in redis so every attendance recording
// does not hit the database for the same row. All methods are nil-safe; a nil
// cache simply never hits.
type LatestCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestCache creates a cache with the given TTL.
func NewLatestCache(client *redis.Client, ttl time.Duration) *LatestCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &LatestCache{client: client, ttl: ttl}
}

// Get returns the cached latest meeting, if any.
func (c *LatestCache) Get(ctx context.Context) (model.Meeting, bool) {
	if c == nil || c.client == nil {
		return model.Meeting{}, false
	}
	raw, err := c.client.Get(ctx, latestKey).Bytes()
	if err != nil {
		return model.Meeting{}, false
	}
	var m model.Meeting
	if err := json.Unmarshal(raw, &m); err != nil {
		return model.Meeting{}, false
	}
	return m, true
}

// Set stores m as the latest meeting. Failures are ignored: the cache is an
// optimization, never a source of truth.
func (c *LatestCache) Set(ctx context.Context, m model.Meeting) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, latestKey, raw, c.ttl).Err()
}

// Invalidate drops the cached entry after any meeting mutation.
func (c *LatestCache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Del(ctx, latestKey).Err()
}
