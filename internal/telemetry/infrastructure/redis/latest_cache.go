package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	telemetry "engine-monitor/internal/telemetry/domain"
)

const latestReadingKey = "engine:readings:latest"

// LatestCache caches the most recent sensor reading in Redis so the
// dashboard's latest-reading poll does not hit Postgres on every tick.
// Stale or missing entries fall through to the repository.
type LatestCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLatestCache constructs a cache with the given entry TTL.
func NewLatestCache(client *redis.Client, ttl time.Duration) *LatestCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &LatestCache{client: client, ttl: ttl}
}

// Set stores a reading as the latest entry.
func (c *LatestCache) Set(ctx context.Context, reading telemetry.Reading) error {
	if c == nil || c.client == nil {
		return errors.New("latest cache: nil client")
	}
	payload, err := json.Marshal(reading)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, latestReadingKey, payload, c.ttl).Err()
}

// Get returns the cached latest reading, or nil on a miss.
func (c *LatestCache) Get(ctx context.Context) (*telemetry.Reading, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("latest cache: nil client")
	}
	payload, err := c.client.Get(ctx, latestReadingKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var reading telemetry.Reading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return nil, err
	}
	return &reading, nil
}

// Invalidate drops the cached entry.
func (c *LatestCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("latest cache: nil client")
	}
	return c.client.Del(ctx, latestReadingKey).Err()
}
