package guildcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/guildmint/guildmint/internal/domain"
)

// DefaultTTL bounds how stale a cached guild configuration may get when an
// invalidation is lost.
const DefaultTTL = 5 * time.Minute

// Cache provides Redis-backed caching for guild economy configurations.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a guild config cache backed by the provided Redis client.
// A non-positive ttl falls back to DefaultTTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Get fetches a cached guild configuration if it exists.
func (c *Cache) Get(ctx context.Context, guildID string) (*domain.GuildEconomyConfig, error) {
	if c == nil || c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, cacheKey(guildID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached guild config: %w", err)
	}

	var cfg domain.GuildEconomyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode cached guild config: %w", err)
	}

	return &cfg, nil
}

// Set stores the guild configuration in cache for the configured TTL.
func (c *Cache) Set(ctx context.Context, guildID string, cfg *domain.GuildEconomyConfig) error {
	if c == nil || c.client == nil || cfg == nil {
		return nil
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode guild config for cache: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(guildID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("set cached guild config: %w", err)
	}

	return nil
}

// Invalidate removes the cached configuration entry if it exists.
func (c *Cache) Invalidate(ctx context.Context, guildID string) error {
	if c == nil || c.client == nil {
		return nil
	}

	if err := c.client.Del(ctx, cacheKey(guildID)).Err(); err != nil {
		return fmt.Errorf("delete cached guild config: %w", err)
	}

	return nil
}

func cacheKey(guildID string) string {
	return fmt.Sprintf("guildcfg:%s", guildID)
}
