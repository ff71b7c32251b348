package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCooldown implements Cooldown with a SETNX-and-TTL key per window.
type RedisCooldown struct {
	client *redis.Client
	log    *slog.Logger
}

var _ Cooldown = (*RedisCooldown)(nil)

// NewRedisCooldown creates a Redis-backed Cooldown implementation.
func NewRedisCooldown(client *redis.Client, log *slog.Logger) *RedisCooldown {
	if log == nil {
		log = slog.Default()
	}
	return &RedisCooldown{client: client, log: log}
}

// Acquire claims the window for key with one atomic SETNX round trip.
func (c *RedisCooldown) Acquire(ctx context.Context, key string, window time.Duration) (*Result, error) {
	if c.client == nil {
		return nil, errors.New("redis client is not configured for cooldowns")
	}
	if window <= 0 {
		return &Result{Allowed: true}, nil
	}

	now := time.Now()
	redisKey := "cooldown:" + key

	ok, err := c.client.SetNX(ctx, redisKey, now.Unix(), window).Result()
	if err != nil {
		if c.log != nil {
			c.log.Error("cooldown acquire failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, err
	}
	if ok {
		return &Result{Allowed: true, RetryAt: now.Add(window)}, nil
	}

	ttl, err := c.client.TTL(ctx, redisKey).Result()
	if err != nil {
		if c.log != nil {
			c.log.Error("cooldown ttl read failed", slog.String("key", key), slog.Any("error", err))
		}
		return nil, err
	}
	if ttl < 0 {
		// Key expired between the SETNX and the TTL read.
		ttl = 0
	}

	return &Result{Allowed: false, RetryAt: now.Add(ttl)}, nil
}

// Release drops the window for key.
func (c *RedisCooldown) Release(ctx context.Context, key string) error {
	if c.client == nil {
		return errors.New("redis client is not configured for cooldowns")
	}
	return c.client.Del(ctx, "cooldown:"+key).Err()
}
