// Package ratelimit provides the Redis-backed cooldown gate used by the rob
// minigame (per-robber and per-pair windows). Acquisition is a single SETNX,
// so concurrent attempts for the same key admit exactly one caller.
package ratelimit

import (
	"context"
	"time"
)

// Result reports a cooldown acquisition attempt.
type Result struct {
	Allowed bool
	RetryAt time.Time
}

// Cooldown gates an action behind a fixed window per key.
type Cooldown interface {
	// Acquire claims the window for key. When the window is already
	// held, Allowed is false and RetryAt reports when it frees up.
	Acquire(ctx context.Context, key string, window time.Duration) (*Result, error)
	// Release frees the window early, used to unwind an acquisition when
	// the guarded action aborts before any side effect.
	Release(ctx context.Context, key string) error
}
