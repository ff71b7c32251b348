// Package idempotency deduplicates redelivered chat interactions. A minigame
// play executed under an idempotency key runs at most once; retries of the
// same interaction return the recorded result instead of double-charging.
package idempotency

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Status of a stored idempotency record.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// Record is the stored outcome of a keyed operation.
type Record struct {
	Status   Status `json:"status"`
	Response []byte `json:"response,omitempty"`
}

// Store persists idempotency locks and records.
type Store interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, record *Record, ttl time.Duration) error
}

// KeyFor builds a stable key from the interaction coordinates.
func KeyFor(guildID, userID, action, token string) string {
	return strings.Join([]string{guildID, userID, action, token}, ":")
}

func validateKey(key string) error {
	if key == "" || strings.Count(key, ":") < 1 {
		return fmt.Errorf("malformed idempotency key %q", key)
	}
	return nil
}
