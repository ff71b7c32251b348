package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/guildmint/guildmint/internal/idempotency"
)

// cleanupScanCount batches the keyspace scan.
const cleanupScanCount = 100

// IdempotencyCleanupHandler sweeps replay records and locks that lost their
// expiry. Records and locks normally expire on their own; a key persisted
// without a TTL (a crash between SET and EXPIRE, or a manual restore) would
// otherwise pin its interaction token forever.
type IdempotencyCleanupHandler struct {
	client *redis.Client
	log    *slog.Logger
}

// NewIdempotencyCleanupHandler constructs the handler.
func NewIdempotencyCleanupHandler(client *redis.Client, log *slog.Logger) *IdempotencyCleanupHandler {
	if log == nil {
		log = slog.Default()
	}
	return &IdempotencyCleanupHandler{client: client, log: log}
}

// ProcessTask scans the replay-record prefix and deletes every key that has
// no expiry set.
func (h *IdempotencyCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var (
		cursor  uint64
		scanned int
		removed int
	)

	for {
		keys, next, err := h.client.Scan(ctx, cursor, idempotency.KeyPrefix+"*", cleanupScanCount).Result()
		if err != nil {
			h.log.ErrorContext(ctx, "idempotency cleanup: scan failed", slog.Any("error", err))
			return err
		}

		for _, key := range keys {
			scanned++
			ttl, err := h.client.TTL(ctx, key).Result()
			if err != nil {
				h.log.ErrorContext(ctx, "idempotency cleanup: ttl check failed",
					slog.String("key", key), slog.Any("error", err))
				continue
			}
			// -1 means the key exists but carries no expiry.
			if ttl != -1 {
				continue
			}
			if err := h.client.Del(ctx, key).Err(); err != nil {
				h.log.ErrorContext(ctx, "idempotency cleanup: delete failed",
					slog.String("key", key), slog.Any("error", err))
				continue
			}
			removed++
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	h.log.InfoContext(ctx, "idempotency cleanup finished",
		slog.Int("scanned", scanned),
		slog.Int("removed", removed),
	)
	return nil
}
