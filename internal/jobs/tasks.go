package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeGuildHealthReport summarizes recent economy activity per guild
	// and grades treasury levels against the configured thresholds.
	TaskTypeGuildHealthReport = "economy:health_report"

	// TaskTypeIdempotencyCleanup sweeps interaction replay records left in
	// redis without an expiry.
	TaskTypeIdempotencyCleanup = "economy:idempotency_cleanup"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// GuildHealthReportPayload selects the guilds to report on. An empty list
// means every guild with a materialized economy configuration.
type GuildHealthReportPayload struct {
	GuildIDs []string `json:"guild_ids"`
}

// NewGuildHealthReportTask builds the periodic health report task.
func NewGuildHealthReportTask(guildIDs []string) (*asynq.Task, error) {
	payload, err := json.Marshal(GuildHealthReportPayload{GuildIDs: guildIDs})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TaskTypeGuildHealthReport, payload, asynq.Queue(QueueLow)), nil
}

// NewIdempotencyCleanupTask builds the periodic replay-record sweep task.
// The task carries no payload; the handler scans the whole keyspace prefix.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil, asynq.Queue(QueueLow))
}
