// Package handlers holds the background task handlers.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/jobs"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// reportWindow is the activity window each report summarizes.
const reportWindow = 24 * time.Hour

// ConfigSource is the slice of the guild config service the report needs.
type ConfigSource interface {
	GetConfig(ctx context.Context, guildID string) (*domain.GuildEconomyConfig, error)
	ListGuildIDs(ctx context.Context) ([]string, error)
}

// AuditSource summarizes recent guild activity.
type AuditSource interface {
	SummarizeRecent(ctx context.Context, guildID string, since time.Time) (*domain.AuditSummary, error)
}

// GuildHealthReportHandler grades each guild's treasury against its
// thresholds and publishes sector gauges.
type GuildHealthReportHandler struct {
	configs ConfigSource
	audits  AuditSource
	log     *slog.Logger
}

// NewGuildHealthReportHandler constructs the handler.
func NewGuildHealthReportHandler(configs ConfigSource, audits AuditSource, log *slog.Logger) *GuildHealthReportHandler {
	if log == nil {
		log = slog.Default()
	}
	return &GuildHealthReportHandler{
		configs: configs,
		audits:  audits,
		log:     log,
	}
}

// ProcessTask runs the report for the guilds named in the payload, or for
// every known guild when the payload is empty.
func (h *GuildHealthReportHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload jobs.GuildHealthReportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.log.ErrorContext(ctx, "health report: failed to decode payload",
			slog.String("task_type", t.Type()), slog.Any("error", err))
		return err
	}

	guildIDs := payload.GuildIDs
	if len(guildIDs) == 0 {
		var err error
		guildIDs, err = h.configs.ListGuildIDs(ctx)
		if err != nil {
			return err
		}
	}

	for _, guildID := range guildIDs {
		if err := h.reportGuild(ctx, guildID); err != nil {
			h.log.ErrorContext(ctx, "health report: guild report failed",
				slog.String("guild_id", guildID), slog.Any("error", err))
		}
	}

	return nil
}

func (h *GuildHealthReportHandler) reportGuild(ctx context.Context, guildID string) error {
	cfg, err := h.configs.GetConfig(ctx, guildID)
	if err != nil {
		return err
	}

	summary, err := h.audits.SummarizeRecent(ctx, guildID, time.Now().Add(-reportWindow))
	if err != nil {
		return err
	}

	var treasury int64
	for sector, balance := range cfg.Sectors {
		treasury += balance
		metrics.SetSectorBalance(guildID, string(sector), balance)
	}

	operations := 0
	for _, count := range summary.Counts {
		operations += count
	}
	rollbacks := summary.Counts[domain.OpRollback]

	attrs := []any{
		slog.String("guild_id", guildID),
		slog.Int64("treasury", treasury),
		slog.Int("operations_24h", operations),
		slog.Int("rollbacks_24h", rollbacks),
		slog.Any("net_by_currency", summary.NetByCurrency),
	}

	switch grade(treasury, cfg.Thresholds) {
	case "critical":
		h.log.ErrorContext(ctx, "guild treasury critical", attrs...)
	case "alert":
		h.log.WarnContext(ctx, "guild treasury low", attrs...)
	case "warning":
		h.log.InfoContext(ctx, "guild treasury below warning level", attrs...)
	default:
		h.log.InfoContext(ctx, "guild economy healthy", attrs...)
	}

	return nil
}

// grade classifies the treasury level. Thresholds are ordered critical <=
// alert <= warning; zero thresholds disable their grade.
func grade(treasury int64, t domain.Thresholds) string {
	switch {
	case t.Critical > 0 && treasury <= t.Critical:
		return "critical"
	case t.Alert > 0 && treasury <= t.Alert:
		return "alert"
	case t.Warning > 0 && treasury <= t.Warning:
		return "warning"
	default:
		return "ok"
	}
}
