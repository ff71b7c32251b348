// Package audit records every balance-changing operation in the append-only
// trail and aggregates it for guild health reporting. The trail is the sole
// source of truth for reconstructing balance history.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/internal/repository"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// Recorder is the write side consumed by the mutation callers.
type Recorder interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}

// Service provides audit trail operations.
type Service struct {
	repo repository.AuditRepository
	log  *slog.Logger
}

var _ Recorder = (*Service)(nil)

// NewService constructs a new audit Service.
func NewService(repo repository.AuditRepository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Record appends one entry. Callers must await it before reporting their
// operation as durable; a failed append is surfaced, never swallowed.
func (s *Service) Record(ctx context.Context, entry *domain.AuditEntry) error {
	if entry == nil {
		return econerr.New(econerr.CodeStorage, "audit entry is nil")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		if s.log != nil {
			s.log.Error("audit append failed",
				slog.String("operation", string(entry.OperationType)),
				slog.String("guild_id", entry.GuildID),
				slog.String("correlation_id", entry.CorrelationID()),
				slog.Any("error", err),
			)
		}
		return econerr.NewStorage("audit append", err)
	}

	metrics.RecordAuditEntry(string(entry.OperationType))
	return nil
}

// SummarizeRecent aggregates the guild's audit window: counts per operation
// type and net signed delta per currency.
func (s *Service) SummarizeRecent(ctx context.Context, guildID string, since time.Time) (*domain.AuditSummary, error) {
	summary, err := s.repo.SummarizeRecent(ctx, guildID, since)
	if err != nil {
		return nil, econerr.NewStorage("audit summarize", err)
	}
	return summary, nil
}

// Recent lists the newest entries in the window for external reporting.
func (s *Service) Recent(ctx context.Context, guildID string, since time.Time, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := s.repo.ListByGuild(ctx, guildID, since, limit)
	if err != nil {
		return nil, econerr.NewStorage("audit list", err)
	}
	return entries, nil
}
