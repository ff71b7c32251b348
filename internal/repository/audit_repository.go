package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/guildmint/guildmint/internal/domain"
)

// AuditRepository owns the append-only economy_audit collection. Entries are
// never updated or deleted; corrections land as new compensating entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
	ListByGuild(ctx context.Context, guildID string, since time.Time, limit int) ([]*domain.AuditEntry, error)
	SummarizeRecent(ctx context.Context, guildID string, since time.Time) (*domain.AuditSummary, error)
}

type auditRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewAuditRepository creates a SQL-backed audit repository.
func NewAuditRepository(db *sql.DB, log *slog.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

// Create appends one audit entry. Callers await it; an operation is not
// durable until its audit entry has committed.
func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}

	var currencyID, delta, before, after any
	if entry.Currency != nil {
		currencyID = entry.Currency.CurrencyID
		delta = entry.Currency.Delta
		before = entry.Currency.BeforeBalance
		after = entry.Currency.AfterBalance
	}

	const query = `
		INSERT INTO economy_audit (
			operation_type, actor_id, target_id, guild_id, source, reason,
			currency_id, delta, before_balance, after_balance, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if _, err := r.db.ExecContext(ctx, query,
		entry.OperationType, entry.ActorID, entry.TargetID, entry.GuildID,
		entry.Source, entry.Reason,
		currencyID, delta, before, after, metadata,
	); err != nil {
		if r.log != nil {
			r.log.Error("failed to append audit entry",
				slog.String("operation", string(entry.OperationType)),
				slog.String("guild_id", entry.GuildID),
				slog.Any("error", err),
			)
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByGuild returns the newest entries for a guild inside the window.
func (r *auditRepository) ListByGuild(ctx context.Context, guildID string, since time.Time, limit int) ([]*domain.AuditEntry, error) {
	const query = `
		SELECT id, operation_type, actor_id, target_id, guild_id, source, reason,
		       currency_id, delta, before_balance, after_balance, metadata, created_at
		FROM economy_audit
		WHERE guild_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, guildID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var (
			e           domain.AuditEntry
			currencyID  sql.NullString
			delta       sql.NullInt64
			before      sql.NullInt64
			after       sql.NullInt64
			metadataRaw []byte
		)
		if err := rows.Scan(
			&e.ID, &e.OperationType, &e.ActorID, &e.TargetID, &e.GuildID,
			&e.Source, &e.Reason,
			&currencyID, &delta, &before, &after, &metadataRaw, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if currencyID.Valid {
			e.Currency = &domain.CurrencyData{
				CurrencyID:    currencyID.String,
				Delta:         delta.Int64,
				BeforeBalance: before.Int64,
				AfterBalance:  after.Int64,
			}
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode audit metadata: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SummarizeRecent aggregates counts per operation type and signed deltas per
// currency over the window. Used by the guild health report.
func (r *auditRepository) SummarizeRecent(ctx context.Context, guildID string, since time.Time) (*domain.AuditSummary, error) {
	summary := &domain.AuditSummary{
		Counts:        map[domain.OperationType]int{},
		NetByCurrency: map[string]int64{},
	}

	const countQuery = `
		SELECT operation_type, COUNT(*)
		FROM economy_audit
		WHERE guild_id = $1 AND created_at >= $2
		GROUP BY operation_type
	`

	rows, err := r.db.QueryContext(ctx, countQuery, guildID, since)
	if err != nil {
		return nil, fmt.Errorf("summarize audit counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			op    domain.OperationType
			count int
		)
		if err := rows.Scan(&op, &count); err != nil {
			return nil, fmt.Errorf("scan audit count: %w", err)
		}
		summary.Counts[op] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const netQuery = `
		SELECT currency_id, COALESCE(SUM(delta), 0)
		FROM economy_audit
		WHERE guild_id = $1 AND created_at >= $2 AND currency_id IS NOT NULL
		GROUP BY currency_id
	`

	netRows, err := r.db.QueryContext(ctx, netQuery, guildID, since)
	if err != nil {
		return nil, fmt.Errorf("summarize audit deltas: %w", err)
	}
	defer netRows.Close()

	for netRows.Next() {
		var (
			currencyID string
			net        int64
		)
		if err := netRows.Scan(&currencyID, &net); err != nil {
			return nil, fmt.Errorf("scan audit delta: %w", err)
		}
		summary.NetByCurrency[currencyID] = net
	}
	return summary, netRows.Err()
}
