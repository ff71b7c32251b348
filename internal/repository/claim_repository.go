package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guildmint/guildmint/internal/domain"
)

// TryClaimParams drives one atomic claim attempt.
//
// Cooldown gates every claim. Grace extends the window inside which a new
// daily claim continues the streak instead of resetting it. Cap > 0 switches
// the claim to calendar-day counting; Cap <= 0 means uncapped.
type TryClaimParams struct {
	GuildID  string
	UserID   string
	Kind     domain.ClaimKind
	Now      time.Time
	Cooldown time.Duration
	Grace    time.Duration
	Cap      int
}

// ClaimRepository owns the economy_claims rows. TryClaim is the only write
// path; the conditional upsert guarantees at most one granted claim per
// cooldown window even under concurrent attempts for the same key.
type ClaimRepository interface {
	TryClaim(ctx context.Context, p TryClaimParams) (*domain.ClaimResult, error)
	Find(ctx context.Context, guildID, userID string, kind domain.ClaimKind) (*domain.ClaimRecord, error)
}

type claimRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewClaimRepository creates a SQL-backed claim repository.
func NewClaimRepository(db *sql.DB, log *slog.Logger) ClaimRepository {
	return &claimRepository{db: db, log: log}
}

// TryClaim issues one conditional upsert. The store commits the write only if
// the precondition (cooldown lapsed, cap not reached) still holds at commit
// time, so no check-then-act race exists. When the write is rejected the same
// call reads the record back to classify the denial.
func (r *claimRepository) TryClaim(ctx context.Context, p TryClaimParams) (*domain.ClaimResult, error) {
	now := p.Now.UTC()
	cutoff := now.Add(-p.Cooldown)
	stamp := domain.DayStamp(now)

	var (
		res *domain.ClaimResult
		err error
	)
	if p.Cap > 0 {
		res, err = r.tryCapped(ctx, p, now, cutoff, stamp)
	} else {
		res, err = r.tryStreak(ctx, p, now, cutoff, stamp)
	}
	if err != nil {
		return nil, err
	}
	if res != nil {
		return res, nil
	}

	return r.classifyDenial(ctx, p, cutoff, stamp)
}

func (r *claimRepository) tryStreak(ctx context.Context, p TryClaimParams, now, cutoff time.Time, stamp string) (*domain.ClaimResult, error) {
	const query = `
		INSERT INTO economy_claims (guild_id, user_id, kind, last_claim_at, day_stamp, count, streak, best_streak)
		VALUES ($1, $2, $3, $4, $5, 1, 1, 1)
		ON CONFLICT (guild_id, user_id, kind) DO UPDATE
		SET last_claim_at = EXCLUDED.last_claim_at,
		    day_stamp     = EXCLUDED.day_stamp,
		    streak = CASE WHEN economy_claims.last_claim_at >= $6
		                  THEN economy_claims.streak + 1 ELSE 1 END,
		    best_streak = GREATEST(economy_claims.best_streak,
		        CASE WHEN economy_claims.last_claim_at >= $6
		             THEN economy_claims.streak + 1 ELSE 1 END)
		WHERE economy_claims.last_claim_at < $7
		RETURNING streak, best_streak
	`

	graceCutoff := now.Add(-(p.Cooldown + p.Grace))

	var streak, best int
	err := r.db.QueryRowContext(ctx, query,
		p.GuildID, p.UserID, p.Kind, now, stamp, graceCutoff, cutoff,
	).Scan(&streak, &best)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim upsert (%s): %w", p.Kind, err)
	}

	return &domain.ClaimResult{Granted: true, Streak: streak, BestStreak: best}, nil
}

func (r *claimRepository) tryCapped(ctx context.Context, p TryClaimParams, now, cutoff time.Time, stamp string) (*domain.ClaimResult, error) {
	const query = `
		INSERT INTO economy_claims (guild_id, user_id, kind, last_claim_at, day_stamp, count, streak, best_streak)
		VALUES ($1, $2, $3, $4, $5, 1, 0, 0)
		ON CONFLICT (guild_id, user_id, kind) DO UPDATE
		SET last_claim_at = EXCLUDED.last_claim_at,
		    count = CASE WHEN economy_claims.day_stamp = EXCLUDED.day_stamp
		                 THEN economy_claims.count + 1 ELSE 1 END,
		    day_stamp = EXCLUDED.day_stamp
		WHERE economy_claims.last_claim_at < $6
		  AND (economy_claims.day_stamp <> EXCLUDED.day_stamp OR economy_claims.count < $7)
		RETURNING count
	`

	var count int
	err := r.db.QueryRowContext(ctx, query,
		p.GuildID, p.UserID, p.Kind, now, stamp, cutoff, p.Cap,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim upsert (%s): %w", p.Kind, err)
	}

	return &domain.ClaimResult{Granted: true, RemainingToday: p.Cap - count}, nil
}

// classifyDenial reads the record after a rejected write and distinguishes an
// active cooldown from an exhausted daily cap.
func (r *claimRepository) classifyDenial(ctx context.Context, p TryClaimParams, cutoff time.Time, stamp string) (*domain.ClaimResult, error) {
	rec, err := r.Find(ctx, p.GuildID, p.UserID, p.Kind)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The row vanished between the rejected write and the read
			// back. Treat as a cooldown that just ended; the caller
			// retries on its next invocation.
			return &domain.ClaimResult{
				Granted:        false,
				Reason:         domain.ClaimDenyCooldown,
				CooldownEndsAt: p.Now.UTC(),
			}, nil
		}
		return nil, err
	}

	if rec.LastClaimAt.After(cutoff) || rec.LastClaimAt.Equal(cutoff) {
		return &domain.ClaimResult{
			Granted:        false,
			Streak:         rec.Streak,
			BestStreak:     rec.BestStreak,
			Reason:         domain.ClaimDenyCooldown,
			CooldownEndsAt: rec.LastClaimAt.Add(p.Cooldown),
		}, nil
	}

	if p.Cap > 0 && rec.DayStamp == stamp && rec.Count >= p.Cap {
		return &domain.ClaimResult{
			Granted:        false,
			RemainingToday: 0,
			Reason:         domain.ClaimDenyCap,
		}, nil
	}

	if r.log != nil {
		r.log.Warn("claim denial did not match cooldown or cap",
			slog.String("guild_id", p.GuildID),
			slog.String("user_id", p.UserID),
			slog.String("kind", string(p.Kind)),
		)
	}
	return &domain.ClaimResult{
		Granted:        false,
		Reason:         domain.ClaimDenyCooldown,
		CooldownEndsAt: rec.LastClaimAt.Add(p.Cooldown),
	}, nil
}

// Find returns the claim record for the key, or ErrNotFound.
func (r *claimRepository) Find(ctx context.Context, guildID, userID string, kind domain.ClaimKind) (*domain.ClaimRecord, error) {
	const query = `
		SELECT guild_id, user_id, kind, last_claim_at, day_stamp, count, streak, best_streak
		FROM economy_claims
		WHERE guild_id = $1 AND user_id = $2 AND kind = $3
	`

	var rec domain.ClaimRecord
	err := r.db.QueryRowContext(ctx, query, guildID, userID, kind).Scan(
		&rec.GuildID,
		&rec.UserID,
		&rec.Kind,
		&rec.LastClaimAt,
		&rec.DayStamp,
		&rec.Count,
		&rec.Streak,
		&rec.BestStreak,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select claim record: %w", err)
	}
	return &rec, nil
}
