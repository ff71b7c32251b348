package claims

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/internal/economy"
	"github.com/guildmint/guildmint/internal/repository"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// workBonusDivisor converts the works-sector balance into a linear bonus:
// one unit of bonus per hundred banked in the sector, up to the cap.
const workBonusDivisor = 100

// WorkResult is the outcome of a work claim attempt.
type WorkResult struct {
	Granted        bool
	Failed         bool
	Payout         int64
	Base           int64
	Bonus          int64
	RemainingToday int
	Reason         domain.ClaimDenyReason
	CooldownEndsAt time.Time
	CorrelationID  string
}

// ClaimWork attempts the repeatable work payout. The daily cap counts whole
// UTC calendar days; a configured zero cap rejects immediately without a
// write.
func (s *Service) ClaimWork(ctx context.Context, guildID, userID string) (*WorkResult, error) {
	cfg, err := s.configs.GetConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.EnsureAccount(ctx, userID); err != nil {
		return nil, err
	}

	if cfg.Work.DailyCap == 0 {
		metrics.RecordClaim("work", string(domain.ClaimDenyCap))
		return &WorkResult{
			Granted:        false,
			RemainingToday: 0,
			Reason:         domain.ClaimDenyCap,
		}, nil
	}

	cooldown := time.Duration(cfg.Work.CooldownMinutes) * time.Minute
	now := s.now().UTC()

	res, err := s.claims.TryClaim(ctx, repository.TryClaimParams{
		GuildID:  guildID,
		UserID:   userID,
		Kind:     domain.ClaimKindWork,
		Now:      now,
		Cooldown: cooldown,
		Cap:      cfg.Work.DailyCap,
	})
	if err != nil {
		return nil, econerr.NewStorage("work claim", err)
	}

	if !res.Granted {
		metrics.RecordClaim("work", string(res.Reason))
		return &WorkResult{
			Granted:        false,
			RemainingToday: res.RemainingToday,
			Reason:         res.Reason,
			CooldownEndsAt: res.CooldownEndsAt,
		}, nil
	}

	correlationID := uuid.NewString()

	// A failed shift consumes the claim but pays nothing.
	if cfg.Work.FailureChance > 0 && s.roll() < cfg.Work.FailureChance {
		metrics.RecordClaim("work", "failed")
		entry := &domain.AuditEntry{
			OperationType: domain.OpWorkClaim,
			ActorID:       userID,
			TargetID:      userID,
			GuildID:       guildID,
			Source:        "claims",
			Reason:        "work shift failed",
			Metadata: map[string]any{
				"correlation_id":  correlationID,
				"outcome":         "failed",
				"remaining_today": res.RemainingToday,
			},
		}
		if err := s.auditor.Record(ctx, entry); err != nil {
			return nil, err
		}
		return &WorkResult{
			Granted:        true,
			Failed:         true,
			RemainingToday: res.RemainingToday,
			CooldownEndsAt: now.Add(cooldown),
			CorrelationID:  correlationID,
		}, nil
	}

	base := cfg.Work.BaseMintReward
	bonus := workBonus(cfg.Work, cfg.Sectors[domain.SectorWorks])

	// The bonus (and the base too, when the guild pays work from its
	// treasury) is withdrawn from the works sector before the user is
	// credited; a credit failure re-deposits what was taken.
	fromSector := bonus
	if cfg.Work.PaysFromSector {
		fromSector += base
	}
	if fromSector > 0 {
		if _, err := s.sectors.DepositToSector(ctx, guildID, domain.SectorWorks, -fromSector, "work_payout", "work payout funding"); err != nil {
			if econerr.IsCode(err, econerr.CodeSectorInsufficient) {
				// Sector cannot fund the claim; mint the base and
				// skip the bonus rather than denying a granted claim.
				if s.log != nil {
					s.log.Warn("works sector could not fund payout",
						slog.String("guild_id", guildID),
						slog.Int64("wanted", fromSector),
					)
				}
				bonus = 0
				fromSector = 0
			} else {
				return nil, err
			}
		}
	}
	payout := base + bonus

	change, err := s.mutator.AdjustCurrencyBalance(ctx, economy.AdjustParams{
		ActorID:    userID,
		TargetID:   userID,
		GuildID:    guildID,
		CurrencyID: cfg.Work.CurrencyID,
		Delta:      payout,
		Reason:     "work payout",
	})
	if err != nil {
		if fromSector > 0 {
			metrics.RecordCompensation("claim")
			if _, derr := s.sectors.DepositToSector(ctx, guildID, domain.SectorWorks, fromSector, "work_payout_rollback", "work credit failed"); derr != nil && s.log != nil {
				s.log.Error("failed to return funds to works sector",
					slog.String("guild_id", guildID),
					slog.Int64("amount", fromSector),
					slog.Any("error", derr),
				)
			}
		}
		s.logClaimError("work", guildID, userID, err)
		metrics.RecordClaim("work", "error")
		return nil, err
	}

	entry := &domain.AuditEntry{
		OperationType: domain.OpWorkClaim,
		ActorID:       userID,
		TargetID:      userID,
		GuildID:       guildID,
		Source:        "claims",
		Reason:        "work payout",
		Currency: &domain.CurrencyData{
			CurrencyID:    cfg.Work.CurrencyID,
			Delta:         payout,
			BeforeBalance: change.Before,
			AfterBalance:  change.After,
		},
		Metadata: map[string]any{
			"correlation_id":  correlationID,
			"outcome":         "paid",
			"base":            base,
			"bonus":           bonus,
			"remaining_today": res.RemainingToday,
		},
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		return nil, err
	}

	metrics.RecordClaim("work", "granted")
	return &WorkResult{
		Granted:        true,
		Payout:         payout,
		Base:           base,
		Bonus:          bonus,
		RemainingToday: res.RemainingToday,
		CooldownEndsAt: now.Add(cooldown),
		CorrelationID:  correlationID,
	}, nil
}

// workBonus derives the works-sector bonus for one claim.
func workBonus(cfg domain.WorkConfig, worksBalance int64) int64 {
	if cfg.BonusFromWorksMax <= 0 || worksBalance <= 0 {
		return 0
	}

	switch cfg.BonusScaleMode {
	case domain.BonusScaleFlat:
		if worksBalance >= cfg.BonusFromWorksMax {
			return cfg.BonusFromWorksMax
		}
		return 0
	default: // linear
		bonus := worksBalance / workBonusDivisor
		if bonus > cfg.BonusFromWorksMax {
			return cfg.BonusFromWorksMax
		}
		return bonus
	}
}
