// Package claims orchestrates the time-gated reward claims. The cooldown,
// streak and cap bookkeeping is a single conditional write in the claim
// repository; this service wraps it with reward computation, fee movement and
// audit entries.
package claims

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/internal/economy"
	"github.com/guildmint/guildmint/internal/repository"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// ConfigProvider is the slice of the guild config service the claims need.
type ConfigProvider interface {
	GetConfig(ctx context.Context, guildID string) (*domain.GuildEconomyConfig, error)
}

// Mutator is the slice of the mutation service the claims need.
type Mutator interface {
	AdjustCurrencyBalance(ctx context.Context, p economy.AdjustParams) (*domain.BalanceChange, error)
}

// Auditor records claim outcomes in the audit trail.
type Auditor interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}

// AccountEnsurer lazily creates economy accounts on first interaction.
type AccountEnsurer interface {
	EnsureAccount(ctx context.Context, userID string) (*domain.EconomyAccount, error)
}

// Service coordinates daily and work claims.
type Service struct {
	configs  ConfigProvider
	claims   repository.ClaimRepository
	mutator  Mutator
	sectors  economy.SectorDepositor
	auditor  Auditor
	accounts AccountEnsurer
	log      *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	now func() time.Time
}

// NewService constructs the claim service.
func NewService(
	configs ConfigProvider,
	claims repository.ClaimRepository,
	mutator Mutator,
	sectors economy.SectorDepositor,
	auditor Auditor,
	accounts AccountEnsurer,
	log *slog.Logger,
) *Service {
	return &Service{
		configs:  configs,
		claims:   claims,
		mutator:  mutator,
		sectors:  sectors,
		auditor:  auditor,
		accounts: accounts,
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

// DailyResult is the outcome of a daily claim attempt.
type DailyResult struct {
	Granted        bool
	Streak         int
	BestStreak     int
	Reward         int64
	Fee            int64
	Reason         domain.ClaimDenyReason
	CooldownEndsAt time.Time
	CorrelationID  string
}

// ClaimDaily attempts the daily reward for (guildID, userID). A denial is a
// result, not an error; errors are reserved for storage failures and broken
// composites.
func (s *Service) ClaimDaily(ctx context.Context, guildID, userID string) (*DailyResult, error) {
	cfg, err := s.configs.GetConfig(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if _, err := s.accounts.EnsureAccount(ctx, userID); err != nil {
		return nil, err
	}

	cooldown := time.Duration(cfg.Daily.CooldownHours) * time.Hour
	now := s.now().UTC()

	// The streak survives as long as the next claim lands within one full
	// period after the cooldown lapses; skipping a day resets it.
	res, err := s.claims.TryClaim(ctx, repository.TryClaimParams{
		GuildID:  guildID,
		UserID:   userID,
		Kind:     domain.ClaimKindDaily,
		Now:      now,
		Cooldown: cooldown,
		Grace:    cooldown,
	})
	if err != nil {
		return nil, econerr.NewStorage("daily claim", err)
	}

	if !res.Granted {
		metrics.RecordClaim("daily", string(res.Reason))
		return &DailyResult{
			Granted:        false,
			Streak:         res.Streak,
			BestStreak:     res.BestStreak,
			Reason:         res.Reason,
			CooldownEndsAt: res.CooldownEndsAt,
		}, nil
	}

	reward := cfg.Daily.Reward + dailyStreakBonus(cfg.Daily, res.Streak)
	fee := domain.ApplyRate(reward, cfg.Daily.FeeRate)
	net := reward - fee
	correlationID := uuid.NewString()

	change, err := s.mutator.AdjustCurrencyBalance(ctx, economy.AdjustParams{
		ActorID:    userID,
		TargetID:   userID,
		GuildID:    guildID,
		CurrencyID: cfg.Daily.CurrencyID,
		Delta:      net,
		Reason:     "daily reward",
	})
	if err != nil {
		// Claim window is consumed but no money moved; surface the
		// failure so the caller can tell the user to retry tomorrow.
		s.logClaimError("daily", guildID, userID, err)
		metrics.RecordClaim("daily", "error")
		return nil, err
	}

	if fee > 0 {
		if _, err := s.sectors.DepositToSector(ctx, guildID, cfg.Daily.FeeSector, fee, "daily_fee", "daily reward fee"); err != nil {
			// Reward and fee are all-or-nothing: unwind the credit.
			s.compensateCredit(ctx, guildID, userID, cfg.Daily.CurrencyID, net, correlationID, "daily fee deposit failed")
			metrics.RecordClaim("daily", "error")
			return nil, err
		}
	}

	entry := &domain.AuditEntry{
		OperationType: domain.OpDailyClaim,
		ActorID:       userID,
		TargetID:      userID,
		GuildID:       guildID,
		Source:        "claims",
		Reason:        "daily reward",
		Currency: &domain.CurrencyData{
			CurrencyID:    cfg.Daily.CurrencyID,
			Delta:         net,
			BeforeBalance: change.Before,
			AfterBalance:  change.After,
		},
		Metadata: map[string]any{
			"correlation_id": correlationID,
			"streak":         res.Streak,
			"fee":            fee,
		},
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		return nil, err
	}

	metrics.RecordClaim("daily", "granted")
	return &DailyResult{
		Granted:        true,
		Streak:         res.Streak,
		BestStreak:     res.BestStreak,
		Reward:         net,
		Fee:            fee,
		CooldownEndsAt: now.Add(cooldown),
		CorrelationID:  correlationID,
	}, nil
}

// dailyStreakBonus scales the bonus with the streak, capped when a cap is
// configured.
func dailyStreakBonus(cfg domain.DailyConfig, streak int) int64 {
	if cfg.StreakBonus <= 0 || streak <= 0 {
		return 0
	}
	effective := streak
	if cfg.StreakCap > 0 && effective > cfg.StreakCap {
		effective = cfg.StreakCap
	}
	return cfg.StreakBonus * int64(effective)
}

func (s *Service) compensateCredit(ctx context.Context, guildID, userID, currencyID string, amount int64, correlationID, cause string) {
	metrics.RecordCompensation("claim")

	change, err := s.mutator.AdjustCurrencyBalance(ctx, economy.AdjustParams{
		ActorID:    userID,
		TargetID:   userID,
		GuildID:    guildID,
		CurrencyID: currencyID,
		Delta:      -amount,
		Reason:     cause,
	})
	if err != nil {
		if s.log != nil {
			s.log.Error("claim compensation failed",
				slog.String("guild_id", guildID),
				slog.String("user_id", userID),
				slog.Int64("amount", amount),
				slog.String("cause", cause),
				slog.Any("error", err),
			)
		}
		return
	}

	entry := &domain.AuditEntry{
		OperationType: domain.OpRollback,
		ActorID:       userID,
		TargetID:      userID,
		GuildID:       guildID,
		Source:        "claims",
		Reason:        cause,
		Currency: &domain.CurrencyData{
			CurrencyID:    currencyID,
			Delta:         -amount,
			BeforeBalance: change.Before,
			AfterBalance:  change.After,
		},
		Metadata: map[string]any{"correlation_id": correlationID},
	}
	if err := s.auditor.Record(ctx, entry); err != nil && s.log != nil {
		s.log.Error("failed to record claim rollback", slog.Any("error", err))
	}
}

func (s *Service) logClaimError(kind, guildID, userID string, err error) {
	if s.log == nil {
		return
	}
	s.log.Warn("claim payout failed after granted window",
		slog.String("kind", kind),
		slog.String("guild_id", guildID),
		slog.String("user_id", userID),
		slog.Any("error", err),
	)
}

func (s *Service) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
