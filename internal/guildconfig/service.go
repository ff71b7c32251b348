// Package guildconfig manages per-guild economy tuning and the sector
// treasuries. Config rows are created lazily with schema defaults; partial
// updates are validated against the fully merged state so cross-field
// constraints hold regardless of which fields a patch touches.
package guildconfig

import (
	"context"
	"errors"
	"log/slog"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/internal/repository"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// Cache is a TTL-bounded read cache for guild configs. Caching is confined to
// this read-mostly path; ledger and claim state are never cached.
type Cache interface {
	Get(ctx context.Context, guildID string) (*domain.GuildEconomyConfig, error)
	Set(ctx context.Context, guildID string, cfg *domain.GuildEconomyConfig) error
	Invalidate(ctx context.Context, guildID string) error
}

// Service provides guild economy configuration operations.
type Service struct {
	repo     repository.GuildConfigRepository
	cache    Cache
	defaults domain.GuildEconomyConfig
	log      *slog.Logger
}

// NewService constructs a Service. cache may be nil to disable caching;
// defaults seed new guild rows on first access.
func NewService(repo repository.GuildConfigRepository, cache Cache, defaults domain.GuildEconomyConfig, log *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, defaults: defaults, log: log}
}

// GetConfig returns the guild's config, creating it with defaults on first
// read. Cached copies serve repeat reads until a write invalidates them.
func (s *Service) GetConfig(ctx context.Context, guildID string) (*domain.GuildEconomyConfig, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, guildID); err == nil && cached != nil {
			return cached, nil
		}
	}

	cfg, err := s.repo.FindOrCreate(ctx, guildID, &s.defaults)
	if err != nil {
		return nil, econerr.NewStorage("load guild config", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, guildID, cfg); err != nil && s.log != nil {
			s.log.Warn("guild config cache set failed", slog.String("guild_id", guildID), slog.Any("error", err))
		}
	}
	return cfg, nil
}

// IsFeatureEnabled reports the guild's feature flag state.
func (s *Service) IsFeatureEnabled(ctx context.Context, guildID, feature string) (bool, error) {
	cfg, err := s.GetConfig(ctx, guildID)
	if err != nil {
		return false, err
	}
	return cfg.FeatureEnabled(feature), nil
}

// saveAttempts bounds the reload-and-reapply loop on version conflicts.
const saveAttempts = 3

// update loads the config, applies the patch to the merged copy, validates it
// and persists under the version guard, retrying a bounded number of times.
func (s *Service) update(ctx context.Context, guildID string, apply func(cfg *domain.GuildEconomyConfig) error) (*domain.GuildEconomyConfig, error) {
	for attempt := 0; attempt < saveAttempts; attempt++ {
		cfg, err := s.repo.FindOrCreate(ctx, guildID, &s.defaults)
		if err != nil {
			return nil, econerr.NewStorage("load guild config", err)
		}

		if err := apply(cfg); err != nil {
			return nil, err
		}
		if err := validate(cfg); err != nil {
			return nil, err
		}

		err = s.repo.Save(ctx, cfg)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.RecordVersionConflict("guild_config_update")
			continue
		}
		if err != nil {
			return nil, econerr.NewStorage("save guild config", err)
		}

		s.invalidate(ctx, guildID)
		return cfg, nil
	}
	return nil, econerr.NewUpdateFailed("guild config update kept conflicting")
}

// UpdateDailyConfig applies a partial daily patch.
func (s *Service) UpdateDailyConfig(ctx context.Context, guildID string, patch DailyPatch) (*domain.GuildEconomyConfig, error) {
	return s.update(ctx, guildID, func(cfg *domain.GuildEconomyConfig) error {
		patch.apply(&cfg.Daily)
		return nil
	})
}

// UpdateWorkConfig applies a partial work patch.
func (s *Service) UpdateWorkConfig(ctx context.Context, guildID string, patch WorkPatch) (*domain.GuildEconomyConfig, error) {
	return s.update(ctx, guildID, func(cfg *domain.GuildEconomyConfig) error {
		patch.apply(&cfg.Work)
		return nil
	})
}

// UpdateTaxConfig applies a partial tax patch.
func (s *Service) UpdateTaxConfig(ctx context.Context, guildID string, patch TaxPatch) (*domain.GuildEconomyConfig, error) {
	return s.update(ctx, guildID, func(cfg *domain.GuildEconomyConfig) error {
		patch.apply(&cfg.Tax)
		return nil
	})
}

// UpdateCoinflipConfig applies a partial coinflip patch.
func (s *Service) UpdateCoinflipConfig(ctx context.Context, guildID string, patch CoinflipPatch) (*domain.GuildEconomyConfig, error) {
	return s.update(ctx, guildID, func(cfg *domain.GuildEconomyConfig) error {
		patch.apply(&cfg.Coinflip)
		return nil
	})
}

// UpdateRobConfig applies a partial rob patch.
func (s *Service) UpdateRobConfig(ctx context.Context, guildID string, patch RobPatch) (*domain.GuildEconomyConfig, error) {
	return s.update(ctx, guildID, func(cfg *domain.GuildEconomyConfig) error {
		patch.apply(&cfg.Rob)
		return nil
	})
}

// SetFeature flips a feature flag for the guild.
func (s *Service) SetFeature(ctx context.Context, guildID, feature string, enabled bool) (*domain.GuildEconomyConfig, error) {
	if feature == "" {
		return nil, econerr.New(econerr.CodeConfigInvalid, "feature name is empty")
	}
	return s.update(ctx, guildID, func(cfg *domain.GuildEconomyConfig) error {
		if cfg.Features == nil {
			cfg.Features = map[string]bool{}
		}
		cfg.Features[feature] = enabled
		return nil
	})
}

// DepositToSector applies a single atomic increment to the named sector.
// This is the only way sector treasuries change.
func (s *Service) DepositToSector(ctx context.Context, guildID string, sector domain.Sector, amount int64, source, reason string) (*domain.SectorChange, error) {
	if !domain.KnownSector(sector) {
		return nil, econerr.Newf(econerr.CodeConfigInvalid, "unknown sector %q", sector)
	}

	// First access may need to materialize the config row.
	if _, err := s.GetConfig(ctx, guildID); err != nil {
		return nil, err
	}

	change, err := s.repo.DepositToSector(ctx, guildID, sector, amount)
	if err != nil {
		if errors.Is(err, repository.ErrSectorInsufficient) {
			return nil, econerr.Newf(econerr.CodeSectorInsufficient,
				"sector %s cannot cover %d", sector, -amount)
		}
		return nil, econerr.NewStorage("deposit to sector", err)
	}

	if s.log != nil {
		s.log.Info("sector balance changed",
			slog.String("guild_id", guildID),
			slog.String("sector", string(sector)),
			slog.Int64("amount", amount),
			slog.Int64("after", change.After),
			slog.String("source", source),
			slog.String("reason", reason),
		)
	}
	metrics.SetSectorBalance(guildID, string(sector), change.After)
	s.invalidate(ctx, guildID)

	return change, nil
}

// ListGuildIDs returns every guild with an economy config row.
func (s *Service) ListGuildIDs(ctx context.Context) ([]string, error) {
	ids, err := s.repo.ListGuildIDs(ctx)
	if err != nil {
		return nil, econerr.NewStorage("list guilds", err)
	}
	return ids, nil
}

func (s *Service) invalidate(ctx context.Context, guildID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, guildID); err != nil && s.log != nil {
		s.log.Warn("guild config cache invalidation failed",
			slog.String("guild_id", guildID), slog.Any("error", err))
	}
}
