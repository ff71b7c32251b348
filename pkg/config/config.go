package config

import (
	"fmt"
	"time"

	"github.com/guildmint/guildmint/internal/domain"
)

// Config holds runtime configuration for the guildmint economy engine.
type Config struct {
	AppEnv string `mapstructure:"app_env"`

	Logger  LoggerConfig  `mapstructure:"logger"`
	Sentry  SentryConfig  `mapstructure:"sentry"`
	DB      DBConfig      `mapstructure:"db" validate:"required"`
	Redis   RedisConfig   `mapstructure:"redis" validate:"required"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Jobs    JobsConfig    `mapstructure:"jobs"`
	Economy EconomyConfig `mapstructure:"economy"`
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"omitempty,oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig controls error reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password" validate:"required"`
	Name     string `mapstructure:"name" validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, sslmode,
	)
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the host:port address for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// HTTPConfig controls the metrics and health endpoint server.
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// JobsConfig controls the background job scheduler and workers.
type JobsConfig struct {
	Concurrency                int    `mapstructure:"concurrency"`
	HealthReportSchedule       string `mapstructure:"health_report_schedule"`
	IdempotencyCleanupSchedule string `mapstructure:"idempotency_cleanup_schedule"`
}

// EconomyConfig carries the deployment-wide tuning applied to every guild
// that has not overridden it.
type EconomyConfig struct {
	ConfigCacheTTL time.Duration `mapstructure:"config_cache_ttl"`

	DefaultCurrencyID string `mapstructure:"default_currency_id"`

	TaxRate              float64 `mapstructure:"tax_rate" validate:"min=0,max=0.20"`
	TaxEnabled           bool    `mapstructure:"tax_enabled"`
	MinimumTaxableAmount int64   `mapstructure:"minimum_taxable_amount"`

	ThresholdWarning  int64 `mapstructure:"threshold_warning"`
	ThresholdAlert    int64 `mapstructure:"threshold_alert"`
	ThresholdCritical int64 `mapstructure:"threshold_critical"`

	DailyReward        int64   `mapstructure:"daily_reward"`
	DailyCooldownHours int     `mapstructure:"daily_cooldown_hours" validate:"omitempty,min=1"`
	DailyFeeRate       float64 `mapstructure:"daily_fee_rate" validate:"min=0,max=1"`
	DailyStreakBonus   int64   `mapstructure:"daily_streak_bonus"`
	DailyStreakCap     int     `mapstructure:"daily_streak_cap"`

	WorkBaseMintReward    int64   `mapstructure:"work_base_mint_reward"`
	WorkBonusFromWorksMax int64   `mapstructure:"work_bonus_from_works_max"`
	WorkBonusScaleMode    string  `mapstructure:"work_bonus_scale_mode" validate:"omitempty,oneof=linear flat"`
	WorkCooldownMinutes   int     `mapstructure:"work_cooldown_minutes" validate:"omitempty,min=1"`
	WorkDailyCap          int     `mapstructure:"work_daily_cap"`
	WorkPaysFromSector    bool    `mapstructure:"work_pays_from_sector"`
	WorkFailureChance     float64 `mapstructure:"work_failure_chance" validate:"min=0,max=1"`

	CoinflipMinBet           int64   `mapstructure:"coinflip_min_bet"`
	CoinflipMaxBet           int64   `mapstructure:"coinflip_max_bet"`
	CoinflipPayoutMultiplier int64   `mapstructure:"coinflip_payout_multiplier"`
	CoinflipHouseEdgeRate    float64 `mapstructure:"coinflip_house_edge_rate" validate:"min=0,max=1"`

	RobFailChance          float64 `mapstructure:"rob_fail_chance" validate:"min=0,max=1"`
	RobMaxStealRate        float64 `mapstructure:"rob_max_steal_rate" validate:"min=0,max=1"`
	RobFailFineRate        float64 `mapstructure:"rob_fail_fine_rate" validate:"min=0,max=1"`
	RobMinTargetHand       int64   `mapstructure:"rob_min_target_hand"`
	RobCooldownMinutes     int     `mapstructure:"rob_cooldown_minutes"`
	RobPairCooldownMinutes int     `mapstructure:"rob_pair_cooldown_minutes"`

	Features map[string]bool `mapstructure:"features"`
}

// GuildDefaults maps the deployment tuning into the per-guild configuration
// materialized on a guild's first economy interaction.
func (c EconomyConfig) GuildDefaults() domain.GuildEconomyConfig {
	currency := c.DefaultCurrencyID
	if currency == "" {
		currency = "coin"
	}
	features := map[string]bool{"coinflip": true, "rob": true}
	for name, enabled := range c.Features {
		features[name] = enabled
	}

	return domain.GuildEconomyConfig{
		Tax: domain.TaxConfig{
			Rate:                 c.TaxRate,
			Enabled:              c.TaxEnabled,
			MinimumTaxableAmount: c.MinimumTaxableAmount,
			TaxSector:            domain.SectorTax,
		},
		Thresholds: domain.Thresholds{
			Warning:  c.ThresholdWarning,
			Alert:    c.ThresholdAlert,
			Critical: c.ThresholdCritical,
		},
		Daily: domain.DailyConfig{
			Reward:        defaultInt64(c.DailyReward, 100),
			CooldownHours: defaultInt(c.DailyCooldownHours, 24),
			CurrencyID:    currency,
			FeeRate:       c.DailyFeeRate,
			FeeSector:     domain.SectorGlobal,
			StreakBonus:   c.DailyStreakBonus,
			StreakCap:     c.DailyStreakCap,
		},
		Work: domain.WorkConfig{
			BaseMintReward:    defaultInt64(c.WorkBaseMintReward, 50),
			BonusFromWorksMax: c.WorkBonusFromWorksMax,
			BonusScaleMode:    defaultString(c.WorkBonusScaleMode, domain.BonusScaleLinear),
			CooldownMinutes:   defaultInt(c.WorkCooldownMinutes, 60),
			DailyCap:          defaultInt(c.WorkDailyCap, 5),
			CurrencyID:        currency,
			PaysFromSector:    c.WorkPaysFromSector,
			FailureChance:     c.WorkFailureChance,
		},
		Coinflip: domain.CoinflipConfig{
			MinBet:           defaultInt64(c.CoinflipMinBet, 10),
			MaxBet:           defaultInt64(c.CoinflipMaxBet, 1000),
			PayoutMultiplier: defaultInt64(c.CoinflipPayoutMultiplier, 2),
			HouseEdgeRate:    c.CoinflipHouseEdgeRate,
			FeeSector:        domain.SectorGlobal,
			CurrencyID:       currency,
		},
		Rob: domain.RobConfig{
			FailChance:          defaultFloat(c.RobFailChance, 0.5),
			MaxStealRate:        defaultFloat(c.RobMaxStealRate, 0.2),
			FailFineRate:        defaultFloat(c.RobFailFineRate, 0.1),
			MinTargetHand:       defaultInt64(c.RobMinTargetHand, 100),
			CooldownMinutes:     defaultInt(c.RobCooldownMinutes, 60),
			PairCooldownMinutes: defaultInt(c.RobPairCooldownMinutes, 360),
			FineSector:          domain.SectorGlobal,
			CurrencyID:          currency,
		},
		Features: features,
	}
}

func defaultInt64(v, fallback int64) int64 {
	if v > 0 {
		return v
	}
	return fallback
}

func defaultInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func defaultFloat(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
