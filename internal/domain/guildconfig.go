package domain

import "time"

// Sector names a guild-level treasury bucket, distinct from user balances.
type Sector string

const (
	SectorGlobal Sector = "global"
	SectorWorks  Sector = "works"
	SectorTrade  Sector = "trade"
	SectorTax    Sector = "tax"
)

// KnownSector reports whether s names one of the four treasury buckets.
func KnownSector(s Sector) bool {
	switch s {
	case SectorGlobal, SectorWorks, SectorTrade, SectorTax:
		return true
	}
	return false
}

// MaxTaxRate is the upper bound for TaxConfig.Rate.
const MaxTaxRate = 0.20

// TaxConfig controls the transfer tax.
type TaxConfig struct {
	Rate                 float64 `json:"rate"`
	Enabled              bool    `json:"enabled"`
	MinimumTaxableAmount int64   `json:"minimum_taxable_amount"`
	TaxSector            Sector  `json:"tax_sector"`
}

// Thresholds are the treasury levels the health report grades against.
type Thresholds struct {
	Warning  int64 `json:"warning"`
	Alert    int64 `json:"alert"`
	Critical int64 `json:"critical"`
}

// DailyConfig tunes the daily reward claim.
type DailyConfig struct {
	Reward        int64   `json:"daily_reward"`
	CooldownHours int     `json:"daily_cooldown_hours"`
	CurrencyID    string  `json:"daily_currency_id"`
	FeeRate       float64 `json:"daily_fee_rate"`
	FeeSector     Sector  `json:"daily_fee_sector"`
	StreakBonus   int64   `json:"daily_streak_bonus"`
	StreakCap     int     `json:"daily_streak_cap"`
}

// Work bonus scale modes. Linear grows the bonus with the works-sector
// balance; flat grants the full bonus whenever the sector can fund it.
const (
	BonusScaleLinear = "linear"
	BonusScaleFlat   = "flat"
)

// WorkConfig tunes the repeatable work payout.
type WorkConfig struct {
	BaseMintReward    int64   `json:"work_base_mint_reward"`
	BonusFromWorksMax int64   `json:"work_bonus_from_works_max"`
	BonusScaleMode    string  `json:"work_bonus_scale_mode"`
	CooldownMinutes   int     `json:"work_cooldown_minutes"`
	DailyCap          int     `json:"work_daily_cap"`
	CurrencyID        string  `json:"work_currency_id"`
	PaysFromSector    bool    `json:"work_pays_from_sector"`
	FailureChance     float64 `json:"work_failure_chance"`
}

// CoinflipConfig tunes the coinflip minigame.
type CoinflipConfig struct {
	MinBet           int64   `json:"min_bet"`
	MaxBet           int64   `json:"max_bet"`
	PayoutMultiplier int64   `json:"payout_multiplier"`
	HouseEdgeRate    float64 `json:"house_edge_rate"`
	FeeSector        Sector  `json:"fee_sector"`
	CurrencyID       string  `json:"currency_id"`
}

// RobConfig tunes the rob minigame.
type RobConfig struct {
	FailChance          float64 `json:"fail_chance"`
	MaxStealRate        float64 `json:"max_steal_rate"`
	FailFineRate        float64 `json:"fail_fine_rate"`
	MinTargetHand       int64   `json:"min_target_hand"`
	CooldownMinutes     int     `json:"cooldown_minutes"`
	PairCooldownMinutes int     `json:"pair_cooldown_minutes"`
	FineSector          Sector  `json:"fine_sector"`
	CurrencyID          string  `json:"currency_id"`
}

// GuildEconomyConfig is the per-guild tuning row, created with defaults on
// first access. Sector balances live here and only change through
// DepositToSector.
type GuildEconomyConfig struct {
	GuildID    string
	Sectors    map[Sector]int64
	Tax        TaxConfig
	Thresholds Thresholds
	Daily      DailyConfig
	Work       WorkConfig
	Coinflip   CoinflipConfig
	Rob        RobConfig
	Features   map[string]bool
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FeatureEnabled reports whether the named feature flag is on for the guild.
func (c *GuildEconomyConfig) FeatureEnabled(feature string) bool {
	if c == nil || c.Features == nil {
		return false
	}
	return c.Features[feature]
}

// SectorChange reports a sector balance before and after a deposit.
type SectorChange struct {
	Sector Sector
	Before int64
	After  int64
}
