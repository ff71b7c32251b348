package guildconfig

import "github.com/guildmint/guildmint/internal/domain"

// Patches carry optional fields; nil fields leave the current value intact.
// Validation runs on the merged result, not on the patch in isolation.

// DailyPatch partially updates DailyConfig.
type DailyPatch struct {
	Reward        *int64
	CooldownHours *int
	CurrencyID    *string
	FeeRate       *float64
	FeeSector     *domain.Sector
	StreakBonus   *int64
	StreakCap     *int
}

func (p DailyPatch) apply(c *domain.DailyConfig) {
	if p.Reward != nil {
		c.Reward = *p.Reward
	}
	if p.CooldownHours != nil {
		c.CooldownHours = *p.CooldownHours
	}
	if p.CurrencyID != nil {
		c.CurrencyID = *p.CurrencyID
	}
	if p.FeeRate != nil {
		c.FeeRate = *p.FeeRate
	}
	if p.FeeSector != nil {
		c.FeeSector = *p.FeeSector
	}
	if p.StreakBonus != nil {
		c.StreakBonus = *p.StreakBonus
	}
	if p.StreakCap != nil {
		c.StreakCap = *p.StreakCap
	}
}

// WorkPatch partially updates WorkConfig.
type WorkPatch struct {
	BaseMintReward    *int64
	BonusFromWorksMax *int64
	BonusScaleMode    *string
	CooldownMinutes   *int
	DailyCap          *int
	CurrencyID        *string
	PaysFromSector    *bool
	FailureChance     *float64
}

func (p WorkPatch) apply(c *domain.WorkConfig) {
	if p.BaseMintReward != nil {
		c.BaseMintReward = *p.BaseMintReward
	}
	if p.BonusFromWorksMax != nil {
		c.BonusFromWorksMax = *p.BonusFromWorksMax
	}
	if p.BonusScaleMode != nil {
		c.BonusScaleMode = *p.BonusScaleMode
	}
	if p.CooldownMinutes != nil {
		c.CooldownMinutes = *p.CooldownMinutes
	}
	if p.DailyCap != nil {
		c.DailyCap = *p.DailyCap
	}
	if p.CurrencyID != nil {
		c.CurrencyID = *p.CurrencyID
	}
	if p.PaysFromSector != nil {
		c.PaysFromSector = *p.PaysFromSector
	}
	if p.FailureChance != nil {
		c.FailureChance = *p.FailureChance
	}
}

// TaxPatch partially updates TaxConfig.
type TaxPatch struct {
	Rate                 *float64
	Enabled              *bool
	MinimumTaxableAmount *int64
	TaxSector            *domain.Sector
}

func (p TaxPatch) apply(c *domain.TaxConfig) {
	if p.Rate != nil {
		c.Rate = *p.Rate
	}
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.MinimumTaxableAmount != nil {
		c.MinimumTaxableAmount = *p.MinimumTaxableAmount
	}
	if p.TaxSector != nil {
		c.TaxSector = *p.TaxSector
	}
}

// CoinflipPatch partially updates CoinflipConfig.
type CoinflipPatch struct {
	MinBet           *int64
	MaxBet           *int64
	PayoutMultiplier *int64
	HouseEdgeRate    *float64
	FeeSector        *domain.Sector
	CurrencyID       *string
}

func (p CoinflipPatch) apply(c *domain.CoinflipConfig) {
	if p.MinBet != nil {
		c.MinBet = *p.MinBet
	}
	if p.MaxBet != nil {
		c.MaxBet = *p.MaxBet
	}
	if p.PayoutMultiplier != nil {
		c.PayoutMultiplier = *p.PayoutMultiplier
	}
	if p.HouseEdgeRate != nil {
		c.HouseEdgeRate = *p.HouseEdgeRate
	}
	if p.FeeSector != nil {
		c.FeeSector = *p.FeeSector
	}
	if p.CurrencyID != nil {
		c.CurrencyID = *p.CurrencyID
	}
}

// RobPatch partially updates RobConfig.
type RobPatch struct {
	FailChance          *float64
	MaxStealRate        *float64
	FailFineRate        *float64
	MinTargetHand       *int64
	CooldownMinutes     *int
	PairCooldownMinutes *int
	FineSector          *domain.Sector
	CurrencyID          *string
}

func (p RobPatch) apply(c *domain.RobConfig) {
	if p.FailChance != nil {
		c.FailChance = *p.FailChance
	}
	if p.MaxStealRate != nil {
		c.MaxStealRate = *p.MaxStealRate
	}
	if p.FailFineRate != nil {
		c.FailFineRate = *p.FailFineRate
	}
	if p.MinTargetHand != nil {
		c.MinTargetHand = *p.MinTargetHand
	}
	if p.CooldownMinutes != nil {
		c.CooldownMinutes = *p.CooldownMinutes
	}
	if p.PairCooldownMinutes != nil {
		c.PairCooldownMinutes = *p.PairCooldownMinutes
	}
	if p.FineSector != nil {
		c.FineSector = *p.FineSector
	}
	if p.CurrencyID != nil {
		c.CurrencyID = *p.CurrencyID
	}
}
