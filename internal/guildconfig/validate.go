package guildconfig

import (
	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
)

// validate checks the fully merged config. Constraints spanning multiple
// fields live here so no isolated patch can break them.
func validate(cfg *domain.GuildEconomyConfig) error {
	if cfg.Tax.Rate < 0 || cfg.Tax.Rate > domain.MaxTaxRate {
		return econerr.Newf(econerr.CodeConfigInvalid,
			"tax rate %.4f outside [0, %.2f]", cfg.Tax.Rate, domain.MaxTaxRate)
	}
	if cfg.Tax.MinimumTaxableAmount < 0 {
		return econerr.New(econerr.CodeConfigInvalid, "minimum taxable amount is negative")
	}
	if !domain.KnownSector(cfg.Tax.TaxSector) {
		return econerr.Newf(econerr.CodeConfigInvalid, "unknown tax sector %q", cfg.Tax.TaxSector)
	}

	if cfg.Daily.Reward < 0 || cfg.Daily.StreakBonus < 0 || cfg.Daily.StreakCap < 0 {
		return econerr.New(econerr.CodeConfigInvalid, "daily reward fields must be non-negative")
	}
	if cfg.Daily.CooldownHours <= 0 {
		return econerr.New(econerr.CodeConfigInvalid, "daily cooldown must be positive")
	}
	if cfg.Daily.FeeRate < 0 || cfg.Daily.FeeRate > 1 {
		return econerr.New(econerr.CodeConfigInvalid, "daily fee rate outside [0, 1]")
	}
	if !domain.KnownSector(cfg.Daily.FeeSector) {
		return econerr.Newf(econerr.CodeConfigInvalid, "unknown daily fee sector %q", cfg.Daily.FeeSector)
	}
	if cfg.Daily.CurrencyID == "" {
		return econerr.New(econerr.CodeInvalidCurrency, "daily currency id is empty")
	}

	if cfg.Work.BaseMintReward < 0 || cfg.Work.BonusFromWorksMax < 0 || cfg.Work.DailyCap < 0 {
		return econerr.New(econerr.CodeConfigInvalid, "work reward fields must be non-negative")
	}
	if cfg.Work.CooldownMinutes <= 0 {
		return econerr.New(econerr.CodeConfigInvalid, "work cooldown must be positive")
	}
	if cfg.Work.BonusScaleMode != domain.BonusScaleLinear && cfg.Work.BonusScaleMode != domain.BonusScaleFlat {
		return econerr.Newf(econerr.CodeConfigInvalid, "unknown work bonus scale mode %q", cfg.Work.BonusScaleMode)
	}
	if cfg.Work.FailureChance < 0 || cfg.Work.FailureChance > 1 {
		return econerr.New(econerr.CodeConfigInvalid, "work failure chance outside [0, 1]")
	}
	if cfg.Work.CurrencyID == "" {
		return econerr.New(econerr.CodeInvalidCurrency, "work currency id is empty")
	}

	if cfg.Coinflip.MinBet <= 0 {
		return econerr.New(econerr.CodeConfigInvalid, "coinflip min bet must be positive")
	}
	if cfg.Coinflip.MaxBet > 0 && cfg.Coinflip.MaxBet < cfg.Coinflip.MinBet {
		return econerr.New(econerr.CodeConfigInvalid, "coinflip max bet is below min bet")
	}
	if cfg.Coinflip.PayoutMultiplier < 1 {
		return econerr.New(econerr.CodeConfigInvalid, "coinflip payout multiplier must be at least 1")
	}
	if cfg.Coinflip.HouseEdgeRate < 0 || cfg.Coinflip.HouseEdgeRate > 1 {
		return econerr.New(econerr.CodeConfigInvalid, "coinflip house edge outside [0, 1]")
	}
	if !domain.KnownSector(cfg.Coinflip.FeeSector) {
		return econerr.Newf(econerr.CodeConfigInvalid, "unknown coinflip fee sector %q", cfg.Coinflip.FeeSector)
	}

	if cfg.Rob.FailChance < 0 || cfg.Rob.FailChance > 1 {
		return econerr.New(econerr.CodeConfigInvalid, "rob fail chance outside [0, 1]")
	}
	if cfg.Rob.MaxStealRate < 0 || cfg.Rob.MaxStealRate > 1 {
		return econerr.New(econerr.CodeConfigInvalid, "rob max steal rate outside [0, 1]")
	}
	if cfg.Rob.FailFineRate < 0 || cfg.Rob.FailFineRate > 1 {
		return econerr.New(econerr.CodeConfigInvalid, "rob fail fine rate outside [0, 1]")
	}
	if cfg.Rob.MinTargetHand < 0 {
		return econerr.New(econerr.CodeConfigInvalid, "rob minimum target hand is negative")
	}
	if cfg.Rob.CooldownMinutes < 0 || cfg.Rob.PairCooldownMinutes < 0 {
		return econerr.New(econerr.CodeConfigInvalid, "rob cooldowns must be non-negative")
	}
	if !domain.KnownSector(cfg.Rob.FineSector) {
		return econerr.Newf(econerr.CodeConfigInvalid, "unknown rob fine sector %q", cfg.Rob.FineSector)
	}

	return nil
}
