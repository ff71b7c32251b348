package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guildmint/guildmint/internal/domain"
)

// GuildConfigRepository owns the economy_guild_config rows.
type GuildConfigRepository interface {
	FindOrCreate(ctx context.Context, guildID string, defaults *domain.GuildEconomyConfig) (*domain.GuildEconomyConfig, error)
	Save(ctx context.Context, cfg *domain.GuildEconomyConfig) error
	DepositToSector(ctx context.Context, guildID string, sector domain.Sector, amount int64) (*domain.SectorChange, error)
	ListGuildIDs(ctx context.Context) ([]string, error)
}

type guildConfigRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewGuildConfigRepository creates a SQL-backed guild config repository.
func NewGuildConfigRepository(db *sql.DB, log *slog.Logger) GuildConfigRepository {
	return &guildConfigRepository{db: db, log: log}
}

const configColumns = `
	guild_id,
	sector_global, sector_works, sector_trade, sector_tax,
	tax_rate, tax_enabled, tax_minimum_amount, tax_sector,
	threshold_warning, threshold_alert, threshold_critical,
	daily_reward, daily_cooldown_hours, daily_currency_id,
	daily_fee_rate, daily_fee_sector, daily_streak_bonus, daily_streak_cap,
	work_base_mint_reward, work_bonus_from_works_max, work_bonus_scale_mode,
	work_cooldown_minutes, work_daily_cap, work_currency_id,
	work_pays_from_sector, work_failure_chance,
	coinflip_min_bet, coinflip_max_bet, coinflip_payout_mult,
	coinflip_house_edge, coinflip_fee_sector, coinflip_currency_id,
	rob_fail_chance, rob_max_steal_rate, rob_fail_fine_rate,
	rob_min_target_hand, rob_cooldown_minutes, rob_pair_cooldown_minutes,
	rob_fine_sector, rob_currency_id,
	features, version, created_at, updated_at
`

func scanConfig(row *sql.Row) (*domain.GuildEconomyConfig, error) {
	var (
		cfg                                    domain.GuildEconomyConfig
		sectorGlobal, sectorWorks              int64
		sectorTrade, sectorTax                 int64
		featuresRaw                            []byte
	)

	err := row.Scan(
		&cfg.GuildID,
		&sectorGlobal, &sectorWorks, &sectorTrade, &sectorTax,
		&cfg.Tax.Rate, &cfg.Tax.Enabled, &cfg.Tax.MinimumTaxableAmount, &cfg.Tax.TaxSector,
		&cfg.Thresholds.Warning, &cfg.Thresholds.Alert, &cfg.Thresholds.Critical,
		&cfg.Daily.Reward, &cfg.Daily.CooldownHours, &cfg.Daily.CurrencyID,
		&cfg.Daily.FeeRate, &cfg.Daily.FeeSector, &cfg.Daily.StreakBonus, &cfg.Daily.StreakCap,
		&cfg.Work.BaseMintReward, &cfg.Work.BonusFromWorksMax, &cfg.Work.BonusScaleMode,
		&cfg.Work.CooldownMinutes, &cfg.Work.DailyCap, &cfg.Work.CurrencyID,
		&cfg.Work.PaysFromSector, &cfg.Work.FailureChance,
		&cfg.Coinflip.MinBet, &cfg.Coinflip.MaxBet, &cfg.Coinflip.PayoutMultiplier,
		&cfg.Coinflip.HouseEdgeRate, &cfg.Coinflip.FeeSector, &cfg.Coinflip.CurrencyID,
		&cfg.Rob.FailChance, &cfg.Rob.MaxStealRate, &cfg.Rob.FailFineRate,
		&cfg.Rob.MinTargetHand, &cfg.Rob.CooldownMinutes, &cfg.Rob.PairCooldownMinutes,
		&cfg.Rob.FineSector, &cfg.Rob.CurrencyID,
		&featuresRaw, &cfg.Version, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg.Sectors = map[domain.Sector]int64{
		domain.SectorGlobal: sectorGlobal,
		domain.SectorWorks:  sectorWorks,
		domain.SectorTrade:  sectorTrade,
		domain.SectorTax:    sectorTax,
	}
	cfg.Features = map[string]bool{}
	if len(featuresRaw) > 0 {
		if err := json.Unmarshal(featuresRaw, &cfg.Features); err != nil {
			return nil, fmt.Errorf("decode feature flags: %w", err)
		}
	}
	return &cfg, nil
}

// FindOrCreate returns the guild config, inserting defaults on first access.
func (r *guildConfigRepository) FindOrCreate(ctx context.Context, guildID string, defaults *domain.GuildEconomyConfig) (*domain.GuildEconomyConfig, error) {
	cfg, err := r.find(ctx, guildID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := r.insertDefaults(ctx, guildID, defaults); err != nil {
		return nil, err
	}
	return r.find(ctx, guildID)
}

func (r *guildConfigRepository) find(ctx context.Context, guildID string) (*domain.GuildEconomyConfig, error) {
	query := `SELECT ` + configColumns + ` FROM economy_guild_config WHERE guild_id = $1`

	cfg, err := scanConfig(r.db.QueryRowContext(ctx, query, guildID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to fetch guild config", slog.String("guild_id", guildID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select guild config: %w", err)
	}
	return cfg, nil
}

func (r *guildConfigRepository) insertDefaults(ctx context.Context, guildID string, d *domain.GuildEconomyConfig) error {
	features, err := json.Marshal(d.Features)
	if err != nil {
		return fmt.Errorf("encode feature flags: %w", err)
	}

	const query = `
		INSERT INTO economy_guild_config (
			guild_id,
			tax_rate, tax_enabled, tax_minimum_amount, tax_sector,
			threshold_warning, threshold_alert, threshold_critical,
			daily_reward, daily_cooldown_hours, daily_currency_id,
			daily_fee_rate, daily_fee_sector, daily_streak_bonus, daily_streak_cap,
			work_base_mint_reward, work_bonus_from_works_max, work_bonus_scale_mode,
			work_cooldown_minutes, work_daily_cap, work_currency_id,
			work_pays_from_sector, work_failure_chance,
			coinflip_min_bet, coinflip_max_bet, coinflip_payout_mult,
			coinflip_house_edge, coinflip_fee_sector, coinflip_currency_id,
			rob_fail_chance, rob_max_steal_rate, rob_fail_fine_rate,
			rob_min_target_hand, rob_cooldown_minutes, rob_pair_cooldown_minutes,
			rob_fine_sector, rob_currency_id,
			features
		) VALUES (
			$1,
			$2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, $17, $18,
			$19, $20, $21,
			$22, $23,
			$24, $25, $26,
			$27, $28, $29,
			$30, $31, $32,
			$33, $34, $35,
			$36, $37,
			$38
		)
		ON CONFLICT (guild_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query,
		guildID,
		d.Tax.Rate, d.Tax.Enabled, d.Tax.MinimumTaxableAmount, d.Tax.TaxSector,
		d.Thresholds.Warning, d.Thresholds.Alert, d.Thresholds.Critical,
		d.Daily.Reward, d.Daily.CooldownHours, d.Daily.CurrencyID,
		d.Daily.FeeRate, d.Daily.FeeSector, d.Daily.StreakBonus, d.Daily.StreakCap,
		d.Work.BaseMintReward, d.Work.BonusFromWorksMax, d.Work.BonusScaleMode,
		d.Work.CooldownMinutes, d.Work.DailyCap, d.Work.CurrencyID,
		d.Work.PaysFromSector, d.Work.FailureChance,
		d.Coinflip.MinBet, d.Coinflip.MaxBet, d.Coinflip.PayoutMultiplier,
		d.Coinflip.HouseEdgeRate, d.Coinflip.FeeSector, d.Coinflip.CurrencyID,
		d.Rob.FailChance, d.Rob.MaxStealRate, d.Rob.FailFineRate,
		d.Rob.MinTargetHand, d.Rob.CooldownMinutes, d.Rob.PairCooldownMinutes,
		d.Rob.FineSector, d.Rob.CurrencyID,
		features,
	); err != nil {
		return fmt.Errorf("insert guild config defaults: %w", err)
	}
	return nil
}

// Save writes the tuning columns of cfg back, guarded by cfg.Version. Sector
// balances are deliberately excluded; DepositToSector is their only writer.
func (r *guildConfigRepository) Save(ctx context.Context, cfg *domain.GuildEconomyConfig) error {
	features, err := json.Marshal(cfg.Features)
	if err != nil {
		return fmt.Errorf("encode feature flags: %w", err)
	}

	const query = `
		UPDATE economy_guild_config SET
			tax_rate = $2, tax_enabled = $3, tax_minimum_amount = $4, tax_sector = $5,
			threshold_warning = $6, threshold_alert = $7, threshold_critical = $8,
			daily_reward = $9, daily_cooldown_hours = $10, daily_currency_id = $11,
			daily_fee_rate = $12, daily_fee_sector = $13, daily_streak_bonus = $14, daily_streak_cap = $15,
			work_base_mint_reward = $16, work_bonus_from_works_max = $17, work_bonus_scale_mode = $18,
			work_cooldown_minutes = $19, work_daily_cap = $20, work_currency_id = $21,
			work_pays_from_sector = $22, work_failure_chance = $23,
			coinflip_min_bet = $24, coinflip_max_bet = $25, coinflip_payout_mult = $26,
			coinflip_house_edge = $27, coinflip_fee_sector = $28, coinflip_currency_id = $29,
			rob_fail_chance = $30, rob_max_steal_rate = $31, rob_fail_fine_rate = $32,
			rob_min_target_hand = $33, rob_cooldown_minutes = $34, rob_pair_cooldown_minutes = $35,
			rob_fine_sector = $36, rob_currency_id = $37,
			features = $38, version = version + 1, updated_at = NOW()
		WHERE guild_id = $1 AND version = $39
	`

	res, err := r.db.ExecContext(ctx, query,
		cfg.GuildID,
		cfg.Tax.Rate, cfg.Tax.Enabled, cfg.Tax.MinimumTaxableAmount, cfg.Tax.TaxSector,
		cfg.Thresholds.Warning, cfg.Thresholds.Alert, cfg.Thresholds.Critical,
		cfg.Daily.Reward, cfg.Daily.CooldownHours, cfg.Daily.CurrencyID,
		cfg.Daily.FeeRate, cfg.Daily.FeeSector, cfg.Daily.StreakBonus, cfg.Daily.StreakCap,
		cfg.Work.BaseMintReward, cfg.Work.BonusFromWorksMax, cfg.Work.BonusScaleMode,
		cfg.Work.CooldownMinutes, cfg.Work.DailyCap, cfg.Work.CurrencyID,
		cfg.Work.PaysFromSector, cfg.Work.FailureChance,
		cfg.Coinflip.MinBet, cfg.Coinflip.MaxBet, cfg.Coinflip.PayoutMultiplier,
		cfg.Coinflip.HouseEdgeRate, cfg.Coinflip.FeeSector, cfg.Coinflip.CurrencyID,
		cfg.Rob.FailChance, cfg.Rob.MaxStealRate, cfg.Rob.FailFineRate,
		cfg.Rob.MinTargetHand, cfg.Rob.CooldownMinutes, cfg.Rob.PairCooldownMinutes,
		cfg.Rob.FineSector, cfg.Rob.CurrencyID,
		features, cfg.Version,
	)
	if err != nil {
		return fmt.Errorf("update guild config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update guild config rows: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

var sectorColumns = map[domain.Sector]string{
	domain.SectorGlobal: "sector_global",
	domain.SectorWorks:  "sector_works",
	domain.SectorTrade:  "sector_trade",
	domain.SectorTax:    "sector_tax",
}

// DepositToSector applies a single atomic increment (or guarded decrement) to
// the named sector balance and returns the before/after values.
func (r *guildConfigRepository) DepositToSector(ctx context.Context, guildID string, sector domain.Sector, amount int64) (*domain.SectorChange, error) {
	column, ok := sectorColumns[sector]
	if !ok {
		return nil, fmt.Errorf("unknown sector %q", sector)
	}

	// Column name comes from the whitelist above, never from input.
	query := fmt.Sprintf(`
		UPDATE economy_guild_config
		SET %s = %s + $2, updated_at = NOW()
		WHERE guild_id = $1 AND %s + $2 >= 0
		RETURNING %s
	`, column, column, column, column)

	var after int64
	err := r.db.QueryRowContext(ctx, query, guildID, amount).Scan(&after)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the guild row is missing or the decrement would have
		// gone negative; read back to tell them apart.
		if _, ferr := r.find(ctx, guildID); ferr != nil {
			return nil, ferr
		}
		return nil, ErrSectorInsufficient
	}
	if err != nil {
		return nil, fmt.Errorf("deposit to sector %s: %w", sector, err)
	}

	return &domain.SectorChange{
		Sector: sector,
		Before: after - amount,
		After:  after,
	}, nil
}

// ListGuildIDs returns every guild with an economy config row.
func (r *guildConfigRepository) ListGuildIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT guild_id FROM economy_guild_config ORDER BY guild_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list guilds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan guild id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
