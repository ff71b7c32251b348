// Package engine bundles the economy services behind one facade. Frontends
// (chat command handlers, admin tooling) depend on the Engine and never on
// the repositories directly.
package engine

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/guildmint/guildmint/internal/account"
	"github.com/guildmint/guildmint/internal/audit"
	"github.com/guildmint/guildmint/internal/claims"
	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/economy"
	"github.com/guildmint/guildmint/internal/guildcache"
	"github.com/guildmint/guildmint/internal/guildconfig"
	"github.com/guildmint/guildmint/internal/idempotency"
	"github.com/guildmint/guildmint/internal/minigame"
	"github.com/guildmint/guildmint/internal/ratelimit"
	"github.com/guildmint/guildmint/internal/repository"

	redis "github.com/redis/go-redis/v9"
)

// Options carries the external dependencies and tuning for New.
type Options struct {
	DB            *sql.DB
	Redis         *redis.Client
	GuildDefaults domain.GuildEconomyConfig
	CacheTTL      time.Duration
	Log           *slog.Logger
}

// Engine is the assembled economy core.
type Engine struct {
	Accounts  *account.Service
	Configs   *guildconfig.Service
	Economy   *economy.Service
	Claims    *claims.Service
	Minigames *minigame.Service
	Audits    *audit.Service

	log *slog.Logger
}

// New wires repositories, caches and services into a ready Engine.
func New(opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	accountRepo := repository.NewAccountRepository(opts.DB, log)
	balanceRepo := repository.NewBalanceRepository(opts.DB, log)
	claimRepo := repository.NewClaimRepository(opts.DB, log)
	configRepo := repository.NewGuildConfigRepository(opts.DB, log)
	auditRepo := repository.NewAuditRepository(opts.DB, log)

	accounts := account.NewService(accountRepo, log)
	audits := audit.NewService(auditRepo, log)

	cache := guildcache.NewCache(opts.Redis, opts.CacheTTL)
	configs := guildconfig.NewService(configRepo, cache, opts.GuildDefaults, log)

	econ := economy.NewService(accounts, balanceRepo, configs, audits, log)
	claimSvc := claims.NewService(configs, claimRepo, econ, configs, audits, accounts, log)

	cooldowns := ratelimit.NewRedisCooldown(opts.Redis, log)
	playStore := idempotency.NewRedisStore(opts.Redis, log)
	plays := idempotency.NewManager(playStore, log)
	games := minigame.NewService(configs, accounts, balanceRepo, econ, configs, audits, cooldowns, plays, log)

	return &Engine{
		Accounts:  accounts,
		Configs:   configs,
		Economy:   econ,
		Claims:    claimSvc,
		Minigames: games,
		Audits:    audits,
		log:       log,
	}
}
