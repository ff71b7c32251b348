// Package minigame orchestrates the probability-driven plays. Both games run
// the same pipeline: validate, mutate atomically, audit, respond. The service
// owns no ledger state of its own; everything flows through the mutation
// service and the guild treasury.
package minigame

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/economy"
	"github.com/guildmint/guildmint/internal/idempotency"
	"github.com/guildmint/guildmint/internal/ratelimit"
	"github.com/guildmint/guildmint/internal/repository"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// Feature flags gating the plays per guild.
const (
	FeatureCoinflip = "coinflip"
	FeatureRob      = "rob"
)

// coinflipWindow is the fixed per-user cooldown between coinflip plays.
const coinflipWindow = 5 * time.Second

// playRecordTTL bounds how long a finished play answers replayed
// interaction tokens.
const playRecordTTL = time.Hour

// ConfigProvider is the slice of the guild config service the games need.
type ConfigProvider interface {
	GetConfig(ctx context.Context, guildID string) (*domain.GuildEconomyConfig, error)
}

// Mutator is the slice of the mutation service the games need.
type Mutator interface {
	AdjustCurrencyBalance(ctx context.Context, p economy.AdjustParams) (*domain.BalanceChange, error)
	Transfer(ctx context.Context, p economy.TransferParams) (*economy.TransferResult, error)
}

// Auditor records play outcomes in the audit trail.
type Auditor interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
}

// Service runs the coinflip and rob plays.
type Service struct {
	configs   ConfigProvider
	accounts  economy.AccountGate
	balances  repository.BalanceRepository
	mutator   Mutator
	sectors   economy.SectorDepositor
	auditor   Auditor
	cooldowns ratelimit.Cooldown
	plays     idempotency.Manager
	log       *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand

	now func() time.Time
}

// NewService constructs the minigame service. plays may be nil, in which case
// interaction tokens are ignored and every call executes.
func NewService(
	configs ConfigProvider,
	accounts economy.AccountGate,
	balances repository.BalanceRepository,
	mutator Mutator,
	sectors economy.SectorDepositor,
	auditor Auditor,
	cooldowns ratelimit.Cooldown,
	plays idempotency.Manager,
	log *slog.Logger,
) *Service {
	return &Service{
		configs:   configs,
		accounts:  accounts,
		balances:  balances,
		mutator:   mutator,
		sectors:   sectors,
		auditor:   auditor,
		cooldowns: cooldowns,
		plays:     plays,
		log:       log,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

func (s *Service) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Service) correlationID() string {
	return uuid.NewString()
}

// dedupe wraps fn with the idempotency manager when an interaction token is
// present. A replayed token decodes the recorded outcome into out instead of
// running fn again.
func (s *Service) dedupe(ctx context.Context, key string, out any, fn func(ctx context.Context) (any, error)) (bool, error) {
	if s.plays == nil || key == "" {
		return false, nil
	}

	result, err := s.plays.Execute(ctx, key, playRecordTTL, fn)
	if err != nil {
		return true, err
	}
	if !result.FromCache {
		return true, nil
	}

	payload, err := json.Marshal(result.Response)
	if err != nil {
		return true, err
	}
	return true, json.Unmarshal(payload, out)
}

// compensatePlayer credits amount back to the player after a dependent step
// failed, and records the reversal. A compensation that itself fails is
// logged at error level and left to the audit trail to surface.
func (s *Service) compensatePlayer(ctx context.Context, guildID, userID, currencyID string, amount int64, correlationID, cause string) {
	metrics.RecordCompensation("minigame")

	change, err := s.mutator.AdjustCurrencyBalance(ctx, economy.AdjustParams{
		ActorID:    userID,
		TargetID:   userID,
		GuildID:    guildID,
		CurrencyID: currencyID,
		Delta:      amount,
		Reason:     cause,
	})
	if err != nil {
		if s.log != nil {
			s.log.Error("minigame compensation failed",
				slog.String("guild_id", guildID),
				slog.String("user_id", userID),
				slog.String("currency_id", currencyID),
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
		Source:        "minigame",
		Reason:        cause,
		Currency: &domain.CurrencyData{
			CurrencyID:    currencyID,
			Delta:         amount,
			BeforeBalance: change.Before,
			AfterBalance:  change.After,
		},
		Metadata: map[string]any{"correlation_id": correlationID},
	}
	if err := s.record(ctx, entry); err != nil && s.log != nil {
		s.log.Error("failed to record minigame reversal",
			slog.String("guild_id", guildID),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// record appends entry to the audit trail. Settlement paths fail the play
// when the append fails; the reversal path above logs and moves on, since
// the refund has already landed.
func (s *Service) record(ctx context.Context, entry *domain.AuditEntry) error {
	if s.auditor == nil {
		return nil
	}
	return s.auditor.Record(ctx, entry)
}
