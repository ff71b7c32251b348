package minigame

import (
	"context"
	"time"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/internal/economy"
	"github.com/guildmint/guildmint/internal/idempotency"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// Coin sides a player can call.
const (
	SideHeads = "heads"
	SideTails = "tails"
)

// CoinflipParams describes one coinflip play.
type CoinflipParams struct {
	GuildID string
	UserID  string
	Amount  int64
	Choice  string
	// InteractionToken deduplicates redelivered interactions; empty means
	// no deduplication.
	InteractionToken string
}

// CoinflipResult is the outcome of a committed coinflip.
type CoinflipResult struct {
	Won           bool                 `json:"won"`
	Side          string               `json:"side"`
	Bet           int64                `json:"bet"`
	Payout        int64                `json:"payout"`
	HouseFee      int64                `json:"house_fee"`
	Balance       domain.BalanceChange `json:"balance"`
	CorrelationID string               `json:"correlation_id"`
}

// Coinflip validates the bet, flips a fair coin and settles the result. A
// loss is a single debit of the bet; a win is a single credit of
// bet*multiplier minus the house fee, which is computed before the mutation
// so ledger and audit agree, then moved to the configured sector.
func (s *Service) Coinflip(ctx context.Context, p CoinflipParams) (*CoinflipResult, error) {
	var result *CoinflipResult

	key := ""
	if p.InteractionToken != "" {
		key = idempotency.KeyFor(p.GuildID, p.UserID, "coinflip", p.InteractionToken)
	}
	handled, err := s.dedupe(ctx, key, &result, func(ctx context.Context) (any, error) {
		var err error
		result, err = s.coinflip(ctx, p)
		return result, err
	})
	if handled {
		return result, err
	}

	return s.coinflip(ctx, p)
}

func (s *Service) coinflip(ctx context.Context, p CoinflipParams) (*CoinflipResult, error) {
	cfg, err := s.configs.GetConfig(ctx, p.GuildID)
	if err != nil {
		return nil, err
	}
	if !cfg.FeatureEnabled(FeatureCoinflip) {
		return nil, econerr.New(econerr.CodeFeatureDisabled, "coinflip is disabled for this guild")
	}
	if p.Choice != SideHeads && p.Choice != SideTails {
		return nil, econerr.Newf(econerr.CodeInvalidAmount, "choice must be %q or %q", SideHeads, SideTails)
	}
	game := cfg.Coinflip
	if p.Amount < game.MinBet {
		return nil, econerr.Newf(econerr.CodeBetOutOfBounds,
			"bet must be at least %d", game.MinBet)
	}
	// MaxBet of zero means the guild left the bet uncapped.
	if game.MaxBet > 0 && p.Amount > game.MaxBet {
		return nil, econerr.Newf(econerr.CodeBetOutOfBounds,
			"bet must not exceed %d", game.MaxBet)
	}
	if _, err := s.accounts.EnsureAccount(ctx, p.UserID); err != nil {
		return nil, err
	}
	if _, err := s.accounts.RequireActive(ctx, p.UserID); err != nil {
		return nil, err
	}

	gate, err := s.cooldowns.Acquire(ctx, "coinflip:"+p.GuildID+":"+p.UserID, coinflipWindow)
	if err != nil {
		return nil, econerr.NewStorage("acquire coinflip cooldown", err)
	}
	if !gate.Allowed {
		return nil, econerr.Newf(econerr.CodeCooldownActive,
			"coinflip available again at %s", gate.RetryAt.UTC().Format(time.RFC3339))
	}

	side := SideTails
	if s.roll() < 0.5 {
		side = SideHeads
	}
	won := side == p.Choice
	correlationID := s.correlationID()

	if !won {
		result, err := s.settleLoss(ctx, p, game, side, correlationID)
		if err != nil {
			return nil, err
		}
		metrics.RecordMinigame("coinflip", "lost", p.Amount)
		return result, nil
	}

	result, err := s.settleWin(ctx, p, game, side, correlationID)
	if err != nil {
		return nil, err
	}
	metrics.RecordMinigame("coinflip", "won", p.Amount)
	return result, nil
}

func (s *Service) settleLoss(ctx context.Context, p CoinflipParams, game domain.CoinflipConfig, side, correlationID string) (*CoinflipResult, error) {
	change, err := s.mutator.AdjustCurrencyBalance(ctx, economy.AdjustParams{
		ActorID:    p.UserID,
		TargetID:   p.UserID,
		GuildID:    p.GuildID,
		CurrencyID: game.CurrencyID,
		Delta:      -p.Amount,
		Reason:     "coinflip loss",
	})
	if err != nil {
		return nil, err
	}

	err = s.record(ctx, &domain.AuditEntry{
		OperationType: domain.OpCoinflip,
		ActorID:       p.UserID,
		TargetID:      p.UserID,
		GuildID:       p.GuildID,
		Source:        "minigame",
		Reason:        "coinflip loss",
		Currency: &domain.CurrencyData{
			CurrencyID:    game.CurrencyID,
			Delta:         -p.Amount,
			BeforeBalance: change.Before,
			AfterBalance:  change.After,
		},
		Metadata: map[string]any{
			"correlation_id": correlationID,
			"side":           side,
			"choice":         p.Choice,
			"bet":            p.Amount,
		},
	})
	if err != nil {
		return nil, err
	}

	return &CoinflipResult{
		Won:           false,
		Side:          side,
		Bet:           p.Amount,
		Balance:       *change,
		CorrelationID: correlationID,
	}, nil
}

func (s *Service) settleWin(ctx context.Context, p CoinflipParams, game domain.CoinflipConfig, side, correlationID string) (*CoinflipResult, error) {
	winnings := p.Amount * game.PayoutMultiplier
	houseFee := domain.ApplyRate(winnings, game.HouseEdgeRate)
	payout := winnings - houseFee

	change, err := s.mutator.AdjustCurrencyBalance(ctx, economy.AdjustParams{
		ActorID:    p.UserID,
		TargetID:   p.UserID,
		GuildID:    p.GuildID,
		CurrencyID: game.CurrencyID,
		Delta:      payout,
		Reason:     "coinflip win",
	})
	if err != nil {
		return nil, err
	}

	if houseFee > 0 {
		if _, err := s.sectors.DepositToSector(ctx, p.GuildID, game.FeeSector, houseFee, "coinflip", "house fee"); err != nil {
			// The fee never reached the treasury; return it to the
			// player instead of leaving it burned.
			s.compensatePlayer(ctx, p.GuildID, p.UserID, game.CurrencyID, houseFee, correlationID, "coinflip house fee deposit failed")
			houseFee = 0
		}
	}

	err = s.record(ctx, &domain.AuditEntry{
		OperationType: domain.OpCoinflip,
		ActorID:       p.UserID,
		TargetID:      p.UserID,
		GuildID:       p.GuildID,
		Source:        "minigame",
		Reason:        "coinflip win",
		Currency: &domain.CurrencyData{
			CurrencyID:    game.CurrencyID,
			Delta:         payout,
			BeforeBalance: change.Before,
			AfterBalance:  change.After,
		},
		Metadata: map[string]any{
			"correlation_id": correlationID,
			"side":           side,
			"choice":         p.Choice,
			"bet":            p.Amount,
			"house_fee":      houseFee,
		},
	})
	if err != nil {
		return nil, err
	}

	return &CoinflipResult{
		Won:           true,
		Side:          side,
		Bet:           p.Amount,
		Payout:        payout,
		HouseFee:      houseFee,
		Balance:       *change,
		CorrelationID: correlationID,
	}, nil
}
