package minigame

import (
	"context"
	"log/slog"
	"time"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/internal/economy"
	"github.com/guildmint/guildmint/internal/idempotency"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// RobParams describes one rob attempt.
type RobParams struct {
	GuildID          string
	UserID           string
	TargetID         string
	InteractionToken string
}

// RobResult is the outcome of a committed rob attempt.
type RobResult struct {
	Success       bool   `json:"success"`
	Stolen        int64  `json:"stolen"`
	Fine          int64  `json:"fine"`
	CorrelationID string `json:"correlation_id"`
}

// Rob attempts to steal from the target's hand balance. Bank funds are never
// touched. A failed attempt fines the robber a fraction of what they went
// for, paid into the guild treasury.
func (s *Service) Rob(ctx context.Context, p RobParams) (*RobResult, error) {
	var result *RobResult

	key := ""
	if p.InteractionToken != "" {
		key = idempotency.KeyFor(p.GuildID, p.UserID, "rob", p.InteractionToken)
	}
	handled, err := s.dedupe(ctx, key, &result, func(ctx context.Context) (any, error) {
		var err error
		result, err = s.rob(ctx, p)
		return result, err
	})
	if handled {
		return result, err
	}

	return s.rob(ctx, p)
}

func (s *Service) rob(ctx context.Context, p RobParams) (*RobResult, error) {
	cfg, err := s.configs.GetConfig(ctx, p.GuildID)
	if err != nil {
		return nil, err
	}
	if !cfg.FeatureEnabled(FeatureRob) {
		return nil, econerr.New(econerr.CodeFeatureDisabled, "rob is disabled for this guild")
	}
	if p.UserID == p.TargetID {
		return nil, econerr.New(econerr.CodeSelfTarget, "cannot rob yourself")
	}
	if _, err := s.accounts.EnsureAccount(ctx, p.UserID); err != nil {
		return nil, err
	}
	if _, err := s.accounts.RequireActive(ctx, p.UserID); err != nil {
		return nil, err
	}
	if _, err := s.accounts.RequireActive(ctx, p.TargetID); err != nil {
		return nil, err
	}

	game := cfg.Rob
	targetBal, err := s.balances.Get(ctx, p.TargetID, game.CurrencyID)
	if err != nil {
		return nil, econerr.NewStorage("read target balance", err)
	}
	if targetBal.Hand < game.MinTargetHand {
		return nil, econerr.Newf(econerr.CodeTargetTooPoor,
			"target carries less than %d in hand", game.MinTargetHand)
	}

	if err := s.acquireRobWindows(ctx, p, game); err != nil {
		return nil, err
	}

	maxSteal := domain.ApplyRate(targetBal.Hand, game.MaxStealRate)
	if maxSteal < 1 {
		maxSteal = 1
	}
	attempted := 1 + int64(s.roll()*float64(maxSteal))
	if attempted > maxSteal {
		attempted = maxSteal
	}
	correlationID := s.correlationID()

	if s.roll() < game.FailChance {
		result, err := s.settleFine(ctx, p, game, attempted, correlationID)
		if err != nil {
			return nil, err
		}
		metrics.RecordMinigame("rob", "failed", attempted)
		return result, nil
	}

	result, err := s.settleSteal(ctx, p, game, attempted, correlationID)
	if err != nil {
		return nil, err
	}
	metrics.RecordMinigame("rob", "success", attempted)
	return result, nil
}

// acquireRobWindows claims the per-robber window, then the per-pair window.
// When the pair window is held the robber window is released again so one
// protected victim does not lock the robber out of everyone.
func (s *Service) acquireRobWindows(ctx context.Context, p RobParams, game domain.RobConfig) error {
	robberKey := "rob:" + p.GuildID + ":" + p.UserID
	gate, err := s.cooldowns.Acquire(ctx, robberKey, time.Duration(game.CooldownMinutes)*time.Minute)
	if err != nil {
		return econerr.NewStorage("acquire rob cooldown", err)
	}
	if !gate.Allowed {
		return econerr.Newf(econerr.CodeCooldownActive,
			"rob available again at %s", gate.RetryAt.UTC().Format(time.RFC3339))
	}

	pairKey := "robpair:" + p.GuildID + ":" + p.UserID + ":" + p.TargetID
	pairGate, err := s.cooldowns.Acquire(ctx, pairKey, time.Duration(game.PairCooldownMinutes)*time.Minute)
	if err != nil {
		return econerr.NewStorage("acquire rob pair cooldown", err)
	}
	if !pairGate.Allowed {
		if releaseErr := s.cooldowns.Release(ctx, robberKey); releaseErr != nil && s.log != nil {
			s.log.Warn("failed to release rob cooldown", slog.String("key", robberKey), slog.Any("error", releaseErr))
		}
		return econerr.Newf(econerr.CodePairCooldown,
			"this target can be robbed again at %s", pairGate.RetryAt.UTC().Format(time.RFC3339))
	}

	return nil
}

// settleSteal moves the attempted amount from the target's hand to the
// robber through the transfer composite, which already carries the
// compensation for a failed credit.
func (s *Service) settleSteal(ctx context.Context, p RobParams, game domain.RobConfig, attempted int64, correlationID string) (*RobResult, error) {
	transfer, err := s.mutator.Transfer(ctx, economy.TransferParams{
		SenderID:      p.TargetID,
		ReceiverID:    p.UserID,
		GuildID:       p.GuildID,
		CurrencyID:    game.CurrencyID,
		Amount:        attempted,
		Reason:        "robbed",
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}

	err = s.record(ctx, &domain.AuditEntry{
		OperationType: domain.OpRob,
		ActorID:       p.UserID,
		TargetID:      p.TargetID,
		GuildID:       p.GuildID,
		Source:        "minigame",
		Reason:        "rob success",
		Currency: &domain.CurrencyData{
			CurrencyID:    game.CurrencyID,
			Delta:         -attempted,
			BeforeBalance: transfer.Sender.Before,
			AfterBalance:  transfer.Sender.After,
		},
		Metadata: map[string]any{
			"correlation_id": correlationID,
			"stolen":         attempted,
		},
	})
	if err != nil {
		return nil, err
	}

	return &RobResult{
		Success:       true,
		Stolen:        attempted,
		CorrelationID: correlationID,
	}, nil
}

// settleFine charges the robber for the failed attempt. The fine is clamped
// to what the robber holds in hand so a broke robber fails for free.
func (s *Service) settleFine(ctx context.Context, p RobParams, game domain.RobConfig, attempted int64, correlationID string) (*RobResult, error) {
	fine := domain.ApplyRate(attempted, game.FailFineRate)

	robberBal, err := s.balances.Get(ctx, p.UserID, game.CurrencyID)
	if err != nil {
		return nil, econerr.NewStorage("read robber balance", err)
	}
	if fine > robberBal.Hand {
		fine = robberBal.Hand
	}

	if fine <= 0 {
		if err := s.record(ctx, s.fineEntry(p, game, nil, 0, attempted, correlationID)); err != nil {
			return nil, err
		}
		return &RobResult{CorrelationID: correlationID}, nil
	}

	change, err := s.mutator.AdjustCurrencyBalance(ctx, economy.AdjustParams{
		ActorID:    p.UserID,
		TargetID:   p.UserID,
		GuildID:    p.GuildID,
		CurrencyID: game.CurrencyID,
		Delta:      -fine,
		Reason:     "rob fine",
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.sectors.DepositToSector(ctx, p.GuildID, game.FineSector, fine, "rob", "failed rob fine"); err != nil {
		s.compensatePlayer(ctx, p.GuildID, p.UserID, game.CurrencyID, fine, correlationID, "rob fine deposit failed")
		if err := s.record(ctx, s.fineEntry(p, game, nil, 0, attempted, correlationID)); err != nil {
			return nil, err
		}
		return &RobResult{CorrelationID: correlationID}, nil
	}

	if err := s.record(ctx, s.fineEntry(p, game, change, fine, attempted, correlationID)); err != nil {
		return nil, err
	}

	return &RobResult{
		Fine:          fine,
		CorrelationID: correlationID,
	}, nil
}

func (s *Service) fineEntry(p RobParams, game domain.RobConfig, change *domain.BalanceChange, fine, attempted int64, correlationID string) *domain.AuditEntry {
	entry := &domain.AuditEntry{
		OperationType: domain.OpRobFine,
		ActorID:       p.UserID,
		TargetID:      p.TargetID,
		GuildID:       p.GuildID,
		Source:        "minigame",
		Reason:        "rob failed",
		Metadata: map[string]any{
			"correlation_id": correlationID,
			"attempted":      attempted,
			"fine":           fine,
		},
	}
	if change != nil {
		entry.Currency = &domain.CurrencyData{
			CurrencyID:    game.CurrencyID,
			Delta:         -fine,
			BeforeBalance: change.Before,
			AfterBalance:  change.After,
		}
	}
	return entry
}
