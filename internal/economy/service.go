// Package economy implements the currency mutation service: permission-gated
// atomic balance adjustment, hand/bank moves, and the transfer saga. All
// mutual exclusion lives in the storage layer's version-guarded writes; the
// service only retries a small bounded number of times on conflict.
package economy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/guildmint/guildmint/internal/audit"
	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/internal/repository"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// PermissionCheck decides whether the actor may perform a mutation. A nil
// check means the call is system-originated and always allowed.
type PermissionCheck func(actorID string) bool

// AccountGate is the slice of the account service the mutation path needs.
type AccountGate interface {
	EnsureAccount(ctx context.Context, userID string) (*domain.EconomyAccount, error)
	RequireActive(ctx context.Context, userID string) (*domain.EconomyAccount, error)
	Touch(ctx context.Context, userID string, at time.Time) error
}

// SectorDepositor is the slice of the guild config service used by the
// transfer tax step.
type SectorDepositor interface {
	DepositToSector(ctx context.Context, guildID string, sector domain.Sector, amount int64, source, reason string) (*domain.SectorChange, error)
}

// mutationAttempts bounds the read-modify-write loop per mutation. A
// conflicting mutation surfaces as UPDATE_FAILED instead of looping.
const mutationAttempts = 3

// Service is the currency mutation service. Adjust and Transfer never write
// audit entries for their primary mutations (callers pair each success with
// an audit write, which keeps the saga steps composable); compensating
// reversals and the standalone Deposit/Withdraw moves are recorded here, as
// no caller is contracted to audit them.
type Service struct {
	accounts AccountGate
	balances repository.BalanceRepository
	sectors  SectorDepositor
	auditor  audit.Recorder
	log      *slog.Logger
}

// NewService constructs the mutation service.
func NewService(accounts AccountGate, balances repository.BalanceRepository, sectors SectorDepositor, auditor audit.Recorder, log *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		balances: balances,
		sectors:  sectors,
		auditor:  auditor,
		log:      log,
	}
}

// AdjustParams describes a single balance adjustment.
type AdjustParams struct {
	ActorID    string
	TargetID   string
	GuildID    string
	CurrencyID string
	Delta      int64
	Reason     string
	Permission PermissionCheck
}

// AdjustCurrencyBalance applies a signed delta to the target's hand balance.
// The write is conditioned on the balance row's version; a mutation that
// would drive the balance negative fails before any write.
func (s *Service) AdjustCurrencyBalance(ctx context.Context, p AdjustParams) (*domain.BalanceChange, error) {
	start := time.Now()

	change, err := s.adjust(ctx, p)
	metrics.RecordMutation("adjust", statusLabel(err), time.Since(start))
	return change, err
}

func (s *Service) adjust(ctx context.Context, p AdjustParams) (*domain.BalanceChange, error) {
	if p.CurrencyID == "" {
		return nil, econerr.New(econerr.CodeInvalidCurrency, "currency id is empty")
	}
	if p.Delta == 0 {
		return nil, econerr.New(econerr.CodeInvalidAmount, "delta is zero")
	}
	if p.Permission != nil && !p.Permission(p.ActorID) {
		return nil, econerr.Newf(econerr.CodeInsufficientPerms,
			"actor %s may not adjust balances", p.ActorID)
	}

	if _, err := s.accounts.RequireActive(ctx, p.TargetID); err != nil {
		return nil, err
	}

	return s.mutateHand(ctx, p.TargetID, p.CurrencyID, p.Delta, "adjust")
}

// mutateHand runs the bounded-retry read-modify-write on the hand
// compartment.
func (s *Service) mutateHand(ctx context.Context, userID, currencyID string, delta int64, op string) (*domain.BalanceChange, error) {
	for attempt := 0; attempt < mutationAttempts; attempt++ {
		bal, err := s.balances.Get(ctx, userID, currencyID)
		if err != nil {
			return nil, econerr.NewStorage("read balance", err)
		}

		after := bal.Hand + delta
		if after < 0 {
			return nil, econerr.Newf(econerr.CodeInsufficientFunds,
				"balance %d cannot cover %d", bal.Hand, -delta)
		}

		err = s.balances.CompareAndSet(ctx, bal, after, bal.Bank)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.RecordVersionConflict(op)
			continue
		}
		if err != nil {
			return nil, econerr.NewStorage("write balance", err)
		}

		s.touch(ctx, userID)
		return &domain.BalanceChange{Before: bal.Hand, After: after}, nil
	}

	return nil, econerr.NewUpdateFailed("balance write kept conflicting")
}

// touch stamps the account's activity after a committed write. Best effort:
// a missed stamp never fails the mutation that already landed.
func (s *Service) touch(ctx context.Context, userID string) {
	if err := s.accounts.Touch(ctx, userID, time.Now().UTC()); err != nil && s.log != nil {
		s.log.Warn("failed to stamp account activity",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// MoveParams describes a hand/bank move for a single user.
type MoveParams struct {
	UserID     string
	GuildID    string
	CurrencyID string
	Amount     int64
}

// Deposit moves amount from hand into bank.
func (s *Service) Deposit(ctx context.Context, p MoveParams) (*domain.BalanceChange, error) {
	return s.moveCompartments(ctx, p, true)
}

// Withdraw moves amount from bank into hand.
func (s *Service) Withdraw(ctx context.Context, p MoveParams) (*domain.BalanceChange, error) {
	return s.moveCompartments(ctx, p, false)
}

func (s *Service) moveCompartments(ctx context.Context, p MoveParams, toBank bool) (*domain.BalanceChange, error) {
	op := "withdraw"
	if toBank {
		op = "deposit"
	}
	start := time.Now()

	change, err := s.move(ctx, p, toBank)
	metrics.RecordMutation(op, statusLabel(err), time.Since(start))
	return change, err
}

func (s *Service) move(ctx context.Context, p MoveParams, toBank bool) (*domain.BalanceChange, error) {
	if p.CurrencyID == "" {
		return nil, econerr.New(econerr.CodeInvalidCurrency, "currency id is empty")
	}
	if p.Amount <= 0 {
		return nil, econerr.New(econerr.CodeInvalidAmount, "amount must be positive")
	}
	if _, err := s.accounts.RequireActive(ctx, p.UserID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < mutationAttempts; attempt++ {
		bal, err := s.balances.Get(ctx, p.UserID, p.CurrencyID)
		if err != nil {
			return nil, econerr.NewStorage("read balance", err)
		}

		hand, bank := bal.Hand, bal.Bank
		if toBank {
			hand -= p.Amount
			bank += p.Amount
		} else {
			hand += p.Amount
			bank -= p.Amount
		}
		if hand < 0 || bank < 0 {
			return nil, econerr.Newf(econerr.CodeInsufficientFunds,
				"cannot move %d between compartments", p.Amount)
		}

		err = s.balances.CompareAndSet(ctx, bal, hand, bank)
		if errors.Is(err, repository.ErrVersionConflict) {
			metrics.RecordVersionConflict("move")
			continue
		}
		if err != nil {
			return nil, econerr.NewStorage("write balance", err)
		}

		s.touch(ctx, p.UserID)
		change := &domain.BalanceChange{Before: bal.Hand, After: hand}
		if err := s.recordMove(ctx, p, toBank, change); err != nil {
			return nil, err
		}
		return change, nil
	}

	return nil, econerr.NewUpdateFailed("balance write kept conflicting")
}

// recordMove audits a committed compartment move. Deposit and Withdraw have
// no orchestrating caller, so unlike Adjust and Transfer the entry is written
// here; the delta reported is the hand-side change.
func (s *Service) recordMove(ctx context.Context, p MoveParams, toBank bool, change *domain.BalanceChange) error {
	if s.auditor == nil {
		return nil
	}

	op := domain.OpWithdraw
	reason := "withdraw to hand"
	if toBank {
		op = domain.OpDeposit
		reason = "deposit to bank"
	}

	return s.auditor.Record(ctx, &domain.AuditEntry{
		OperationType: op,
		ActorID:       p.UserID,
		TargetID:      p.UserID,
		GuildID:       p.GuildID,
		Source:        "economy",
		Reason:        reason,
		Currency: &domain.CurrencyData{
			CurrencyID:    p.CurrencyID,
			Delta:         change.Delta(),
			BeforeBalance: change.Before,
			AfterBalance:  change.After,
		},
		Metadata: map[string]any{"amount": p.Amount},
	})
}

func statusLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return string(econerr.CodeOf(err))
}
