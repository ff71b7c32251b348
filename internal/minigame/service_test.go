package minigame

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/internal/economy"
	"github.com/guildmint/guildmint/internal/ratelimit"
)

type mockConfigs struct {
	mock.Mock
}

func (m *mockConfigs) GetConfig(ctx context.Context, guildID string) (*domain.GuildEconomyConfig, error) {
	args := m.Called(ctx, guildID)
	cfg, _ := args.Get(0).(*domain.GuildEconomyConfig)
	return cfg, args.Error(1)
}

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) EnsureAccount(ctx context.Context, userID string) (*domain.EconomyAccount, error) {
	args := m.Called(ctx, userID)
	acc, _ := args.Get(0).(*domain.EconomyAccount)
	return acc, args.Error(1)
}

func (m *mockAccounts) RequireActive(ctx context.Context, userID string) (*domain.EconomyAccount, error) {
	args := m.Called(ctx, userID)
	acc, _ := args.Get(0).(*domain.EconomyAccount)
	return acc, args.Error(1)
}

func (m *mockAccounts) Touch(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

type mockBalances struct {
	mock.Mock
}

func (m *mockBalances) Get(ctx context.Context, userID, currencyID string) (*domain.CurrencyBalance, error) {
	args := m.Called(ctx, userID, currencyID)
	bal, _ := args.Get(0).(*domain.CurrencyBalance)
	return bal, args.Error(1)
}

func (m *mockBalances) CompareAndSet(ctx context.Context, bal *domain.CurrencyBalance, hand, bank int64) error {
	args := m.Called(ctx, bal, hand, bank)
	return args.Error(0)
}

type mockMutator struct {
	mock.Mock
}

func (m *mockMutator) AdjustCurrencyBalance(ctx context.Context, p economy.AdjustParams) (*domain.BalanceChange, error) {
	args := m.Called(ctx, p)
	change, _ := args.Get(0).(*domain.BalanceChange)
	return change, args.Error(1)
}

func (m *mockMutator) Transfer(ctx context.Context, p economy.TransferParams) (*economy.TransferResult, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*economy.TransferResult)
	return res, args.Error(1)
}

type mockSectors struct {
	mock.Mock
}

func (m *mockSectors) DepositToSector(ctx context.Context, guildID string, sector domain.Sector, amount int64, source, reason string) (*domain.SectorChange, error) {
	args := m.Called(ctx, guildID, sector, amount, source, reason)
	change, _ := args.Get(0).(*domain.SectorChange)
	return change, args.Error(1)
}

type mockAuditor struct {
	mock.Mock
}

func (m *mockAuditor) Record(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type mockCooldown struct {
	mock.Mock
}

func (m *mockCooldown) Acquire(ctx context.Context, key string, window time.Duration) (*ratelimit.Result, error) {
	args := m.Called(ctx, key, window)
	res, _ := args.Get(0).(*ratelimit.Result)
	return res, args.Error(1)
}

func (m *mockCooldown) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type gameFixture struct {
	configs   *mockConfigs
	accounts  *mockAccounts
	balances  *mockBalances
	mutator   *mockMutator
	sectors   *mockSectors
	auditor   *mockAuditor
	cooldowns *mockCooldown
	svc       *Service
}

func newGameFixture() *gameFixture {
	f := &gameFixture{
		configs:   &mockConfigs{},
		accounts:  &mockAccounts{},
		balances:  &mockBalances{},
		mutator:   &mockMutator{},
		sectors:   &mockSectors{},
		auditor:   &mockAuditor{},
		cooldowns: &mockCooldown{},
	}
	f.svc = NewService(f.configs, f.accounts, f.balances, f.mutator, f.sectors, f.auditor, f.cooldowns, nil, testLogger())
	return f
}

func gameConfig(guildID string) *domain.GuildEconomyConfig {
	return &domain.GuildEconomyConfig{
		GuildID: guildID,
		Coinflip: domain.CoinflipConfig{
			MinBet:           10,
			MaxBet:           1000,
			PayoutMultiplier: 2,
			HouseEdgeRate:    0.05,
			FeeSector:        domain.SectorGlobal,
			CurrencyID:       "coin",
		},
		Rob: domain.RobConfig{
			FailChance:          0.5,
			MaxStealRate:        0.2,
			FailFineRate:        0.1,
			MinTargetHand:       100,
			CooldownMinutes:     60,
			PairCooldownMinutes: 360,
			FineSector:          domain.SectorGlobal,
			CurrencyID:          "coin",
		},
		Features: map[string]bool{FeatureCoinflip: true, FeatureRob: true},
	}
}

func TestCoinflip_ValidationFailures(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(cfg *domain.GuildEconomyConfig)
		params   CoinflipParams
		expected econerr.Code
	}{
		{
			name:     "feature disabled",
			mutate:   func(c *domain.GuildEconomyConfig) { c.Features[FeatureCoinflip] = false },
			params:   CoinflipParams{GuildID: "g1", UserID: "u1", Amount: 100, Choice: SideHeads},
			expected: econerr.CodeFeatureDisabled,
		},
		{
			name:     "unknown choice",
			mutate:   func(*domain.GuildEconomyConfig) {},
			params:   CoinflipParams{GuildID: "g1", UserID: "u1", Amount: 100, Choice: "edge"},
			expected: econerr.CodeInvalidAmount,
		},
		{
			name:     "bet below minimum",
			mutate:   func(*domain.GuildEconomyConfig) {},
			params:   CoinflipParams{GuildID: "g1", UserID: "u1", Amount: 5, Choice: SideHeads},
			expected: econerr.CodeBetOutOfBounds,
		},
		{
			name:     "bet above maximum",
			mutate:   func(*domain.GuildEconomyConfig) {},
			params:   CoinflipParams{GuildID: "g1", UserID: "u1", Amount: 5000, Choice: SideTails},
			expected: econerr.CodeBetOutOfBounds,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newGameFixture()
			cfg := gameConfig("g1")
			tc.mutate(cfg)
			f.configs.On("GetConfig", mock.Anything, "g1").Return(cfg, nil).Once()

			_, err := f.svc.Coinflip(context.Background(), tc.params)

			assert.True(t, econerr.IsCode(err, tc.expected), "expected %s, got %v", tc.expected, err)
			f.mutator.AssertNotCalled(t, "AdjustCurrencyBalance", mock.Anything, mock.Anything)
		})
	}
}

func TestCoinflip_CooldownBlocksPlay(t *testing.T) {
	f := newGameFixture()
	f.configs.On("GetConfig", mock.Anything, "g1").Return(gameConfig("g1"), nil).Once()
	f.accounts.On("EnsureAccount", mock.Anything, "u1").Return(&domain.EconomyAccount{UserID: "u1"}, nil).Once()
	f.accounts.On("RequireActive", mock.Anything, "u1").Return(&domain.EconomyAccount{UserID: "u1", Status: domain.AccountStatusOK}, nil).Once()
	f.cooldowns.On("Acquire", mock.Anything, "coinflip:g1:u1", coinflipWindow).
		Return(&ratelimit.Result{Allowed: false, RetryAt: time.Now().Add(3 * time.Second)}, nil).Once()

	_, err := f.svc.Coinflip(context.Background(), CoinflipParams{
		GuildID: "g1", UserID: "u1", Amount: 100, Choice: SideHeads,
	})

	assert.True(t, econerr.IsCode(err, econerr.CodeCooldownActive))
	f.mutator.AssertNotCalled(t, "AdjustCurrencyBalance", mock.Anything, mock.Anything)
}

func TestSettleLoss_DebitsBetOnce(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Coinflip

	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.MatchedBy(func(p economy.AdjustParams) bool {
		return p.TargetID == "u1" && p.Delta == -100 && p.CurrencyID == "coin"
	})).Return(&domain.BalanceChange{Before: 500, After: 400}, nil).Once()

	f.auditor.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.OperationType == domain.OpCoinflip && entry.Currency.Delta == -100
	})).Return(nil).Once()

	res, err := f.svc.settleLoss(context.Background(), CoinflipParams{
		GuildID: "g1", UserID: "u1", Amount: 100, Choice: SideHeads,
	}, game, SideTails, "corr-1")

	assert.NoError(t, err)
	assert.False(t, res.Won)
	assert.Equal(t, SideTails, res.Side)
	assert.Equal(t, int64(100), res.Bet)
	assert.Equal(t, int64(0), res.Payout)
	assert.Equal(t, int64(400), res.Balance.After)
	f.mutator.AssertExpectations(t)
	f.auditor.AssertExpectations(t)
}

func TestSettleWin_CreditsPayoutMinusHouseFee(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Coinflip

	// 100 * 2 = 200 winnings, 5% edge = 10 fee, 190 credited.
	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.MatchedBy(func(p economy.AdjustParams) bool {
		return p.Delta == 190
	})).Return(&domain.BalanceChange{Before: 500, After: 690}, nil).Once()

	f.sectors.On("DepositToSector", mock.Anything, "g1", domain.SectorGlobal, int64(10), "coinflip", "house fee").
		Return(&domain.SectorChange{Sector: domain.SectorGlobal, Before: 0, After: 10}, nil).Once()

	f.auditor.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.OperationType == domain.OpCoinflip && entry.Currency.Delta == 190
	})).Return(nil).Once()

	res, err := f.svc.settleWin(context.Background(), CoinflipParams{
		GuildID: "g1", UserID: "u1", Amount: 100, Choice: SideHeads,
	}, game, SideHeads, "corr-1")

	assert.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, int64(190), res.Payout)
	assert.Equal(t, int64(10), res.HouseFee)
	f.sectors.AssertExpectations(t)
}

func TestSettleWin_FeeDepositFailureRefundsPlayer(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Coinflip

	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.MatchedBy(func(p economy.AdjustParams) bool {
		return p.Delta == 190
	})).Return(&domain.BalanceChange{Before: 500, After: 690}, nil).Once()

	f.sectors.On("DepositToSector", mock.Anything, "g1", domain.SectorGlobal, int64(10), "coinflip", "house fee").
		Return(nil, errors.New("sector row missing")).Once()

	// Fee returned to the player.
	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.MatchedBy(func(p economy.AdjustParams) bool {
		return p.Delta == 10
	})).Return(&domain.BalanceChange{Before: 690, After: 700}, nil).Once()

	f.auditor.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.OperationType == domain.OpRollback
	})).Return(nil).Once()
	f.auditor.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.OperationType == domain.OpCoinflip
	})).Return(nil).Once()

	res, err := f.svc.settleWin(context.Background(), CoinflipParams{
		GuildID: "g1", UserID: "u1", Amount: 100, Choice: SideHeads,
	}, game, SideHeads, "corr-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(0), res.HouseFee)
	f.mutator.AssertExpectations(t)
	f.auditor.AssertExpectations(t)
}

func TestRob_SelfTargetRejected(t *testing.T) {
	f := newGameFixture()
	f.configs.On("GetConfig", mock.Anything, "g1").Return(gameConfig("g1"), nil).Once()

	_, err := f.svc.Rob(context.Background(), RobParams{GuildID: "g1", UserID: "u1", TargetID: "u1"})

	assert.True(t, econerr.IsCode(err, econerr.CodeSelfTarget))
}

func TestRob_TargetTooPoor(t *testing.T) {
	f := newGameFixture()
	f.configs.On("GetConfig", mock.Anything, "g1").Return(gameConfig("g1"), nil).Once()
	f.accounts.On("EnsureAccount", mock.Anything, "u1").Return(&domain.EconomyAccount{UserID: "u1"}, nil).Once()
	f.accounts.On("RequireActive", mock.Anything, "u1").Return(&domain.EconomyAccount{UserID: "u1", Status: domain.AccountStatusOK}, nil).Once()
	f.accounts.On("RequireActive", mock.Anything, "u2").Return(&domain.EconomyAccount{UserID: "u2", Status: domain.AccountStatusOK}, nil).Once()
	f.balances.On("Get", mock.Anything, "u2", "coin").
		Return(&domain.CurrencyBalance{Hand: 40, Bank: 100000}, nil).Once()

	_, err := f.svc.Rob(context.Background(), RobParams{GuildID: "g1", UserID: "u1", TargetID: "u2"})

	// Bank money is out of reach; only the hand counts.
	assert.True(t, econerr.IsCode(err, econerr.CodeTargetTooPoor))
	f.cooldowns.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquireRobWindows_PairBlockReleasesRobberWindow(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Rob

	f.cooldowns.On("Acquire", mock.Anything, "rob:g1:u1", time.Duration(game.CooldownMinutes)*time.Minute).
		Return(&ratelimit.Result{Allowed: true}, nil).Once()
	f.cooldowns.On("Acquire", mock.Anything, "robpair:g1:u1:u2", time.Duration(game.PairCooldownMinutes)*time.Minute).
		Return(&ratelimit.Result{Allowed: false, RetryAt: time.Now().Add(time.Hour)}, nil).Once()
	f.cooldowns.On("Release", mock.Anything, "rob:g1:u1").Return(nil).Once()

	err := f.svc.acquireRobWindows(context.Background(), RobParams{GuildID: "g1", UserID: "u1", TargetID: "u2"}, game)

	assert.True(t, econerr.IsCode(err, econerr.CodePairCooldown))
	f.cooldowns.AssertExpectations(t)
}

func TestSettleSteal_MovesHandFundsFromTarget(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Rob

	f.mutator.On("Transfer", mock.Anything, mock.MatchedBy(func(p economy.TransferParams) bool {
		// The target is the sender: only their hand balance is touched.
		return p.SenderID == "u2" && p.ReceiverID == "u1" && p.Amount == 37 && p.Tax == nil
	})).Return(&economy.TransferResult{
		Sender:   domain.BalanceChange{Before: 200, After: 163},
		Receiver: domain.BalanceChange{Before: 0, After: 37},
	}, nil).Once()

	f.auditor.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.OperationType == domain.OpRob &&
			entry.Currency.Delta == -37 &&
			entry.TargetID == "u2"
	})).Return(nil).Once()

	res, err := f.svc.settleSteal(context.Background(), RobParams{
		GuildID: "g1", UserID: "u1", TargetID: "u2",
	}, game, 37, "corr-1")

	assert.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int64(37), res.Stolen)
	f.mutator.AssertExpectations(t)
	f.auditor.AssertExpectations(t)
}

func TestSettleFine_ChargesFineIntoTreasury(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Rob

	// attempted 100 at 10% fine rate.
	f.balances.On("Get", mock.Anything, "u1", "coin").
		Return(&domain.CurrencyBalance{Hand: 500}, nil).Once()
	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.MatchedBy(func(p economy.AdjustParams) bool {
		return p.Delta == -10
	})).Return(&domain.BalanceChange{Before: 500, After: 490}, nil).Once()
	f.sectors.On("DepositToSector", mock.Anything, "g1", domain.SectorGlobal, int64(10), "rob", "failed rob fine").
		Return(&domain.SectorChange{Sector: domain.SectorGlobal, Before: 0, After: 10}, nil).Once()
	f.auditor.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.OperationType == domain.OpRobFine && entry.Currency.Delta == -10
	})).Return(nil).Once()

	res, err := f.svc.settleFine(context.Background(), RobParams{
		GuildID: "g1", UserID: "u1", TargetID: "u2",
	}, game, 100, "corr-1")

	assert.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, int64(10), res.Fine)
	f.sectors.AssertExpectations(t)
}

func TestSettleFine_ClampsToRobberHand(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Rob

	f.balances.On("Get", mock.Anything, "u1", "coin").
		Return(&domain.CurrencyBalance{Hand: 4}, nil).Once()
	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.MatchedBy(func(p economy.AdjustParams) bool {
		return p.Delta == -4
	})).Return(&domain.BalanceChange{Before: 4, After: 0}, nil).Once()
	f.sectors.On("DepositToSector", mock.Anything, "g1", domain.SectorGlobal, int64(4), "rob", "failed rob fine").
		Return(&domain.SectorChange{Sector: domain.SectorGlobal, Before: 0, After: 4}, nil).Once()
	f.auditor.On("Record", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := f.svc.settleFine(context.Background(), RobParams{
		GuildID: "g1", UserID: "u1", TargetID: "u2",
	}, game, 100, "corr-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(4), res.Fine)
}

func TestSettleFine_BrokeRobberFailsForFree(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Rob

	f.balances.On("Get", mock.Anything, "u1", "coin").
		Return(&domain.CurrencyBalance{Hand: 0}, nil).Once()
	f.auditor.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.OperationType == domain.OpRobFine && entry.Currency == nil
	})).Return(nil).Once()

	res, err := f.svc.settleFine(context.Background(), RobParams{
		GuildID: "g1", UserID: "u1", TargetID: "u2",
	}, game, 100, "corr-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(0), res.Fine)
	f.mutator.AssertNotCalled(t, "AdjustCurrencyBalance", mock.Anything, mock.Anything)
	f.auditor.AssertExpectations(t)
}

func TestSettleFine_DepositFailureRefundsFine(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Rob

	f.balances.On("Get", mock.Anything, "u1", "coin").
		Return(&domain.CurrencyBalance{Hand: 500}, nil).Once()
	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.MatchedBy(func(p economy.AdjustParams) bool {
		return p.Delta == -10
	})).Return(&domain.BalanceChange{Before: 500, After: 490}, nil).Once()
	f.sectors.On("DepositToSector", mock.Anything, "g1", domain.SectorGlobal, int64(10), "rob", "failed rob fine").
		Return(nil, errors.New("sector row missing")).Once()

	// Refund plus its rollback entry, then the fine entry without currency.
	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.MatchedBy(func(p economy.AdjustParams) bool {
		return p.Delta == 10
	})).Return(&domain.BalanceChange{Before: 490, After: 500}, nil).Once()
	f.auditor.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.OperationType == domain.OpRollback
	})).Return(nil).Once()
	f.auditor.On("Record", mock.Anything, mock.MatchedBy(func(entry *domain.AuditEntry) bool {
		return entry.OperationType == domain.OpRobFine && entry.Currency == nil
	})).Return(nil).Once()

	res, err := f.svc.settleFine(context.Background(), RobParams{
		GuildID: "g1", UserID: "u1", TargetID: "u2",
	}, game, 100, "corr-1")

	assert.NoError(t, err)
	assert.Equal(t, int64(0), res.Fine)
	f.mutator.AssertExpectations(t)
	f.auditor.AssertExpectations(t)
}

func TestCoinflip_ZeroMaxBetMeansUncapped(t *testing.T) {
	f := newGameFixture()
	cfg := gameConfig("g1")
	cfg.Coinflip.MaxBet = 0

	f.configs.On("GetConfig", mock.Anything, "g1").Return(cfg, nil).Once()
	f.accounts.On("EnsureAccount", mock.Anything, "u1").Return(&domain.EconomyAccount{UserID: "u1"}, nil).Once()
	f.accounts.On("RequireActive", mock.Anything, "u1").Return(&domain.EconomyAccount{UserID: "u1", Status: domain.AccountStatusOK}, nil).Once()
	f.cooldowns.On("Acquire", mock.Anything, "coinflip:g1:u1", coinflipWindow).
		Return(&ratelimit.Result{Allowed: true}, nil).Once()

	// Either side of the flip settles; the bet size must not be rejected.
	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.Anything).
		Return(&domain.BalanceChange{Before: 1_000_000, After: 900_000}, nil)
	f.sectors.On("DepositToSector", mock.Anything, "g1", domain.SectorGlobal, mock.Anything, "coinflip", "house fee").
		Return(&domain.SectorChange{Sector: domain.SectorGlobal}, nil).Maybe()
	f.auditor.On("Record", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.Coinflip(context.Background(), CoinflipParams{
		GuildID: "g1", UserID: "u1", Amount: 100_000, Choice: SideHeads,
	})

	assert.NoError(t, err)
	f.mutator.AssertCalled(t, "AdjustCurrencyBalance", mock.Anything, mock.Anything)
}

func TestSettleLoss_FailsWhenAuditWriteFails(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Coinflip

	f.mutator.On("AdjustCurrencyBalance", mock.Anything, mock.Anything).
		Return(&domain.BalanceChange{Before: 500, After: 400}, nil).Once()
	f.auditor.On("Record", mock.Anything, mock.Anything).
		Return(errors.New("audit insert failed")).Once()

	_, err := f.svc.settleLoss(context.Background(), CoinflipParams{
		GuildID: "g1", UserID: "u1", Amount: 100, Choice: SideHeads,
	}, game, SideTails, "corr-1")

	assert.Error(t, err)
	f.auditor.AssertExpectations(t)
}

func TestSettleSteal_FailsWhenAuditWriteFails(t *testing.T) {
	f := newGameFixture()
	game := gameConfig("g1").Rob

	f.mutator.On("Transfer", mock.Anything, mock.Anything).
		Return(&economy.TransferResult{
			Sender:   domain.BalanceChange{Before: 500, After: 400},
			Receiver: domain.BalanceChange{Before: 0, After: 100},
		}, nil).Once()
	f.auditor.On("Record", mock.Anything, mock.Anything).
		Return(errors.New("audit insert failed")).Once()

	_, err := f.svc.settleSteal(context.Background(), RobParams{
		GuildID: "g1", UserID: "u1", TargetID: "u2",
	}, game, 100, "corr-1")

	assert.Error(t, err)
	f.auditor.AssertExpectations(t)
}
