package account

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
	"github.com/guildmint/guildmint/internal/repository"
)

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) FindByID(ctx context.Context, userID string) (*domain.EconomyAccount, error) {
	args := m.Called(ctx, userID)
	acc, _ := args.Get(0).(*domain.EconomyAccount)
	return acc, args.Error(1)
}

func (m *mockAccountRepo) Ensure(ctx context.Context, userID string) (*domain.EconomyAccount, error) {
	args := m.Called(ctx, userID)
	acc, _ := args.Get(0).(*domain.EconomyAccount)
	return acc, args.Error(1)
}

func (m *mockAccountRepo) Touch(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

func (m *mockAccountRepo) UpdateStatus(ctx context.Context, userID string, status domain.AccountStatus) error {
	args := m.Called(ctx, userID, status)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureAccount(t *testing.T) {
	t.Run("creates or returns account", func(t *testing.T) {
		repo := &mockAccountRepo{}
		repo.On("Ensure", mock.Anything, "u1").
			Return(&domain.EconomyAccount{UserID: "u1", Status: domain.AccountStatusOK}, nil).Once()

		svc := NewService(repo, testLogger())

		acc, err := svc.EnsureAccount(context.Background(), "u1")

		assert.NoError(t, err)
		assert.Equal(t, "u1", acc.UserID)
	})

	t.Run("rejects empty user id", func(t *testing.T) {
		svc := NewService(&mockAccountRepo{}, testLogger())

		_, err := svc.EnsureAccount(context.Background(), "")

		assert.True(t, econerr.IsCode(err, econerr.CodeTargetNotFound))
	})

	t.Run("wraps storage failure", func(t *testing.T) {
		repo := &mockAccountRepo{}
		repo.On("Ensure", mock.Anything, "u1").Return(nil, errors.New("deadlock")).Once()

		svc := NewService(repo, testLogger())

		_, err := svc.EnsureAccount(context.Background(), "u1")

		assert.True(t, econerr.IsCode(err, econerr.CodeStorage))
	})
}

func TestRequireActive(t *testing.T) {
	testCases := []struct {
		name     string
		account  *domain.EconomyAccount
		findErr  error
		expected econerr.Code
	}{
		{
			name:    "active account passes",
			account: &domain.EconomyAccount{UserID: "u1", Status: domain.AccountStatusOK},
		},
		{
			name:     "blocked account",
			account:  &domain.EconomyAccount{UserID: "u1", Status: domain.AccountStatusBlocked},
			expected: econerr.CodeTargetBlocked,
		},
		{
			name:     "banned account",
			account:  &domain.EconomyAccount{UserID: "u1", Status: domain.AccountStatusBanned},
			expected: econerr.CodeTargetBanned,
		},
		{
			name:     "missing account",
			findErr:  repository.ErrNotFound,
			expected: econerr.CodeTargetNotFound,
		},
		{
			name:     "storage failure",
			findErr:  errors.New("connection reset"),
			expected: econerr.CodeStorage,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &mockAccountRepo{}
			repo.On("FindByID", mock.Anything, "u1").Return(tc.account, tc.findErr).Once()

			svc := NewService(repo, testLogger())

			acc, err := svc.RequireActive(context.Background(), "u1")

			if tc.expected == "" {
				assert.NoError(t, err)
				assert.Equal(t, "u1", acc.UserID)
				return
			}
			assert.True(t, econerr.IsCode(err, tc.expected), "expected %s, got %v", tc.expected, err)
		})
	}
}

func TestSetStatus(t *testing.T) {
	t.Run("updates known status", func(t *testing.T) {
		repo := &mockAccountRepo{}
		repo.On("UpdateStatus", mock.Anything, "u1", domain.AccountStatusBlocked).Return(nil).Once()

		svc := NewService(repo, testLogger())

		assert.NoError(t, svc.SetStatus(context.Background(), "u1", domain.AccountStatusBlocked))
		repo.AssertExpectations(t)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		svc := NewService(&mockAccountRepo{}, testLogger())

		err := svc.SetStatus(context.Background(), "u1", "suspended")

		assert.True(t, econerr.IsCode(err, econerr.CodeConfigInvalid))
	})

	t.Run("missing account", func(t *testing.T) {
		repo := &mockAccountRepo{}
		repo.On("UpdateStatus", mock.Anything, "u1", domain.AccountStatusOK).Return(repository.ErrNotFound).Once()

		svc := NewService(repo, testLogger())

		err := svc.SetStatus(context.Background(), "u1", domain.AccountStatusOK)

		assert.True(t, econerr.IsCode(err, econerr.CodeTargetNotFound))
	})
}

func TestTouch(t *testing.T) {
	t.Run("passes the stamp through", func(t *testing.T) {
		repo := &mockAccountRepo{}
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		repo.On("Touch", mock.Anything, "u1", at).Return(nil).Once()

		svc := NewService(repo, testLogger())

		assert.NoError(t, svc.Touch(context.Background(), "u1", at))
		repo.AssertExpectations(t)
	})

	t.Run("wraps storage failures", func(t *testing.T) {
		repo := &mockAccountRepo{}
		repo.On("Touch", mock.Anything, "u1", mock.Anything).
			Return(errors.New("connection reset")).Once()

		svc := NewService(repo, testLogger())

		err := svc.Touch(context.Background(), "u1", time.Now())

		assert.True(t, econerr.IsCode(err, econerr.CodeStorage))
	})
}
