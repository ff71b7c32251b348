// Package account owns the economy account lifecycle: lazy creation on first
// interaction and status gating for every mutating operation.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/internal/repository"
)

// Service provides business operations over economy accounts.
type Service struct {
	repo repository.AccountRepository
	log  *slog.Logger
}

// NewService constructs a new Service instance.
func NewService(repo repository.AccountRepository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// EnsureAccount fetches the account for userID, creating it with status ok
// when missing.
func (s *Service) EnsureAccount(ctx context.Context, userID string) (*domain.EconomyAccount, error) {
	if userID == "" {
		return nil, econerr.New(econerr.CodeTargetNotFound, "user id is empty")
	}

	acc, err := s.repo.Ensure(ctx, userID)
	if err != nil {
		s.logError("ensure", userID, err)
		return nil, econerr.NewStorage("ensure account", err)
	}
	return acc, nil
}

// RequireActive returns the account only when it exists and is unrestricted.
// A blocked or banned account surfaces as a typed permission failure.
func (s *Service) RequireActive(ctx context.Context, userID string) (*domain.EconomyAccount, error) {
	acc, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, econerr.Newf(econerr.CodeTargetNotFound, "account %s not found", userID)
		}
		s.logError("require_active", userID, err)
		return nil, econerr.NewStorage("find account", err)
	}

	switch acc.Status {
	case domain.AccountStatusBlocked:
		return nil, econerr.Newf(econerr.CodeTargetBlocked, "account %s is blocked", userID)
	case domain.AccountStatusBanned:
		return nil, econerr.Newf(econerr.CodeTargetBanned, "account %s is banned", userID)
	}
	return acc, nil
}

// Touch stamps the account's last activity. Called after every committed
// balance change so the row tracks when the holder last moved money.
func (s *Service) Touch(ctx context.Context, userID string, at time.Time) error {
	if err := s.repo.Touch(ctx, userID, at); err != nil {
		s.logError("touch", userID, err)
		return econerr.NewStorage("touch account", err)
	}
	return nil
}

// SetStatus soft-restricts or restores an account.
func (s *Service) SetStatus(ctx context.Context, userID string, status domain.AccountStatus) error {
	switch status {
	case domain.AccountStatusOK, domain.AccountStatusBlocked, domain.AccountStatusBanned:
	default:
		return econerr.Newf(econerr.CodeConfigInvalid, "unknown account status %q", status)
	}

	if err := s.repo.UpdateStatus(ctx, userID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return econerr.Newf(econerr.CodeTargetNotFound, "account %s not found", userID)
		}
		s.logError("set_status", userID, err)
		return econerr.NewStorage("update account status", err)
	}
	return nil
}

func (s *Service) logError(operation, userID string, err error) {
	if s == nil || s.log == nil || err == nil {
		return
	}

	s.log.Error("account service operation failed",
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Any("error", err),
	)
}
