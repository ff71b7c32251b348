package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guildmint/guildmint/internal/domain"
)

// AccountRepository defines persistence operations for economy accounts.
type AccountRepository interface {
	FindByID(ctx context.Context, userID string) (*domain.EconomyAccount, error)
	Ensure(ctx context.Context, userID string) (*domain.EconomyAccount, error)
	Touch(ctx context.Context, userID string, at time.Time) error
	UpdateStatus(ctx context.Context, userID string, status domain.AccountStatus) error
}

type accountRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewAccountRepository creates a SQL-backed account repository.
func NewAccountRepository(db *sql.DB, log *slog.Logger) AccountRepository {
	return &accountRepository{db: db, log: log}
}

// FindByID retrieves an account by user identifier.
func (r *accountRepository) FindByID(ctx context.Context, userID string) (*domain.EconomyAccount, error) {
	const query = `
		SELECT user_id, status, created_at, updated_at, last_activity_at, version
		FROM economy_accounts
		WHERE user_id = $1
	`

	var acc domain.EconomyAccount
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&acc.UserID,
		&acc.Status,
		&acc.CreatedAt,
		&acc.UpdatedAt,
		&acc.LastActivityAt,
		&acc.Version,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if r.log != nil {
			r.log.Error("failed to fetch account", slog.String("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("select account: %w", err)
	}

	return &acc, nil
}

// Ensure returns the account for userID, lazily creating it on first contact.
func (r *accountRepository) Ensure(ctx context.Context, userID string) (*domain.EconomyAccount, error) {
	const query = `
		INSERT INTO economy_accounts (user_id, status)
		VALUES ($1, 'ok')
		ON CONFLICT (user_id) DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		if r.log != nil {
			r.log.Error("failed to ensure account", slog.String("user_id", userID), slog.Any("error", err))
		}
		return nil, fmt.Errorf("ensure account: %w", err)
	}

	return r.FindByID(ctx, userID)
}

// Touch refreshes last_activity_at and bumps the account version.
func (r *accountRepository) Touch(ctx context.Context, userID string, at time.Time) error {
	const query = `
		UPDATE economy_accounts
		SET last_activity_at = $2, updated_at = $2, version = version + 1
		WHERE user_id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, userID, at); err != nil {
		return fmt.Errorf("touch account: %w", err)
	}
	return nil
}

// UpdateStatus soft-restricts or restores an account. Accounts are never
// hard-deleted.
func (r *accountRepository) UpdateStatus(ctx context.Context, userID string, status domain.AccountStatus) error {
	const query = `
		UPDATE economy_accounts
		SET status = $2, updated_at = NOW(), version = version + 1
		WHERE user_id = $1
	`

	res, err := r.db.ExecContext(ctx, query, userID, status)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
