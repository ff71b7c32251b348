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

// BalanceRepository defines persistence operations for currency balances.
// Writes are version-guarded: CompareAndSet commits only when the row still
// carries the version observed by the preceding Get.
type BalanceRepository interface {
	Get(ctx context.Context, userID, currencyID string) (*domain.CurrencyBalance, error)
	CompareAndSet(ctx context.Context, bal *domain.CurrencyBalance, hand, bank int64) error
}

type balanceRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewBalanceRepository creates a SQL-backed balance repository.
func NewBalanceRepository(db *sql.DB, log *slog.Logger) BalanceRepository {
	return &balanceRepository{db: db, log: log}
}

// Get returns the balance row for (userID, currencyID). A missing row is
// reported as a zero balance with version 0; CompareAndSet then inserts it.
func (r *balanceRepository) Get(ctx context.Context, userID, currencyID string) (*domain.CurrencyBalance, error) {
	const query = `
		SELECT user_id, currency_id, hand, bank, version, updated_at
		FROM economy_balances
		WHERE user_id = $1 AND currency_id = $2
	`

	var bal domain.CurrencyBalance
	err := r.db.QueryRowContext(ctx, query, userID, currencyID).Scan(
		&bal.UserID,
		&bal.CurrencyID,
		&bal.Hand,
		&bal.Bank,
		&bal.Version,
		&bal.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.CurrencyBalance{
			UserID:     userID,
			CurrencyID: currencyID,
		}, nil
	}
	if err != nil {
		if r.log != nil {
			r.log.Error("failed to fetch balance",
				slog.String("user_id", userID),
				slog.String("currency_id", currencyID),
				slog.Any("error", err),
			)
		}
		return nil, fmt.Errorf("select balance: %w", err)
	}

	return &bal, nil
}

// CompareAndSet writes the new hand/bank amounts conditioned on bal.Version.
// Version 0 means the row was absent at read time and is inserted instead;
// either path returns ErrVersionConflict when a concurrent writer won.
func (r *balanceRepository) CompareAndSet(ctx context.Context, bal *domain.CurrencyBalance, hand, bank int64) error {
	if bal == nil {
		return errors.New("balance is nil")
	}
	if hand < 0 || bank < 0 {
		return fmt.Errorf("refusing negative balance write: hand=%d bank=%d", hand, bank)
	}

	now := time.Now().UTC()

	if bal.Version == 0 {
		const insert = `
			INSERT INTO economy_balances (user_id, currency_id, hand, bank, version, updated_at)
			VALUES ($1, $2, $3, $4, 1, $5)
			ON CONFLICT (user_id, currency_id) DO NOTHING
		`
		res, err := r.db.ExecContext(ctx, insert, bal.UserID, bal.CurrencyID, hand, bank, now)
		if err != nil {
			return fmt.Errorf("insert balance: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert balance rows: %w", err)
		}
		if n == 0 {
			return ErrVersionConflict
		}
		return nil
	}

	const update = `
		UPDATE economy_balances
		SET hand = $4, bank = $5, version = version + 1, updated_at = $6
		WHERE user_id = $1 AND currency_id = $2 AND version = $3
	`
	res, err := r.db.ExecContext(ctx, update, bal.UserID, bal.CurrencyID, bal.Version, hand, bank, now)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update balance rows: %w", err)
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}
