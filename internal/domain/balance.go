package domain

import "time"

// CurrencyBalance holds one user's balance for a single currency, split into
// two compartments: hand (spendable, exposed to theft) and bank (safe haven).
// The version column is the optimistic-concurrency guard for every write.
type CurrencyBalance struct {
	UserID     string
	CurrencyID string
	Hand       int64
	Bank       int64
	Version    int64
	UpdatedAt  time.Time
}

// Total returns hand plus bank.
func (b *CurrencyBalance) Total() int64 {
	if b == nil {
		return 0
	}
	return b.Hand + b.Bank
}

// BalanceChange reports the hand balance before and after a committed mutation.
type BalanceChange struct {
	Before int64
	After  int64
}

// Delta returns the signed change applied by the mutation.
func (c BalanceChange) Delta() int64 {
	return c.After - c.Before
}
