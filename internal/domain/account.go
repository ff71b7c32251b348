package domain

import "time"

// AccountStatus restricts what an economy account may do. Accounts are never
// hard-deleted; moderation flips the status instead.
type AccountStatus string

const (
	AccountStatusOK      AccountStatus = "ok"
	AccountStatusBlocked AccountStatus = "blocked"
	AccountStatusBanned  AccountStatus = "banned"
)

// EconomyAccount is the process-wide account record for a user. It is created
// lazily on the first economy interaction.
type EconomyAccount struct {
	UserID         string
	Status         AccountStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastActivityAt time.Time
	Version        int64
}

// Active reports whether the account may participate in the economy.
func (a *EconomyAccount) Active() bool {
	return a != nil && a.Status == AccountStatusOK
}
