package domain

import "time"

// ClaimKind distinguishes the time-gated reward claims.
type ClaimKind string

const (
	ClaimKindDaily ClaimKind = "daily"
	ClaimKindWork  ClaimKind = "work"
)

// ClaimRecord tracks cooldown, streak and daily-cap state for one
// (guild, user, kind) tuple. Records are never deleted so streak history
// survives configuration changes.
type ClaimRecord struct {
	GuildID     string
	UserID      string
	Kind        ClaimKind
	LastClaimAt time.Time
	DayStamp    string
	Count       int
	Streak      int
	BestStreak  int
}

// ClaimDenyReason classifies a rejected claim attempt.
type ClaimDenyReason string

const (
	ClaimDenyCooldown ClaimDenyReason = "cooldown"
	ClaimDenyCap      ClaimDenyReason = "cap"
)

// ClaimResult is the outcome of a single tryClaim round trip.
type ClaimResult struct {
	Granted        bool
	Streak         int
	BestStreak     int
	RemainingToday int
	Reason         ClaimDenyReason
	CooldownEndsAt time.Time
}

// DayStamp buckets t into its UTC calendar day. Work-cap counters reset
// implicitly when the stamp changes.
func DayStamp(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
