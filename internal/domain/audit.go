package domain

import "time"

// OperationType tags an audit entry with the operation that produced it.
type OperationType string

const (
	OpAdjust        OperationType = "adjust"
	OpTransfer      OperationType = "transfer"
	OpTransferTax   OperationType = "transfer_tax"
	OpDeposit       OperationType = "deposit"
	OpWithdraw      OperationType = "withdraw"
	OpDailyClaim    OperationType = "daily_claim"
	OpWorkClaim     OperationType = "work_claim"
	OpCoinflip      OperationType = "coinflip"
	OpRob           OperationType = "rob"
	OpRobFine       OperationType = "rob_fine"
	OpSectorDeposit OperationType = "sector_deposit"
	OpRollback      OperationType = "rollback"
)

// CurrencyData carries the balance movement recorded with an audit entry.
// AfterBalance - BeforeBalance always equals Delta for a committed mutation.
type CurrencyData struct {
	CurrencyID    string `json:"currency_id"`
	Delta         int64  `json:"delta"`
	BeforeBalance int64  `json:"before_balance"`
	AfterBalance  int64  `json:"after_balance"`
}

// AuditEntry is one immutable row of the append-only economy ledger history.
// Corrections are recorded as new compensating entries, never edits.
type AuditEntry struct {
	ID            int64
	OperationType OperationType
	ActorID       string
	TargetID      string
	GuildID       string
	Source        string
	Reason        string
	Currency      *CurrencyData
	Metadata      map[string]any
	CreatedAt     time.Time
}

// CorrelationID returns the correlation identifier stored in the metadata,
// or an empty string when absent.
func (e *AuditEntry) CorrelationID() string {
	if e == nil || e.Metadata == nil {
		return ""
	}
	if id, ok := e.Metadata["correlation_id"].(string); ok {
		return id
	}
	return ""
}

// AuditSummary aggregates a guild's audit window for health reporting.
type AuditSummary struct {
	Counts        map[OperationType]int
	NetByCurrency map[string]int64
}
