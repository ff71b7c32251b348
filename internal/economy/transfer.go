package economy

import (
	"context"
	"log/slog"
	"time"

	"github.com/guildmint/guildmint/internal/domain"
	"github.com/guildmint/guildmint/internal/econerr"
	"github.com/guildmint/guildmint/pkg/metrics"
)

// TransferParams describes a peer-to-peer transfer.
type TransferParams struct {
	SenderID      string
	ReceiverID    string
	GuildID       string
	CurrencyID    string
	Amount        int64
	Reason        string
	CorrelationID string
	Tax           *domain.TaxConfig
	Permission    PermissionCheck
}

// TransferResult reports the steps a committed transfer performed.
type TransferResult struct {
	Sender   domain.BalanceChange
	Receiver domain.BalanceChange
	TaxFee   int64
}

// Transfer debits the sender and credits the receiver as one logical unit.
// The store offers only single-row atomicity, so the composite runs as a
// saga: if the credit fails after the debit committed, the debit is reversed
// by a compensating mutation before the error is returned. The reversal is
// recorded as a rollback audit entry here; primary entries remain the
// caller's responsibility.
//
// There is a narrow window in which the debit is visible before its paired
// credit or reversal lands. Accepted and logged; see the audit trail for
// reconstruction.
func (s *Service) Transfer(ctx context.Context, p TransferParams) (*TransferResult, error) {
	start := time.Now()

	res, err := s.transfer(ctx, p)
	metrics.RecordMutation("transfer", statusLabel(err), time.Since(start))
	return res, err
}

func (s *Service) transfer(ctx context.Context, p TransferParams) (*TransferResult, error) {
	if p.SenderID == p.ReceiverID {
		return nil, econerr.New(econerr.CodeSelfTarget, "cannot transfer to yourself")
	}
	if p.Amount <= 0 {
		return nil, econerr.New(econerr.CodeInvalidAmount, "transfer amount must be positive")
	}
	if p.CurrencyID == "" {
		return nil, econerr.New(econerr.CodeInvalidCurrency, "currency id is empty")
	}
	if p.Permission != nil && !p.Permission(p.SenderID) {
		return nil, econerr.Newf(econerr.CodeInsufficientPerms,
			"actor %s may not transfer", p.SenderID)
	}

	if _, err := s.accounts.RequireActive(ctx, p.SenderID); err != nil {
		return nil, err
	}
	if _, err := s.accounts.EnsureAccount(ctx, p.ReceiverID); err != nil {
		return nil, err
	}
	if _, err := s.accounts.RequireActive(ctx, p.ReceiverID); err != nil {
		return nil, err
	}

	fee := int64(0)
	if p.Tax != nil && p.Tax.Enabled && p.Amount >= p.Tax.MinimumTaxableAmount {
		fee = domain.ApplyRate(p.Amount, p.Tax.Rate)
	}

	senderChange, err := s.mutateHand(ctx, p.SenderID, p.CurrencyID, -p.Amount, "transfer_debit")
	if err != nil {
		return nil, err
	}

	receiverChange, err := s.mutateHand(ctx, p.ReceiverID, p.CurrencyID, p.Amount-fee, "transfer_credit")
	if err != nil {
		s.compensate(ctx, p, p.Amount, "transfer credit failed")
		return nil, err
	}

	if fee > 0 {
		if _, err := s.sectors.DepositToSector(ctx, p.GuildID, p.Tax.TaxSector, fee, "transfer_tax", p.Reason); err != nil {
			// Tax could not land; refund the withheld fee to the
			// sender rather than unwinding the whole transfer.
			s.compensate(ctx, p, fee, "transfer tax deposit failed")
			fee = 0
		}
	}

	return &TransferResult{
		Sender:   *senderChange,
		Receiver: *receiverChange,
		TaxFee:   fee,
	}, nil
}

// compensate credits amount back to the sender and records the reversal.
// A compensation that itself fails is the worst case: it is logged at error
// level and left to the audit trail plus the health report to surface.
func (s *Service) compensate(ctx context.Context, p TransferParams, amount int64, cause string) {
	metrics.RecordCompensation("transfer")

	change, err := s.mutateHand(ctx, p.SenderID, p.CurrencyID, amount, "transfer_rollback")
	if err != nil {
		if s.log != nil {
			s.log.Error("transfer compensation failed",
				slog.String("sender_id", p.SenderID),
				slog.String("receiver_id", p.ReceiverID),
				slog.String("currency_id", p.CurrencyID),
				slog.Int64("amount", amount),
				slog.String("cause", cause),
				slog.Any("error", err),
			)
		}
		return
	}

	if s.auditor == nil {
		return
	}
	entry := &domain.AuditEntry{
		OperationType: domain.OpRollback,
		ActorID:       p.SenderID,
		TargetID:      p.SenderID,
		GuildID:       p.GuildID,
		Source:        "transfer",
		Reason:        cause,
		Currency: &domain.CurrencyData{
			CurrencyID:    p.CurrencyID,
			Delta:         amount,
			BeforeBalance: change.Before,
			AfterBalance:  change.After,
		},
		Metadata: map[string]any{"correlation_id": p.CorrelationID},
	}
	if err := s.auditor.Record(ctx, entry); err != nil && s.log != nil {
		s.log.Error("failed to record rollback audit entry",
			slog.String("sender_id", p.SenderID),
			slog.Any("error", err),
		)
	}
}
