package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
	"github.com/payment-message-ledger/internal/similarity"
)

// CancellationMatcher pairs refunds with approvals of the same amount and a similar counterparty.
// Every qualifying approval is tagged, not only the closest one.
type CancellationMatcher struct {
	repo      record.Repository
	threshold float64
	logger    *slog.Logger
}

func NewCancellationMatcher(repo record.Repository, threshold float64, logger *slog.Logger) *CancellationMatcher {
	return &CancellationMatcher{
		repo:      repo,
		threshold: threshold,
		logger:    logger,
	}
}

func (c *CancellationMatcher) Name() string { return "cancellation_matcher" }

func (c *CancellationMatcher) Run(ctx context.Context) error {
	refunds, err := c.repo.ListByKind(ctx, shared.KindApprovalCancellation, true)
	if err != nil {
		return fmt.Errorf("failed to list refunds: %w", err)
	}
	if len(refunds) == 0 {
		return nil
	}

	approvals, err := c.repo.ListByKind(ctx, shared.KindApproval, false)
	if err != nil {
		return fmt.Errorf("failed to list approvals: %w", err)
	}

	var tagged int64
	for _, refund := range refunds {
		matches := MatchCancellations(refund, approvals, c.threshold)
		if len(matches) == 0 {
			c.logger.Info("No approval found for refund", "message_id", refund.MessageID, "counterparty", refund.CounterpartyName())
			continue
		}

		ids := make([]string, 0, len(matches)+1)
		ids = append(ids, refund.MessageID)
		for _, approval := range matches {
			ids = append(ids, approval.MessageID)
		}

		n, err := c.repo.SetPurpose(ctx, ids, shared.PurposeCancelled)
		if err != nil {
			c.logger.Error("Failed to tag cancellation pair", "refund_id", refund.MessageID, "error", err)
			continue
		}
		tagged += n
	}

	c.logger.Info("Matched cancellations", "refunds", len(refunds), "tagged", tagged)
	return nil
}

// MatchCancellations returns the approvals that cancel out refund: same amount and
// currency, and counterparty similarity at or above threshold
func MatchCancellations(refund *record.Record, approvals []*record.Record, threshold float64) []*record.Record {
	if refund.Amount == nil || refund.Currency == nil {
		return nil
	}

	var matches []*record.Record
	for _, approval := range approvals {
		if approval.Amount == nil || approval.Currency == nil {
			continue
		}
		if *approval.Amount != *refund.Amount || *approval.Currency != *refund.Currency {
			continue
		}
		if similarity.AtLeast(refund.Counterparty, approval.Counterparty, threshold) {
			matches = append(matches, approval)
		}
	}
	return matches
}
