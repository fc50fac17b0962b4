package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/payment-message-ledger/internal/domain/record"
)

// Deduplicator tags messages that a known upstream defect ingests under two channels.
// It matches one exact signature and is not a general content dedup.
type Deduplicator struct {
	repo      record.Repository
	signature record.DuplicateSignature
	logger    *slog.Logger
}

func NewDeduplicator(repo record.Repository, signature record.DuplicateSignature, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		repo:      repo,
		signature: signature,
		logger:    logger,
	}
}

func (d *Deduplicator) Name() string { return "deduplicator" }

func (d *Deduplicator) Run(ctx context.Context) error {
	tagged, err := d.repo.MarkDuplicates(ctx, d.signature)
	if err != nil {
		return fmt.Errorf("failed to mark duplicates: %w", err)
	}
	if tagged > 0 {
		d.logger.Info("Tagged duplicate messages as not-a-transaction",
			"count", tagged,
			"id_prefix", d.signature.IDPrefix,
			"sender_number", d.signature.SenderNumber,
		)
	}
	return nil
}
