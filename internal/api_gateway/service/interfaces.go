package service

import (
	"context"
	"time"

	"github.com/payment-message-ledger/internal/domain/audit"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
)

// MessageService defines the interface for payment message operations
type MessageService interface {
	// IngestMessage stores a raw notification for the next sweep
	// Returns record.ErrDuplicateRecord if the message id was already ingested
	IngestMessage(ctx context.Context, messageID, senderNumber, message string, paidAt time.Time) (*record.Record, error)

	// GetMessage retrieves a record by its message id
	// Returns nil if the record is not found
	GetMessage(ctx context.Context, messageID string) (*record.Record, error)

	// ListUnlinked returns resale-goods payments still waiting for a receipt
	ListUnlinked(ctx context.Context) ([]*record.Record, error)

	// GetAuditTrail returns the classification history of a record, newest first
	GetAuditTrail(ctx context.Context, messageID string, limit int) ([]*audit.Entry, error)
}

// CorrectionService defines the interface for submitting human corrections
type CorrectionService interface {
	// SubmitCorrection hands the correction to the sweeper's correction listener
	SubmitCorrection(ctx context.Context, request *shared.CorrectionRequest) error
}
