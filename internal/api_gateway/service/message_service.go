package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/payment-message-ledger/internal/domain/audit"
	"github.com/payment-message-ledger/internal/domain/record"
)

// MessageServiceImpl implements the MessageService interface
type MessageServiceImpl struct {
	recordRepo     record.Repository
	auditRepo      audit.Repository
	unlinkedCutoff time.Time
	logger         *slog.Logger
}

// NewMessageService creates a new message service
func NewMessageService(logger *slog.Logger, recordRepo record.Repository, auditRepo audit.Repository, unlinkedCutoff time.Time) MessageService {
	return &MessageServiceImpl{
		recordRepo:     recordRepo,
		auditRepo:      auditRepo,
		unlinkedCutoff: unlinkedCutoff,
		logger:         logger,
	}
}

// IngestMessage validates the raw fields and stores an untyped record
func (s *MessageServiceImpl) IngestMessage(ctx context.Context, messageID, senderNumber, message string, paidAt time.Time) (*record.Record, error) {
	rec, err := record.NewRecord(messageID, senderNumber, message, paidAt)
	if err != nil {
		return nil, err
	}

	if err := s.recordRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	s.logger.Info("Message ingested", "message_id", rec.MessageID, "sender_number", rec.SenderNumber)
	return rec, nil
}

// GetMessage retrieves a record by its message id. Returns nil if not found
func (s *MessageServiceImpl) GetMessage(ctx context.Context, messageID string) (*record.Record, error) {
	rec, err := s.recordRepo.GetByID(ctx, messageID)
	if err != nil {
		var notFound record.ErrRecordNotFound
		if errors.As(err, &notFound) {
			s.logger.Info("Message not found", "message_id", messageID)
			return nil, nil
		}
		s.logger.Error("Failed to get message by ID", "message_id", messageID, "error", err)
		return nil, err
	}
	return rec, nil
}

// ListUnlinked returns resale payments since the report cutoff that have no receipt
func (s *MessageServiceImpl) ListUnlinked(ctx context.Context) ([]*record.Record, error) {
	return s.recordRepo.ListResaleWithoutReceipt(ctx, s.unlinkedCutoff)
}

// GetAuditTrail returns the classification history of a record
func (s *MessageServiceImpl) GetAuditTrail(ctx context.Context, messageID string, limit int) ([]*audit.Entry, error) {
	return s.auditRepo.ListByMessageID(ctx, messageID, limit)
}
