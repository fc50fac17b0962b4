package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payment-message-ledger/internal/api_gateway/service"
	"github.com/payment-message-ledger/internal/domain/audit"
	"github.com/payment-message-ledger/internal/domain/record"
)

// MessageHandler handles HTTP requests for payment message operations
type MessageHandler struct {
	messageService service.MessageService
	logger         *slog.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(logger *slog.Logger, messageService service.MessageService) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		logger:         logger,
	}
}

// Create ingests a raw notification; the next sweep picks it up
func (h *MessageHandler) Create(c *gin.Context) {
	var req IngestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	rec, err := h.messageService.IngestMessage(c.Request.Context(), req.MessageID, req.SenderNumber, req.Message, req.PaidAt)
	if err != nil {
		var duplicate record.ErrDuplicateRecord
		if errors.As(err, &duplicate) {
			h.logger.Warn("Attempt to ingest duplicate message", "message_id", duplicate.MessageID)
			RespondConflict(c, "Message with this ID already exists")
			return
		}
		if errors.Is(err, record.ErrEmptyMessageID) || errors.Is(err, record.ErrEmptySenderNumber) || errors.Is(err, record.ErrMissingPaidAt) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to ingest message", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapRecordToResponse(rec))
}

// GetByID retrieves a record by its message id, returns 404 if not found
func (h *MessageHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.messageService.GetMessage(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get message", "message_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	if rec == nil {
		RespondNotFound(c, "Message not found")
		return
	}

	RespondOK(c, mapRecordToResponse(rec))
}

// ListUnlinked lists resale-goods payments without a receipt
func (h *MessageHandler) ListUnlinked(c *gin.Context) {
	records, err := h.messageService.ListUnlinked(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list unlinked messages", "error", err)
		RespondInternalError(c)
		return
	}

	messages := make([]MessageResponse, 0, len(records))
	for _, rec := range records {
		messages = append(messages, mapRecordToResponse(rec))
	}

	RespondOK(c, MessageListResponse{Messages: messages})
}

// GetAuditTrail returns the classification history of a record, newest first
func (h *MessageHandler) GetAuditTrail(c *gin.Context) {
	id := c.Param("id")

	var params AuditQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid audit query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	entries, err := h.messageService.GetAuditTrail(c.Request.Context(), id, params.Limit)
	if err != nil {
		h.logger.Error("Failed to get audit trail", "message_id", id, "error", err)
		RespondInternalError(c)
		return
	}

	response := AuditTrailResponse{MessageID: id, Entries: make([]AuditEntryResponse, 0, len(entries))}
	for _, e := range entries {
		response.Entries = append(response.Entries, mapAuditEntryToResponse(e))
	}
	RespondOK(c, response)
}

// mapRecordToResponse maps a record to a message response DTO
func mapRecordToResponse(rec *record.Record) MessageResponse {
	response := MessageResponse{
		MessageID:     rec.MessageID,
		Message:       rec.Message,
		SenderNumber:  rec.SenderNumber,
		SenderName:    rec.SenderName,
		InLedger:      rec.InLedger,
		PaidAt:        rec.PaidAt.Format(time.RFC3339),
		Amount:        rec.Amount,
		Counterparty:  rec.Counterparty,
		Purpose:       rec.Purpose,
		CategoryMajor: rec.CategoryMajor,
		CategoryMinor: rec.CategoryMinor,
		Reason:        rec.Reason,
		Confidence:    rec.Confidence,
		ReceiptID:     rec.ReceiptID,
		Version:       rec.Version,
	}

	if rec.Kind != nil {
		kind := string(*rec.Kind)
		response.Type = &kind
	}
	if rec.Currency != nil {
		currency := string(*rec.Currency)
		response.Currency = &currency
	}

	return response
}

func mapAuditEntryToResponse(e *audit.Entry) AuditEntryResponse {
	return AuditEntryResponse{
		Source:         string(e.Source),
		Purpose:        e.Purpose,
		CategoryMajor:  e.CategoryMajor,
		CategoryMinor:  e.CategoryMinor,
		Reason:         e.Reason,
		Confidence:     e.Confidence,
		ConversationID: e.ConversationID,
		CorrelationID:  e.CorrelationID,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
}
