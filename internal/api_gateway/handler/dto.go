package handler

import "time"

// IngestMessageRequest represents a raw payment notification pushed by an ingestion channel
type IngestMessageRequest struct {
	MessageID    string    `json:"message_id" binding:"required"`
	SenderNumber string    `json:"sender_number" binding:"required"`
	Message      string    `json:"message" binding:"required"`
	PaidAt       time.Time `json:"paid_at" binding:"required"`
}

// MessageResponse represents a record in API responses
type MessageResponse struct {
	MessageID     string   `json:"message_id"`
	Message       string   `json:"message"`
	SenderNumber  string   `json:"sender_number"`
	SenderName    *string  `json:"sender_name,omitempty"`
	InLedger      bool     `json:"in_ledger"`
	PaidAt        string   `json:"paid_at"`
	Type          *string  `json:"type,omitempty"`
	Amount        *int64   `json:"amount,omitempty"`
	Currency      *string  `json:"currency,omitempty"`
	Counterparty  *string  `json:"counterparty,omitempty"`
	Purpose       *string  `json:"purpose,omitempty"`
	CategoryMajor *string  `json:"category_major,omitempty"`
	CategoryMinor *string  `json:"category_minor,omitempty"`
	Reason        *string  `json:"reason,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	ReceiptID     *int64   `json:"receipt_id,omitempty"`
	Version       int      `json:"version"`
}

// MessageListResponse represents a list of records in API responses
type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// AuditEntryResponse represents one classification audit entry
type AuditEntryResponse struct {
	Source         string  `json:"source"`
	Purpose        string  `json:"purpose"`
	CategoryMajor  string  `json:"category_major"`
	CategoryMinor  string  `json:"category_minor"`
	Reason         string  `json:"reason"`
	Confidence     float64 `json:"confidence"`
	ConversationID string  `json:"conversation_id,omitempty"`
	CorrelationID  string  `json:"correlation_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// AuditTrailResponse represents the classification history of a record
type AuditTrailResponse struct {
	MessageID string               `json:"message_id"`
	Entries   []AuditEntryResponse `json:"entries"`
}

// AuditQueryParams represents query parameters of the audit endpoint
type AuditQueryParams struct {
	Limit int `form:"limit,default=50" binding:"min=1,max=500"`
}

// SubmitCorrectionRequest represents a human reply to an inference report
type SubmitCorrectionRequest struct {
	Channel        string `json:"channel" binding:"required"`
	ThreadTS       string `json:"thread_ts" binding:"required"`
	OriginalText   string `json:"original_text" binding:"required"`
	CorrectionText string `json:"correction_text" binding:"required"`
	User           string `json:"user,omitempty"`
}
