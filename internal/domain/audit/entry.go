package audit

import (
	"context"
	"time"

	"github.com/payment-message-ledger/internal/domain/shared"
)

// Entry records one accepted classification of a record
type Entry struct {
	MessageID      string                      `json:"message_id" bson:"message_id"`
	Source         shared.ClassificationSource `json:"source" bson:"source"`
	Purpose        string                      `json:"purpose" bson:"purpose"`
	CategoryMajor  string                      `json:"category_major" bson:"category_major"`
	CategoryMinor  string                      `json:"category_minor" bson:"category_minor"`
	Reason         string                      `json:"reason" bson:"reason"`
	Confidence     float64                     `json:"confidence" bson:"confidence"`
	ConversationID string                      `json:"conversation_id,omitempty" bson:"conversation_id,omitempty"`
	CorrelationID  string                      `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt      time.Time                   `json:"created_at" bson:"created_at"`
}

// Repository is an append-only classification history
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	ListByMessageID(ctx context.Context, messageID string, limit int) ([]*Entry, error)
}
