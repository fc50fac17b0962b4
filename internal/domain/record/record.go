package record

import (
	"errors"
	"strings"
	"time"

	"github.com/payment-message-ledger/internal/domain/shared"
)

// Common errors
var (
	ErrEmptyMessageID         = errors.New("message id cannot be empty")
	ErrEmptySenderNumber      = errors.New("sender number cannot be empty")
	ErrMissingPaidAt          = errors.New("paid_at is required")
	ErrConfidenceOutOfRange   = errors.New("confidence must be within [0, 1]")
	ErrAmountCurrencyMismatch = errors.New("amount and currency must both be set or both be empty")
)

// Record is one ingested payment notification plus everything the pipeline derives from it.
// Nil pointer fields are unset in the store.
type Record struct {
	MessageID    string    `json:"message_id"`
	Message      string    `json:"message"`
	InLedger     bool      `json:"in_ledger"`
	PaidAt       time.Time `json:"paid_at"`
	SenderNumber string    `json:"sender_number"`

	Kind         *shared.Kind     `json:"type,omitempty"`
	Amount       *int64           `json:"amount,omitempty"` // smallest currency unit
	Currency     *shared.Currency `json:"currency,omitempty"`
	Counterparty *string          `json:"counterparty,omitempty"`
	SenderName   *string          `json:"sender_name,omitempty"`

	Purpose       *string  `json:"purpose,omitempty"`
	CategoryMajor *string  `json:"category_major,omitempty"`
	CategoryMinor *string  `json:"category_minor,omitempty"`
	Reason        *string  `json:"reason,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
	ReceiptID     *int64   `json:"receipt_id,omitempty"`

	Version   int       `json:"version"` // For optimistic locking
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord creates a freshly ingested record carrying raw fields only
func NewRecord(messageID, senderNumber, message string, paidAt time.Time) (*Record, error) {
	messageID = strings.TrimSpace(messageID)
	senderNumber = strings.TrimSpace(senderNumber)
	if messageID == "" {
		return nil, ErrEmptyMessageID
	}
	if senderNumber == "" {
		return nil, ErrEmptySenderNumber
	}
	if paidAt.IsZero() {
		return nil, ErrMissingPaidAt
	}

	now := time.Now()
	return &Record{
		MessageID:    messageID,
		Message:      message,
		SenderNumber: senderNumber,
		PaidAt:       paidAt.UTC(),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsKind reports whether the record has been typed as k
func (r *Record) IsKind(k shared.Kind) bool {
	return r.Kind != nil && *r.Kind == k
}

// HasPurpose reports whether a business purpose has been assigned, even an empty one
func (r *Record) HasPurpose() bool {
	return r.Purpose != nil
}

// CounterpartyName returns the extracted counterparty, or "" when unset
func (r *Record) CounterpartyName() string {
	if r.Counterparty == nil {
		return ""
	}
	return *r.Counterparty
}

// HasClassificationHint reports whether any enrichment field is usable as inference context
func (r *Record) HasClassificationHint() bool {
	return r.Purpose != nil || r.CategoryMajor != nil || r.CategoryMinor != nil || r.Reason != nil
}

// Extraction is the structured output of the message classifier
type Extraction struct {
	Kind         shared.Kind
	Amount       *int64
	Currency     *shared.Currency
	Counterparty *string
}

// Validate enforces the amount/currency pairing; a non-transaction carries no other fields
func (e Extraction) Validate() error {
	if _, err := shared.ParseKind(string(e.Kind)); err != nil {
		return err
	}
	if (e.Amount == nil) != (e.Currency == nil) {
		return ErrAmountCurrencyMismatch
	}
	return nil
}

// NotATransaction returns the terminal extraction with all other fields empty
func NotATransaction() Extraction {
	return Extraction{Kind: shared.KindNotATransaction}
}

// Classification is the account category assigned to a record by inference or correction
type Classification struct {
	Purpose       string  `json:"purpose"`
	CategoryMajor string  `json:"category_major"`
	CategoryMinor string  `json:"category_minor"`
	Reason        string  `json:"reason"`
	Confidence    float64 `json:"confidence"`
}

// Validate rejects confidence values outside [0, 1]
func (c Classification) Validate() error {
	if c.Confidence < 0 || c.Confidence > 1 {
		return ErrConfidenceOutOfRange
	}
	return nil
}

// Label is an optional stored label; an unset label is distinct from an empty one
type Label struct {
	Set   bool
	Value string
}

func labelOf(s *string) Label {
	if s == nil {
		return Label{}
	}
	return Label{Set: true, Value: *s}
}

// LabelKey is the (purpose, major, minor) triple used to deduplicate similarity context
type LabelKey [3]Label

// LabelKey keys the record by its stored labels as they are, null or not
func (r *Record) LabelKey() LabelKey {
	return LabelKey{labelOf(r.Purpose), labelOf(r.CategoryMajor), labelOf(r.CategoryMinor)}
}

// ClassificationOf projects the stored enrichment fields, nil fields become ""
func ClassificationOf(r *Record) Classification {
	c := Classification{
		Purpose:       deref(r.Purpose),
		CategoryMajor: deref(r.CategoryMajor),
		CategoryMinor: deref(r.CategoryMinor),
		Reason:        deref(r.Reason),
	}
	if r.Confidence != nil {
		c.Confidence = *r.Confidence
	}
	return c
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
