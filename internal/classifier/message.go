package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/payment-message-ledger/internal/config"
	"github.com/payment-message-ledger/internal/domain/record"
	"github.com/payment-message-ledger/internal/domain/shared"
	"google.golang.org/genai"
)

// MessageClassifier extracts kind, amount, currency and counterparty from normalized text
type MessageClassifier struct {
	engine engine
}

func NewMessageClassifier(generator ContentGenerator, cfg *config.LLMConfig, logger *slog.Logger) *MessageClassifier {
	return &MessageClassifier{engine: newEngine(generator, cfg, logger)}
}

type messageOutput struct {
	TransactionType  string  `json:"transaction_type"`
	Amount           *int64  `json:"amount"`
	Currency         *string `json:"currency"`
	TransactionParty *string `json:"transaction_party"`
}

var messageSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"transaction_type": {
			Type: genai.TypeString,
			Enum: []string{
				string(shared.KindApproval),
				string(shared.KindApprovalCancellation),
				string(shared.KindRejection),
				string(shared.KindDeposit),
				string(shared.KindWithdrawal),
				string(shared.KindNotATransaction),
			},
		},
		"amount":            {Type: genai.TypeInteger, Nullable: nullable()},
		"currency":          {Type: genai.TypeString, Nullable: nullable()},
		"transaction_party": {Type: genai.TypeString, Nullable: nullable()},
	},
	Required: []string{"transaction_type"},
}

// Classify routes text to the card or bank prompt. A non-transaction comes back
// with every other field empty.
func (c *MessageClassifier) Classify(ctx context.Context, text string, category shared.SenderCategory) (record.Extraction, error) {
	var prompt string
	switch category {
	case shared.SenderCategoryCard:
		prompt = cardMessagePrompt
	case shared.SenderCategoryBank:
		prompt = bankMessagePrompt
	default:
		return record.Extraction{}, fmt.Errorf("unsupported sender category %q", category)
	}

	conv := newConversation(prompt)
	conv.ask(text)

	raw, err := c.engine.run(ctx, conv, messageSchema)
	if err != nil {
		return record.Extraction{}, err
	}

	var out messageOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return record.Extraction{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return out.toExtraction()
}

func (o messageOutput) toExtraction() (record.Extraction, error) {
	kind, err := shared.ParseKind(o.TransactionType)
	if err != nil {
		return record.Extraction{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if kind == shared.KindNotATransaction {
		return record.NotATransaction(), nil
	}

	e := record.Extraction{Kind: kind, Amount: o.Amount}
	if o.Currency != nil && strings.TrimSpace(*o.Currency) != "" {
		cur, err := shared.ParseCurrency(*o.Currency)
		if err != nil {
			return record.Extraction{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
		e.Currency = &cur
	}
	if o.TransactionParty != nil && *o.TransactionParty != "" {
		party := *o.TransactionParty
		e.Counterparty = &party
	}
	if e.Amount != nil && *e.Amount < 0 {
		return record.Extraction{}, fmt.Errorf("%w: negative amount %d", ErrMalformedOutput, *e.Amount)
	}
	if err := e.Validate(); err != nil {
		return record.Extraction{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return e, nil
}
