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

// ContextEntry is one exemplar of a prior classification with a similar counterparty
type ContextEntry struct {
	Counterparty  string
	Purpose       string
	CategoryMajor string
	CategoryMinor string
	Reason        string
	Confidence    float64
}

// InferenceInput describes the payment to classify
type InferenceInput struct {
	Counterparty string
	Amount       *int64
	Currency     *shared.Currency
	Context      []ContextEntry
}

// Result is a classification plus the id of the conversation that produced it
type Result struct {
	record.Classification
	ConversationID string
}

// AccountClassifier assigns purpose and account category triples
type AccountClassifier struct {
	engine engine
}

func NewAccountClassifier(generator ContentGenerator, cfg *config.LLMConfig, logger *slog.Logger) *AccountClassifier {
	return &AccountClassifier{engine: newEngine(generator, cfg, logger)}
}

type accountOutput struct {
	BusinessPurpose string   `json:"business_purpose"`
	MainCategory    string   `json:"main_category"`
	SubCategory     string   `json:"sub_category"`
	Reason          string   `json:"reason"`
	Confidence      *float64 `json:"confidence"`
}

var accountSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"business_purpose": {Type: genai.TypeString},
		"main_category":    {Type: genai.TypeString},
		"sub_category":     {Type: genai.TypeString},
		"reason":           {Type: genai.TypeString},
		"confidence":       {Type: genai.TypeNumber},
	},
	Required: []string{"business_purpose", "main_category", "sub_category", "reason", "confidence"},
}

// Infer classifies a payment using the similarity context as few-shot history
func (c *AccountClassifier) Infer(ctx context.Context, in InferenceInput) (Result, error) {
	conv := newConversation(accountInferencePrompt)
	conv.ask(formatInferenceInput(in))
	return c.complete(ctx, conv)
}

// Correct re-derives the classification from a prior report and a human reply.
// Fields the human did not mention come back empty.
func (c *AccountClassifier) Correct(ctx context.Context, reportText, correctionText string) (Result, error) {
	conv := newConversation(accountCorrectionPrompt)
	conv.ask(fmt.Sprintf("## 이전에 알려준 추론 내용\n%s\n\n## 사용자가 채팅으로 요청한 수정 내용\n%s", reportText, correctionText))
	return c.complete(ctx, conv)
}

func (c *AccountClassifier) complete(ctx context.Context, conv *conversation) (Result, error) {
	raw, err := c.engine.run(ctx, conv, accountSchema)
	if err != nil {
		return Result{}, err
	}

	var out accountOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if out.Confidence == nil {
		return Result{}, fmt.Errorf("%w: missing confidence", ErrMalformedOutput)
	}

	cls := record.Classification{
		Purpose:       out.BusinessPurpose,
		CategoryMajor: out.MainCategory,
		CategoryMinor: out.SubCategory,
		Reason:        out.Reason,
		Confidence:    *out.Confidence,
	}
	if err := cls.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return Result{Classification: cls, ConversationID: conv.id}, nil
}

func formatInferenceInput(in InferenceInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "거래상대: %s, 금액: %s", in.Counterparty, formatAmount(in.Amount, in.Currency))
	if len(in.Context) > 0 {
		b.WriteString("\n\n유사한 거래 이력:\n")
		for i, e := range in.Context {
			fmt.Fprintf(&b, "%d. 거래상대: %s, 거래목적: %s, 계정과목(대): %s, 계정과목(소): %s, 사유: %s\n",
				i+1, e.Counterparty, e.Purpose, e.CategoryMajor, e.CategoryMinor, e.Reason)
		}
	}
	return b.String()
}

func formatAmount(amount *int64, currency *shared.Currency) string {
	if amount == nil || currency == nil {
		return "미확인"
	}
	return fmt.Sprintf("%d%s", *amount, *currency)
}
