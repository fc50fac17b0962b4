// Package classifier wraps the Gemini models that turn notification text into
// structured fields and assign account categories.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/payment-message-ledger/internal/config"
	"google.golang.org/genai"
)

const DefaultModelName = "gemini-2.5-flash"

var (
	ErrNoOutput        = errors.New("classifier returned no output")
	ErrMalformedOutput = errors.New("classifier returned malformed output")
)

// ContentGenerator is the part of genai.Models the classifiers call
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var _ ContentGenerator = (*genai.Models)(nil)

// NewGeminiClient creates the genai client shared by both classifiers
func NewGeminiClient(ctx context.Context, cfg *config.LLMConfig) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

// engine runs one conversation against the model with a bounded deadline
type engine struct {
	generator ContentGenerator
	model     string
	timeout   time.Duration
	logger    *slog.Logger
}

func newEngine(generator ContentGenerator, cfg *config.LLMConfig, logger *slog.Logger) engine {
	model := cfg.Model
	if model == "" {
		model = DefaultModelName
	}
	return engine{generator: generator, model: model, timeout: cfg.CallTimeout, logger: logger}
}

func (e engine) run(ctx context.Context, conv *conversation, schema *genai.Schema) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: conv.system,
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
	}

	start := time.Now()
	resp, err := e.generator.GenerateContent(ctx, e.model, conv.contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	e.logger.Debug("Classifier call finished",
		"conversation_id", conv.id,
		"model", e.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp == nil {
		return "", ErrNoOutput
	}
	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return "", ErrNoOutput
	}
	return cleanModelJSON(raw), nil
}

// cleanModelJSON strips markdown fences and surrounding chatter around a JSON object
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

func nullable() *bool {
	t := true
	return &t
}
