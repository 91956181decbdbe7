package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

// AnthropicModel implements ports.SentimentModel backed by the Messages API.
type AnthropicModel struct {
	client anthropic.Client
}

var _ ports.SentimentModel = (*AnthropicModel)(nil)

// NewAnthropicModel builds a client from configuration. Extra options are applied last.
func NewAnthropicModel(cfg config.AIScoringConfig, opts ...option.RequestOption) (*AnthropicModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicModel{client: anthropic.NewClient(append(base, opts...)...)}, nil
}

// Complete sends one scoring request and reports the outcome.
func (m *AnthropicModel) Complete(ctx context.Context, req domain.ModelRequest) domain.ModelOutcome {
	msg, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		System: []anthropic.TextBlockParam{
			{Text: req.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
		Temperature: anthropic.Float(req.Temperature),
	})
	if err != nil {
		return domain.Failed(classify(err), err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	usage := domain.TokenUsage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}
	return domain.Completed(text.String(), usage)
}
