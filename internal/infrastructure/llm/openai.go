package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

// OpenAIModel implements ports.SentimentModel backed by OpenAI-compatible chat completions.
type OpenAIModel struct {
	client openai.Client
}

var _ ports.SentimentModel = (*OpenAIModel)(nil)

// NewOpenAIModel builds a client from configuration. Extra options are applied last.
func NewOpenAIModel(cfg config.AIScoringConfig, opts ...option.RequestOption) (*OpenAIModel, error) {
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
	return &OpenAIModel{client: openai.NewClient(append(base, opts...)...)}, nil
}

// Complete sends one scoring request and reports the outcome.
func (m *OpenAIModel) Complete(ctx context.Context, req domain.ModelRequest) domain.ModelOutcome {
	resp, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		MaxCompletionTokens: openai.Int(int64(req.MaxTokens)),
		Temperature:         openai.Float(req.Temperature),
	})
	if err != nil {
		return domain.Failed(classify(err), err)
	}
	usage := domain.TokenUsage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	// An empty completion is still billed; the parser rejects it downstream.
	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	return domain.Completed(text, usage)
}
