// Package llm adapts hosted language model APIs to the sentiment model port.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

// ErrNoAPIKey is returned when the selected provider has no credential.
var ErrNoAPIKey = errors.New("llm: API key not configured")

// New builds the model client for the configured provider.
func New(cfg config.AIScoringConfig) (ports.SentimentModel, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		m, err := NewOpenAIModel(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.ProviderAnthropic, "":
		m, err := NewAnthropicModel(cfg)
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// classify maps a transport or API error to the closed outcome taxonomy.
// Only 401 disables the session; 403 (e.g. a model the key may not use) is a
// per-call failure.
func classify(err error) domain.OutcomeKind {
	if status, ok := statusCode(err); ok {
		switch status {
		case http.StatusUnauthorized:
			return domain.OutcomeAuthRejected
		case http.StatusTooManyRequests:
			return domain.OutcomeRateLimited
		default:
			return domain.OutcomeFailed
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.OutcomeUnreachable
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.OutcomeUnreachable
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return domain.OutcomeUnreachable
	}
	return domain.OutcomeFailed
}

func statusCode(err error) (int, bool) {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}
	return 0, false
}
