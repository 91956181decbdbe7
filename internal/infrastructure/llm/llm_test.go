package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaioption "github.com/openai/openai-go/option"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
)

func aiConfig(provider, baseURL string) config.AIScoringConfig {
	return config.AIScoringConfig{
		Enabled:    true,
		Provider:   provider,
		APIKey:     "test-key",
		BaseURL:    baseURL,
		MaxTokens:  100,
		MaxRetries: 0,
	}
}

func scoringRequest() domain.ModelRequest {
	return domain.ModelRequest{System: "system prompt", User: "Company: Acme", Model: "test-model", MaxTokens: 100}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Parallel()

	for _, provider := range []string{config.ProviderAnthropic, config.ProviderOpenAI} {
		cfg := aiConfig(provider, "")
		cfg.APIKey = " "
		if _, err := New(cfg); !errors.Is(err, ErrNoAPIKey) {
			t.Fatalf("%s: expected ErrNoAPIKey, got %v", provider, err)
		}
	}
	if _, err := New(config.AIScoringConfig{Provider: "mistral", APIKey: "k"}); err == nil {
		t.Fatalf("expected unknown provider error")
	}
}

func TestAnthropicModelCompletes(t *testing.T) {
	t.Parallel()

	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "test-key" {
			t.Errorf("unexpected api key %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"test-model",
			"content":[{"type":"text","text":"{\"score\": 0.4, \"rationale\": \"ok\"}"}],
			"stop_reason":"end_turn","usage":{"input_tokens":120,"output_tokens":15}}`)
	}))
	defer server.Close()

	model, err := NewAnthropicModel(aiConfig(config.ProviderAnthropic, server.URL+"/"))
	if err != nil {
		t.Fatalf("NewAnthropicModel error: %v", err)
	}
	outcome := model.Complete(context.Background(), scoringRequest())
	if outcome.Kind != domain.OutcomeOK {
		t.Fatalf("expected ok outcome, got %s: %v", outcome.Kind, outcome.Err)
	}
	if outcome.Text != `{"score": 0.4, "rationale": "ok"}` {
		t.Fatalf("unexpected text %q", outcome.Text)
	}
	if outcome.Usage != (domain.TokenUsage{InputTokens: 120, OutputTokens: 15}) {
		t.Fatalf("unexpected usage %+v", outcome.Usage)
	}
	if !strings.Contains(body, `"system prompt"`) || !strings.Contains(body, `"max_tokens":100`) {
		t.Fatalf("request body missing fields: %s", body)
	}
}

func TestAnthropicModelClassifiesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   domain.OutcomeKind
	}{
		{http.StatusUnauthorized, domain.OutcomeAuthRejected},
		{http.StatusForbidden, domain.OutcomeFailed},
		{http.StatusTooManyRequests, domain.OutcomeRateLimited},
		{http.StatusBadRequest, domain.OutcomeFailed},
		{http.StatusInternalServerError, domain.OutcomeFailed},
	}
	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"type":"error","error":{"type":"api_error","message":"nope"}}`)
			}))
			defer server.Close()

			model, err := NewAnthropicModel(aiConfig(config.ProviderAnthropic, server.URL+"/"),
				anthropicoption.WithMaxRetries(0))
			if err != nil {
				t.Fatalf("NewAnthropicModel error: %v", err)
			}
			outcome := model.Complete(context.Background(), scoringRequest())
			if outcome.Kind != tc.want {
				t.Fatalf("status %d: expected %s, got %s (%v)", tc.status, tc.want, outcome.Kind, outcome.Err)
			}
			if outcome.Err == nil {
				t.Fatalf("failure outcome must carry the error")
			}
		})
	}
}

func TestAnthropicModelUnreachable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	model, err := NewAnthropicModel(aiConfig(config.ProviderAnthropic, addr+"/"))
	if err != nil {
		t.Fatalf("NewAnthropicModel error: %v", err)
	}
	outcome := model.Complete(context.Background(), scoringRequest())
	if outcome.Kind != domain.OutcomeUnreachable {
		t.Fatalf("expected unreachable, got %s (%v)", outcome.Kind, outcome.Err)
	}
}

func TestOpenAIModelCompletes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"score\": -0.2}"}}],
			"usage":{"prompt_tokens":90,"completion_tokens":8,"total_tokens":98}}`)
	}))
	defer server.Close()

	model, err := NewOpenAIModel(aiConfig(config.ProviderOpenAI, server.URL+"/"))
	if err != nil {
		t.Fatalf("NewOpenAIModel error: %v", err)
	}
	outcome := model.Complete(context.Background(), scoringRequest())
	if outcome.Kind != domain.OutcomeOK {
		t.Fatalf("expected ok outcome, got %s: %v", outcome.Kind, outcome.Err)
	}
	if outcome.Text != `{"score": -0.2}` {
		t.Fatalf("unexpected text %q", outcome.Text)
	}
	if outcome.Usage != (domain.TokenUsage{InputTokens: 90, OutputTokens: 8}) {
		t.Fatalf("unexpected usage %+v", outcome.Usage)
	}
}

func TestOpenAIModelRateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer server.Close()

	model, err := NewOpenAIModel(aiConfig(config.ProviderOpenAI, server.URL+"/"), openaioption.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewOpenAIModel error: %v", err)
	}
	if got := model.Complete(context.Background(), scoringRequest()).Kind; got != domain.OutcomeRateLimited {
		t.Fatalf("expected rate limited, got %s", got)
	}
}

func TestClassifyContextDeadline(t *testing.T) {
	t.Parallel()

	if got := classify(fmt.Errorf("call: %w", context.DeadlineExceeded)); got != domain.OutcomeUnreachable {
		t.Fatalf("expected unreachable, got %s", got)
	}
	if got := classify(errors.New("boom")); got != domain.OutcomeFailed {
		t.Fatalf("expected failed, got %s", got)
	}
}
