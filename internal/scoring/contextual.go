package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"strings"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
	"SentimentVision/internal/sentiment"
)

// SystemPrompt instructs the model to judge coverage from the client's perspective.
const SystemPrompt = `You are a media sentiment analyst for PR and reputation monitoring. ` +
	`You evaluate news articles from the perspective of a specific company to determine ` +
	`if the coverage is positive, negative, or neutral FOR THAT COMPANY.

Respond with ONLY a JSON object: {"score": <float from -1.0 to 1.0>, "rationale": "<one sentence>"}

Scoring guide:
- Positive (0.3 to 1.0): Article portrays the company/industry favorably, announces growth, wins, partnerships, or positive trends benefiting them.
- Neutral (-0.1 to 0.1): Article mentions the company/industry in passing or is purely factual with no clear positive or negative implication.
- Negative (-1.0 to -0.3): Article covers regulatory threats, lawsuits, environmental concerns, operational failures, community opposition, or competitive losses.
- Mild positive/negative (0.1 to 0.3 / -0.3 to -0.1): Indirect or minor impact.`

var (
	errMalformedResponse = errors.New("malformed model response")

	fenceOpen  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// ContextualScorer asks an external model for perspective-aware sentiment.
// Every failure is absorbed: callers only see whether a result was produced.
type ContextualScorer struct {
	model      ports.SentimentModel
	session    *Session
	cfg        config.AIScoringConfig
	thresholds domain.Thresholds
	logger     *slog.Logger
}

// ContextualDeps wires the scorer collaborators. A nil Model means no credential was configured.
type ContextualDeps struct {
	Model    ports.SentimentModel
	Session  *Session
	Settings config.SentimentConfig
	Logger   *slog.Logger
}

// NewContextualScorer builds a scorer bound to one session.
func NewContextualScorer(deps ContextualDeps) *ContextualScorer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	session := deps.Session
	if session == nil {
		session = NewSession()
	}
	return &ContextualScorer{
		model:      deps.Model,
		session:    session,
		cfg:        deps.Settings.AIScoring,
		thresholds: deps.Settings.Thresholds(),
		logger:     logger,
	}
}

// Score returns the contextual result, or false when the caller should keep the lexical one.
func (s *ContextualScorer) Score(ctx context.Context, text, title string, client domain.ClientContext) (domain.ScoreResult, bool) {
	if s.session.Disabled() {
		return domain.ScoreResult{}, false
	}
	if s.model == nil {
		if s.session.Disable("missing credential") {
			s.logger.Error("contextual scoring disabled for this run", "reason", "no API key configured",
				"provider", s.cfg.Provider)
		}
		return domain.ScoreResult{}, false
	}
	if strings.TrimSpace(text) == "" {
		return domain.ScoreResult{}, false
	}

	req := domain.ModelRequest{
		System:      SystemPrompt,
		User:        BuildUserMessage(text, title, client, s.cfg.MaxWords),
		Model:       s.cfg.ModelName(),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	outcome := s.model.Complete(callCtx, req)
	switch outcome.Kind {
	case domain.OutcomeOK:
		cost := EstimateCost(outcome.Usage, s.cfg)
		s.session.Record(cost)
		return s.parse(outcome, cost)
	case domain.OutcomeAuthRejected:
		if s.session.Disable("authentication rejected") {
			s.logger.Error("provider rejected credentials, contextual scoring disabled for this run",
				"provider", s.cfg.Provider, "error", outcome.Err)
		}
	case domain.OutcomeRateLimited:
		s.logger.Warn("provider rate limit hit, falling back to lexical score", "error", outcome.Err)
	case domain.OutcomeUnreachable:
		s.logger.Warn("provider unreachable, falling back to lexical score", "error", outcome.Err)
	case domain.OutcomeFailed:
		s.logger.Error("unexpected contextual scoring error", "error", outcome.Err)
	default:
		s.logger.Error("unknown model outcome", "kind", outcome.Kind.String())
	}
	return domain.ScoreResult{}, false
}

func (s *ContextualScorer) parse(outcome domain.ModelOutcome, cost float64) (domain.ScoreResult, bool) {
	score, rationale, err := ParseResponse(outcome.Text)
	if err != nil {
		s.logger.Warn("failed to parse model response", "error", err, "raw", truncateRunes(outcome.Text, 200))
		return domain.ScoreResult{}, false
	}
	if rationale != "" {
		s.logger.Debug("contextual rationale", "rationale", rationale)
	}
	s.logger.Debug("contextual score",
		"score", score,
		"input_tokens", outcome.Usage.InputTokens,
		"output_tokens", outcome.Usage.OutputTokens,
		"cost_usd", cost,
	)
	return domain.ScoreResult{
		Score:  score,
		Label:  sentiment.Label(score, s.thresholds),
		Method: domain.MethodContextual,
	}, true
}

// BuildUserMessage renders the per-article prompt.
func BuildUserMessage(text, title string, client domain.ClientContext, maxWords int) string {
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", client.Name)
	fmt.Fprintf(&b, "Industry: %s\n\n", strings.Join(client.Industries, ", "))
	fmt.Fprintf(&b, "Article title: %s\n\n", title)
	fmt.Fprintf(&b, "Article text (first %d words):\n%s\n\n", maxWords, Truncate(text, maxWords))
	fmt.Fprintf(&b, "Score this article's sentiment FROM %s's PERSPECTIVE.", client.Name)
	return b.String()
}

// Truncate keeps the first maxWords whitespace-separated words and appends "..." when it cut anything.
func Truncate(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords <= 0 || len(words) <= maxWords {
		return text
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

// EstimateCost prices a call from its token usage.
func EstimateCost(usage domain.TokenUsage, cfg config.AIScoringConfig) float64 {
	return float64(usage.InputTokens)*cfg.InputCostPerMTok/1e6 +
		float64(usage.OutputTokens)*cfg.OutputCostPerMTok/1e6
}

// ParseResponse extracts a clamped, rounded score and the rationale from model output.
// Code fences are tolerated; a missing or non-numeric score, or anything after the
// object, is an error.
func ParseResponse(raw string) (float64, string, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = fenceOpen.ReplaceAllString(cleaned, "")
	cleaned = fenceClose.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return 0, "", fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return 0, "", fmt.Errorf("%w: trailing data after object", errMalformedResponse)
	}

	value, ok := payload["score"]
	if !ok {
		return 0, "", fmt.Errorf("%w: score field missing", errMalformedResponse)
	}
	score, err := toFloat(value)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", errMalformedResponse, err)
	}

	score = math.Max(-1, math.Min(1, score))
	rationale, _ := payload["rationale"].(string)
	return domain.Round4(score), rationale, nil
}

func toFloat(v any) (float64, error) {
	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("score has non-numeric type %T", v)
	}
	if err != nil {
		return 0, fmt.Errorf("score is not a number: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("score is not finite")
	}
	return f, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
