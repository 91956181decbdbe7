package scoring

import (
	"context"
	"log/slog"
	"strings"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
	"SentimentVision/internal/sentiment"
)

// PipelineDeps wires the scorers into the hybrid pipeline.
type PipelineDeps struct {
	Lexical    *sentiment.LexicalScorer
	Contextual *ContextualScorer
	Session    *Session
	Settings   config.SentimentConfig
	Logger     *slog.Logger
}

// Pipeline scores articles lexically and escalates inconclusive ones to the contextual scorer.
type Pipeline struct {
	lexical    *sentiment.LexicalScorer
	contextual *ContextualScorer
	policy     EscalationPolicy
	session    *Session
	thresholds domain.Thresholds
	logger     *slog.Logger
}

var _ ports.ArticleScorer = (*Pipeline)(nil)

// NewPipeline constructs the hybrid scoring component for one session.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	lexical := deps.Lexical
	if lexical == nil {
		lexical = sentiment.NewLexicalScorer(nil)
	}
	session := deps.Session
	if session == nil {
		session = NewSession()
	}
	return &Pipeline{
		lexical:    lexical,
		contextual: deps.Contextual,
		policy:     NewEscalationPolicy(deps.Settings),
		session:    session,
		thresholds: deps.Settings.Thresholds(),
		logger:     logger,
	}
}

// Session exposes the ledger the pipeline charges.
func (p *Pipeline) Session() *Session {
	return p.session
}

// ScoreArticle returns the final sentiment. It never fails: contextual problems fall back to the lexical result.
func (p *Pipeline) ScoreArticle(ctx context.Context, article domain.ScoringArticle) domain.ScoreResult {
	text := article.Text()
	if strings.TrimSpace(text) == "" {
		return domain.NeutralResult()
	}

	score := domain.Round4(p.lexical.Score(text))
	result := domain.ScoreResult{
		Score:  score,
		Label:  sentiment.Label(score, p.thresholds),
		Method: domain.MethodLexical,
	}

	decision := p.policy.Decide(score, article.Client, p.session)
	switch {
	case decision.Escalate && p.contextual != nil:
		if contextual, ok := p.contextual.Score(ctx, text, article.Title, article.Client); ok {
			p.logger.Debug("contextual score supersedes lexical",
				"article_id", article.ID, "lexical", score, "contextual", contextual.Score)
			result = contextual
		}
	case decision.Reason == ReasonBudgetExhausted:
		if p.session.markBudgetWarned() {
			p.logger.Warn("contextual scoring budget reached for this session",
				"spent_usd", p.session.SpentUSD(), "cap_usd", p.policy.DailyCap())
		}
	}

	return result
}
