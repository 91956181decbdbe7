package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
	"SentimentVision/internal/scoring"
)

// progressEvery is how often batch progress is logged.
const progressEvery = 50

// AnalyzerDeps wires the scoring batch.
type AnalyzerDeps struct {
	Store     ports.ScoreStore
	Scorer    ports.ArticleScorer
	Session   *scoring.Session
	BatchSize int
	Logger    *slog.Logger
	Now       func() time.Time
}

// Analyzer scores articles that have no sentiment yet.
type Analyzer struct {
	store     ports.ScoreStore
	scorer    ports.ArticleScorer
	session   *scoring.Session
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

// AnalyzeReport summarizes one scoring batch.
type AnalyzeReport struct {
	Selected   int
	Scored     int
	Failed     int
	Contextual int
	Labels     map[domain.Label]int
	Session    scoring.SessionStats
	// Notable holds the most negative articles of the batch, lowest score first.
	Notable []ScoredArticle
}

// ScoredArticle is a scored article kept for the run digest.
type ScoredArticle struct {
	ID     int64
	Title  string
	Client string
	Result domain.ScoreResult
}

const notableLimit = 5

// NewAnalyzer constructs the batch scorer.
func NewAnalyzer(deps AnalyzerDeps) *Analyzer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &Analyzer{
		store:     deps.Store,
		scorer:    deps.Scorer,
		session:   deps.Session,
		batchSize: batch,
		logger:    logger,
		now:       now,
	}
}

// AnalyzeUnscored scores up to one batch of unscored articles. A failure to save one
// article is logged and does not stop the batch.
func (a *Analyzer) AnalyzeUnscored(ctx context.Context) (AnalyzeReport, error) {
	report := AnalyzeReport{Labels: map[domain.Label]int{}}

	articles, err := a.store.UnscoredArticles(ctx, a.batchSize)
	if err != nil {
		return report, fmt.Errorf("load unscored articles: %w", err)
	}
	report.Selected = len(articles)
	if len(articles) == 0 {
		a.logger.Info("no unscored articles")
		return report, nil
	}
	a.logger.Info("scoring articles", "count", len(articles))

	for i, article := range articles {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		result := a.scorer.ScoreArticle(ctx, article)
		if err := a.store.SaveScore(ctx, article.ID, result, a.now().UTC()); err != nil {
			report.Failed++
			a.logger.Error("failed to save score", "article_id", article.ID, "error", err)
			continue
		}
		report.Scored++
		report.Labels[result.Label]++
		if result.Method == domain.MethodContextual {
			report.Contextual++
		}
		if result.Label == domain.LabelNegative {
			report.Notable = keepNotable(report.Notable, ScoredArticle{
				ID: article.ID, Title: article.Title, Client: article.Client.Name, Result: result,
			})
		}
		a.logger.Debug("article scored", "article_id", article.ID, "score", result.Score,
			"label", result.Label, "method", result.Method)

		if (i+1)%progressEvery == 0 {
			a.logger.Info("scoring progress", "done", i+1, "total", len(articles))
		}
	}

	if a.session != nil {
		report.Session = a.session.Stats()
		a.logger.Info("contextual scoring session",
			"ai_calls", report.Session.AICalls,
			"estimated_cost_usd", report.Session.EstimatedCostUSD,
			"disabled", report.Session.Disabled,
		)
	}
	a.logger.Info("scoring complete", "scored", report.Scored, "failed", report.Failed,
		"positive", report.Labels[domain.LabelPositive],
		"neutral", report.Labels[domain.LabelNeutral],
		"negative", report.Labels[domain.LabelNegative],
	)
	return report, nil
}

// keepNotable inserts the article in score order and trims the list.
func keepNotable(list []ScoredArticle, item ScoredArticle) []ScoredArticle {
	i := sort.Search(len(list), func(i int) bool { return list[i].Result.Score > item.Result.Score })
	list = append(list, ScoredArticle{})
	copy(list[i+1:], list[i:])
	list[i] = item
	if len(list) > notableLimit {
		list = list[:notableLimit]
	}
	return list
}
