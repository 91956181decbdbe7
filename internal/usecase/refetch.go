package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

// RefetcherDeps wires content recovery.
type RefetcherDeps struct {
	Store     ports.RefetchStore
	Extractor ports.ContentExtractor
	Tagger    *Tagger
	Limit     int
	Logger    *slog.Logger
}

// Refetcher downloads pages for stored articles that have no content.
type Refetcher struct {
	store     ports.RefetchStore
	extractor ports.ContentExtractor
	tagger    *Tagger
	limit     int
	logger    *slog.Logger
}

// RefetchReport summarizes one recovery run.
type RefetchReport struct {
	Selected int
	Updated  int
	Failed   int
	Empty    int
	Retagged int
}

// NewRefetcher constructs the recovery use case.
func NewRefetcher(deps RefetcherDeps) *Refetcher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := deps.Limit
	if limit <= 0 {
		limit = 100
	}
	return &Refetcher{
		store:     deps.Store,
		extractor: deps.Extractor,
		tagger:    deps.Tagger,
		limit:     limit,
		logger:    logger,
	}
}

// RefetchEmpty re-extracts articles with empty content and retags every affected client.
func (r *Refetcher) RefetchEmpty(ctx context.Context) (RefetchReport, error) {
	var report RefetchReport

	articles, err := r.store.EmptyArticles(ctx, r.limit)
	if err != nil {
		return report, fmt.Errorf("load empty articles: %w", err)
	}
	report.Selected = len(articles)
	if len(articles) == 0 {
		r.logger.Info("no articles without content")
		return report, nil
	}
	r.logger.Info("refetching articles", "count", len(articles))

	touched := map[int64]struct{}{}
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		extracted, err := r.extractor.Extract(ctx, article.URL)
		if err != nil {
			report.Failed++
			r.logger.Warn("failed to refetch article", "article_id", article.ID, "url", article.URL, "error", err)
			continue
		}
		if strings.TrimSpace(extracted.ContentText) == "" {
			report.Empty++
			r.logger.Debug("page still has no content", "article_id", article.ID, "url", article.URL)
			continue
		}

		updated := applyExtracted(article, extracted)
		if err := r.store.UpdateContent(ctx, updated); err != nil {
			report.Failed++
			r.logger.Error("failed to save refetched content", "article_id", article.ID, "error", err)
			continue
		}
		report.Updated++
		touched[article.ClientID] = struct{}{}
		r.logger.Debug("article content recovered", "article_id", article.ID, "words", updated.WordCount)
	}

	if report.Updated > 0 && r.tagger != nil {
		for clientID := range touched {
			n, err := r.tagger.RetagAll(ctx, clientID)
			if err != nil {
				r.logger.Error("failed to retag client after refetch", "client_id", clientID, "error", err)
				continue
			}
			report.Retagged += n
		}
	}

	r.logger.Info("refetch complete", "updated", report.Updated, "failed", report.Failed,
		"empty", report.Empty, "retagged", report.Retagged)
	return report, nil
}

// applyExtracted replaces the body and fills metadata the article is missing.
func applyExtracted(a domain.Article, e domain.Extracted) domain.Article {
	content := e.ContentText
	a.ContentText = &content
	a.WordCount = e.WordCount
	if a.WordCount == 0 {
		a.WordCount = len(strings.Fields(content))
	}
	if a.Title == "" {
		a.Title = e.Title
	}
	if a.Author == "" {
		a.Author = e.Author
	}
	if a.PublishedAt == nil {
		a.PublishedAt = e.PublishedAt
	}
	if a.ImageURL == "" {
		a.ImageURL = e.ImageURL
	}
	if a.Language == "" {
		a.Language = e.Language
	}
	return a
}
