package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

// TaggerDeps wires tagging batches.
type TaggerDeps struct {
	Store     ports.TagTargetStore
	Tagger    ports.ArticleTagger
	BatchSize int
	Logger    *slog.Logger
}

// Tagger applies the tag catalog to stored articles.
type Tagger struct {
	store     ports.TagTargetStore
	tagger    ports.ArticleTagger
	batchSize int
	logger    *slog.Logger
}

// NewTagger constructs the batch tagger.
func NewTagger(deps TaggerDeps) *Tagger {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	batch := deps.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return &Tagger{store: deps.Store, tagger: deps.Tagger, batchSize: batch, logger: logger}
}

// TagUntagged tags articles with content and no tag rows. It returns how many received a tag.
func (t *Tagger) TagUntagged(ctx context.Context, clientID int64) (int, error) {
	articles, err := t.store.UntaggedArticles(ctx, clientID, t.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load untagged articles: %w", err)
	}
	return t.tagAll(ctx, clientID, articles)
}

// RetagAll clears the client's tags and tags every article with content again.
func (t *Tagger) RetagAll(ctx context.Context, clientID int64) (int, error) {
	if err := t.store.ClearTags(ctx, clientID); err != nil {
		return 0, fmt.Errorf("clear tags: %w", err)
	}
	articles, err := t.store.TaggableArticles(ctx, clientID, t.batchSize)
	if err != nil {
		return 0, fmt.Errorf("load taggable articles: %w", err)
	}
	return t.tagAll(ctx, clientID, articles)
}

func (t *Tagger) tagAll(ctx context.Context, clientID int64, articles []domain.Article) (int, error) {
	if len(articles) == 0 {
		t.logger.Info("no articles to tag", "client_id", clientID)
		return 0, nil
	}
	tagged := 0
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return tagged, err
		}
		names, err := t.tagger.Tag(ctx, article.ID, article.ClientID, article.TaggingText())
		if err != nil {
			t.logger.Error("failed to tag article", "article_id", article.ID, "error", err)
			continue
		}
		if len(names) > 0 {
			tagged++
		}
	}
	t.logger.Info("tagging complete", "client_id", clientID, "articles", len(articles), "tagged", tagged)
	return tagged, nil
}
