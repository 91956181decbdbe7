package ports

import (
	"context"
	"time"

	"SentimentVision/internal/domain"
)

// ArticleSource pulls articles from one configured feed or page.
type ArticleSource interface {
	Fetch(ctx context.Context, source domain.Source) ([]domain.Article, error)
}

// ContentExtractor downloads a page and returns its readable content.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) (domain.Extracted, error)
}

// SentimentModel is the external context-aware scorer.
// Implementations never return Go errors; failures are classified into the outcome.
type SentimentModel interface {
	Complete(ctx context.Context, req domain.ModelRequest) domain.ModelOutcome
}

// ArticleScorer produces the final sentiment for an article.
type ArticleScorer interface {
	ScoreArticle(ctx context.Context, article domain.ScoringArticle) domain.ScoreResult
}

// ArticleTagger applies the tag catalog to one article and persists the result.
type ArticleTagger interface {
	Tag(ctx context.Context, articleID, clientID int64, text string) ([]string, error)
}

// TagCatalog returns enabled tags applicable to a client.
type TagCatalog interface {
	ApplicableTags(ctx context.Context, clientID int64) ([]domain.Tag, error)
}

// TagWriter stores tag assignments and the denormalized name lists.
type TagWriter interface {
	SaveTagAssignment(ctx context.Context, articleID int64, assignment domain.TagAssignment) error
}

// TagRepository manages the tag catalog.
type TagRepository interface {
	ListTags(ctx context.Context, filter domain.TagFilter) ([]domain.Tag, error)
	GetTag(ctx context.Context, id int64) (domain.Tag, error)
	CreateTag(ctx context.Context, tag domain.Tag) (int64, error)
	UpdateTag(ctx context.Context, id int64, update domain.TagUpdate) error
	DeleteTag(ctx context.Context, id int64) error
}

// ClientRepository syncs configured clients and resolves their ids.
type ClientRepository interface {
	SyncClients(ctx context.Context, clients []domain.Client) (map[string]int64, error)
	ClientIDByName(ctx context.Context, name string) (int64, error)
}

// SourceRepository syncs sources and audits fetches.
type SourceRepository interface {
	SyncSources(ctx context.Context, clientID int64, sources []domain.Source) (map[string]int64, error)
	SyncGlobalSources(ctx context.Context, sources []domain.Source) (map[string]int64, error)
	LogFetch(ctx context.Context, entry domain.FetchLog) error
}

// ArticleWriter stores freshly gathered articles, skipping duplicates.
type ArticleWriter interface {
	StoreArticle(ctx context.Context, article domain.Article) (id int64, created bool, err error)
}

// ScoreStore reads unscored articles and persists scores.
type ScoreStore interface {
	UnscoredArticles(ctx context.Context, limit int) ([]domain.ScoringArticle, error)
	SaveScore(ctx context.Context, articleID int64, result domain.ScoreResult, analyzedAt time.Time) error
}

// TagTargetStore selects articles for tagging runs.
type TagTargetStore interface {
	UntaggedArticles(ctx context.Context, clientID int64, limit int) ([]domain.Article, error)
	TaggableArticles(ctx context.Context, clientID int64, limit int) ([]domain.Article, error)
	ClearTags(ctx context.Context, clientID int64) error
}

// RefetchStore finds articles without content and writes recovered content.
type RefetchStore interface {
	EmptyArticles(ctx context.Context, limit int) ([]domain.Article, error)
	UpdateContent(ctx context.Context, article domain.Article) error
}

// Notifier streams run digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
