package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"SentimentVision/internal/domain"
)

// summaryLength bounds the summary derived from content when a feed gave none.
const summaryLength = 500

func insertArticleQuery(a domain.Article) sq.InsertBuilder {
	summary := a.Summary
	if summary == "" {
		summary = truncate(a.Content(), summaryLength)
	}
	var sourceID any
	if a.SourceID != 0 {
		sourceID = a.SourceID
	}
	return psql.Insert("articles").
		Columns("client_id", "source_id", "url", "title", "author", "published_date",
			"content_text", "summary", "image_url", "word_count", "language", "media_tier").
		Values(a.ClientID, sourceID, a.URL, a.Title, a.Author, a.PublishedAt,
			nullString(a.ContentText), summary, a.ImageURL, a.WordCount, a.Language, a.MediaTier).
		Suffix("ON CONFLICT (client_id, url) DO NOTHING RETURNING id")
}

func unscoredQuery(limit int) sq.SelectBuilder {
	return psql.Select("a.id", "a.title", "a.content_text", "c.name", "c.industries").
		From("articles a").
		Join("clients c ON c.id = a.client_id").
		Where(sq.Eq{"a.sentiment_score": nil}).
		OrderBy("a.fetched_at DESC").
		Limit(uint64(limit))
}

func saveScoreQuery(articleID int64, result domain.ScoreResult, analyzedAt time.Time) sq.UpdateBuilder {
	return psql.Update("articles").
		Set("sentiment_score", result.Score).
		Set("sentiment_label", string(result.Label)).
		Set("score_method", string(result.Method)).
		Set("analyzed_at", analyzedAt).
		Where(sq.Eq{"id": articleID})
}

// articleColumns is the projection shared by tagging and refetch selections.
var articleColumns = []string{"a.id", "a.client_id", "a.url", "a.title", "a.author", "a.published_date", "a.content_text"}

func withContent(b sq.SelectBuilder) sq.SelectBuilder {
	return b.Where(sq.And{sq.NotEq{"a.content_text": nil}, sq.NotEq{"a.content_text": ""}})
}

func forClient(b sq.SelectBuilder, clientID int64) sq.SelectBuilder {
	if clientID == 0 {
		return b
	}
	return b.Where(sq.Eq{"a.client_id": clientID})
}

func untaggedQuery(clientID int64, limit int) sq.SelectBuilder {
	b := withContent(psql.Select(articleColumns...).From("articles a")).
		Where("NOT EXISTS (SELECT 1 FROM article_tags t WHERE t.article_id = a.id)")
	return forClient(b, clientID).OrderBy("a.id").Limit(uint64(limit))
}

func taggableQuery(clientID int64, limit int) sq.SelectBuilder {
	b := withContent(psql.Select(articleColumns...).From("articles a"))
	return forClient(b, clientID).OrderBy("a.id").Limit(uint64(limit))
}

func emptyArticlesQuery(limit int) sq.SelectBuilder {
	return psql.Select(articleColumns...).
		From("articles a").
		Where(sq.Or{sq.Eq{"a.content_text": nil}, sq.Eq{"a.content_text": ""}, sq.Eq{"a.word_count": 0}}).
		OrderBy("a.fetched_at DESC").
		Limit(uint64(limit))
}

func updateContentQuery(a domain.Article) sq.UpdateBuilder {
	content := a.Content()
	return psql.Update("articles").
		Set("content_text", content).
		Set("word_count", a.WordCount).
		Set("summary", truncate(content, summaryLength)).
		Set("title", a.Title).
		Set("author", a.Author).
		Set("published_date", a.PublishedAt).
		Where(sq.Eq{"id": a.ID})
}

// StoreArticle inserts the article unless (client_id, url) already exists.
func (r *PostgresRepository) StoreArticle(ctx context.Context, article domain.Article) (int64, bool, error) {
	id, err := r.returningID(ctx, insertArticleQuery(article))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("insert article: %w", err)
	}
	return id, true, nil
}

// UnscoredArticles returns articles without a sentiment score, newest fetched first.
func (r *PostgresRepository) UnscoredArticles(ctx context.Context, limit int) ([]domain.ScoringArticle, error) {
	articles, err := queryMany(ctx, r.db, unscoredQuery(limit), func(rows *sql.Rows) (domain.ScoringArticle, error) {
		var (
			a          domain.ScoringArticle
			content    sql.NullString
			industries pq.StringArray
		)
		if err := rows.Scan(&a.ID, &a.Title, &content, &a.Client.Name, &industries); err != nil {
			return a, err
		}
		a.ContentText = stringPtr(content)
		a.Client.Industries = []string(industries)
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("query unscored: %w", err)
	}
	return articles, nil
}

// SaveScore persists the sentiment result.
func (r *PostgresRepository) SaveScore(ctx context.Context, articleID int64, result domain.ScoreResult, analyzedAt time.Time) error {
	res, err := exec(ctx, r.db, saveScoreQuery(articleID, result, analyzedAt))
	if err != nil {
		return fmt.Errorf("save score for %d: %w", articleID, err)
	}
	return expectRow(res, articleID)
}

// UntaggedArticles returns articles with content and no tag rows. A zero clientID selects all clients.
func (r *PostgresRepository) UntaggedArticles(ctx context.Context, clientID int64, limit int) ([]domain.Article, error) {
	articles, err := queryMany(ctx, r.db, untaggedQuery(clientID, limit), scanArticle)
	if err != nil {
		return nil, fmt.Errorf("query untagged: %w", err)
	}
	return articles, nil
}

// TaggableArticles returns every article with content. A zero clientID selects all clients.
func (r *PostgresRepository) TaggableArticles(ctx context.Context, clientID int64, limit int) ([]domain.Article, error) {
	articles, err := queryMany(ctx, r.db, taggableQuery(clientID, limit), scanArticle)
	if err != nil {
		return nil, fmt.Errorf("query taggable: %w", err)
	}
	return articles, nil
}

// EmptyArticles returns articles whose content is missing, newest fetched first.
func (r *PostgresRepository) EmptyArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	articles, err := queryMany(ctx, r.db, emptyArticlesQuery(limit), scanArticle)
	if err != nil {
		return nil, fmt.Errorf("query empty articles: %w", err)
	}
	return articles, nil
}

// UpdateContent writes recovered content and metadata.
func (r *PostgresRepository) UpdateContent(ctx context.Context, article domain.Article) error {
	res, err := exec(ctx, r.db, updateContentQuery(article))
	if err != nil {
		return fmt.Errorf("update content for %d: %w", article.ID, err)
	}
	return expectRow(res, article.ID)
}

func scanArticle(rows *sql.Rows) (domain.Article, error) {
	var (
		a         domain.Article
		published sql.NullTime
		content   sql.NullString
	)
	if err := rows.Scan(&a.ID, &a.ClientID, &a.URL, &a.Title, &a.Author, &published, &content); err != nil {
		return a, err
	}
	if published.Valid {
		t := published.Time
		a.PublishedAt = &t
	}
	a.ContentText = stringPtr(content)
	return a, nil
}

func expectRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("article %d: %w", id, ErrNotFound)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
