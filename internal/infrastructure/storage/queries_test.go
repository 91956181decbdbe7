package storage

import (
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/go-playground/assert/v2"

	"SentimentVision/internal/domain"
)

func toSQL(t *testing.T, b sq.Sqlizer) (string, []any) {
	t.Helper()
	query, args, err := b.ToSql()
	if err != nil {
		t.Fatalf("ToSql error: %v", err)
	}
	return query, args
}

func assertContains(t *testing.T, query string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(query, p) {
			t.Fatalf("query %q does not contain %q", query, p)
		}
	}
}

func TestUnscoredQuery(t *testing.T) {
	t.Parallel()

	query, args := toSQL(t, unscoredQuery(500))
	assert.Equal(t, query, "SELECT a.id, a.title, a.content_text, c.name, c.industries FROM articles a "+
		"JOIN clients c ON c.id = a.client_id WHERE a.sentiment_score IS NULL "+
		"ORDER BY a.fetched_at DESC LIMIT 500")
	assert.Equal(t, len(args), 0)
}

func TestInsertArticleQueryDerivesSummary(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("x", 700)
	query, args := toSQL(t, insertArticleQuery(domain.Article{
		ClientID:    3,
		URL:         "https://example.org/a",
		ContentText: &content,
		MediaTier:   1,
	}))
	assertContains(t, query, "INSERT INTO articles", "ON CONFLICT (client_id, url) DO NOTHING RETURNING id", "$12")
	assert.Equal(t, args[0], int64(3))
	if args[1] != nil {
		t.Fatalf("zero source id should be stored as NULL, got %v", args[1])
	}
	assert.Equal(t, len(args[7].(string)), summaryLength)
}

func TestSaveScoreQuery(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	query, args := toSQL(t, saveScoreQuery(9, domain.ScoreResult{Score: -0.31, Label: domain.LabelNegative, Method: domain.MethodContextual}, at))
	assert.Equal(t, query, "UPDATE articles SET sentiment_score = $1, sentiment_label = $2, score_method = $3, analyzed_at = $4 WHERE id = $5")
	assert.Equal(t, args, []any{-0.31, "negative", "contextual", at, int64(9)})
}

func TestUntaggedQueryScopesClient(t *testing.T) {
	t.Parallel()

	all, _ := toSQL(t, untaggedQuery(0, 100))
	if strings.Contains(all, "a.client_id =") {
		t.Fatalf("zero client should not filter: %s", all)
	}
	assertContains(t, all, "NOT EXISTS (SELECT 1 FROM article_tags t WHERE t.article_id = a.id)",
		"a.content_text IS NOT NULL", "LIMIT 100")

	one, args := toSQL(t, untaggedQuery(4, 100))
	assertContains(t, one, "a.client_id = $2")
	assert.Equal(t, args, []any{"", int64(4)})
}

func TestEmptyArticlesQuery(t *testing.T) {
	t.Parallel()

	query, args := toSQL(t, emptyArticlesQuery(50))
	assertContains(t, query, "(a.content_text IS NULL OR a.content_text = $1 OR a.word_count = $2)",
		"ORDER BY a.fetched_at DESC LIMIT 50")
	assert.Equal(t, args, []any{"", 0})
}

func TestApplicableTagsQuery(t *testing.T) {
	t.Parallel()

	query, args := toSQL(t, applicableTagsQuery(7))
	assertContains(t, query, "enabled = $1", "(scope = $2 OR (scope = $3 AND client_id = $4))")
	assert.Equal(t, args, []any{true, "global", "client", int64(7)})
}

func TestUpdateTagQueryOnlySetsProvidedFields(t *testing.T) {
	t.Parallel()

	enabled := false
	query, args := toSQL(t, updateTagQuery(5, domain.TagUpdate{Enabled: &enabled}))
	assert.Equal(t, query, "UPDATE tags SET updated_at = NOW(), enabled = $1 WHERE id = $2")
	assert.Equal(t, args, []any{false, int64(5)})
}

func TestSaveTagAssignmentQueries(t *testing.T) {
	t.Parallel()

	query, _ := toSQL(t, insertArticleTagQuery(1, domain.TagMatch{TagID: 2, Confidence: 1, MatchedKeyword: "carbon", MatchMethod: domain.MatchKeyword}))
	assertContains(t, query, "ON CONFLICT (article_id, tag_id) DO NOTHING")

	query, args := toSQL(t, denormalizedTagsQuery(1, domain.TagAssignment{ESG: []string{"ESG-Environment"}}))
	assert.Equal(t, query, "UPDATE articles SET esg_tags = $1, tags = $2 WHERE id = $3")
	assert.Equal(t, len(args), 3)
}

func TestClearTagsQueries(t *testing.T) {
	t.Parallel()

	query, args := toSQL(t, clearArticleTagsQuery(3))
	assert.Equal(t, query, "DELETE FROM article_tags WHERE article_id IN (SELECT id FROM articles WHERE client_id = $1)")
	assert.Equal(t, args, []any{int64(3)})

	query, _ = toSQL(t, clearDenormalizedQuery(0))
	assert.Equal(t, query, "UPDATE articles SET esg_tags = '{}', tags = '{}'")
}

func TestUpsertGlobalSourceQuery(t *testing.T) {
	t.Parallel()

	query, args := toSQL(t, upsertGlobalSourceQuery(domain.Source{Name: "Reuters", Type: domain.SourceRSS, URL: "https://r.example/rss", MediaTier: 1}))
	assertContains(t, query, "ON CONFLICT (url) WHERE is_global DO UPDATE", "RETURNING id")
	assert.Equal(t, args[5], true)
}
