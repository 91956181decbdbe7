package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"SentimentVision/internal/domain"
)

var tagColumns = []string{"id", "name", "tag_type", "scope", "client_id", "keywords", "match_method", "color", "enabled"}

func listTagsQuery(filter domain.TagFilter) sq.SelectBuilder {
	b := psql.Select(tagColumns...).From("tags")
	if filter.Scope != "" {
		b = b.Where(sq.Eq{"scope": string(filter.Scope)})
	}
	if filter.ClientID != nil {
		b = b.Where(sq.Eq{"client_id": *filter.ClientID})
	}
	return b.OrderBy("tag_type", "name")
}

func applicableTagsQuery(clientID int64) sq.SelectBuilder {
	return psql.Select(tagColumns...).
		From("tags").
		Where(sq.Eq{"enabled": true}).
		Where(sq.Or{
			sq.Eq{"scope": string(domain.ScopeGlobal)},
			sq.And{sq.Eq{"scope": string(domain.ScopeClient)}, sq.Eq{"client_id": clientID}},
		}).
		OrderBy("tag_type", "name")
}

func insertTagQuery(t domain.Tag) sq.InsertBuilder {
	return psql.Insert("tags").
		Columns("name", "tag_type", "scope", "client_id", "keywords", "match_method", "color", "enabled").
		Values(t.Name, string(t.Type), string(t.Scope), nullInt64(t.ClientID), pq.Array(t.Keywords),
			string(t.MatchMethod), t.Color, t.Enabled).
		Suffix("RETURNING id")
}

func updateTagQuery(id int64, u domain.TagUpdate) sq.UpdateBuilder {
	b := psql.Update("tags").Set("updated_at", sq.Expr("NOW()")).Where(sq.Eq{"id": id})
	if u.Name != nil {
		b = b.Set("name", *u.Name)
	}
	if u.Keywords != nil {
		b = b.Set("keywords", pq.Array(u.Keywords))
	}
	if u.Enabled != nil {
		b = b.Set("enabled", *u.Enabled)
	}
	if u.Color != nil {
		b = b.Set("color", *u.Color)
	}
	return b
}

func insertArticleTagQuery(articleID int64, m domain.TagMatch) sq.InsertBuilder {
	return psql.Insert("article_tags").
		Columns("article_id", "tag_id", "confidence", "matched_keyword", "match_method").
		Values(articleID, m.TagID, m.Confidence, m.MatchedKeyword, string(m.MatchMethod)).
		Suffix("ON CONFLICT (article_id, tag_id) DO NOTHING")
}

func denormalizedTagsQuery(articleID int64, a domain.TagAssignment) sq.UpdateBuilder {
	return psql.Update("articles").
		Set("esg_tags", pq.Array(nonNil(a.ESG))).
		Set("tags", pq.Array(nonNil(a.Custom))).
		Where(sq.Eq{"id": articleID})
}

func clearArticleTagsQuery(clientID int64) sq.DeleteBuilder {
	b := psql.Delete("article_tags")
	if clientID == 0 {
		return b
	}
	return b.Where("article_id IN (SELECT id FROM articles WHERE client_id = ?)", clientID)
}

func clearDenormalizedQuery(clientID int64) sq.UpdateBuilder {
	b := psql.Update("articles").Set("esg_tags", sq.Expr("'{}'")).Set("tags", sq.Expr("'{}'"))
	if clientID == 0 {
		return b
	}
	return b.Where(sq.Eq{"client_id": clientID})
}

// ApplicableTags returns enabled global tags plus the client's own tags.
func (r *PostgresRepository) ApplicableTags(ctx context.Context, clientID int64) ([]domain.Tag, error) {
	tags, err := queryMany(ctx, r.db, applicableTagsQuery(clientID), scanTag)
	if err != nil {
		return nil, fmt.Errorf("query applicable tags: %w", err)
	}
	return tags, nil
}

// SaveTagAssignment records tag rows and the denormalized columns in one transaction.
// Existing (article, tag) pairs are left untouched.
func (r *PostgresRepository) SaveTagAssignment(ctx context.Context, articleID int64, a domain.TagAssignment) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		for _, m := range a.Matches {
			if _, err := exec(ctx, tx, insertArticleTagQuery(articleID, m)); err != nil {
				return fmt.Errorf("insert article tag %d/%d: %w", articleID, m.TagID, err)
			}
		}
		if _, err := exec(ctx, tx, denormalizedTagsQuery(articleID, a)); err != nil {
			return fmt.Errorf("update article tags %d: %w", articleID, err)
		}
		return nil
	})
}

// ClearTags removes tag rows and denormalized lists. A zero clientID clears every client.
func (r *PostgresRepository) ClearTags(ctx context.Context, clientID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := exec(ctx, tx, clearArticleTagsQuery(clientID)); err != nil {
			return fmt.Errorf("delete article tags: %w", err)
		}
		if _, err := exec(ctx, tx, clearDenormalizedQuery(clientID)); err != nil {
			return fmt.Errorf("reset article tag columns: %w", err)
		}
		return nil
	})
}

// ListTags returns catalog entries matching the filter.
func (r *PostgresRepository) ListTags(ctx context.Context, filter domain.TagFilter) ([]domain.Tag, error) {
	tags, err := queryMany(ctx, r.db, listTagsQuery(filter), scanTag)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	return tags, nil
}

// GetTag loads one tag.
func (r *PostgresRepository) GetTag(ctx context.Context, id int64) (domain.Tag, error) {
	tags, err := queryMany(ctx, r.db, psql.Select(tagColumns...).From("tags").Where(sq.Eq{"id": id}), scanTag)
	if err != nil {
		return domain.Tag{}, fmt.Errorf("query tag %d: %w", id, err)
	}
	if len(tags) == 0 {
		return domain.Tag{}, fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	return tags[0], nil
}

// CreateTag inserts a validated tag and returns its id.
func (r *PostgresRepository) CreateTag(ctx context.Context, tag domain.Tag) (int64, error) {
	if err := tag.Validate(); err != nil {
		return 0, err
	}
	if tag.Color == "" {
		tag.Color = domain.DefaultTagColor
	}
	id, err := r.returningID(ctx, insertTagQuery(tag))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, fmt.Errorf("%w: tag %q already exists", domain.ErrInvalidTag, tag.Name)
		}
		return 0, fmt.Errorf("insert tag %q: %w", tag.Name, err)
	}
	return id, nil
}

// UpdateTag applies the non-nil fields of update.
func (r *PostgresRepository) UpdateTag(ctx context.Context, id int64, update domain.TagUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	res, err := exec(ctx, r.db, updateTagQuery(id, update))
	if err != nil {
		return fmt.Errorf("update tag %d: %w", id, err)
	}
	return expectTagRow(res, id)
}

// DeleteTag removes a tag; its article rows cascade.
func (r *PostgresRepository) DeleteTag(ctx context.Context, id int64) error {
	res, err := exec(ctx, r.db, psql.Delete("tags").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("delete tag %d: %w", id, err)
	}
	return expectTagRow(res, id)
}

func scanTag(rows *sql.Rows) (domain.Tag, error) {
	var (
		t        domain.Tag
		typ      string
		scope    string
		method   string
		clientID sql.NullInt64
		keywords pq.StringArray
	)
	if err := rows.Scan(&t.ID, &t.Name, &typ, &scope, &clientID, &keywords, &method, &t.Color, &t.Enabled); err != nil {
		return t, err
	}
	t.Type = domain.TagType(typ)
	t.Scope = domain.TagScope(scope)
	t.MatchMethod = domain.MatchMethod(method)
	t.ClientID = int64Ptr(clientID)
	t.Keywords = []string(keywords)
	return t, nil
}

func expectTagRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
