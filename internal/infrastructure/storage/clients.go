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

func upsertClientQuery(c domain.Client) sq.InsertBuilder {
	return psql.Insert("clients").
		Columns("name", "industries", "competitors").
		Values(c.Name, pq.Array(c.Industries), pq.Array(c.Competitors)).
		Suffix(`ON CONFLICT (name) DO UPDATE
            SET industries = EXCLUDED.industries,
                competitors = EXCLUDED.competitors,
                updated_at = NOW()
            RETURNING id`)
}

func upsertSourceQuery(clientID int64, s domain.Source) sq.InsertBuilder {
	return psql.Insert("sources").
		Columns("client_id", "name", "source_type", "url", "media_tier", "is_global").
		Values(clientID, s.Name, string(s.Type), s.URL, s.MediaTier, false).
		Suffix(`ON CONFLICT (client_id, url) DO UPDATE
            SET name = EXCLUDED.name,
                source_type = EXCLUDED.source_type,
                media_tier = EXCLUDED.media_tier
            RETURNING id`)
}

func upsertGlobalSourceQuery(s domain.Source) sq.InsertBuilder {
	return psql.Insert("sources").
		Columns("client_id", "name", "source_type", "url", "media_tier", "is_global").
		Values(nil, s.Name, string(s.Type), s.URL, s.MediaTier, true).
		Suffix(`ON CONFLICT (url) WHERE is_global DO UPDATE
            SET name = EXCLUDED.name,
                media_tier = EXCLUDED.media_tier
            RETURNING id`)
}

// SyncClients upserts configured clients and returns their ids by name.
func (r *PostgresRepository) SyncClients(ctx context.Context, clients []domain.Client) (map[string]int64, error) {
	ids := make(map[string]int64, len(clients))
	for _, c := range clients {
		id, err := r.returningID(ctx, upsertClientQuery(c))
		if err != nil {
			return nil, fmt.Errorf("sync client %q: %w", c.Name, err)
		}
		ids[c.Name] = id
	}
	return ids, nil
}

// SyncSources upserts a client's sources and returns their ids by url.
func (r *PostgresRepository) SyncSources(ctx context.Context, clientID int64, sources []domain.Source) (map[string]int64, error) {
	ids := make(map[string]int64, len(sources))
	for _, s := range sources {
		id, err := r.returningID(ctx, upsertSourceQuery(clientID, s))
		if err != nil {
			return nil, fmt.Errorf("sync source %q: %w", s.URL, err)
		}
		ids[s.URL] = id
	}
	return ids, nil
}

// SyncGlobalSources upserts the shared mass-media feeds.
func (r *PostgresRepository) SyncGlobalSources(ctx context.Context, sources []domain.Source) (map[string]int64, error) {
	ids := make(map[string]int64, len(sources))
	for _, s := range sources {
		id, err := r.returningID(ctx, upsertGlobalSourceQuery(s))
		if err != nil {
			return nil, fmt.Errorf("sync global source %q: %w", s.URL, err)
		}
		ids[s.URL] = id
	}
	return ids, nil
}

// ClientIDByName resolves a stored client.
func (r *PostgresRepository) ClientIDByName(ctx context.Context, name string) (int64, error) {
	query, args, err := psql.Select("id").From("clients").Where(sq.Eq{"name": name}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("client %q: %w", name, ErrNotFound)
		}
		return 0, fmt.Errorf("query client: %w", err)
	}
	return id, nil
}

// LogFetch records one source fetch attempt.
func (r *PostgresRepository) LogFetch(ctx context.Context, entry domain.FetchLog) error {
	b := psql.Insert("fetch_log").
		Columns("source_id", "started_at", "finished_at", "articles_found", "articles_new", "status", "error_message").
		Values(entry.SourceID, entry.StartedAt, entry.FinishedAt, entry.Found, entry.New, string(entry.Status), entry.Error)
	if _, err := exec(ctx, r.db, b); err != nil {
		return fmt.Errorf("insert fetch log: %w", err)
	}
	return nil
}

func (r *PostgresRepository) returningID(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}
