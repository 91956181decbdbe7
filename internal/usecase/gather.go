package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
	"SentimentVision/pkg/urlnorm"
)

// GathererDeps wires the fetch-and-store run.
type GathererDeps struct {
	Clients  ports.ClientRepository
	Sources  ports.SourceRepository
	Articles ports.ArticleWriter
	Fetcher  ports.ArticleSource
	Tagger   ports.ArticleTagger
	Logger   *slog.Logger
	Now      func() time.Time
}

// Gatherer fetches configured sources and stores new articles per client.
type Gatherer struct {
	clients  ports.ClientRepository
	sources  ports.SourceRepository
	articles ports.ArticleWriter
	fetcher  ports.ArticleSource
	tagger   ports.ArticleTagger
	logger   *slog.Logger
	now      func() time.Time
}

// GatherRequest selects what one run fetches.
type GatherRequest struct {
	Clients []domain.Client
	Global  []domain.Source
	// DryRun fetches client sources without touching the database.
	DryRun bool
}

// GatherReport summarizes one run.
type GatherReport struct {
	Sources       int
	FailedSources int
	Found         int
	Stored        int
	Duplicates    int
	Stale         int
	Tagged        int
}

// NewGatherer constructs the gather use case.
func NewGatherer(deps GathererDeps) *Gatherer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Gatherer{
		clients:  deps.Clients,
		sources:  deps.Sources,
		articles: deps.Articles,
		fetcher:  deps.Fetcher,
		tagger:   deps.Tagger,
		logger:   logger,
		now:      now,
	}
}

// Run fetches global feeds once, routing matching articles to clients by keyword,
// then fetches every client's own sources.
func (g *Gatherer) Run(ctx context.Context, req GatherRequest) (GatherReport, error) {
	var report GatherReport
	if req.DryRun {
		g.logger.Info("dry run: nothing will be stored")
		for _, client := range req.Clients {
			g.dryRunClient(ctx, client, &report)
		}
		return report, nil
	}

	ids, err := g.clients.SyncClients(ctx, req.Clients)
	if err != nil {
		return report, fmt.Errorf("sync clients: %w", err)
	}
	clients := make([]domain.Client, 0, len(req.Clients))
	for _, c := range req.Clients {
		c.ID = ids[c.Name]
		clients = append(clients, c)
	}

	if len(req.Global) > 0 {
		if err := g.gatherGlobal(ctx, clients, req.Global, &report); err != nil {
			return report, err
		}
	}
	for _, client := range clients {
		if err := g.gatherClient(ctx, client, &report); err != nil {
			return report, err
		}
	}

	g.logger.Info("gather complete", "sources", report.Sources, "failed_sources", report.FailedSources,
		"found", report.Found, "stored", report.Stored, "duplicates", report.Duplicates, "tagged", report.Tagged)
	return report, nil
}

func (g *Gatherer) gatherGlobal(ctx context.Context, clients []domain.Client, sources []domain.Source, report *GatherReport) error {
	g.logger.Info("processing global sources", "count", len(sources))
	ids, err := g.sources.SyncGlobalSources(ctx, sources)
	if err != nil {
		return fmt.Errorf("sync global sources: %w", err)
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		source.ID = ids[source.URL]
		g.runSource(ctx, source, report, func(article domain.Article) int {
			stored := 0
			text := strings.ToLower(article.TaggingText())
			for _, client := range clients {
				if !mentionsAny(text, client.Keywords()) {
					continue
				}
				if g.store(ctx, client.ID, article, report) {
					stored++
				}
			}
			return stored
		})
	}
	return nil
}

func (g *Gatherer) gatherClient(ctx context.Context, client domain.Client, report *GatherReport) error {
	g.logger.Info("processing client", "client", client.Name, "sources", len(client.Sources))
	ids, err := g.sources.SyncSources(ctx, client.ID, client.Sources)
	if err != nil {
		return fmt.Errorf("sync sources for %s: %w", client.Name, err)
	}
	for _, source := range client.Sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		source.ID = ids[source.URL]
		g.runSource(ctx, source, report, func(article domain.Article) int {
			if g.store(ctx, client.ID, article, report) {
				return 1
			}
			return 0
		})
	}
	return nil
}

// runSource fetches one source, hands each recent article to handle and audits the attempt.
func (g *Gatherer) runSource(ctx context.Context, source domain.Source, report *GatherReport, handle func(domain.Article) int) {
	entry := domain.FetchLog{SourceID: source.ID, StartedAt: g.now().UTC(), Status: domain.FetchSuccess}
	report.Sources++

	articles, err := g.fetcher.Fetch(ctx, source)
	if err != nil {
		report.FailedSources++
		entry.Status = domain.FetchError
		entry.Error = err.Error()
		g.logger.Error("failed to fetch source", "source", source.Name, "url", source.URL, "error", err)
	} else {
		entry.Found = len(articles)
		report.Found += len(articles)
		for _, article := range articles {
			if !g.isRecent(article) {
				report.Stale++
				continue
			}
			article.URL = urlnorm.Normalize(article.URL)
			entry.New += handle(article)
		}
		g.logger.Info("source fetched", "source", source.Name, "found", entry.Found, "new", entry.New)
	}

	entry.FinishedAt = g.now().UTC()
	if source.ID == 0 {
		return
	}
	if err := g.sources.LogFetch(ctx, entry); err != nil {
		g.logger.Warn("failed to record fetch", "source", source.Name, "error", err)
	}
}

// store inserts the article for a client and tags it when it is new.
func (g *Gatherer) store(ctx context.Context, clientID int64, article domain.Article, report *GatherReport) bool {
	article.ClientID = clientID
	id, created, err := g.articles.StoreArticle(ctx, article)
	if err != nil {
		g.logger.Error("failed to store article", "url", article.URL, "error", err)
		return false
	}
	if !created {
		report.Duplicates++
		return false
	}
	report.Stored++

	if g.tagger != nil {
		names, err := g.tagger.Tag(ctx, id, clientID, article.TaggingText())
		if err != nil {
			g.logger.Warn("failed to tag article", "article_id", id, "error", err)
		} else if len(names) > 0 {
			report.Tagged++
		}
	}
	return true
}

func (g *Gatherer) dryRunClient(ctx context.Context, client domain.Client, report *GatherReport) {
	for _, source := range client.Sources {
		report.Sources++
		articles, err := g.fetcher.Fetch(ctx, source)
		if err != nil {
			report.FailedSources++
			g.logger.Error("failed to fetch source", "source", source.Name, "error", err)
			continue
		}
		report.Found += len(articles)
		for _, a := range articles {
			g.logger.Debug("would store", "client", client.Name, "title", a.Title, "url", urlnorm.Normalize(a.URL))
		}
		g.logger.Info("source fetched", "client", client.Name, "source", source.Name, "found", len(articles))
	}
}

// isRecent keeps undated articles and those published in the current year.
func (g *Gatherer) isRecent(a domain.Article) bool {
	if a.PublishedAt == nil {
		return true
	}
	return a.PublishedAt.Year() >= g.now().Year()
}

func mentionsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
