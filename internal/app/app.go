package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"SentimentVision/internal/config"
	"SentimentVision/internal/infrastructure/llm"
	"SentimentVision/internal/infrastructure/parser"
	"SentimentVision/internal/infrastructure/scheduler"
	"SentimentVision/internal/infrastructure/storage"
	"SentimentVision/internal/infrastructure/telegram"
	"SentimentVision/internal/logging"
	"SentimentVision/internal/ports"
	"SentimentVision/internal/scanner"
	"SentimentVision/internal/scoring"
	"SentimentVision/internal/sentiment"
	"SentimentVision/internal/tagging"
	"SentimentVision/internal/usecase"
)

// Options adjusts how the application is assembled.
type Options struct {
	// Offline skips the database; only dry-run gathering works.
	Offline bool
}

// Application wires configs to use cases for one CLI session.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	runID   string
	repo    *storage.PostgresRepository
	session *scoring.Session

	gatherer  *usecase.Gatherer
	analyzer  *usecase.Analyzer
	tagger    *usecase.Tagger
	refetcher *usecase.Refetcher
	catalog   *usecase.Catalog
	digest    *usecase.Digest
}

// New builds the application. It connects to Postgres unless opts.Offline is set.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	runID := uuid.NewString()
	logger := baseLogger.With("run_id", runID)

	var repo *storage.PostgresRepository
	if !opts.Offline {
		var err error
		repo, err = storage.Open(ctx, cfg.Database.ConnString())
		if err != nil {
			return nil, err
		}
	}

	fetcher := parser.NewPoliteFetcher(cfg.Fetching, cfg.Extraction.MaxContentLength, nil,
		logging.Component(logger, "fetcher"))
	extractor := parser.NewExtractor(fetcher)
	feedOpts := parser.FeedOptionsFrom(&cfg)

	rss := parser.NewRSSScanner(fetcher, extractor, feedOpts, logging.Component(logger, "scanner.rss"))
	html := parser.NewHTMLScanner(fetcher, extractor, feedOpts, cfg.Extraction.MinWords,
		logging.Component(logger, "scanner.html"))
	registry := scanner.NewRegistry(rss, html,
		parser.NewSearchScanner(rss, html, logging.Component(logger, "scanner.search")))
	source := parser.NewStrategySource(registry, cfg.Fetching.MaxArticlesPerSource, logging.Component(logger, "source"))

	app := &Application{
		cfg:    cfg,
		logger: logger,
		runID:  runID,
		repo:   repo,
	}

	var (
		articleTagger ports.ArticleTagger
		notifier      ports.Notifier
	)
	if repo != nil {
		articleTagger = tagging.NewPipeline(tagging.Deps{
			Catalog: repo,
			Writer:  repo,
			Logger:  logging.Component(logger, "tagging"),
		})
	}
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID, "")
	}

	gatherDeps := usecase.GathererDeps{
		Fetcher: source,
		Tagger:  articleTagger,
		Logger:  logging.Component(logger, "gather"),
	}
	if repo != nil {
		gatherDeps.Clients = repo
		gatherDeps.Sources = repo
		gatherDeps.Articles = repo

		app.startSession()
		app.tagger = usecase.NewTagger(usecase.TaggerDeps{
			Store:     repo,
			Tagger:    articleTagger,
			BatchSize: cfg.Tagging.BatchSize,
			Logger:    logging.Component(logger, "tag"),
		})
		app.refetcher = usecase.NewRefetcher(usecase.RefetcherDeps{
			Store:     repo,
			Extractor: extractor,
			Tagger:    app.tagger,
			Limit:     cfg.Fetching.BatchSize,
			Logger:    logging.Component(logger, "refetch"),
		})
		app.catalog = usecase.NewCatalog(repo, repo, logging.Component(logger, "catalog"))
	}
	app.gatherer = usecase.NewGatherer(gatherDeps)
	app.digest = usecase.NewDigest(notifier, logging.Component(logger, "digest"))

	return app, nil
}

// startSession gives the analyzer a fresh cost ledger. The daemon calls it before every run.
func (a *Application) startSession() {
	a.session = scoring.NewSession()
	a.analyzer = usecase.NewAnalyzer(usecase.AnalyzerDeps{
		Store:     a.repo,
		Scorer:    newScorer(a.cfg.Sentiment, a.session, a.logger),
		Session:   a.session,
		BatchSize: a.cfg.Sentiment.BatchSize,
		Logger:    logging.Component(a.logger, "analyze"),
	})
}

// newScorer assembles the hybrid scorer. A missing credential leaves the contextual model nil,
// which disables contextual scoring for the session on first use.
func newScorer(cfg config.SentimentConfig, session *scoring.Session, logger *slog.Logger) *scoring.Pipeline {
	var model ports.SentimentModel
	if cfg.AIScoring.Enabled {
		m, err := llm.New(cfg.AIScoring)
		switch {
		case err == nil:
			model = m
		case errors.Is(err, llm.ErrNoAPIKey):
			logger.Warn("contextual scoring enabled without an API key", "provider", cfg.AIScoring.Provider)
		default:
			logger.Error("failed to build contextual model", "error", err)
		}
	}

	contextual := scoring.NewContextualScorer(scoring.ContextualDeps{
		Model:    model,
		Session:  session,
		Settings: cfg,
		Logger:   logging.Component(logger, "scoring.contextual"),
	})
	return scoring.NewPipeline(scoring.PipelineDeps{
		Lexical:    sentiment.NewLexicalScorer(nil),
		Contextual: contextual,
		Session:    session,
		Settings:   cfg,
		Logger:     logging.Component(logger, "scoring"),
	})
}

// RunID identifies this session in logs and digests.
func (a *Application) RunID() string {
	return a.runID
}

// Close releases the database pool.
func (a *Application) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}

var errOffline = errors.New("command needs a database connection")

func (a *Application) requireDB() error {
	if a.repo == nil {
		return errOffline
	}
	return nil
}

// GatherOptions mirrors the gather command flags.
type GatherOptions struct {
	Client  string
	DryRun  bool
	Analyze bool
}

// Gather fetches sources for the selected clients and optionally scores afterwards.
func (a *Application) Gather(ctx context.Context, opts GatherOptions) error {
	clients, err := a.cfg.SelectClients(opts.Client)
	if err != nil {
		return err
	}
	if !opts.DryRun {
		if err := a.requireDB(); err != nil {
			return err
		}
	}

	req := usecase.GatherRequest{Clients: clients, DryRun: opts.DryRun}
	if opts.Client == "" {
		req.Global = a.cfg.GlobalFeeds()
	}
	report, err := a.gatherer.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("gather: %w", err)
	}

	summary := usecase.RunSummary{RunID: a.runID, Command: "gather", Gather: &report}
	if opts.Analyze && !opts.DryRun {
		analyzed, err := a.analyzer.AnalyzeUnscored(ctx)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}
		summary.Analyze = &analyzed
	}
	if opts.DryRun {
		return nil
	}
	a.publish(ctx, summary)
	return nil
}

// Analyze scores one batch of unscored articles.
func (a *Application) Analyze(ctx context.Context) error {
	if err := a.requireDB(); err != nil {
		return err
	}
	report, err := a.analyzer.AnalyzeUnscored(ctx)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	a.publish(ctx, usecase.RunSummary{RunID: a.runID, Command: "analyze", Analyze: &report})
	return nil
}

// Tag tags untagged articles for one client, or all clients when name is empty.
func (a *Application) Tag(ctx context.Context, client string) error {
	return a.tagRun(ctx, client, "tag", a.tagger.TagUntagged)
}

// Retag clears and recomputes tags for one client, or all clients when name is empty.
func (a *Application) Retag(ctx context.Context, client string) error {
	return a.tagRun(ctx, client, "retag", a.tagger.RetagAll)
}

func (a *Application) tagRun(ctx context.Context, client, command string, run func(context.Context, int64) (int, error)) error {
	if err := a.requireDB(); err != nil {
		return err
	}
	var clientID int64
	if client != "" {
		id, err := a.repo.ClientIDByName(ctx, client)
		if err != nil {
			return err
		}
		clientID = id
	}
	n, err := run(ctx, clientID)
	if err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	a.publish(ctx, usecase.RunSummary{RunID: a.runID, Command: command, Tagged: n})
	return nil
}

// Refetch recovers content for articles stored without text.
func (a *Application) Refetch(ctx context.Context) error {
	if err := a.requireDB(); err != nil {
		return err
	}
	report, err := a.refetcher.RefetchEmpty(ctx)
	if err != nil {
		return fmt.Errorf("refetch: %w", err)
	}
	a.publish(ctx, usecase.RunSummary{RunID: a.runID, Command: "refetch", Refetch: &report})
	return nil
}

// Catalog exposes tag management.
func (a *Application) Catalog() (*usecase.Catalog, error) {
	if err := a.requireDB(); err != nil {
		return nil, err
	}
	return a.catalog, nil
}

// SeedTags loads the configured seed file into the catalog. Clients are synced
// first so client-scoped seeds can resolve their owner.
func (a *Application) SeedTags(ctx context.Context, path string) (int, error) {
	if err := a.requireDB(); err != nil {
		return 0, err
	}
	if path == "" {
		path = a.cfg.SeedPath()
	}
	seeds, err := config.LoadTagSeeds(path)
	if err != nil {
		return 0, err
	}
	if len(a.cfg.Clients) > 0 {
		if _, err := a.repo.SyncClients(ctx, a.cfg.Clients); err != nil {
			return 0, fmt.Errorf("sync clients: %w", err)
		}
	}
	return a.catalog.Seed(ctx, seeds)
}

// RunDaemon gathers and scores on a fixed interval until ctx is cancelled.
func (a *Application) RunDaemon(ctx context.Context, interval time.Duration) error {
	if err := a.requireDB(); err != nil {
		return err
	}
	if interval <= 0 {
		interval = a.cfg.Schedule.Interval
	}
	driver := scheduler.NewIntervalScheduler(interval)
	job := func(ctx context.Context, trigger time.Time) error {
		a.logger.Info("scheduled run", "trigger", trigger)
		a.startSession()
		return a.Gather(ctx, GatherOptions{Analyze: true})
	}
	s := usecase.NewScheduler(driver, job, logging.Component(a.logger, "daemon"))
	if err := s.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("daemon started", "interval", interval)

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return s.Stop(stopCtx)
}

func (a *Application) publish(ctx context.Context, summary usecase.RunSummary) {
	if err := a.digest.Publish(ctx, summary); err != nil {
		a.logger.Warn("failed to publish digest", "error", err)
	}
}
