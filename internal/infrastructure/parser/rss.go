package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
	"SentimentVision/internal/scanner"
)

// summaryLength bounds feed summaries.
const summaryLength = 500

// FeedOptions tunes feed scanning.
type FeedOptions struct {
	MaxArticles    int
	MinInlineChars int
	Concurrency    int
}

// FeedOptionsFrom derives options from configuration.
func FeedOptionsFrom(cfg *config.Config) FeedOptions {
	return FeedOptions{
		MaxArticles:    cfg.Fetching.MaxArticlesPerSource,
		MinInlineChars: cfg.Extraction.MinInlineChars,
		Concurrency:    cfg.Fetching.Concurrency,
	}
}

// RSSScanner reads RSS/Atom feeds and fills thin entries from the article page.
type RSSScanner struct {
	fetcher   *PoliteFetcher
	extractor ports.ContentExtractor
	opts      FeedOptions
	logger    *slog.Logger
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires the fetcher and extractor.
func NewRSSScanner(fetcher *PoliteFetcher, extractor ports.ContentExtractor, opts FeedOptions, logger *slog.Logger) *RSSScanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &RSSScanner{fetcher: fetcher, extractor: extractor, opts: opts, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return string(domain.SourceRSS)
}

// Scan parses the feed at req.URL.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	page, err := s.fetcher.Get(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", req.URL, err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.opts.MaxArticles
	}
	items := feed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	articles := make([]domain.Article, 0, len(items))
	for _, item := range items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		articles = append(articles, fromItem(item, feed.Language))
	}

	s.fillContent(ctx, articles)
	s.logger.Debug("feed scanned", "source", req.SourceName, "entries", len(feed.Items), "articles", len(articles))
	return articles, nil
}

// fillContent extracts full pages for entries whose inline content is too short.
func (s *RSSScanner) fillContent(ctx context.Context, articles []domain.Article) {
	if s.extractor == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range articles {
		if len([]rune(articles[i].Content())) >= s.opts.MinInlineChars {
			continue
		}
		g.Go(func() error {
			extracted, err := s.extractor.Extract(gctx, articles[i].URL)
			if err != nil {
				s.logger.Warn("content extraction failed", "url", articles[i].URL, "error", err)
				return nil
			}
			mergeExtracted(&articles[i], extracted)
			return nil
		})
	}
	_ = g.Wait()
}

func fromItem(item *gofeed.Item, language string) domain.Article {
	a := domain.Article{
		URL:      strings.TrimSpace(item.Link),
		Title:    strings.TrimSpace(item.Title),
		Author:   itemAuthor(item),
		ImageURL: itemImage(item),
		Language: language,
	}
	switch {
	case item.PublishedParsed != nil:
		a.PublishedAt = utc(item.PublishedParsed)
	case item.UpdatedParsed != nil:
		a.PublishedAt = utc(item.UpdatedParsed)
	}
	if content := HTMLToText(item.Content); content != "" {
		a.ContentText = &content
		a.WordCount = len(strings.Fields(content))
	}
	if summary := HTMLToText(item.Description); summary != "" {
		a.Summary = truncateRunes(summary, summaryLength)
	}
	return a
}

// mergeExtracted takes extracted content and fills metadata the feed lacked.
func mergeExtracted(a *domain.Article, e domain.Extracted) {
	if strings.TrimSpace(e.ContentText) == "" {
		return
	}
	content := e.ContentText
	a.ContentText = &content
	a.WordCount = e.WordCount
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
}

func itemAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	for _, p := range item.Authors {
		if p != nil && p.Name != "" {
			return p.Name
		}
	}
	return ""
}

func itemImage(item *gofeed.Item) string {
	if media, ok := item.Extensions["media"]; ok {
		for _, key := range []string{"thumbnail", "content"} {
			for _, m := range media[key] {
				if u := m.Attrs["url"]; u != "" && (key == "thumbnail" || isImage(m.Attrs["type"], m.Attrs["medium"])) {
					return u
				}
			}
		}
	}
	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}

func isImage(mimeType, medium string) bool {
	return medium == "image" || strings.HasPrefix(mimeType, "image/")
}

func utc(t *time.Time) *time.Time {
	v := t.UTC()
	return &v
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
