package parser

import (
	"context"
	"log/slog"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/scanner"
)

// SearchScanner treats search URLs as feeds and falls back to HTML discovery.
type SearchScanner struct {
	feed    scanner.Scanner
	listing scanner.Scanner
	logger  *slog.Logger
}

var _ scanner.Scanner = (*SearchScanner)(nil)

// NewSearchScanner combines the feed and listing strategies.
func NewSearchScanner(feed, listing scanner.Scanner, logger *slog.Logger) *SearchScanner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SearchScanner{feed: feed, listing: listing, logger: logger}
}

// Name identifies the strategy inside the registry.
func (s *SearchScanner) Name() string {
	return string(domain.SourceSearch)
}

// Scan tries the feed first; an error or an empty feed triggers HTML discovery.
func (s *SearchScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	articles, err := s.feed.Scan(ctx, req)
	if err == nil && len(articles) > 0 {
		return articles, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("search feed failed, trying html", "url", req.URL, "error", err)
	}
	return s.listing.Scan(ctx, req)
}
