package parser

import (
	"context"
	"fmt"
	"log/slog"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
	"SentimentVision/internal/scanner"
)

// StrategySource implements ArticleSource via registered scanner strategies.
type StrategySource struct {
	registry    *scanner.Registry
	maxArticles int
	logger      *slog.Logger
}

var _ ports.ArticleSource = (*StrategySource)(nil)

// NewStrategySource wires the scanner registry.
func NewStrategySource(reg *scanner.Registry, maxArticles int, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry:    reg,
		maxArticles: maxArticles,
		logger:      log,
	}
}

// Fetch resolves the scanner for the source type and stamps source metadata on the results.
func (s *StrategySource) Fetch(ctx context.Context, source domain.Source) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	strategy, err := s.registry.Resolve(string(source.Type))
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source.Name, err)
	}

	s.debug("fetch source", "source", source.Name, "type", source.Type, "url", source.URL)
	results, err := strategy.Scan(ctx, scanner.Request{
		SourceName: source.Name,
		URL:        source.URL,
		Limit:      s.maxArticles,
	})
	if err != nil {
		return nil, fmt.Errorf("scan source %s: %w", source.Name, err)
	}

	tier := source.MediaTier
	if tier == 0 {
		tier = domain.DefaultMediaTier
	}
	for i := range results {
		results[i].SourceID = source.ID
		results[i].MediaTier = tier
	}
	s.debug("source produced articles", "source", source.Name, "count", len(results))
	return results, nil
}

func (s *StrategySource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
