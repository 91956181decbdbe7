package tagging

import (
	"context"

	"SentimentVision/internal/domain"
)

// AIMatcher classifies text against tags whose match method is "ai".
type AIMatcher interface {
	Match(ctx context.Context, text string, tags []domain.Tag) ([]domain.TagMatch, error)
}

// NoopAIMatcher never matches. It stands in until a model-backed classifier exists.
type NoopAIMatcher struct{}

var _ AIMatcher = NoopAIMatcher{}

// Match returns no matches.
func (NoopAIMatcher) Match(context.Context, string, []domain.Tag) ([]domain.TagMatch, error) {
	return nil, nil
}
