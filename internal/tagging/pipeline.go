package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

// Deps wires the tagging pipeline collaborators.
type Deps struct {
	Catalog ports.TagCatalog
	Writer  ports.TagWriter
	Keyword *Matcher
	AI      AIMatcher
	Logger  *slog.Logger
}

// Pipeline tags a single article and persists the assignment.
type Pipeline struct {
	catalog ports.TagCatalog
	writer  ports.TagWriter
	keyword *Matcher
	ai      AIMatcher
	logger  *slog.Logger
}

var _ ports.ArticleTagger = (*Pipeline)(nil)

// NewPipeline builds a tagging pipeline. Missing matchers get defaults.
func NewPipeline(deps Deps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	keyword := deps.Keyword
	if keyword == nil {
		keyword = NewMatcher()
	}
	var ai AIMatcher = NoopAIMatcher{}
	if deps.AI != nil {
		ai = deps.AI
	}
	return &Pipeline{
		catalog: deps.Catalog,
		writer:  deps.Writer,
		keyword: keyword,
		ai:      ai,
		logger:  logger,
	}
}

// Tag matches the article against the client's applicable tags and writes the result.
// Nothing is written when no tag matches.
func (p *Pipeline) Tag(ctx context.Context, articleID, clientID int64, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	tags, err := p.catalog.ApplicableTags(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load tags for client %d: %w", clientID, err)
	}
	if len(tags) == 0 {
		return nil, nil
	}

	var aiMatches []domain.TagMatch
	if aiTags := byMethod(tags, domain.MatchAI); len(aiTags) > 0 {
		aiMatches, err = p.ai.Match(ctx, text, aiTags)
		if err != nil {
			p.logger.Warn("ai tag matching failed", "article_id", articleID, "error", err)
			aiMatches = nil
		}
	}
	matches := Merge(p.keyword.Match(text, tags), aiMatches)
	if len(matches) == 0 {
		return nil, nil
	}

	assignment := Partition(matches)
	if err := p.writer.SaveTagAssignment(ctx, articleID, assignment); err != nil {
		return nil, fmt.Errorf("save tags for article %d: %w", articleID, err)
	}
	p.logger.Debug("article tagged", "article_id", articleID, "tags", assignment.Names())
	return assignment.Names(), nil
}

// Apply runs the pure part of tagging against an in-memory catalog.
func Apply(m *Matcher, text string, tags []domain.Tag) domain.TagAssignment {
	return Partition(Merge(m.Match(text, tags)))
}

// Applicable filters a catalog to the enabled tags usable for a client.
func Applicable(tags []domain.Tag, clientID int64) []domain.Tag {
	out := make([]domain.Tag, 0, len(tags))
	for _, t := range tags {
		if t.AppliesTo(clientID) {
			out = append(out, t)
		}
	}
	return out
}

// Merge deduplicates matches by tag id, keeping the higher confidence.
// The first-seen order of tags is preserved.
func Merge(groups ...[]domain.TagMatch) []domain.TagMatch {
	index := make(map[int64]int)
	var merged []domain.TagMatch
	for _, group := range groups {
		for _, m := range group {
			if i, ok := index[m.TagID]; ok {
				if m.Confidence > merged[i].Confidence {
					merged[i] = m
				}
				continue
			}
			index[m.TagID] = len(merged)
			merged = append(merged, m)
		}
	}
	return merged
}

// Partition splits matched tag names into the ESG and custom lists.
func Partition(matches []domain.TagMatch) domain.TagAssignment {
	a := domain.TagAssignment{Matches: matches}
	for _, m := range matches {
		switch m.TagType {
		case domain.TagESG:
			a.ESG = append(a.ESG, m.TagName)
		default:
			a.Custom = append(a.Custom, m.TagName)
		}
	}
	return a
}

func byMethod(tags []domain.Tag, method domain.MatchMethod) []domain.Tag {
	var out []domain.Tag
	for _, t := range tags {
		if t.Enabled && t.MatchMethod == method {
			out = append(out, t)
		}
	}
	return out
}
