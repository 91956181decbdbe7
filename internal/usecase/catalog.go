package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

// ClientLookup resolves client names to stored ids.
type ClientLookup interface {
	ClientIDByName(ctx context.Context, name string) (int64, error)
}

// TagInput describes a tag to create. Client names a client for client-scoped tags.
type TagInput struct {
	Name        string
	Type        domain.TagType
	Client      string
	Keywords    []string
	MatchMethod domain.MatchMethod
	Color       string
}

// Catalog manages tag definitions.
type Catalog struct {
	tags    ports.TagRepository
	clients ClientLookup
	logger  *slog.Logger
}

// NewCatalog constructs the tag catalog service.
func NewCatalog(tags ports.TagRepository, clients ClientLookup, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{tags: tags, clients: clients, logger: logger}
}

// List returns tags, optionally narrowed to one client's scope.
func (c *Catalog) List(ctx context.Context, clientName string) ([]domain.Tag, error) {
	var filter domain.TagFilter
	if clientName != "" {
		id, err := c.clients.ClientIDByName(ctx, clientName)
		if err != nil {
			return nil, err
		}
		filter.ClientID = &id
	}
	return c.tags.ListTags(ctx, filter)
}

// Add validates and stores a new tag.
func (c *Catalog) Add(ctx context.Context, in TagInput) (int64, error) {
	tag, err := c.build(ctx, in)
	if err != nil {
		return 0, err
	}
	id, err := c.tags.CreateTag(ctx, tag)
	if err != nil {
		return 0, err
	}
	c.logger.Info("tag created", "id", id, "name", tag.Name, "scope", tag.Scope)
	return id, nil
}

// SetEnabled toggles a tag.
func (c *Catalog) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	if err := c.tags.UpdateTag(ctx, id, domain.TagUpdate{Enabled: &enabled}); err != nil {
		return err
	}
	c.logger.Info("tag updated", "id", id, "enabled", enabled)
	return nil
}

// UpdateKeywords replaces a tag's keyword list.
func (c *Catalog) UpdateKeywords(ctx context.Context, id int64, keywords []string) error {
	cleaned := cleanKeywords(keywords)
	if len(cleaned) == 0 {
		return fmt.Errorf("%w: tag %d needs at least one keyword", domain.ErrInvalidTag, id)
	}
	return c.tags.UpdateTag(ctx, id, domain.TagUpdate{Keywords: cleaned})
}

// Delete removes a tag and, through the schema, its assignments.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	if err := c.tags.DeleteTag(ctx, id); err != nil {
		return err
	}
	c.logger.Info("tag deleted", "id", id)
	return nil
}

// Seed creates every seed tag that does not exist yet and returns how many were created.
func (c *Catalog) Seed(ctx context.Context, seeds []config.TagSeed) (int, error) {
	existing, err := c.tags.ListTags(ctx, domain.TagFilter{})
	if err != nil {
		return 0, fmt.Errorf("list tags: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[seedKey(t.Name, t.ClientID)] = struct{}{}
	}

	created := 0
	for _, seed := range seeds {
		tag, err := c.build(ctx, TagInput{
			Name:        seed.Name,
			Type:        domain.TagType(strings.ToLower(seed.Type)),
			Client:      seed.Client,
			Keywords:    seed.Keywords,
			MatchMethod: domain.MatchMethod(strings.ToLower(seed.MatchMethod)),
			Color:       seed.Color,
		})
		if err != nil {
			return created, fmt.Errorf("seed tag %q: %w", seed.Name, err)
		}
		key := seedKey(tag.Name, tag.ClientID)
		if _, ok := have[key]; ok {
			c.logger.Debug("tag already exists", "name", tag.Name)
			continue
		}
		if _, err := c.tags.CreateTag(ctx, tag); err != nil {
			return created, fmt.Errorf("seed tag %q: %w", seed.Name, err)
		}
		have[key] = struct{}{}
		created++
	}
	c.logger.Info("tag catalog seeded", "created", created, "skipped", len(seeds)-created)
	return created, nil
}

func (c *Catalog) build(ctx context.Context, in TagInput) (domain.Tag, error) {
	tag := domain.Tag{
		Name:        strings.TrimSpace(in.Name),
		Type:        in.Type,
		Scope:       domain.ScopeGlobal,
		Keywords:    cleanKeywords(in.Keywords),
		MatchMethod: in.MatchMethod,
		Color:       in.Color,
		Enabled:     true,
	}
	if tag.Type == "" {
		tag.Type = domain.TagCustom
	}
	if tag.MatchMethod == "" {
		tag.MatchMethod = domain.MatchKeyword
	}
	if tag.Color == "" {
		tag.Color = domain.DefaultTagColor
	}
	if in.Client != "" {
		id, err := c.clients.ClientIDByName(ctx, in.Client)
		if err != nil {
			return tag, err
		}
		tag.Scope = domain.ScopeClient
		tag.ClientID = &id
	}
	return tag, tag.Validate()
}

func cleanKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func seedKey(name string, clientID *int64) string {
	if clientID == nil {
		return strings.ToLower(name) + "|"
	}
	return fmt.Sprintf("%s|%d", strings.ToLower(name), *clientID)
}
