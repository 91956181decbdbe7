package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"SentimentVision/internal/domain"
)

// ErrNoClients is returned when a command needs clients but none are configured.
var ErrNoClients = errors.New("no clients configured")

const googleNewsSearch = "https://news.google.com/rss/search?q="

type clientsFile struct {
	Clients []clientEntry `yaml:"clients"`
}

type clientEntry struct {
	Name        string        `yaml:"name"`
	Industries  []string      `yaml:"industries"`
	Competitors []string      `yaml:"competitors"`
	Sources     []sourceEntry `yaml:"sources"`
}

type sourceEntry struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type"`
	URL       string `yaml:"url"`
	MediaTier int    `yaml:"media_tier"`
}

// LoadClients reads and validates client definitions.
func LoadClients(path string) ([]domain.Client, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	clients, err := ParseClients(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return clients, nil
}

// ParseClients decodes clients.yaml and appends Google News search sources
// for every competitor and industry not already listed.
func ParseClients(raw []byte) ([]domain.Client, error) {
	var file clientsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse clients: %w", err)
	}
	if len(file.Clients) == 0 {
		return nil, fmt.Errorf("clients file must have a non-empty top-level 'clients' key: %w", ErrNoClients)
	}

	clients := make([]domain.Client, 0, len(file.Clients))
	for i, entry := range file.Clients {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, fmt.Errorf("client at index %d is missing a name", i)
		}
		if len(entry.Sources) == 0 {
			return nil, fmt.Errorf("client %q has no sources defined", name)
		}

		sources := make([]domain.Source, 0, len(entry.Sources))
		seen := map[string]struct{}{}
		for j, s := range entry.Sources {
			kind := domain.SourceType(strings.ToLower(strings.TrimSpace(s.Type)))
			switch kind {
			case domain.SourceRSS, domain.SourceHTML, domain.SourceSearch:
			default:
				return nil, fmt.Errorf("client %q, source %d: invalid type %q (want rss, html or search)", name, j, s.Type)
			}
			u := strings.TrimSpace(s.URL)
			if u == "" {
				return nil, fmt.Errorf("client %q, source %d: missing url", name, j)
			}
			sourceName := strings.TrimSpace(s.Name)
			if sourceName == "" {
				sourceName = u
			}
			tier := s.MediaTier
			if tier == 0 {
				tier = domain.DefaultMediaTier
			}
			sources = append(sources, domain.Source{Name: sourceName, Type: kind, URL: u, MediaTier: tier})
			seen[u] = struct{}{}
		}

		for _, term := range append(append([]string{}, entry.Competitors...), entry.Industries...) {
			u := googleNewsSearch + url.QueryEscape(term)
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			sources = append(sources, domain.Source{
				Name:      "Google News - " + term,
				Type:      domain.SourceSearch,
				URL:       u,
				MediaTier: domain.DefaultMediaTier,
			})
		}

		clients = append(clients, domain.Client{
			Name:        name,
			Industries:  entry.Industries,
			Competitors: entry.Competitors,
			Sources:     sources,
		})
	}
	return clients, nil
}

// FindClient returns the client with the given name.
func (c Config) FindClient(name string) (domain.Client, error) {
	for _, cl := range c.Clients {
		if cl.Name == name {
			return cl, nil
		}
	}
	return domain.Client{}, fmt.Errorf("client %q not found in config", name)
}

// SelectClients returns every client, or only the named one.
func (c Config) SelectClients(name string) ([]domain.Client, error) {
	if len(c.Clients) == 0 {
		return nil, ErrNoClients
	}
	if name == "" {
		return c.Clients, nil
	}
	cl, err := c.FindClient(name)
	if err != nil {
		return nil, err
	}
	return []domain.Client{cl}, nil
}
