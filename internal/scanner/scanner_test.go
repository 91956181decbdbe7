package scanner

import (
	"context"
	"testing"

	"SentimentVision/internal/domain"
)

type namedScanner string

func (n namedScanner) Name() string { return string(n) }

func (n namedScanner) Scan(context.Context, Request) ([]domain.Article, error) {
	return []domain.Article{{Title: string(n)}}, nil
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(namedScanner("rss"))
	reg.Register(namedScanner("html"))

	for _, name := range []string{"rss", "html"} {
		s, err := reg.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%s) error: %v", name, err)
		}
		articles, _ := s.Scan(context.Background(), Request{})
		if articles[0].Title != name {
			t.Fatalf("resolved wrong scanner for %s", name)
		}
	}

	if _, err := reg.Resolve("search"); err == nil {
		t.Fatalf("expected error for unregistered scanner")
	}

	var empty Registry
	empty.Register(namedScanner("rss"))
	if _, err := empty.Resolve("rss"); err != nil {
		t.Fatalf("zero registry should accept registrations: %v", err)
	}
}
