package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/go-playground/assert/v2"

	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
	"SentimentVision/internal/scoring"
)

func offlineApp(t *testing.T, cfg config.Config) *Application {
	t.Helper()
	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler), Options{Offline: true})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestOfflineApplicationRejectsDatabaseCommands(t *testing.T) {
	t.Parallel()

	a := offlineApp(t, config.Config{})
	ctx := context.Background()

	if a.RunID() == "" {
		t.Fatalf("expected a run id")
	}
	for name, err := range map[string]error{
		"analyze": a.Analyze(ctx),
		"tag":     a.Tag(ctx, ""),
		"retag":   a.Retag(ctx, "Acme"),
		"refetch": a.Refetch(ctx),
	} {
		if !errors.Is(err, errOffline) {
			t.Fatalf("%s: expected errOffline, got %v", name, err)
		}
	}
	if _, err := a.Catalog(); !errors.Is(err, errOffline) {
		t.Fatalf("catalog: expected errOffline, got %v", err)
	}
}

func TestGatherNeedsConfiguredClients(t *testing.T) {
	t.Parallel()

	a := offlineApp(t, config.Config{})
	err := a.Gather(context.Background(), GatherOptions{DryRun: true})
	if !errors.Is(err, config.ErrNoClients) {
		t.Fatalf("expected ErrNoClients, got %v", err)
	}
}

func TestGatherWithoutDryRunNeedsDatabase(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Clients: []domain.Client{{Name: "Acme"}}}
	a := offlineApp(t, cfg)
	err := a.Gather(context.Background(), GatherOptions{})
	if !errors.Is(err, errOffline) {
		t.Fatalf("expected errOffline, got %v", err)
	}
}

func TestNewScorerWithoutKeyFallsBackToLexical(t *testing.T) {
	t.Parallel()

	settings := config.SentimentConfig{
		PositiveThreshold: 0.2,
		NegativeThreshold: -0.2,
		AIScoring: config.AIScoringConfig{
			Enabled:          true,
			Provider:         config.ProviderAnthropic,
			MonthlyBudgetUSD: 3,
			MaxWords:         500,
		},
	}
	a := &Application{cfg: config.Config{Sentiment: settings}, logger: slog.New(slog.DiscardHandler)}
	a.startSession()
	scorer := newScorer(settings, a.session, a.logger)

	text := "Acme announced results."
	result := scorer.ScoreArticle(context.Background(), domain.ScoringArticle{
		ID:          1,
		ContentText: &text,
		Client:      domain.ClientContext{Name: "Acme", Industries: []string{"Energy"}},
	})
	assert.Equal(t, result.Method, domain.MethodLexical)
	assert.Equal(t, a.session.Stats().AICalls, 0)
}

func TestStartSessionResetsLedgerPerRun(t *testing.T) {
	t.Parallel()

	a := &Application{logger: slog.New(slog.DiscardHandler)}
	a.startSession()
	first, firstAnalyzer := a.session, a.analyzer
	first.Record(0.5)
	first.Disable("auth rejected")

	a.startSession()
	if a.session == first || a.analyzer == firstAnalyzer {
		t.Fatalf("each run must get its own session and analyzer")
	}
	assert.Equal(t, a.session.Stats(), scoring.SessionStats{})
	assert.Equal(t, first.Stats().AICalls, 1)
	assert.Equal(t, first.Stats().Disabled, true)
}
