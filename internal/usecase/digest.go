package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"SentimentVision/internal/domain"
	"SentimentVision/internal/ports"
)

// RunSummary collects what one command did, for the end-of-run digest.
type RunSummary struct {
	RunID   string
	Command string
	Gather  *GatherReport
	Analyze *AnalyzeReport
	Tagged  int
	Refetch *RefetchReport
}

// Digest publishes run summaries through a notifier. A nil notifier makes it a no-op.
type Digest struct {
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewDigest constructs the digest publisher.
func NewDigest(notifier ports.Notifier, logger *slog.Logger) *Digest {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Digest{notifier: notifier, logger: logger}
}

// Publish renders and sends the summary. Empty summaries are not sent.
func (d *Digest) Publish(ctx context.Context, summary RunSummary) error {
	if d == nil || d.notifier == nil {
		return nil
	}
	message := BuildDigestMessage(summary)
	if message == "" {
		return nil
	}
	if err := d.notifier.PublishDigest(ctx, message); err != nil {
		return fmt.Errorf("publish digest: %w", err)
	}
	d.logger.Info("digest published", "run_id", summary.RunID)
	return nil
}

// BuildDigestMessage renders the plain-text digest.
func BuildDigestMessage(s RunSummary) string {
	if s.Gather == nil && s.Analyze == nil && s.Refetch == nil && s.Tagged == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SentimentVision %s (run %s)\n\n", s.Command, s.RunID)

	if g := s.Gather; g != nil {
		fmt.Fprintf(&b, "Sources: %d (%d failed)\nFound: %d\nStored: %d\nDuplicates: %d\nTagged: %d\n\n",
			g.Sources, g.FailedSources, g.Found, g.Stored, g.Duplicates, g.Tagged)
	}
	if s.Tagged > 0 {
		fmt.Fprintf(&b, "Articles tagged: %d\n\n", s.Tagged)
	}
	if r := s.Refetch; r != nil {
		fmt.Fprintf(&b, "Refetched: %d of %d\nRetagged: %d\n\n", r.Updated, r.Selected, r.Retagged)
	}
	if a := s.Analyze; a != nil {
		fmt.Fprintf(&b, "Scored: %d (positive %d, neutral %d, negative %d)\n",
			a.Scored,
			a.Labels[domain.LabelPositive],
			a.Labels[domain.LabelNeutral],
			a.Labels[domain.LabelNegative])
		fmt.Fprintf(&b, "Contextual: %d calls, $%.4f\n", a.Session.AICalls, a.Session.EstimatedCostUSD)
		if a.Session.Disabled {
			fmt.Fprintf(&b, "Contextual scoring disabled: %s\n", a.Session.DisabledReason)
		}
		b.WriteString("\n")
		for _, n := range a.Notable {
			fmt.Fprintf(&b, "- %s\nClient: %s\nScore: %.2f (%s)\n\n", n.Title, n.Client, n.Result.Score, n.Result.Method)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
