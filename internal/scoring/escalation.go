package scoring

import (
	"SentimentVision/internal/config"
	"SentimentVision/internal/domain"
)

// Reason explains an escalation decision.
type Reason string

const (
	ReasonEscalate        Reason = "escalate"
	ReasonOutsideBand     Reason = "outside_band"
	ReasonDisabled        Reason = "disabled_in_config"
	ReasonNoClient        Reason = "no_client"
	ReasonSessionDisabled Reason = "session_disabled"
	ReasonBudgetExhausted Reason = "budget_exhausted"
)

// Decision is the outcome of EscalationPolicy.Decide.
type Decision struct {
	Escalate bool
	Reason   Reason
}

// EscalationPolicy decides when an inconclusive lexical score is worth a paid call.
type EscalationPolicy struct {
	thresholds domain.Thresholds
	enabled    bool
	dailyCap   float64
}

// NewEscalationPolicy derives the policy from sentiment settings.
// The cap is monthly_budget_usd / 30 and bounds spend per session.
func NewEscalationPolicy(cfg config.SentimentConfig) EscalationPolicy {
	return EscalationPolicy{
		thresholds: cfg.Thresholds(),
		enabled:    cfg.AIScoring.Enabled,
		dailyCap:   cfg.AIScoring.MonthlyBudgetUSD / 30,
	}
}

// DailyCap returns the per-session spend ceiling in USD.
func (p EscalationPolicy) DailyCap() float64 {
	return p.dailyCap
}

// Decide evaluates the neutral band, configuration, client context and budget, in that order.
func (p EscalationPolicy) Decide(lexical float64, client domain.ClientContext, session *Session) Decision {
	switch {
	case !p.thresholds.InNeutralBand(lexical):
		return Decision{Reason: ReasonOutsideBand}
	case !p.enabled:
		return Decision{Reason: ReasonDisabled}
	case client.IsZero():
		return Decision{Reason: ReasonNoClient}
	case session == nil || session.Disabled():
		return Decision{Reason: ReasonSessionDisabled}
	case session.SpentUSD() >= p.dailyCap:
		return Decision{Reason: ReasonBudgetExhausted}
	default:
		return Decision{Escalate: true, Reason: ReasonEscalate}
	}
}
