package domain

// ModelRequest is one call to an external sentiment model.
type ModelRequest struct {
	System      string
	User        string
	Model       string
	MaxTokens   int
	Temperature float64
}

// TokenUsage reports billed tokens for a call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// OutcomeKind is the closed set of results a model call can produce.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeAuthRejected
	OutcomeRateLimited
	OutcomeUnreachable
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeAuthRejected:
		return "auth_rejected"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ModelOutcome carries either a completed response or a classified failure.
// Text and Usage are only meaningful when Kind is OutcomeOK; Err only otherwise.
type ModelOutcome struct {
	Kind  OutcomeKind
	Text  string
	Usage TokenUsage
	Err   error
}

// Completed builds a successful outcome.
func Completed(text string, usage TokenUsage) ModelOutcome {
	return ModelOutcome{Kind: OutcomeOK, Text: text, Usage: usage}
}

// Failed builds a failed outcome of the given kind.
func Failed(kind OutcomeKind, err error) ModelOutcome {
	return ModelOutcome{Kind: kind, Err: err}
}
