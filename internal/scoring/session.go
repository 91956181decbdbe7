package scoring

import (
	"math"
	"sync"
)

// Session is the ledger of contextual scoring spend for one run: a single CLI
// invocation, or one scheduled run in daemon mode, which starts a fresh Session per
// tick. The budget and auth-disable state therefore reset with every run.
// It is safe for concurrent use; nothing is persisted across runs.
type Session struct {
	mu             sync.Mutex
	calls          int
	spentUSD       float64
	disabled       bool
	disabledReason string
	budgetWarned   bool
}

// SessionStats is a point-in-time snapshot of the ledger.
type SessionStats struct {
	AICalls          int
	EstimatedCostUSD float64
	Disabled         bool
	DisabledReason   string
}

// NewSession starts an empty ledger.
func NewSession() *Session {
	return &Session{}
}

// Record adds one completed provider call and its estimated cost.
func (s *Session) Record(costUSD float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.spentUSD += costUSD
}

// Calls returns the number of recorded provider calls.
func (s *Session) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// SpentUSD returns the cumulative estimated spend.
func (s *Session) SpentUSD() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spentUSD
}

// Disable turns contextual scoring off for the rest of the session.
// It reports true only for the call that flipped the flag.
func (s *Session) Disable(reason string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disabled {
		return false
	}
	s.disabled = true
	s.disabledReason = reason
	return true
}

// Disabled reports whether contextual scoring was turned off.
func (s *Session) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// markBudgetWarned reports true the first time it is called.
func (s *Session) markBudgetWarned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budgetWarned {
		return false
	}
	s.budgetWarned = true
	return true
}

// Stats returns a snapshot with cost rounded to six decimals.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionStats{
		AICalls:          s.calls,
		EstimatedCostUSD: math.Round(s.spentUSD*1e6) / 1e6,
		Disabled:         s.disabled,
		DisabledReason:   s.disabledReason,
	}
}
