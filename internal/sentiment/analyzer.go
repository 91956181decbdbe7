package sentiment

import (
	"sync"

	"github.com/jonreiter/govader"
	"golang.org/x/text/unicode/norm"

	"SentimentVision/internal/domain"
)

// Analyzer returns a compound polarity in [-1, 1] for a piece of text.
type Analyzer interface {
	Polarity(text string) float64
}

// vader is loaded once per process; building it parses the full lexicon.
var vader = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// VaderAnalyzer scores text with the VADER lexicon and rules.
type VaderAnalyzer struct {
	sia *govader.SentimentIntensityAnalyzer
}

var _ Analyzer = (*VaderAnalyzer)(nil)

// NewVaderAnalyzer returns an analyzer sharing the process-wide lexicon.
func NewVaderAnalyzer() *VaderAnalyzer {
	return &VaderAnalyzer{sia: vader()}
}

// Polarity returns the VADER compound score rounded to four decimals.
// Compatibility forms (ligatures, full-width letters) are folded first so scraped
// text hits the lexicon.
func (a *VaderAnalyzer) Polarity(text string) float64 {
	return domain.Round4(a.sia.PolarityScores(norm.NFKC.String(text)).Compound)
}
