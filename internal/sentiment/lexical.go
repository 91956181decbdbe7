package sentiment

import (
	"math"
	"unicode/utf8"
)

const (
	// ShortTextLimit is the length up to which text is scored as a whole.
	ShortTextLimit = 280
	// MinSentenceLength drops fragments too short to carry sentiment.
	MinSentenceLength = 10
	// SignificanceFloor separates opinionated sentences from filler.
	SignificanceFloor = 0.05
)

// LexicalScorer aggregates sentence polarity so long articles are not diluted by neutral filler.
type LexicalScorer struct {
	analyzer Analyzer
}

// NewLexicalScorer wires an analyzer; nil selects VADER.
func NewLexicalScorer(analyzer Analyzer) *LexicalScorer {
	if analyzer == nil {
		analyzer = NewVaderAnalyzer()
	}
	return &LexicalScorer{analyzer: analyzer}
}

// Score returns a polarity in [-1, 1].
func (s *LexicalScorer) Score(text string) float64 {
	if utf8.RuneCountInString(text) <= ShortTextLimit {
		return s.analyzer.Polarity(text)
	}

	sentences := Segment(text)
	if len(sentences) == 0 {
		return s.analyzer.Polarity(text)
	}

	scores := make([]float64, 0, len(sentences))
	for _, sentence := range sentences {
		if utf8.RuneCountInString(sentence) < MinSentenceLength {
			continue
		}
		scores = append(scores, s.analyzer.Polarity(sentence))
	}
	if len(scores) == 0 {
		return 0
	}

	significant := make([]float64, 0, len(scores))
	for _, v := range scores {
		if math.Abs(v) > SignificanceFloor {
			significant = append(significant, v)
		}
	}
	if len(significant) > 0 {
		return mean(significant)
	}
	return mean(scores)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
