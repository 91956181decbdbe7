package domain

import "math"

// Label is the categorical sentiment of an article.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// ScoreMethod records which scorer produced the final score.
type ScoreMethod string

const (
	MethodLexical    ScoreMethod = "lexical"
	MethodContextual ScoreMethod = "contextual"
)

// Thresholds split the score range into labels.
// Neutral band is [Negative, Positive).
type Thresholds struct {
	Positive float64
	Negative float64
}

// DefaultThresholds are used when configuration leaves them unset.
var DefaultThresholds = Thresholds{Positive: 0.2, Negative: -0.2}

// InNeutralBand reports whether score falls between the thresholds.
func (t Thresholds) InNeutralBand(score float64) bool {
	return score >= t.Negative && score < t.Positive
}

// ScoreResult is the persisted sentiment of an article.
type ScoreResult struct {
	Score  float64
	Label  Label
	Method ScoreMethod
}

// NeutralResult is returned for articles without any text.
func NeutralResult() ScoreResult {
	return ScoreResult{Score: 0, Label: LabelNeutral, Method: MethodLexical}
}

// Round4 rounds to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
