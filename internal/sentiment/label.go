package sentiment

import "SentimentVision/internal/domain"

// Label maps a score to its category: [pos, 1] positive, [neg, pos) neutral, below neg negative.
func Label(score float64, t domain.Thresholds) domain.Label {
	switch {
	case score >= t.Positive:
		return domain.LabelPositive
	case score < t.Negative:
		return domain.LabelNegative
	default:
		return domain.LabelNeutral
	}
}
