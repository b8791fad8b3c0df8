package scoring

import "github.com/danielpatrickdp/conflict-twin/internal/dialogue"

// #region compose

// SentimentNegativity is 0 for a positive label and 1 for a negative one.
// The oracle's confidence is deliberately not blended in.
func SentimentNegativity(s dialogue.Sentiment) float64 {
	polarity := -1.0
	if s.Label == dialogue.LabelPositive {
		polarity = 1.0
	}
	return (1 - polarity) / 2
}

// BiasSeverity is the mean severity weight of tags, 0 when there are none.
func BiasSeverity(tags []dialogue.BiasTag) float64 {
	if len(tags) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tags {
		sum += t.Severity.Weight()
	}
	return sum / float64(len(tags))
}

// ConflictScore combines the four signals into a score capped at 1. Every
// term is non-negative so no lower clamp is needed.
func ConflictScore(aggression, passiveAggression float64, s dialogue.Sentiment, tags []dialogue.BiasTag) float64 {
	score := WeightAggression*aggression +
		WeightPassiveAggression*passiveAggression +
		WeightSentimentNegativity*SentimentNegativity(s) +
		WeightBiasSeverity*BiasSeverity(tags)
	if score > 1 {
		return 1
	}
	return score
}

// #endregion compose
