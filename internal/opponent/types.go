package opponent

import "github.com/danielpatrickdp/conflict-twin/internal/dialogue"

// #region style

// Style is the counterpart's dominant communication style.
type Style string

const (
	StyleAggressive        Style = "aggressive"
	StylePassiveAggressive Style = "passive_aggressive"
	StyleAvoidant          Style = "avoidant"
	StyleConstructive      Style = "constructive"
	StyleNeutral           Style = "neutral"
)

// ParseStyle maps a stored style name to a Style. Unknown names are neutral.
func ParseStyle(s string) Style {
	switch Style(s) {
	case StyleAggressive, StylePassiveAggressive, StyleAvoidant, StyleConstructive, StyleNeutral:
		return Style(s)
	}
	return StyleNeutral
}

// #endregion style

// #region model

// ResponsePattern pairs what was said with how the counterpart answered,
// both truncated.
type ResponsePattern struct {
	Trigger  string `json:"trigger"`
	Response string `json:"response"`
}

// Model is a statistical profile of one party. Once built it is treated as
// an immutable value; callers own caching and persistence.
type Model struct {
	LinguisticStyle           dialogue.LinguisticFeatures `json:"linguistic_style"`
	SentimentBaseline         float64                     `json:"sentiment_baseline"`
	AggressionBaseline        float64                     `json:"aggression_baseline"`
	PassiveAggressionBaseline float64                     `json:"passive_aggression_baseline"`
	TriggerWords              []string                    `json:"trigger_words"`
	ResponsePatterns          []ResponsePattern           `json:"response_patterns"`
	CommunicationStyle        Style                       `json:"communication_style"`
}

// Default is the model used when there is no history.
func Default() Model {
	return Model{
		AggressionBaseline:        0.3,
		PassiveAggressionBaseline: 0.2,
		TriggerWords:              []string{},
		ResponsePatterns:          []ResponsePattern{},
		CommunicationStyle:        StyleNeutral,
	}
}

// #endregion model
