package scoring

import "github.com/danielpatrickdp/conflict-twin/internal/dialogue"

// #region weights

// Conflict score weights. They sum to 1.0.
const (
	WeightAggression          = 0.35
	WeightPassiveAggression   = 0.25
	WeightSentimentNegativity = 0.20
	WeightBiasSeverity        = 0.20
)

// #endregion weights

// #region quick

// WarningLevel buckets a conflict score for the realtime thermometer.
type WarningLevel string

const (
	WarningSafe    WarningLevel = "safe"
	WarningCaution WarningLevel = "caution"
	WarningDanger  WarningLevel = "danger"
)

// QuickResult is the lightweight score shown while a message is being typed.
type QuickResult struct {
	ConflictScore          float64      `json:"conflict_score"`
	AggressionScore        float64      `json:"aggression_score"`
	PassiveAggressionScore float64      `json:"passive_aggression_score"`
	Sentiment              string       `json:"sentiment"`
	WarningLevel           WarningLevel `json:"warning_level"`
	Color                  string       `json:"color"`
	QuickTip               string       `json:"quick_tip,omitempty"`
}

// #endregion quick

// #region batch

// Utterance is one unscored line of a conversation.
type Utterance struct {
	Speaker dialogue.Speaker `json:"speaker" yaml:"speaker"`
	Text    string           `json:"text" yaml:"text"`
}

// #endregion batch
