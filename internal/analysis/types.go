package analysis

import "github.com/danielpatrickdp/conflict-twin/internal/dialogue"

// #region config
// Config holds the analyzer's fixed thresholds.
type Config struct {
	TrendThreshold  float64 // |slope| above this is escalating / de-escalating
	RecentWindow    int     // trailing turns averaged for recent severity
	HighConflict    float64 // overall score above this suggests a pause
	EscalationAlert float64 // escalation above this suggests an intervention
	LowConflict     float64 // overall score below this earns positive feedback
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		TrendThreshold:  0.05,
		RecentWindow:    3,
		HighConflict:    0.7,
		EscalationAlert: 0.6,
		LowConflict:     0.3,
	}
}

// #endregion config

// #region trend
// Trend is the direction of a conversation's conflict scores.
type Trend string

const (
	TrendEscalating   Trend = "escalating"
	TrendDeescalating Trend = "de-escalating"
	TrendStable       Trend = "stable"
)

// #endregion trend

// #region nvc
// NVCAnalysis maps the last message onto observation, evaluation, emotion and need.
type NVCAnalysis struct {
	Observation   string  `json:"observation"`
	HasEvaluation bool    `json:"has_evaluation"`
	Emotion       string  `json:"emotion"`
	LikelyNeed    string  `json:"likely_need"`
	NVCScore      float64 `json:"nvc_score"`
}

// #endregion nvc

// #region recommendation
// Priority orders recommendations for display.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Recommendation is one actionable suggestion.
type Recommendation struct {
	Priority    Priority `json:"priority"`
	Category    string   `json:"category"`
	Action      string   `json:"action"`
	Description string   `json:"description"`
}

// #endregion recommendation

// #region analysis
// Metrics are summary statistics over all turns.
type Metrics struct {
	AvgAggression float64 `json:"avg_aggression"`
	MaxConflict   float64 `json:"max_conflict"`
	TotalBiases   int     `json:"total_biases"`
}

// ConversationAnalysis is recomputed from the full turn sequence every time.
type ConversationAnalysis struct {
	OverallConflictScore   float64            `json:"overall_conflict_score"`
	EscalationProbability  float64            `json:"escalation_probability"`
	PassiveAggressionIndex float64            `json:"passive_aggression_index"`
	Trend                  Trend              `json:"trend"`
	CognitiveBiases        []dialogue.BiasTag `json:"cognitive_biases"`
	NVC                    *NVCAnalysis       `json:"nvc_analysis,omitempty"`
	Recommendations        []Recommendation   `json:"recommendations"`
	Metrics                Metrics            `json:"metrics"`
}

// Categories lists recommendation categories in output order.
func (a ConversationAnalysis) Categories() []string {
	out := make([]string, len(a.Recommendations))
	for i, r := range a.Recommendations {
		out[i] = r.Category
	}
	return out
}

// #endregion analysis
