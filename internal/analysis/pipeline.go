package analysis

import "github.com/danielpatrickdp/conflict-twin/internal/dialogue"

// #region pipeline

// Stage is one step of the per-turn explanation: what was said, what was
// felt, which biases fired, the likely need, and the risk.
type Stage struct {
	Stage   string `json:"stage"`
	Label   string `json:"label"`
	Content any    `json:"content"`
}

// PipelineStep explains a single turn.
type PipelineStep struct {
	Index   int              `json:"index"`
	TurnID  string           `json:"turn_id,omitempty"`
	Speaker dialogue.Speaker `json:"speaker"`
	Stages  []Stage          `json:"stages"`
}

// EmotionStage is the content of the "emotion" stage.
type EmotionStage struct {
	Sentiment         dialogue.Sentiment `json:"sentiment"`
	Dominant          string             `json:"dominant"`
	Emotions          map[string]float64 `json:"emotions"`
	Aggression        float64            `json:"aggression"`
	PassiveAggression float64            `json:"passive_aggression"`
}

// RiskStage is the content of the "risk" stage.
type RiskStage struct {
	ConflictScore     float64 `json:"conflict_score"`
	OverallEscalation float64 `json:"overall_escalation"`
}

// Pipeline lays out input → emotion → bias → nvc → risk for each turn.
// The nvc and risk stages carry conversation-level values from a.
func Pipeline(turns []dialogue.DialogueTurn, a ConversationAnalysis) []PipelineStep {
	steps := make([]PipelineStep, 0, len(turns))
	for i, t := range turns {
		var nvc any = struct{}{}
		if a.NVC != nil {
			nvc = *a.NVC
		}
		steps = append(steps, PipelineStep{
			Index:   i,
			TurnID:  t.ID,
			Speaker: t.Speaker,
			Stages: []Stage{
				{Stage: "input", Label: "Said", Content: t.Text},
				{Stage: "emotion", Label: "Detected Emotion", Content: EmotionStage{
					Sentiment:         t.Sentiment,
					Dominant:          t.DominantEmotion,
					Emotions:          t.Emotions.Map(),
					Aggression:        t.AggressionScore,
					PassiveAggression: t.PassiveAggressionScore,
				}},
				{Stage: "bias", Label: "Cognitive Biases", Content: t.BiasTags},
				{Stage: "nvc", Label: "Hidden Need", Content: nvc},
				{Stage: "risk", Label: "Escalation Risk", Content: RiskStage{
					ConflictScore:     t.ConflictScore,
					OverallEscalation: a.EscalationProbability,
				}},
			},
		})
	}
	return steps
}

// #endregion pipeline
