package simulate

import (
	"context"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/opponent"
)

// #region mood

// Mood is how the counterpart is expected to receive the draft.
type Mood string

const (
	MoodCalm      Mood = "calm"
	MoodTriggered Mood = "triggered"
)

// triggerThreshold is the draft conflict score above which the counterpart
// is assumed triggered.
const triggerThreshold = 0.5

// MoodFor maps a draft's conflict score to a Mood.
func MoodFor(draftConflict float64) Mood {
	if draftConflict > triggerThreshold {
		return MoodTriggered
	}
	return MoodCalm
}

// #endregion mood

// #region generator

// GenerateRequest is everything a generator may use to phrase a reply.
type GenerateRequest struct {
	Draft     string
	DraftTurn dialogue.DialogueTurn
	Model     opponent.Model
	Mood      Mood
}

// Generator phrases the counterpart's reply to a draft.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Name() string
}

// Scorer is the part of the turn scorer the simulator needs.
type Scorer interface {
	Score(ctx context.Context, text string, speaker dialogue.Speaker) (dialogue.DialogueTurn, error)
}

// #endregion generator

// #region result

// Result is the outcome of one simulated exchange.
type Result struct {
	SimulatedResponse   string                `json:"simulated_response"`
	DraftAnalysis       dialogue.DialogueTurn `json:"draft_analysis"`
	ResponseAnalysis    dialogue.DialogueTurn `json:"response_analysis"`
	PredictedEscalation float64               `json:"predicted_escalation"`
	ConflictScoreChange float64               `json:"conflict_score_change"`
	Recommendation      string                `json:"recommendation"`
	Generator           string                `json:"generator"`
}

// #endregion result
