package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielpatrickdp/conflict-twin/internal/bias"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/oracle"
	"github.com/danielpatrickdp/conflict-twin/internal/passive"
)

// #region scorer

// TurnScorer turns raw text into a fully scored DialogueTurn using the oracle
// plus the bias and passive aggression heuristics.
type TurnScorer struct {
	oracle oracle.Oracle
	logger *slog.Logger
	now    func() time.Time
}

// NewTurnScorer creates a TurnScorer. logger may be nil.
func NewTurnScorer(o oracle.Oracle, logger *slog.Logger) *TurnScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnScorer{
		oracle: o,
		logger: logger.With(slog.String("component", "scoring")),
		now:    time.Now,
	}
}

// WithClock returns a copy of s that stamps turns using now.
func (s *TurnScorer) WithClock(now func() time.Time) *TurnScorer {
	c := *s
	c.now = now
	return &c
}

// #endregion scorer

// #region score

// Score scores one utterance. Oracle failures are returned as-is (wrapped);
// no default values are substituted.
func (s *TurnScorer) Score(ctx context.Context, text string, speaker dialogue.Speaker) (dialogue.DialogueTurn, error) {
	sentiment, err := s.oracle.Sentiment(ctx, text)
	if err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("score turn: %w", err)
	}
	emotions, err := s.oracle.Emotions(ctx, text)
	if err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("score turn: %w", err)
	}
	features, err := s.oracle.LinguisticFeatures(ctx, text)
	if err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("score turn: %w", err)
	}

	tags := bias.Detect(text)
	if tags == nil {
		tags = []dialogue.BiasTag{}
	}
	aggression := emotions.Get("anger")
	pa := passive.Score(text, emotions)

	turn := dialogue.DialogueTurn{
		Speaker:                speaker,
		Text:                   text,
		Timestamp:              s.now().UTC(),
		Sentiment:              sentiment,
		Emotions:               emotions,
		DominantEmotion:        emotions.Dominant(),
		AggressionScore:        aggression,
		PassiveAggressionScore: pa,
		ConflictScore:          ConflictScore(aggression, pa, sentiment, tags),
		BiasTags:               tags,
		LinguisticFeatures:     features,
	}
	s.logger.Debug("turn scored",
		"speaker", speaker,
		"conflict", turn.ConflictScore,
		"biases", len(tags),
		"dominant", turn.DominantEmotion,
	)
	return turn, nil
}

// #endregion score

// #region batch

// ScoreBatch scores utterances in order, checking for cancellation between
// turns. On error the turns scored so far are returned with it.
func (s *TurnScorer) ScoreBatch(ctx context.Context, items []Utterance) ([]dialogue.DialogueTurn, error) {
	turns := make([]dialogue.DialogueTurn, 0, len(items))
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return turns, fmt.Errorf("score batch at turn %d: %w", i, err)
		}
		turn, err := s.Score(ctx, it.Text, it.Speaker)
		if err != nil {
			return turns, fmt.Errorf("score batch at turn %d: %w", i, err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// #endregion batch

// #region quick

// QuickScore is the realtime thermometer. Blank text short-circuits to a safe
// zero score without touching the oracle.
func (s *TurnScorer) QuickScore(ctx context.Context, text string) (QuickResult, error) {
	if strings.TrimSpace(text) == "" {
		return QuickResult{Sentiment: "neutral", WarningLevel: WarningSafe, Color: "green"}, nil
	}
	turn, err := s.Score(ctx, text, dialogue.SpeakerSelf)
	if err != nil {
		return QuickResult{}, err
	}
	level, color := Warning(turn.ConflictScore)
	return QuickResult{
		ConflictScore:          turn.ConflictScore,
		AggressionScore:        turn.AggressionScore,
		PassiveAggressionScore: turn.PassiveAggressionScore,
		Sentiment:              string(turn.Sentiment.Label),
		WarningLevel:           level,
		Color:                  color,
		QuickTip:               quickTip(turn),
	}, nil
}

// Warning maps a conflict score to a warning level and display color.
func Warning(score float64) (WarningLevel, string) {
	switch {
	case score < 0.3:
		return WarningSafe, "green"
	case score < 0.6:
		return WarningCaution, "yellow"
	default:
		return WarningDanger, "red"
	}
}

func quickTip(turn dialogue.DialogueTurn) string {
	switch {
	case turn.ConflictScore < 0.3:
		return "Tone is constructive"
	case dialogue.HasBias(turn.BiasTags, dialogue.BiasOvergeneralization):
		return "Avoid 'always' and 'never'"
	case dialogue.HasBias(turn.BiasTags, dialogue.BiasMindReading):
		return "Ask instead of assuming"
	case turn.AggressionScore > 0.6:
		return "High aggression detected"
	case turn.PassiveAggressionScore > 0.5:
		return "Sounds passive-aggressive"
	}
	return "Consider rephrasing"
}

// #endregion quick
