package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/oracle"
)

// #region mock

// failingOracle fails every call with err.
type failingOracle struct {
	err error
}

func (f *failingOracle) Sentiment(context.Context, string) (dialogue.Sentiment, error) {
	return dialogue.Sentiment{}, f.err
}

func (f *failingOracle) Emotions(context.Context, string) (dialogue.Emotions, error) {
	return nil, f.err
}

func (f *failingOracle) LinguisticFeatures(context.Context, string) (dialogue.LinguisticFeatures, error) {
	return dialogue.LinguisticFeatures{}, f.err
}

const blameText = "You always ruin everything and it's your fault"

func blameOracle() *oracle.Static {
	o := oracle.NewStatic(nil)
	o.Set(blameText, oracle.Reading{
		Sentiment: dialogue.NewSentiment(dialogue.LabelNegative, 0.95),
		Emotions: dialogue.Emotions{
			{Name: "anger", Score: 0.7},
			{Name: "disgust", Score: 0.2},
			{Name: "joy", Score: 0.05},
		},
		Features: dialogue.LinguisticFeatures{YouCount: 1, SentenceCount: 1, WordCount: 8},
	})
	return o
}

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// #endregion mock

// #region compose-tests

func TestWeightsSumToOne(t *testing.T) {
	sum := WeightAggression + WeightPassiveAggression + WeightSentimentNegativity + WeightBiasSeverity
	if math.Abs(sum-1.0) > 1e-12 {
		t.Errorf("expected weights to sum to 1, got %v", sum)
	}
}

func TestSentimentNegativity_IgnoresConfidence(t *testing.T) {
	if got := SentimentNegativity(dialogue.NewSentiment(dialogue.LabelPositive, 0.51)); got != 0 {
		t.Errorf("expected 0 for positive, got %v", got)
	}
	if got := SentimentNegativity(dialogue.NewSentiment(dialogue.LabelNegative, 0.51)); got != 1 {
		t.Errorf("expected 1 for negative, got %v", got)
	}
}

func TestBiasSeverity_Proportional(t *testing.T) {
	low := BiasSeverity([]dialogue.BiasTag{{Severity: dialogue.SeverityLow}})
	crit := BiasSeverity([]dialogue.BiasTag{{Severity: dialogue.SeverityCritical}})
	if low != 0.2 || crit != 1.0 {
		t.Errorf("expected 0.2 and 1.0, got %v and %v", low, crit)
	}
	if BiasSeverity(nil) != 0 {
		t.Error("expected 0 with no tags")
	}
}

func TestConflictScore_Bounded(t *testing.T) {
	tags := []dialogue.BiasTag{{Severity: dialogue.SeverityCritical}}
	s := ConflictScore(1, 1, dialogue.NewSentiment(dialogue.LabelNegative, 1), tags)
	if s > 1 || s < 0 {
		t.Errorf("expected score in [0,1], got %v", s)
	}
}

// #endregion compose-tests

// #region score-tests

func TestScore_WeightedSum(t *testing.T) {
	s := NewTurnScorer(blameOracle(), nil).WithClock(func() time.Time { return fixedNow })
	turn, err := s.Score(context.Background(), blameText, dialogue.SpeakerCounterpart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turn.BiasTags) != 3 {
		t.Fatalf("expected 3 bias tags, got %d", len(turn.BiasTags))
	}
	biasTerm := (0.5 + 0.8 + 0.8) / 3
	want := 0.35*0.7 + 0.25*0 + 0.20*1 + 0.20*biasTerm
	if math.Abs(turn.ConflictScore-want) > 1e-9 {
		t.Errorf("expected conflict %v, got %v", want, turn.ConflictScore)
	}
	if turn.AggressionScore != 0.7 {
		t.Errorf("expected aggression 0.7, got %v", turn.AggressionScore)
	}
	if turn.DominantEmotion != "anger" {
		t.Errorf("expected anger dominant, got %s", turn.DominantEmotion)
	}
	if !turn.Timestamp.Equal(fixedNow) {
		t.Errorf("expected fixed timestamp, got %v", turn.Timestamp)
	}
	if turn.Speaker != dialogue.SpeakerCounterpart {
		t.Errorf("expected counterpart, got %s", turn.Speaker)
	}
}

func TestScore_PassiveAggressionUsesEmotions(t *testing.T) {
	o := oracle.NewStatic(nil)
	o.Set("Noted.", oracle.Reading{
		Sentiment: dialogue.NewSentiment(dialogue.LabelPositive, 0.6),
		Emotions:  dialogue.Emotions{{Name: "anger", Score: 0.1}, {Name: "disgust", Score: 0.5}},
	})
	turn, err := NewTurnScorer(o, nil).Score(context.Background(), "Noted.", dialogue.SpeakerSelf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.PassiveAggressionScore != 0.2 {
		t.Errorf("expected emotion boost of 0.2, got %v", turn.PassiveAggressionScore)
	}
	want := 0.35*0.1 + 0.25*0.2
	if math.Abs(turn.ConflictScore-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, turn.ConflictScore)
	}
	if turn.BiasTags == nil {
		t.Error("expected empty, non-nil bias tags")
	}
}

func TestScore_OracleUnavailable(t *testing.T) {
	s := NewTurnScorer(&failingOracle{err: oracle.ErrUnavailable}, nil)
	_, err := s.Score(context.Background(), "hello", dialogue.SpeakerSelf)
	if !oracle.IsUnavailable(err) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestScore_DataFormatPropagates(t *testing.T) {
	s := NewTurnScorer(&failingOracle{err: oracle.ErrDataFormat}, nil)
	_, err := s.Score(context.Background(), "hello", dialogue.SpeakerSelf)
	if !errors.Is(err, oracle.ErrDataFormat) {
		t.Errorf("expected ErrDataFormat, got %v", err)
	}
}

// #endregion score-tests

// #region batch-tests

func TestScoreBatch_InOrder(t *testing.T) {
	fallback := oracle.Reading{Sentiment: dialogue.NewSentiment(dialogue.LabelPositive, 0.9)}
	s := NewTurnScorer(oracle.NewStatic(&fallback), nil)
	turns, err := s.ScoreBatch(context.Background(), []Utterance{
		{Speaker: dialogue.SpeakerSelf, Text: "first"},
		{Speaker: dialogue.SpeakerCounterpart, Text: "second"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 2 || turns[0].Text != "first" || turns[1].Speaker != dialogue.SpeakerCounterpart {
		t.Errorf("unexpected turns: %+v", turns)
	}
}

func TestScoreBatch_Cancelled(t *testing.T) {
	fallback := oracle.Reading{Sentiment: dialogue.NewSentiment(dialogue.LabelPositive, 0.9)}
	o := oracle.NewStatic(&fallback)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	turns, err := NewTurnScorer(o, nil).ScoreBatch(ctx, []Utterance{{Text: "a"}, {Text: "b"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(turns) != 0 || o.Calls() != 0 {
		t.Errorf("expected no work after cancel, got %d turns, %d calls", len(turns), o.Calls())
	}
}

// #endregion batch-tests

// #region quick-tests

func TestQuickScore_BlankSkipsOracle(t *testing.T) {
	o := oracle.NewStatic(nil)
	r, err := NewTurnScorer(o, nil).QuickScore(context.Background(), "   \n\t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Calls() != 0 {
		t.Errorf("expected no oracle calls, got %d", o.Calls())
	}
	if r.ConflictScore != 0 || r.WarningLevel != WarningSafe || r.Color != "green" || r.Sentiment != "neutral" {
		t.Errorf("unexpected blank result: %+v", r)
	}
}

func TestQuickScore_Blame(t *testing.T) {
	r, err := NewTurnScorer(blameOracle(), nil).QuickScore(context.Background(), blameText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.WarningLevel != WarningCaution || r.Color != "yellow" {
		t.Errorf("expected caution/yellow, got %s/%s", r.WarningLevel, r.Color)
	}
	if r.QuickTip != "Avoid 'always' and 'never'" {
		t.Errorf("unexpected tip: %q", r.QuickTip)
	}
}

func TestWarning_Thresholds(t *testing.T) {
	cases := []struct {
		score float64
		level WarningLevel
	}{
		{0, WarningSafe}, {0.29, WarningSafe}, {0.3, WarningCaution}, {0.59, WarningCaution}, {0.6, WarningDanger}, {1, WarningDanger},
	}
	for _, c := range cases {
		if got, _ := Warning(c.score); got != c.level {
			t.Errorf("score %v: expected %s, got %s", c.score, c.level, got)
		}
	}
}

// #endregion quick-tests
