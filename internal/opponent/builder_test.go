package opponent

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/oracle"
)

// #region helpers

func turn(speaker dialogue.Speaker, text string, conflict, aggression, pa float64, label dialogue.SentimentLabel, conf float64) dialogue.DialogueTurn {
	return dialogue.DialogueTurn{
		Speaker:                speaker,
		Text:                   text,
		ConflictScore:          conflict,
		AggressionScore:        aggression,
		PassiveAggressionScore: pa,
		Sentiment:              dialogue.NewSentiment(label, conf),
	}
}

func staticFeatures(f dialogue.LinguisticFeatures) *oracle.Static {
	return oracle.NewStatic(&oracle.Reading{Features: f})
}

// #endregion helpers

// #region default-tests

func TestBuild_EmptyHistory(t *testing.T) {
	o := oracle.NewStatic(nil)
	m, err := NewBuilder(o, nil).Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(Default(), m); diff != "" {
		t.Errorf("default mismatch (-want +got):\n%s", diff)
	}
	if m.AggressionBaseline != 0.3 || m.CommunicationStyle != StyleNeutral {
		t.Errorf("unexpected default: %+v", m)
	}
	if o.Calls() != 0 {
		t.Errorf("expected no oracle calls, got %d", o.Calls())
	}
}

// #endregion default-tests

// #region baseline-tests

func TestBuild_Baselines(t *testing.T) {
	history := []dialogue.DialogueTurn{
		turn(dialogue.SpeakerCounterpart, "You never listen", 0.8, 0.8, 0.1, dialogue.LabelNegative, 0.9),
		turn(dialogue.SpeakerCounterpart, "Whatever.", 0.4, 0.4, 0.5, dialogue.LabelPositive, 0.5),
	}
	o := staticFeatures(dialogue.LinguisticFeatures{YouCount: 1, ICount: 1, QuestionCount: 1})
	m, err := NewBuilder(o, nil).Build(context.Background(), history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(m.SentimentBaseline-(-0.2)) > 1e-9 {
		t.Errorf("expected sentiment baseline -0.2, got %v", m.SentimentBaseline)
	}
	if math.Abs(m.AggressionBaseline-0.6) > 1e-9 {
		t.Errorf("expected aggression baseline 0.6, got %v", m.AggressionBaseline)
	}
	if math.Abs(m.PassiveAggressionBaseline-0.3) > 1e-9 {
		t.Errorf("expected passive aggression baseline 0.3, got %v", m.PassiveAggressionBaseline)
	}
	if o.Calls() != 1 {
		t.Errorf("expected one features call for the concatenated text, got %d", o.Calls())
	}
	if diff := cmp.Diff([]string{"You never listen"}, m.TriggerWords); diff != "" {
		t.Errorf("trigger words mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_OracleError(t *testing.T) {
	history := []dialogue.DialogueTurn{turn(dialogue.SpeakerCounterpart, "hi", 0, 0, 0, dialogue.LabelPositive, 1)}
	_, err := NewBuilder(oracle.NewStatic(nil), nil).Build(context.Background(), history)
	if !oracle.IsUnavailable(err) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

// #endregion baseline-tests

// #region extract-tests

func TestTriggerWords_ShortHighConflictFirstFive(t *testing.T) {
	var history []dialogue.DialogueTurn
	history = append(history, turn(dialogue.SpeakerCounterpart, strings.Repeat("x", 60), 0.9, 0, 0, dialogue.LabelNegative, 1))
	for i := 0; i < 7; i++ {
		history = append(history, turn(dialogue.SpeakerCounterpart, "stop "+string(rune('a'+i)), 0.7, 0, 0, dialogue.LabelNegative, 1))
	}
	history = append(history, turn(dialogue.SpeakerCounterpart, "ok", 0.6, 0, 0, dialogue.LabelNegative, 1))

	got := triggerWords(history)
	want := []string{"stop a", "stop b", "stop c", "stop d", "stop e"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trigger mismatch (-want +got):\n%s", diff)
	}
}

func TestResponsePatterns_PairsWithPreviousTurn(t *testing.T) {
	long := strings.Repeat("y", 80)
	history := []dialogue.DialogueTurn{
		{Speaker: dialogue.SpeakerCounterpart, Text: "first"},
		{Speaker: dialogue.SpeakerSelf, Text: long},
		{Speaker: dialogue.SpeakerCounterpart, Text: "reply"},
		{Speaker: dialogue.SpeakerSelf, Text: "again"},
	}
	got := responsePatterns(history)
	want := []ResponsePattern{{Trigger: strings.Repeat("y", 50), Response: "reply"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pattern mismatch (-want +got):\n%s", diff)
	}
}

// #endregion extract-tests

// #region classify-tests

func TestClassify_FirstMatchWins(t *testing.T) {
	cases := []struct {
		name   string
		agg    float64
		pa     float64
		f      dialogue.LinguisticFeatures
		expect Style
	}{
		{"high aggression", 0.7, 0.9, dialogue.LinguisticFeatures{}, StyleAggressive},
		{"passive", 0.4, 0.6, dialogue.LinguisticFeatures{}, StylePassiveAggressive},
		{"you statements", 0.4, 0.4, dialogue.LinguisticFeatures{YouCount: 5, ICount: 2}, StyleAggressive},
		{"no questions calm", 0.2, 0.1, dialogue.LinguisticFeatures{}, StyleAvoidant},
		{"calm with questions", 0.2, 0.1, dialogue.LinguisticFeatures{QuestionCount: 2}, StyleConstructive},
		{"middle", 0.4, 0.4, dialogue.LinguisticFeatures{QuestionCount: 1, ICount: 3}, StyleNeutral},
	}
	for _, c := range cases {
		if got := Classify(c.agg, c.pa, c.f); got != c.expect {
			t.Errorf("%s: expected %s, got %s", c.name, c.expect, got)
		}
	}
}

func TestParseStyle_UnknownIsNeutral(t *testing.T) {
	if ParseStyle("sarcastic") != StyleNeutral {
		t.Error("expected neutral for unknown style")
	}
	if ParseStyle("avoidant") != StyleAvoidant {
		t.Error("expected avoidant")
	}
}

// #endregion classify-tests
