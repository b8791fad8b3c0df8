package replay

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

// helper: pre-scored turns with the given conflict scores.
func scored(scores ...float64) []dialogue.DialogueTurn {
	out := make([]dialogue.DialogueTurn, len(scores))
	for i, s := range scores {
		out[i] = dialogue.DialogueTurn{Speaker: dialogue.SpeakerSelf, Text: "x", ConflictScore: s, BiasTags: []dialogue.BiasTag{}}
	}
	return out
}

func fp(v float64) *float64 { return &v }

func TestReplay_OneStepPerPrefix(t *testing.T) {
	steps := Replay(scored(0.1, 0.1, 0.1), analysis.NewAnalyzer(analysis.DefaultConfig()))
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	for i, s := range steps {
		if s.TurnCount != i+1 || s.Trend != analysis.TrendStable {
			t.Errorf("step %d = %+v", i, s)
		}
	}
}

func TestReplay_Empty(t *testing.T) {
	if steps := Replay(nil, analysis.NewAnalyzer(analysis.DefaultConfig())); len(steps) != 0 {
		t.Errorf("expected no steps, got %d", len(steps))
	}
}

func TestCheck_ReportsMismatches(t *testing.T) {
	steps := Replay(scored(0.2, 0.4), analysis.NewAnalyzer(analysis.DefaultConfig()))
	got := Check(steps, []Expectation{
		{AfterTurn: 1, Trend: "escalating"},
		{AfterTurn: 2, EscalationMax: fp(0.5), OverallMin: fp(0.9)},
		{AfterTurn: 2, Categories: []string{"positive"}},
		{AfterTurn: 5},
	})
	fields := make([]string, len(got))
	for i, m := range got {
		fields[i] = m.Field
	}
	want := []string{"trend", "escalation", "overall", "categories", "after_turn"}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("mismatch fields (-want +got):\n%s", diff)
	}
}

func TestCheck_AllHold(t *testing.T) {
	steps := Replay(scored(0.2, 0.4), analysis.NewAnalyzer(analysis.DefaultConfig()))
	got := Check(steps, []Expectation{{AfterTurn: 2, Trend: "escalating", EscalationMin: fp(0.9), Categories: []string{"intervention"}}})
	if len(got) != 0 {
		t.Errorf("unexpected mismatches: %v", got)
	}
}

func TestSubsequence(t *testing.T) {
	got := []string{"de-escalation", "intervention", "cognitive", "cognitive"}
	if !subsequence([]string{"intervention", "cognitive"}, got) {
		t.Error("expected ordered subsequence to match")
	}
	if subsequence([]string{"cognitive", "intervention"}, got) {
		t.Error("expected out of order to fail")
	}
	if !subsequence(nil, got) {
		t.Error("empty want always matches")
	}
}

func TestSummarize(t *testing.T) {
	steps := Replay(scored(0.2, 0.4, 0.6, 0.2), analysis.NewAnalyzer(analysis.DefaultConfig()))
	s := Summarize(steps)
	if s.TotalTurns != 4 || s.Stable+s.Escalating+s.Deescalating != 4 {
		t.Errorf("summary counts = %+v", s)
	}
	if s.PeakTurn == 0 || s.PeakEscalation < steps[0].Escalation {
		t.Errorf("peak = %d %.3f", s.PeakTurn, s.PeakEscalation)
	}
	if empty := Summarize(nil); empty.FinalTrend != analysis.TrendStable {
		t.Errorf("empty summary trend = %q", empty.FinalTrend)
	}
}

func TestCategories_DistinctSorted(t *testing.T) {
	steps := []Step{{Categories: []string{"positive"}}, {Categories: []string{"intervention", "cognitive"}}, {Categories: []string{"cognitive"}}}
	got := Categories(steps)
	if !slices.Equal(got, []string{"cognitive", "intervention", "positive"}) {
		t.Errorf("Categories = %v", got)
	}
}

func TestTurns_StopsWhenCancelled(t *testing.T) {
	f, err := LoadFixture("testdata/escalating_argument.yaml")
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	turns, err := Turns(ctx, f, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if turns != nil {
		t.Errorf("expected no turns on cancellation, got %d", len(turns))
	}
}
