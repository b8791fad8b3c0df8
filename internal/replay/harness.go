package replay

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/scoring"
)

// #region types

// Step is the analysis of the conversation after one more turn.
type Step struct {
	TurnCount     int            `json:"turn_count"`
	TurnID        string         `json:"turn_id,omitempty"`
	Speaker       string         `json:"speaker"`
	ConflictScore float64        `json:"conflict_score"`
	Overall       float64        `json:"overall_conflict_score"`
	Escalation    float64        `json:"escalation_probability"`
	Trend         analysis.Trend `json:"trend"`
	Categories    []string       `json:"categories"`
}

// Mismatch is one expectation the replay did not meet.
type Mismatch struct {
	AfterTurn int    `json:"after_turn"`
	Field     string `json:"field"`
	Want      string `json:"want"`
	Got       string `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("after turn %d: %s want %s, got %s", m.AfterTurn, m.Field, m.Want, m.Got)
}

// Report is the outcome of replaying one fixture.
type Report struct {
	Description string     `json:"description"`
	Steps       []Step     `json:"steps"`
	Mismatches  []Mismatch `json:"mismatches"`
}

// Passed reports whether every expectation held.
func (r Report) Passed() bool { return len(r.Mismatches) == 0 }

// Summary aggregates a replay run.
type Summary struct {
	TotalTurns     int            `json:"total_turns"`
	Escalating     int            `json:"escalating"`
	Deescalating   int            `json:"deescalating"`
	Stable         int            `json:"stable"`
	PeakEscalation float64        `json:"peak_escalation"`
	PeakTurn       int            `json:"peak_turn"`
	FinalTrend     analysis.Trend `json:"final_trend"`
}

// fixtureEpoch stamps scored fixture turns so replays are reproducible.
var fixtureEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// #endregion types

// #region replay

// Turns resolves every fixture turn into a scored turn. Pre-scored turns are
// taken as given; the rest are scored against the fixture's pinned readings.
// Cancellation is checked between turns.
func Turns(ctx context.Context, f *Fixture, logger *slog.Logger) ([]dialogue.DialogueTurn, error) {
	scorer := scoring.NewTurnScorer(f.Oracle(), logger).WithClock(func() time.Time { return fixtureEpoch })
	out := make([]dialogue.DialogueTurn, len(f.Turns))
	for i, ft := range f.Turns {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("turn %d: %w", i+1, err)
		}
		if ft.Scores != nil {
			out[i] = ft.ToTurn()
			continue
		}
		speaker, err := dialogue.ParseSpeaker(ft.Speaker)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i+1, err)
		}
		t, err := scorer.Score(ctx, ft.Text, speaker)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", i+1, err)
		}
		t.ID = ft.ID
		out[i] = t
	}
	return out, nil
}

// Replay analyzes every prefix of turns, the way the conversation looked
// after each message. Operates entirely in-memory.
func Replay(turns []dialogue.DialogueTurn, a *analysis.Analyzer) []Step {
	steps := make([]Step, 0, len(turns))
	for i, t := range turns {
		res := a.Analyze(turns[:i+1])
		steps = append(steps, Step{
			TurnCount:     i + 1,
			TurnID:        t.ID,
			Speaker:       string(t.Speaker),
			ConflictScore: t.ConflictScore,
			Overall:       res.OverallConflictScore,
			Escalation:    res.EscalationProbability,
			Trend:         res.Trend,
			Categories:    res.Categories(),
		})
	}
	return steps
}

// Check compares steps against expectations.
func Check(steps []Step, expected []Expectation) []Mismatch {
	var out []Mismatch
	for _, e := range expected {
		if e.AfterTurn < 1 || e.AfterTurn > len(steps) {
			out = append(out, Mismatch{AfterTurn: e.AfterTurn, Field: "after_turn", Want: fmt.Sprintf("1..%d", len(steps)), Got: fmt.Sprint(e.AfterTurn)})
			continue
		}
		s := steps[e.AfterTurn-1]
		if e.Trend != "" && e.Trend != string(s.Trend) {
			out = append(out, Mismatch{AfterTurn: e.AfterTurn, Field: "trend", Want: e.Trend, Got: string(s.Trend)})
		}
		out = appendBound(out, e.AfterTurn, "escalation", s.Escalation, e.EscalationMin, e.EscalationMax)
		out = appendBound(out, e.AfterTurn, "overall", s.Overall, e.OverallMin, e.OverallMax)
		if len(e.Categories) > 0 && !subsequence(e.Categories, s.Categories) {
			out = append(out, Mismatch{AfterTurn: e.AfterTurn, Field: "categories", Want: fmt.Sprint(e.Categories), Got: fmt.Sprint(s.Categories)})
		}
	}
	return out
}

func appendBound(out []Mismatch, after int, field string, got float64, lo, hi *float64) []Mismatch {
	if lo != nil && got < *lo {
		out = append(out, Mismatch{AfterTurn: after, Field: field, Want: fmt.Sprintf(">= %.3f", *lo), Got: fmt.Sprintf("%.3f", got)})
	}
	if hi != nil && got > *hi {
		out = append(out, Mismatch{AfterTurn: after, Field: field, Want: fmt.Sprintf("<= %.3f", *hi), Got: fmt.Sprintf("%.3f", got)})
	}
	return out
}

// subsequence reports whether want appears in got in order.
func subsequence(want, got []string) bool {
	i := 0
	for _, g := range got {
		if i < len(want) && want[i] == g {
			i++
		}
	}
	return i == len(want)
}

// Run resolves, replays and checks a fixture.
func Run(ctx context.Context, f *Fixture, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	turns, err := Turns(ctx, f, logger)
	if err != nil {
		return Report{}, fmt.Errorf("replay %q: %w", f.Description, err)
	}
	steps := Replay(turns, analysis.NewAnalyzer(f.Config.ToAnalysisConfig()))
	rep := Report{Description: f.Description, Steps: steps, Mismatches: Check(steps, f.Expected)}
	logger.Info("fixture replayed",
		"description", f.Description,
		"turns", len(steps),
		"mismatches", len(rep.Mismatches),
	)
	return rep, nil
}

// Summarize computes aggregate stats from replay steps.
func Summarize(steps []Step) Summary {
	s := Summary{TotalTurns: len(steps), FinalTrend: analysis.TrendStable}
	for _, st := range steps {
		switch st.Trend {
		case analysis.TrendEscalating:
			s.Escalating++
		case analysis.TrendDeescalating:
			s.Deescalating++
		default:
			s.Stable++
		}
		if st.Escalation > s.PeakEscalation {
			s.PeakEscalation = st.Escalation
			s.PeakTurn = st.TurnCount
		}
	}
	if len(steps) > 0 {
		s.FinalTrend = steps[len(steps)-1].Trend
	}
	return s
}

// Categories returns the distinct recommendation categories seen in steps,
// sorted.
func Categories(steps []Step) []string {
	var out []string
	for _, st := range steps {
		for _, c := range st.Categories {
			if !slices.Contains(out, c) {
				out = append(out, c)
			}
		}
	}
	slices.Sort(out)
	return out
}

// #endregion replay
