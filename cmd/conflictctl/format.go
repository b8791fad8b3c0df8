package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/simulate"
)

// #region text-output

func printTurn(w io.Writer, t dialogue.DialogueTurn) {
	fmt.Fprintf(w, "Speaker:    %s\n", t.Speaker)
	fmt.Fprintf(w, "Conflict:   %.3f\n", t.ConflictScore)
	fmt.Fprintf(w, "Aggression: %.3f  Passive: %.3f\n", t.AggressionScore, t.PassiveAggressionScore)
	fmt.Fprintf(w, "Sentiment:  %s (%.2f)  Emotion: %s\n", t.Sentiment.Label, t.Sentiment.Score, t.DominantEmotion)
	if len(t.BiasTags) > 0 {
		names := make([]string, len(t.BiasTags))
		for i, b := range t.BiasTags {
			names[i] = fmt.Sprintf("%s(%s)", b.Type, b.Severity)
		}
		fmt.Fprintf(w, "Biases:     %s\n", strings.Join(names, ", "))
	}
}

func printAnalysis(w io.Writer, a analysis.ConversationAnalysis) {
	fmt.Fprintf(w, "Overall conflict:  %.3f\n", a.OverallConflictScore)
	fmt.Fprintf(w, "Escalation:        %.3f\n", a.EscalationProbability)
	fmt.Fprintf(w, "Passive index:     %.3f\n", a.PassiveAggressionIndex)
	fmt.Fprintf(w, "Trend:             %s\n", a.Trend)
	fmt.Fprintf(w, "Biases:            %d\n", a.Metrics.TotalBiases)
	if a.NVC != nil {
		fmt.Fprintf(w, "NVC:               emotion=%s need=%q score=%.1f\n", a.NVC.Emotion, a.NVC.LikelyNeed, a.NVC.NVCScore)
	}
	for _, r := range a.Recommendations {
		fmt.Fprintf(w, "  [%s] %s: %s\n", r.Priority, r.Action, r.Description)
	}
}

func printPipeline(w io.Writer, steps []analysis.PipelineStep) {
	for _, s := range steps {
		fmt.Fprintf(w, "#%d %s\n", s.Index+1, s.Speaker)
		for _, st := range s.Stages {
			fmt.Fprintf(w, "  %-8s %-18s %v\n", st.Stage, st.Label, st.Content)
		}
	}
}

func printSimulation(w io.Writer, r simulate.Result) {
	fmt.Fprintf(w, "Draft conflict:   %.3f\n", r.DraftAnalysis.ConflictScore)
	fmt.Fprintf(w, "Reply (%s): %s\n", r.Generator, r.SimulatedResponse)
	fmt.Fprintf(w, "Reply conflict:   %.3f\n", r.ResponseAnalysis.ConflictScore)
	fmt.Fprintf(w, "Escalation:       %.3f (change %+.3f)\n", r.PredictedEscalation, r.ConflictScoreChange)
	fmt.Fprintf(w, "%s\n", r.Recommendation)
}

// #endregion text-output
