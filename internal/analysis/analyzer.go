package analysis

import (
	"math"
	"strings"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

// #region analyzer
// Analyzer aggregates scored turns into a ConversationAnalysis. It holds no
// mutable state; the same input always yields the same result.
type Analyzer struct {
	config Config
}

// NewAnalyzer creates an analyzer with the given thresholds.
func NewAnalyzer(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// Analyze runs the default analyzer.
func Analyze(turns []dialogue.DialogueTurn) ConversationAnalysis {
	return NewAnalyzer(DefaultConfig()).Analyze(turns)
}

// #endregion analyzer

// #region analyze

// Analyze computes the conversation-level view of turns. An empty sequence
// yields a neutral result.
func (a *Analyzer) Analyze(turns []dialogue.DialogueTurn) ConversationAnalysis {
	if len(turns) == 0 {
		return ConversationAnalysis{
			Trend:           TrendStable,
			CognitiveBiases: []dialogue.BiasTag{},
			Recommendations: []Recommendation{},
		}
	}

	scores := dialogue.ConflictScores(turns)
	aggression := make([]float64, len(turns))
	pa := make([]float64, len(turns))
	biases := []dialogue.BiasTag{}
	for i, t := range turns {
		aggression[i] = t.AggressionScore
		pa[i] = t.PassiveAggressionScore
		biases = append(biases, t.BiasTags...)
	}

	overall := mean(scores)
	escalation := a.Escalation(scores)
	last := turns[len(turns)-1]
	nvc := NVC(last.Text, last.DominantEmotion)

	return ConversationAnalysis{
		OverallConflictScore:   overall,
		EscalationProbability:  escalation,
		PassiveAggressionIndex: mean(pa),
		Trend:                  a.Trend(scores),
		CognitiveBiases:        biases,
		NVC:                    &nvc,
		Recommendations:        a.Recommend(overall, escalation, biases),
		Metrics: Metrics{
			AvgAggression: mean(aggression),
			MaxConflict:   maxOf(scores),
			TotalBiases:   len(biases),
		},
	}
}

// #endregion analyze

// #region escalation

// Escalation blends recent severity, positive slope and volatility into a
// probability. Fewer than two scores return the single score (or 0).
func (a *Analyzer) Escalation(scores []float64) float64 {
	if len(scores) < 2 {
		if len(scores) == 1 {
			return scores[0]
		}
		return 0
	}

	slope := Slope(scores)
	window := a.config.RecentWindow
	if window <= 0 || window > len(scores) {
		window = len(scores)
	}
	recent := mean(scores[len(scores)-window:])

	volatility := 0.0
	if len(scores) > 2 {
		volatility = sampleStdDev(scores)
	}

	e := 0.4*recent + 0.4*math.Max(0, 10*slope) + 0.2*volatility
	return clamp01(e)
}

// Trend classifies the OLS slope of scores.
func (a *Analyzer) Trend(scores []float64) Trend {
	if len(scores) < 2 {
		return TrendStable
	}
	slope := Slope(scores)
	switch {
	case slope > a.config.TrendThreshold:
		return TrendEscalating
	case slope < -a.config.TrendThreshold:
		return TrendDeescalating
	}
	return TrendStable
}

// Slope fits an ordinary least squares line of score against turn index and
// returns its slope. Fewer than two points have slope 0.
func Slope(scores []float64) float64 {
	n := len(scores)
	if n < 2 {
		return 0
	}
	mx := float64(n-1) / 2
	my := mean(scores)
	var num, den float64
	for i, y := range scores {
		dx := float64(i) - mx
		num += dx * (y - my)
		den += dx * dx
	}
	return num / den
}

// #endregion escalation

// #region nvc

var emotionNeeds = map[string]string{
	"anger":    "respect, fairness, autonomy",
	"fear":     "safety, security, predictability",
	"sadness":  "connection, understanding, support",
	"joy":      "celebration, appreciation, contribution",
	"disgust":  "integrity, authenticity, order",
	"surprise": "clarity, information, understanding",
}

const defaultNeed = "understanding, connection"

var evaluationWords = []string{"always", "never", "should", "must"}

// NVC maps a message and its dominant emotion onto a likely unmet need.
// Evaluation is a plain substring check on the lowercased text.
func NVC(text, emotion string) NVCAnalysis {
	lower := strings.ToLower(text)
	eval := false
	for _, w := range evaluationWords {
		if strings.Contains(lower, w) {
			eval = true
			break
		}
	}
	need, ok := emotionNeeds[emotion]
	if !ok {
		need = defaultNeed
	}
	score := 0.7
	if eval {
		score = 0.3
	}
	return NVCAnalysis{
		Observation:   text,
		HasEvaluation: eval,
		Emotion:       emotion,
		LikelyNeed:    need,
		NVCScore:      score,
	}
}

// #endregion nvc

// #region recommend

// Recommend applies each rule independently, in a fixed order.
func (a *Analyzer) Recommend(overall, escalation float64, biases []dialogue.BiasTag) []Recommendation {
	recs := []Recommendation{}
	if overall > a.config.HighConflict {
		recs = append(recs, Recommendation{
			Priority:    PriorityHigh,
			Category:    "de-escalation",
			Action:      "Take a break",
			Description: "Conflict intensity is high. Consider pausing the conversation to cool down.",
		})
	}
	if escalation > a.config.EscalationAlert {
		recs = append(recs, Recommendation{
			Priority:    PriorityHigh,
			Category:    "intervention",
			Action:      "Change communication approach",
			Description: "Conversation is escalating. Try using 'I' statements and focus on specific behaviors.",
		})
	}
	if dialogue.HasBias(biases, dialogue.BiasOvergeneralization) {
		recs = append(recs, Recommendation{
			Priority:    PriorityMedium,
			Category:    "cognitive",
			Action:      "Avoid absolute terms",
			Description: "Replace 'always' and 'never' with specific examples.",
		})
	}
	if dialogue.HasBias(biases, dialogue.BiasMindReading) {
		recs = append(recs, Recommendation{
			Priority:    PriorityMedium,
			Category:    "cognitive",
			Action:      "Ask instead of assume",
			Description: "Ask about intentions rather than assuming them.",
		})
	}
	if dialogue.HasBias(biases, dialogue.BiasGaslighting) {
		recs = append(recs, Recommendation{
			Priority:    PriorityCritical,
			Category:    "safety",
			Action:      "Set boundaries",
			Description: "Gaslighting detected. Consider documenting the conversation and setting clear boundaries.",
		})
	}
	if overall < a.config.LowConflict {
		recs = append(recs, Recommendation{
			Priority:    PriorityLow,
			Category:    "positive",
			Action:      "Continue constructive dialogue",
			Description: "Communication style is constructive. Keep it up!",
		})
	}
	return recs
}

// #endregion recommend

// #region helpers

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func maxOf(xs []float64) float64 {
	var m float64
	for i, x := range xs {
		if i == 0 || x > m {
			m = x
		}
	}
	return m
}

// sampleStdDev uses the n-1 denominator.
func sampleStdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// #endregion helpers
