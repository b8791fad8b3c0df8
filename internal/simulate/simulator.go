package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/opponent"
)

// #region recommendation

const (
	RecommendHighRisk = "High escalation risk. Consider rephrasing to be less confrontational."
	RecommendModerate = "Moderate escalation likely. Adding 'I feel' statements might help."
	RecommendBalanced = "This approach seems balanced."
)

// Recommendation thresholds the predicted escalation.
func Recommendation(escalation float64) string {
	switch {
	case escalation > 0.7:
		return RecommendHighRisk
	case escalation > 0.5:
		return RecommendModerate
	}
	return RecommendBalanced
}

// #endregion recommendation

// #region simulator

// Simulator plays a draft message against an opponent model.
type Simulator struct {
	scorer    Scorer
	analyzer  *analysis.Analyzer
	templates *TemplateGenerator
	primary   Generator
	logger    *slog.Logger
}

// NewSimulator creates a Simulator that phrases replies from templates.
// A nil templates gets a time-seeded generator.
func NewSimulator(scorer Scorer, analyzer *analysis.Analyzer, templates *TemplateGenerator, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	if templates == nil {
		templates = NewTemplateGenerator(uint64(time.Now().UnixNano()))
	}
	return &Simulator{
		scorer:    scorer,
		analyzer:  analyzer,
		templates: templates,
		logger:    logger.With(slog.String("component", "simulate")),
	}
}

// WithGenerator returns a copy of s that tries g first. Unusable replies are
// retried; when g keeps failing the simulator falls back to templates.
func (s *Simulator) WithGenerator(g Generator) *Simulator {
	c := *s
	c.primary = g
	return &c
}

// #endregion simulator

// #region simulate

// Simulate scores the draft, generates the counterpart's reply, scores that,
// and compares the conversation with and without the exchange. The history
// slice is re-analyzed on every call and never modified.
func (s *Simulator) Simulate(ctx context.Context, draft string, model opponent.Model, history []dialogue.DialogueTurn) (Result, error) {
	draftTurn, err := s.scorer.Score(ctx, draft, dialogue.SpeakerSelf)
	if err != nil {
		return Result{}, fmt.Errorf("simulate: score draft: %w", err)
	}

	req := GenerateRequest{
		Draft:     draft,
		DraftTurn: draftTurn,
		Model:     model,
		Mood:      MoodFor(draftTurn.ConflictScore),
	}
	reply, generator, err := s.generate(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("simulate: generate: %w", err)
	}

	responseTurn, err := s.scorer.Score(ctx, reply, dialogue.SpeakerCounterpart)
	if err != nil {
		return Result{}, fmt.Errorf("simulate: score reply: %w", err)
	}

	extended := make([]dialogue.DialogueTurn, 0, len(history)+2)
	extended = append(extended, history...)
	extended = append(extended, draftTurn, responseTurn)
	after := s.analyzer.Analyze(extended)

	before := 0.0
	if len(history) > 0 {
		before = s.analyzer.Analyze(history).OverallConflictScore
	}

	res := Result{
		SimulatedResponse:   reply,
		DraftAnalysis:       draftTurn,
		ResponseAnalysis:    responseTurn,
		PredictedEscalation: after.EscalationProbability,
		ConflictScoreChange: after.OverallConflictScore - before,
		Recommendation:      Recommendation(after.EscalationProbability),
		Generator:           generator,
	}
	s.logger.Debug("simulated exchange",
		"style", model.CommunicationStyle,
		"mood", req.Mood,
		"escalation", res.PredictedEscalation,
		"delta", res.ConflictScoreChange,
	)
	return res, nil
}

func (s *Simulator) generate(ctx context.Context, req GenerateRequest) (string, string, error) {
	if s.primary != nil {
		var attempts []attempt
		for {
			reply, err := s.primary.Generate(ctx, req)
			a := attempt{reply: reply, err: err}
			if err == nil {
				a.failure = EvaluateReply(req.Draft, reply)
			}
			attempts = append(attempts, a)
			if a.ok() {
				return strings.TrimSpace(reply), s.primary.Name(), nil
			}
			if !shouldRetry(attempts) {
				break
			}
		}
		last := attempts[len(attempts)-1]
		s.logger.Warn("generator failed, using templates",
			"generator", s.primary.Name(),
			"attempts", len(attempts),
			"failure", last.failure,
			"err", last.err,
		)
	}
	reply, err := s.templates.Generate(ctx, req)
	return reply, s.templates.Name(), err
}

// #endregion simulate
