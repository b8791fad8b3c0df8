package engine

// #region imports
import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/opponent"
	"github.com/danielpatrickdp/conflict-twin/internal/oracle"
	"github.com/danielpatrickdp/conflict-twin/internal/scoring"
	"github.com/danielpatrickdp/conflict-twin/internal/simulate"
	"github.com/danielpatrickdp/conflict-twin/internal/store"
)

// #endregion

// #region deps

// ErrNoStore is returned by session operations when no store is configured.
var ErrNoStore = errors.New("engine: no store configured")

// ModelCache caches opponent models per session.
type ModelCache interface {
	Get(ctx context.Context, sessionID string) (opponent.Model, bool, error)
	Put(ctx context.Context, sessionID string, m opponent.Model) error
	Invalidate(ctx context.Context, sessionID string) error
}

// Deps are the collaborators an Engine is wired from. Only Oracle is
// required.
type Deps struct {
	Oracle    oracle.Oracle
	Templates *simulate.TemplateGenerator // optional, time-seeded when nil
	Generator simulate.Generator          // optional, tried before templates
	Analysis  *analysis.Config            // optional, defaults apply
	Store     *store.Store                // optional, needed for session operations
	Cache     ModelCache                  // optional
	Logger    *slog.Logger
}

// #endregion

// #region engine-struct

// Engine is the host-facing facade: stateless scoring, analysis, modelling
// and simulation, plus session operations when a store is present.
type Engine struct {
	scorer    *scoring.TurnScorer
	analyzer  *analysis.Analyzer
	builder   *opponent.Builder
	simulator *simulate.Simulator
	store     *store.Store
	cache     ModelCache
	logger    *slog.Logger
}

// New wires an Engine.
func New(d Deps) *Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := analysis.DefaultConfig()
	if d.Analysis != nil {
		cfg = *d.Analysis
	}

	scorer := scoring.NewTurnScorer(d.Oracle, logger)
	analyzer := analysis.NewAnalyzer(cfg)
	sim := simulate.NewSimulator(scorer, analyzer, d.Templates, logger)
	if d.Generator != nil {
		sim = sim.WithGenerator(d.Generator)
	}

	return &Engine{
		scorer:    scorer,
		analyzer:  analyzer,
		builder:   opponent.NewBuilder(d.Oracle, logger),
		simulator: sim,
		store:     d.Store,
		cache:     d.Cache,
		logger:    logger.With(slog.String("component", "engine")),
	}
}

// #endregion

// #region stateless

// ScoreTurn scores one utterance.
func (e *Engine) ScoreTurn(ctx context.Context, text string, speaker dialogue.Speaker) (dialogue.DialogueTurn, error) {
	return e.scorer.Score(ctx, text, speaker)
}

// ScoreBatch scores utterances in order, stopping on cancellation.
func (e *Engine) ScoreBatch(ctx context.Context, items []scoring.Utterance) ([]dialogue.DialogueTurn, error) {
	return e.scorer.ScoreBatch(ctx, items)
}

// QuickScore is the realtime thermometer for a draft.
func (e *Engine) QuickScore(ctx context.Context, text string) (scoring.QuickResult, error) {
	return e.scorer.QuickScore(ctx, text)
}

// AnalyzeConversation analyzes already scored turns.
func (e *Engine) AnalyzeConversation(turns []dialogue.DialogueTurn) analysis.ConversationAnalysis {
	return e.analyzer.Analyze(turns)
}

// BuildOpponentModel profiles one party's history.
func (e *Engine) BuildOpponentModel(ctx context.Context, history []dialogue.DialogueTurn) (opponent.Model, error) {
	return e.builder.Build(ctx, history)
}

// SimulateResponse plays draft against model given the conversation so far.
func (e *Engine) SimulateResponse(ctx context.Context, draft string, model opponent.Model, history []dialogue.DialogueTurn) (simulate.Result, error) {
	return e.simulator.Simulate(ctx, draft, model, history)
}

// #endregion

// #region helpers

func (e *Engine) requireStore() error {
	if e.store == nil {
		return ErrNoStore
	}
	return nil
}

// CounterpartTurns filters turns spoken by the counterpart, in order.
func CounterpartTurns(turns []dialogue.DialogueTurn) []dialogue.DialogueTurn {
	out := []dialogue.DialogueTurn{}
	for _, t := range turns {
		if t.Speaker == dialogue.SpeakerCounterpart {
			out = append(out, t)
		}
	}
	return out
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// #endregion
