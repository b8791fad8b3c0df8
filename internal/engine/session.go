package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/logging"
	"github.com/danielpatrickdp/conflict-twin/internal/opponent"
	"github.com/danielpatrickdp/conflict-twin/internal/profile"
	"github.com/danielpatrickdp/conflict-twin/internal/scoring"
	"github.com/danielpatrickdp/conflict-twin/internal/simulate"
	"github.com/danielpatrickdp/conflict-twin/internal/store"
)

// maxParallelSessions bounds AnalyzeSessions fan-out.
const maxParallelSessions = 4

// #region session-turns

// CreateSession starts a session for userID.
func (e *Engine) CreateSession(userID, name string) (store.Session, error) {
	if err := e.requireStore(); err != nil {
		return store.Session{}, err
	}
	return e.store.CreateSession(userID, name)
}

// AddTurn scores text and appends it to the session. Any cached opponent
// model for the session is dropped.
func (e *Engine) AddTurn(ctx context.Context, sessionID, text string, speaker dialogue.Speaker) (dialogue.DialogueTurn, error) {
	if err := e.requireStore(); err != nil {
		return dialogue.DialogueTurn{}, err
	}
	if _, err := e.store.GetSession(sessionID); err != nil {
		return dialogue.DialogueTurn{}, wrap("add turn", err)
	}
	turn, err := e.scorer.Score(ctx, text, speaker)
	if err != nil {
		return dialogue.DialogueTurn{}, wrap("add turn", err)
	}
	stored, err := e.store.AppendTurn(sessionID, turn)
	if err != nil {
		return dialogue.DialogueTurn{}, wrap("add turn", err)
	}
	e.invalidate(ctx, sessionID)
	return stored, nil
}

// AddTurns scores and appends utterances in order, checking for
// cancellation between turns. Turns stored before a failure stay stored.
func (e *Engine) AddTurns(ctx context.Context, sessionID string, items []scoring.Utterance) ([]dialogue.DialogueTurn, error) {
	out := make([]dialogue.DialogueTurn, 0, len(items))
	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("add turns at %d: %w", i, err)
		}
		t, err := e.AddTurn(ctx, sessionID, it.Text, it.Speaker)
		if err != nil {
			return out, fmt.Errorf("add turns at %d: %w", i, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Turns lists a session's stored turns.
func (e *Engine) Turns(sessionID string) ([]dialogue.DialogueTurn, error) {
	if err := e.requireStore(); err != nil {
		return nil, err
	}
	return e.store.ListTurns(sessionID)
}

// #endregion

// #region session-analysis

// AnalyzeSession recomputes the session's analysis from all of its turns,
// persists it and records the decision in the audit log.
func (e *Engine) AnalyzeSession(ctx context.Context, sessionID string) (store.StoredAnalysis, error) {
	if err := e.requireStore(); err != nil {
		return store.StoredAnalysis{}, err
	}
	if err := ctx.Err(); err != nil {
		return store.StoredAnalysis{}, err
	}
	if _, err := e.store.GetSession(sessionID); err != nil {
		return store.StoredAnalysis{}, wrap("analyze session", err)
	}
	turns, err := e.store.ListTurns(sessionID)
	if err != nil {
		return store.StoredAnalysis{}, wrap("analyze session", err)
	}

	a := e.analyzer.Analyze(turns)
	rec, err := e.store.SaveAnalysis(sessionID, len(turns), a)
	if err != nil {
		return store.StoredAnalysis{}, wrap("analyze session", err)
	}

	e.audit(logging.AuditEntry{
		SessionID: sessionID,
		Kind:      logging.KindAnalysis,
		Decision:  string(a.Trend),
		Reason:    fmt.Sprintf("escalation %.3f over %d turns", a.EscalationProbability, len(turns)),
	}, logging.AnalysisRecord{
		TurnCount:             len(turns),
		ConflictScores:        dialogue.ConflictScores(turns),
		OverallConflictScore:  a.OverallConflictScore,
		EscalationProbability: a.EscalationProbability,
		Trend:                 string(a.Trend),
		Recommendations:       a.Categories(),
	})
	e.logger.Info("session analyzed",
		"session", sessionID,
		"turns", len(turns),
		"trend", a.Trend,
		"escalation", a.EscalationProbability,
	)
	return rec, nil
}

// LatestAnalysis returns the last persisted analysis of the session.
func (e *Engine) LatestAnalysis(sessionID string) (store.StoredAnalysis, error) {
	if err := e.requireStore(); err != nil {
		return store.StoredAnalysis{}, err
	}
	return e.store.LatestAnalysis(sessionID)
}

// SessionResult is one entry of AnalyzeSessions.
type SessionResult struct {
	SessionID string
	Analysis  store.StoredAnalysis
}

// AnalyzeSessions analyzes sessions in parallel. Sessions share nothing, so
// the first failure cancels the rest and is returned.
func (e *Engine) AnalyzeSessions(ctx context.Context, sessionIDs []string) ([]SessionResult, error) {
	results := make([]SessionResult, len(sessionIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSessions)
	for i, id := range sessionIDs {
		g.Go(func() error {
			rec, err := e.AnalyzeSession(gctx, id)
			if err != nil {
				return fmt.Errorf("session %s: %w", id, err)
			}
			results[i] = SessionResult{SessionID: id, Analysis: rec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Pipeline explains each stored turn using the latest analysis, computing
// one on the fly if none was persisted.
func (e *Engine) Pipeline(sessionID string) ([]analysis.PipelineStep, error) {
	if err := e.requireStore(); err != nil {
		return nil, err
	}
	turns, err := e.store.ListTurns(sessionID)
	if err != nil {
		return nil, wrap("pipeline", err)
	}
	if len(turns) == 0 {
		return nil, fmt.Errorf("pipeline: session %s has no turns: %w", sessionID, store.ErrNotFound)
	}
	a := e.analyzer.Analyze(turns)
	if rec, err := e.store.LatestAnalysis(sessionID); err == nil {
		a = rec.Analysis
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, wrap("pipeline", err)
	}
	return analysis.Pipeline(turns, a), nil
}

// #endregion

// #region session-simulation

// OpponentModel returns the session's counterpart model from the cache, the
// store, or by building it from the counterpart's turns, in that order.
func (e *Engine) OpponentModel(ctx context.Context, sessionID string) (opponent.Model, error) {
	if err := e.requireStore(); err != nil {
		return opponent.Model{}, err
	}
	if e.cache != nil {
		m, ok, err := e.cache.Get(ctx, sessionID)
		if err != nil {
			e.logger.Warn("opponent cache get failed", "session", sessionID, "err", err)
		} else if ok {
			return m, nil
		}
	}

	m, err := e.store.GetOpponentModel(sessionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return opponent.Model{}, wrap("opponent model", err)
	}
	if errors.Is(err, store.ErrNotFound) {
		turns, err := e.store.ListTurns(sessionID)
		if err != nil {
			return opponent.Model{}, wrap("opponent model", err)
		}
		m, err = e.builder.Build(ctx, CounterpartTurns(turns))
		if err != nil {
			return opponent.Model{}, wrap("opponent model", err)
		}
		if err := e.store.SaveOpponentModel(sessionID, m); err != nil {
			return opponent.Model{}, wrap("opponent model", err)
		}
		e.audit(logging.AuditEntry{
			SessionID: sessionID,
			Kind:      logging.KindOpponentModel,
			Decision:  string(m.CommunicationStyle),
			Reason:    fmt.Sprintf("aggression %.2f passive %.2f", m.AggressionBaseline, m.PassiveAggressionBaseline),
		}, m)
	}

	if e.cache != nil {
		if err := e.cache.Put(ctx, sessionID, m); err != nil {
			e.logger.Warn("opponent cache put failed", "session", sessionID, "err", err)
		}
	}
	return m, nil
}

// Simulate plays draft against the session's counterpart.
func (e *Engine) Simulate(ctx context.Context, sessionID, draft string) (simulate.Result, error) {
	if strings.TrimSpace(draft) == "" {
		return simulate.Result{}, errors.New("simulate: draft is empty")
	}
	model, err := e.OpponentModel(ctx, sessionID)
	if err != nil {
		return simulate.Result{}, err
	}
	history, err := e.store.ListTurns(sessionID)
	if err != nil {
		return simulate.Result{}, wrap("simulate", err)
	}
	res, err := e.simulator.Simulate(ctx, draft, model, history)
	if err != nil {
		return simulate.Result{}, err
	}
	e.audit(logging.AuditEntry{
		SessionID: sessionID,
		Kind:      logging.KindSimulation,
		Decision:  res.Recommendation,
		Reason:    fmt.Sprintf("predicted escalation %.3f", res.PredictedEscalation),
	}, logging.SimulationRecord{
		Draft:               draft,
		DraftConflict:       res.DraftAnalysis.ConflictScore,
		Style:               string(model.CommunicationStyle),
		Reply:               res.SimulatedResponse,
		Generator:           res.Generator,
		PredictedEscalation: res.PredictedEscalation,
		ConflictScoreChange: res.ConflictScoreChange,
	})
	return res, nil
}

// #endregion

// #region profile

// UserDashboard computes the user's behaviour profile over all sessions.
func (e *Engine) UserDashboard(userID string) (profile.Dashboard, error) {
	if err := e.requireStore(); err != nil {
		return profile.Dashboard{}, err
	}
	sessions, err := e.store.ListSessions(userID)
	if err != nil {
		return profile.Dashboard{}, wrap("profile", err)
	}
	in := make([]profile.SessionTurns, 0, len(sessions))
	for _, s := range sessions {
		turns, err := e.store.ListTurns(s.ID)
		if err != nil {
			return profile.Dashboard{}, wrap("profile", err)
		}
		in = append(in, profile.SessionTurns{SessionID: s.ID, Name: s.Name, CreatedAt: s.CreatedAt, Turns: turns})
	}
	return profile.NewDashboard(profile.Compute(userID, in)), nil
}

// #endregion

// #region audit

func (e *Engine) audit(entry logging.AuditEntry, payload any) {
	if err := logging.LogRecord(e.store.DB(), entry, payload); err != nil {
		e.logger.Warn("audit write failed", "kind", entry.Kind, "err", err)
	}
}

func (e *Engine) invalidate(ctx context.Context, sessionID string) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Invalidate(ctx, sessionID); err != nil {
		e.logger.Warn("opponent cache invalidate failed", "session", sessionID, "err", err)
	}
}

// #endregion
