package opponent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/oracle"
)

const (
	maxTriggers        = 5
	maxPatterns        = 5
	triggerConflictMin = 0.6
	triggerMaxChars    = 50
	patternChars       = 50
)

// #region builder

// Builder derives a Model from a party's history.
type Builder struct {
	oracle oracle.Oracle
	logger *slog.Logger
}

// NewBuilder creates a Builder. logger may be nil.
func NewBuilder(o oracle.Oracle, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{oracle: o, logger: logger.With(slog.String("component", "opponent"))}
}

// Build profiles history. Scores already on the turns are reused, not
// recomputed; the oracle is called once for the linguistic features of the
// concatenated text. Empty history returns Default without an oracle call.
func (b *Builder) Build(ctx context.Context, history []dialogue.DialogueTurn) (Model, error) {
	if len(history) == 0 {
		return Default(), nil
	}

	texts := make([]string, len(history))
	var sentiment, aggression, pa float64
	for i, t := range history {
		texts[i] = t.Text
		sentiment += t.Sentiment.Signed()
		aggression += t.AggressionScore
		pa += t.PassiveAggressionScore
	}
	n := float64(len(history))

	features, err := b.oracle.LinguisticFeatures(ctx, strings.Join(texts, " "))
	if err != nil {
		return Model{}, fmt.Errorf("build opponent model: %w", err)
	}

	m := Model{
		LinguisticStyle:           features,
		SentimentBaseline:         sentiment / n,
		AggressionBaseline:        aggression / n,
		PassiveAggressionBaseline: pa / n,
		TriggerWords:              triggerWords(history),
		ResponsePatterns:          responsePatterns(history),
	}
	m.CommunicationStyle = Classify(m.AggressionBaseline, m.PassiveAggressionBaseline, features)

	b.logger.Debug("opponent model built",
		"turns", len(history),
		"style", m.CommunicationStyle,
		"aggression", m.AggressionBaseline,
	)
	return m, nil
}

// #endregion builder

// #region classify

// Classify picks the first matching style rule.
func Classify(aggression, passiveAggression float64, f dialogue.LinguisticFeatures) Style {
	switch {
	case aggression > 0.6:
		return StyleAggressive
	case passiveAggression > 0.5:
		return StylePassiveAggressive
	case f.YouCount > 2*f.ICount:
		return StyleAggressive
	case f.QuestionCount < 1 && aggression < 0.3:
		return StyleAvoidant
	case aggression < 0.3 && passiveAggression < 0.3:
		return StyleConstructive
	}
	return StyleNeutral
}

// #endregion classify

// #region extract

// triggerWords keeps short, high-conflict utterances in order.
func triggerWords(history []dialogue.DialogueTurn) []string {
	out := []string{}
	for _, t := range history {
		if len(out) == maxTriggers {
			break
		}
		if t.ConflictScore > triggerConflictMin && utf8.RuneCountInString(t.Text) < triggerMaxChars {
			out = append(out, t.Text)
		}
	}
	return out
}

// responsePatterns pairs each counterpart turn with the turn before it.
func responsePatterns(history []dialogue.DialogueTurn) []ResponsePattern {
	out := []ResponsePattern{}
	for i := 1; i < len(history) && len(out) < maxPatterns; i++ {
		if history[i].Speaker != dialogue.SpeakerCounterpart {
			continue
		}
		out = append(out, ResponsePattern{
			Trigger:  truncate(history[i-1].Text, patternChars),
			Response: truncate(history[i].Text, patternChars),
		})
	}
	return out
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// #endregion extract
