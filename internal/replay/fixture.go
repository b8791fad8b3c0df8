package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/bias"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/oracle"
)

// #region fixture-types

// Fixture is a recorded conversation plus what its analysis should look like
// as it unfolds. Fixtures are YAML or JSON.
type Fixture struct {
	Description string           `json:"description" yaml:"description"`
	Config      *FixtureConfig   `json:"config,omitempty" yaml:"config,omitempty"`
	Readings    []FixtureReading `json:"readings,omitempty" yaml:"readings,omitempty"`
	Turns       []FixtureTurn    `json:"turns" yaml:"turns"`
	Expected    []Expectation    `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// FixtureConfig overrides analyzer thresholds. Zero fields keep defaults.
type FixtureConfig struct {
	TrendThreshold  float64 `json:"trend_threshold,omitempty" yaml:"trend_threshold,omitempty"`
	RecentWindow    int     `json:"recent_window,omitempty" yaml:"recent_window,omitempty"`
	HighConflict    float64 `json:"high_conflict,omitempty" yaml:"high_conflict,omitempty"`
	EscalationAlert float64 `json:"escalation_alert,omitempty" yaml:"escalation_alert,omitempty"`
	LowConflict     float64 `json:"low_conflict,omitempty" yaml:"low_conflict,omitempty"`
}

// FixtureEmotion is one entry of a pinned emotion distribution.
type FixtureEmotion struct {
	Name  string  `json:"name" yaml:"name"`
	Score float64 `json:"score" yaml:"score"`
}

// FixtureReading pins what the oracle reports for one text.
type FixtureReading struct {
	Text       string           `json:"text" yaml:"text"`
	Sentiment  string           `json:"sentiment" yaml:"sentiment"` // "positive" | "negative"
	Confidence float64          `json:"confidence" yaml:"confidence"`
	Emotions   []FixtureEmotion `json:"emotions" yaml:"emotions"`
	YouCount   int              `json:"you_count,omitempty" yaml:"you_count,omitempty"`
	ICount     int              `json:"i_count,omitempty" yaml:"i_count,omitempty"`
}

// FixtureScores are pre-computed turn scores. A turn carrying them is used
// as-is and never reaches the oracle.
type FixtureScores struct {
	Conflict          float64  `json:"conflict" yaml:"conflict"`
	Aggression        float64  `json:"aggression" yaml:"aggression"`
	PassiveAggression float64  `json:"passive_aggression" yaml:"passive_aggression"`
	Sentiment         string   `json:"sentiment,omitempty" yaml:"sentiment,omitempty"`
	Confidence        float64  `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	DominantEmotion   string   `json:"dominant_emotion,omitempty" yaml:"dominant_emotion,omitempty"`
	Biases            []string `json:"biases,omitempty" yaml:"biases,omitempty"`
}

// FixtureTurn is one recorded utterance.
type FixtureTurn struct {
	ID      string         `json:"id,omitempty" yaml:"id,omitempty"`
	Speaker string         `json:"speaker" yaml:"speaker"`
	Text    string         `json:"text" yaml:"text"`
	Scores  *FixtureScores `json:"scores,omitempty" yaml:"scores,omitempty"`
}

// Expectation describes the analysis after the first AfterTurn turns.
// Unset bounds are not checked. Categories must appear in order, other
// categories may sit between them.
type Expectation struct {
	AfterTurn     int      `json:"after_turn" yaml:"after_turn"`
	Trend         string   `json:"trend,omitempty" yaml:"trend,omitempty"`
	EscalationMin *float64 `json:"escalation_min,omitempty" yaml:"escalation_min,omitempty"`
	EscalationMax *float64 `json:"escalation_max,omitempty" yaml:"escalation_max,omitempty"`
	OverallMin    *float64 `json:"overall_min,omitempty" yaml:"overall_min,omitempty"`
	OverallMax    *float64 `json:"overall_max,omitempty" yaml:"overall_max,omitempty"`
	Categories    []string `json:"categories,omitempty" yaml:"categories,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadFixture reads a fixture file; the extension picks YAML or JSON.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&f)
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	}
	if err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return &f, nil
}

// WriteFixture writes f to path in the format its extension names.
func WriteFixture(path string, f *Fixture) error {
	var data []byte
	var err error
	if isYAML(path) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(f); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	} else {
		data, err = json.MarshalIndent(f, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// Validate checks speakers, sentiment labels, bias names and expectation
// ranges.
func (f *Fixture) Validate() error {
	if len(f.Turns) == 0 {
		return fmt.Errorf("no turns")
	}
	for i, t := range f.Turns {
		if _, err := dialogue.ParseSpeaker(t.Speaker); err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		if t.Scores == nil {
			continue
		}
		if _, err := parseLabel(t.Scores.Sentiment); err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		for _, b := range t.Scores.Biases {
			if _, ok := bias.Lookup(dialogue.BiasType(b)); !ok {
				return fmt.Errorf("turn %d: unknown bias %q", i+1, b)
			}
		}
	}
	for _, r := range f.Readings {
		if _, err := parseLabel(r.Sentiment); err != nil {
			return fmt.Errorf("reading %q: %w", r.Text, err)
		}
		if len(r.Emotions) == 0 {
			return fmt.Errorf("reading %q: no emotions", r.Text)
		}
	}
	for _, e := range f.Expected {
		if e.AfterTurn < 1 || e.AfterTurn > len(f.Turns) {
			return fmt.Errorf("expectation after_turn %d out of range 1..%d", e.AfterTurn, len(f.Turns))
		}
	}
	return nil
}

// #endregion fixture-loader

// #region conversions

func parseLabel(s string) (dialogue.SentimentLabel, error) {
	switch strings.ToLower(s) {
	case "", string(dialogue.LabelNegative):
		return dialogue.LabelNegative, nil
	case string(dialogue.LabelPositive):
		return dialogue.LabelPositive, nil
	}
	return "", fmt.Errorf("unknown sentiment %q", s)
}

// ToAnalysisConfig overlays non-zero fields on the default thresholds.
func (fc *FixtureConfig) ToAnalysisConfig() analysis.Config {
	c := analysis.DefaultConfig()
	if fc == nil {
		return c
	}
	if fc.TrendThreshold != 0 {
		c.TrendThreshold = fc.TrendThreshold
	}
	if fc.RecentWindow != 0 {
		c.RecentWindow = fc.RecentWindow
	}
	if fc.HighConflict != 0 {
		c.HighConflict = fc.HighConflict
	}
	if fc.EscalationAlert != 0 {
		c.EscalationAlert = fc.EscalationAlert
	}
	if fc.LowConflict != 0 {
		c.LowConflict = fc.LowConflict
	}
	return c
}

// ToReading converts a pinned reading to the oracle's form.
func (r FixtureReading) ToReading() oracle.Reading {
	label, _ := parseLabel(r.Sentiment)
	emotions := make(dialogue.Emotions, len(r.Emotions))
	for i, e := range r.Emotions {
		emotions[i] = dialogue.EmotionScore{Name: e.Name, Score: e.Score}
	}
	return oracle.Reading{
		Sentiment: dialogue.NewSentiment(label, r.Confidence),
		Emotions:  emotions,
		Features:  dialogue.LinguisticFeatures{YouCount: r.YouCount, ICount: r.ICount},
	}
}

// Oracle serves the fixture's pinned readings. Texts without one are
// unavailable.
func (f *Fixture) Oracle() *oracle.Static {
	o := oracle.NewStatic(nil)
	for _, r := range f.Readings {
		o.Set(r.Text, r.ToReading())
	}
	return o
}

// ToTurn builds the scored turn from pre-computed scores.
func (t FixtureTurn) ToTurn() dialogue.DialogueTurn {
	speaker, _ := dialogue.ParseSpeaker(t.Speaker)
	s := t.Scores
	label, _ := parseLabel(s.Sentiment)
	tags := make([]dialogue.BiasTag, 0, len(s.Biases))
	for _, b := range s.Biases {
		if tag, ok := bias.Lookup(dialogue.BiasType(b)); ok {
			tags = append(tags, tag)
		}
	}
	var emotions dialogue.Emotions
	if s.DominantEmotion != "" {
		emotions = dialogue.Emotions{{Name: s.DominantEmotion, Score: 1}}
	}
	return dialogue.DialogueTurn{
		ID:                     t.ID,
		Speaker:                speaker,
		Text:                   t.Text,
		Sentiment:              dialogue.NewSentiment(label, s.Confidence),
		Emotions:               emotions,
		DominantEmotion:        s.DominantEmotion,
		AggressionScore:        s.Aggression,
		PassiveAggressionScore: s.PassiveAggression,
		ConflictScore:          s.Conflict,
		BiasTags:               tags,
	}
}

// FromTurns records scored turns as a fixture whose expectations pin the
// analysis of the full conversation, for use as a regression baseline.
func FromTurns(description string, turns []dialogue.DialogueTurn, a analysis.ConversationAnalysis) *Fixture {
	f := &Fixture{Description: description, Turns: make([]FixtureTurn, len(turns))}
	for i, t := range turns {
		biases := make([]string, len(t.BiasTags))
		for j, b := range t.BiasTags {
			biases[j] = string(b.Type)
		}
		f.Turns[i] = FixtureTurn{
			ID:      t.ID,
			Speaker: string(t.Speaker),
			Text:    t.Text,
			Scores: &FixtureScores{
				Conflict:          t.ConflictScore,
				Aggression:        t.AggressionScore,
				PassiveAggression: t.PassiveAggressionScore,
				Sentiment:         string(t.Sentiment.Label),
				Confidence:        t.Sentiment.Score,
				DominantEmotion:   t.DominantEmotion,
				Biases:            biases,
			},
		}
	}
	if len(turns) > 0 {
		f.Expected = []Expectation{{
			AfterTurn:     len(turns),
			Trend:         string(a.Trend),
			EscalationMin: ptr(round3(a.EscalationProbability) - 0.001),
			EscalationMax: ptr(round3(a.EscalationProbability) + 0.001),
			Categories:    a.Categories(),
		}}
	}
	return f
}

func ptr(v float64) *float64 { return &v }

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}

// #endregion conversions
