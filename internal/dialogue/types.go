package dialogue

import (
	"fmt"
	"strings"
	"time"
)

// #region speaker

// Speaker identifies which party produced a turn.
type Speaker string

const (
	SpeakerSelf        Speaker = "self"
	SpeakerCounterpart Speaker = "counterpart"
)

// ParseSpeaker accepts the canonical names plus the aliases used by the CLI
// and older exports ("me", "user", "them", "opponent").
func ParseSpeaker(s string) (Speaker, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "self", "me", "user":
		return SpeakerSelf, nil
	case "counterpart", "them", "opponent":
		return SpeakerCounterpart, nil
	}
	return "", fmt.Errorf("unknown speaker %q", s)
}

// #endregion speaker

// #region sentiment

// SentimentLabel is the binary sentiment class reported by the oracle.
type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNegative SentimentLabel = "negative"
)

// Sentiment is the normalized sentiment of one text.
type Sentiment struct {
	Label    SentimentLabel `json:"label"`
	Score    float64        `json:"score"`    // oracle confidence in [0, 1]
	Polarity float64        `json:"polarity"` // +1 positive, -1 negative
}

// NewSentiment derives the polarity from the label.
func NewSentiment(label SentimentLabel, score float64) Sentiment {
	polarity := -1.0
	if label == LabelPositive {
		polarity = 1.0
	}
	return Sentiment{Label: label, Score: score, Polarity: polarity}
}

// Signed returns confidence with the label's sign applied.
func (s Sentiment) Signed() float64 {
	if s.Label == LabelPositive {
		return s.Score
	}
	return -s.Score
}

// #endregion sentiment

// #region emotions

// EmotionScore is one entry of an emotion distribution.
type EmotionScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Emotions is an emotion distribution kept in the oracle's native order,
// which decides ties in Dominant.
type Emotions []EmotionScore

// Get returns the score for name, or 0 when absent.
func (e Emotions) Get(name string) float64 {
	for _, s := range e {
		if s.Name == name {
			return s.Score
		}
	}
	return 0
}

// Dominant returns the highest scoring emotion. Ties go to the first seen.
// An empty distribution yields "neutral".
func (e Emotions) Dominant() string {
	if len(e) == 0 {
		return "neutral"
	}
	best := e[0]
	for _, s := range e[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	return best.Name
}

// Map returns the distribution as a name -> score map.
func (e Emotions) Map() map[string]float64 {
	m := make(map[string]float64, len(e))
	for _, s := range e {
		m[s.Name] = s.Score
	}
	return m
}

// #endregion emotions

// #region bias

// Severity grades a cognitive bias tag.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityWeights = map[Severity]float64{
	SeverityLow:      0.2,
	SeverityMedium:   0.5,
	SeverityHigh:     0.8,
	SeverityCritical: 1.0,
}

// Weight maps a severity to its fixed weight. Unknown severities count as medium.
func (s Severity) Weight() float64 {
	if w, ok := severityWeights[s]; ok {
		return w
	}
	return severityWeights[SeverityMedium]
}

// BiasType names one category of the cognitive bias taxonomy.
type BiasType string

const (
	BiasOvergeneralization BiasType = "overgeneralization"
	BiasMindReading        BiasType = "mind_reading"
	BiasCatastrophizing    BiasType = "catastrophizing"
	BiasPersonalization    BiasType = "personalization"
	BiasGaslighting        BiasType = "gaslighting"
)

// BiasTag is a single detected cognitive bias.
type BiasTag struct {
	Type        BiasType `json:"type"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// HasBias reports whether any tag has the given type.
func HasBias(tags []BiasTag, t BiasType) bool {
	for _, tag := range tags {
		if tag.Type == t {
			return true
		}
	}
	return false
}

// #endregion bias

// #region linguistic

// Entity is a named entity span and its label.
type Entity struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// LinguisticFeatures are the surface features extracted by the oracle.
type LinguisticFeatures struct {
	YouCount      int      `json:"you_count"`
	ICount        int      `json:"i_count"`
	Entities      []Entity `json:"entities"`
	QuestionCount int      `json:"question_count"`
	SentenceCount int      `json:"sentence_count"`
	WordCount     int      `json:"word_count"`
}

// #endregion linguistic

// #region turn

// DialogueTurn is one fully scored utterance. Scored fields are never
// modified after scoring; a store may only fill in ID.
type DialogueTurn struct {
	ID                     string             `json:"id,omitempty"`
	Speaker                Speaker            `json:"speaker"`
	Text                   string             `json:"text"`
	Timestamp              time.Time          `json:"timestamp"`
	Sentiment              Sentiment          `json:"sentiment"`
	Emotions               Emotions           `json:"emotions"`
	DominantEmotion        string             `json:"dominant_emotion"`
	AggressionScore        float64            `json:"aggression_score"`
	PassiveAggressionScore float64            `json:"passive_aggression_score"`
	ConflictScore          float64            `json:"conflict_score"`
	BiasTags               []BiasTag          `json:"bias_tags"`
	LinguisticFeatures     LinguisticFeatures `json:"linguistic_features"`
}

// ConflictScores extracts the per-turn conflict scores in order.
func ConflictScores(turns []DialogueTurn) []float64 {
	scores := make([]float64, len(turns))
	for i, t := range turns {
		scores[i] = t.ConflictScore
	}
	return scores
}

// #endregion turn
