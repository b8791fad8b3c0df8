package profile

import (
	"math"
	"strings"
	"time"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

// #region types

// Style is the user's dominant conflict behaviour.
type Style string

const (
	StyleAttacking         Style = "attacking"
	StylePassiveAggressive Style = "passive_aggressive"
	StyleAvoidant          Style = "avoidant"
	StyleConstructive      Style = "constructive"
	StyleNeutral           Style = "neutral"
)

// SessionTurns is one session's turns, as input to Compute.
type SessionTurns struct {
	SessionID string
	Name      string
	CreatedAt time.Time
	Turns     []dialogue.DialogueTurn
}

// HistoryEntry is the user's mean conflict score in one session.
type HistoryEntry struct {
	SessionID     string    `json:"session_id"`
	SessionName   string    `json:"session_name"`
	Date          time.Time `json:"date"`
	ConflictScore float64   `json:"conflict_score"`
}

// Profile summarizes how the user behaves across sessions.
type Profile struct {
	UserID                  string             `json:"user_id"`
	TotalConflicts          int                `json:"total_conflicts"`
	BlameFrequency          float64            `json:"blame_frequency"`
	YouStatementsPercentage float64            `json:"you_statements_percentage"`
	EscalationContribution  float64            `json:"escalation_contribution"`
	DominantStyle           Style              `json:"dominant_style"`
	StyleDistribution       map[string]float64 `json:"style_distribution"`
	ConflictHistory         []HistoryEntry     `json:"conflict_history"`
}

// Insight is one rule-based observation about a profile.
type Insight struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Dashboard bundles a profile with its trend and insights.
type Dashboard struct {
	Profile     Profile   `json:"profile"`
	Improvement float64   `json:"improvement_percentage"`
	Insights    []Insight `json:"insights"`
}

const historyLimit = 10

// #endregion types

// #region compute

// Compute builds the profile from the self speaker's turns in sessions.
// Sessions are expected oldest first.
func Compute(userID string, sessions []SessionTurns) Profile {
	p := Profile{
		UserID:            userID,
		TotalConflicts:    len(sessions),
		DominantStyle:     StyleNeutral,
		StyleDistribution: map[string]float64{},
		ConflictHistory:   []HistoryEntry{},
	}

	var own []dialogue.DialogueTurn
	for _, s := range sessions {
		var sum float64
		n := 0
		for _, t := range s.Turns {
			if t.Speaker != dialogue.SpeakerSelf {
				continue
			}
			own = append(own, t)
			sum += t.ConflictScore
			n++
		}
		score := 0.0
		if n > 0 {
			score = sum / float64(n)
		}
		p.ConflictHistory = append(p.ConflictHistory, HistoryEntry{
			SessionID:     s.SessionID,
			SessionName:   s.Name,
			Date:          s.CreatedAt,
			ConflictScore: score,
		})
	}
	if len(p.ConflictHistory) > historyLimit {
		p.ConflictHistory = p.ConflictHistory[len(p.ConflictHistory)-historyLimit:]
	}
	if len(own) == 0 {
		return p
	}

	var blame, you int
	var conflict, aggression, pa float64
	for _, t := range own {
		if dialogue.HasBias(t.BiasTags, dialogue.BiasPersonalization) {
			blame++
		}
		if strings.Contains(strings.ToLower(t.Text), "you") {
			you++
		}
		conflict += t.ConflictScore
		aggression += t.AggressionScore
		pa += t.PassiveAggressionScore
	}
	n := float64(len(own))
	p.BlameFrequency = float64(blame) / n
	p.YouStatementsPercentage = float64(you) / n
	p.EscalationContribution = conflict / n
	aggression /= n
	pa /= n

	p.DominantStyle = dominantStyle(aggression, pa, p.EscalationContribution)
	avoidant := 0.2
	if p.DominantStyle == StyleAvoidant {
		avoidant = 0.5
	}
	p.StyleDistribution = map[string]float64{
		"attacking":          math.Min(aggression, 1),
		"passive_aggressive": math.Min(pa, 1),
		"avoidant":           avoidant,
		"constructive":       math.Max(0, 1-p.EscalationContribution),
	}
	return p
}

func dominantStyle(aggression, pa, contribution float64) Style {
	switch {
	case aggression > 0.6:
		return StyleAttacking
	case pa > 0.5:
		return StylePassiveAggressive
	case aggression < 0.2 && pa < 0.2:
		if contribution < 0.3 {
			return StyleConstructive
		}
		return StyleAvoidant
	}
	return StyleNeutral
}

// #endregion compute

// #region dashboard

// Improvement is how far the mean of the latest three sessions sits below
// the mean of the first three, in percentage points. Never negative.
func Improvement(history []HistoryEntry) float64 {
	if len(history) < 2 {
		return 0
	}
	first := history[:min(3, len(history))]
	last := history[max(0, len(history)-3):]
	return math.Max(0, meanScore(first)-meanScore(last)) * 100
}

func meanScore(h []HistoryEntry) float64 {
	var sum float64
	for _, e := range h {
		sum += e.ConflictScore
	}
	return sum / float64(len(h))
}

// Insights applies the fixed insight rules in order.
func Insights(p Profile) []Insight {
	out := []Insight{}
	if p.BlameFrequency > 0.5 {
		out = append(out, Insight{"warning", "High blame frequency detected. Try focusing on your own feelings and needs."})
	}
	switch p.DominantStyle {
	case StyleAttacking:
		out = append(out, Insight{"tip", "Your style tends toward aggressive. Consider using 'I feel' statements."})
	case StylePassiveAggressive:
		out = append(out, Insight{"tip", "You often use passive-aggressive communication. Try being more direct."})
	case StyleConstructive:
		out = append(out, Insight{"positive", "Great job! Your communication style is constructive."})
	}
	if p.EscalationContribution < 0.3 {
		out = append(out, Insight{"positive", "You're good at keeping conflicts from escalating."})
	}
	return out
}

// NewDashboard assembles the dashboard view of p.
func NewDashboard(p Profile) Dashboard {
	return Dashboard{
		Profile:     p,
		Improvement: Improvement(p.ConflictHistory),
		Insights:    Insights(p),
	}
}

// #endregion dashboard
