package logging

import "time"

// #region audit-entry
// AuditEntry is a single row in the audit_log table.
type AuditEntry struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	Kind        string    `json:"kind"`                   // "analysis" | "simulation" | "opponent_model"
	PayloadJSON string    `json:"payload_json,omitempty"` // decision inputs and outputs
	Decision    string    `json:"decision"`               // trend, recommendation or style
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	KindAnalysis      = "analysis"
	KindSimulation    = "simulation"
	KindOpponentModel = "opponent_model"
)
// #endregion audit-entry

// #region analysis-record
// AnalysisRecord captures what an analysis decision was based on.
// Serialized as JSON into audit_log.payload_json.
type AnalysisRecord struct {
	TurnCount             int       `json:"turn_count"`
	ConflictScores        []float64 `json:"conflict_scores"`
	OverallConflictScore  float64   `json:"overall_conflict_score"`
	EscalationProbability float64   `json:"escalation_probability"`
	Trend                 string    `json:"trend"`
	Recommendations       []string  `json:"recommendations"`
}

// SimulationRecord captures one simulated exchange.
type SimulationRecord struct {
	Draft               string  `json:"draft"`
	DraftConflict       float64 `json:"draft_conflict"`
	Style               string  `json:"style"`
	Reply               string  `json:"reply"`
	Generator           string  `json:"generator"`
	PredictedEscalation float64 `json:"predicted_escalation"`
	ConflictScoreChange float64 `json:"conflict_score_change"`
}
// #endregion analysis-record
