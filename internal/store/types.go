package store

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
)

// ErrNotFound is returned when a session, analysis or model does not exist.
var ErrNotFound = errors.New("not found")

// #region session
// Session groups the turns of one conflict.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
// #endregion session

// #region stored-analysis
// StoredAnalysis is a persisted ConversationAnalysis.
type StoredAnalysis struct {
	ID        string                        `json:"id"`
	SessionID string                        `json:"session_id"`
	TurnCount int                           `json:"turn_count"`
	CreatedAt time.Time                     `json:"created_at"`
	Analysis  analysis.ConversationAnalysis `json:"analysis"`
}
// #endregion stored-analysis
