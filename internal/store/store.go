package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/opponent"
)

// Fixed width so that stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id   TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	name         TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id, created_at);

CREATE TABLE IF NOT EXISTS turns (
	turn_id        TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	seq            INTEGER NOT NULL,
	speaker        TEXT NOT NULL,
	text           TEXT NOT NULL,
	conflict_score REAL NOT NULL,
	turn_json      TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	UNIQUE (session_id, seq),
	FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS analyses (
	analysis_id            TEXT PRIMARY KEY,
	session_id             TEXT NOT NULL,
	turn_count             INTEGER NOT NULL,
	overall_conflict_score REAL NOT NULL,
	escalation_probability REAL NOT NULL,
	trend                  TEXT NOT NULL,
	analysis_json          TEXT NOT NULL,
	created_at             TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS opponent_models (
	session_id   TEXT PRIMARY KEY,
	model_json   TEXT NOT NULL,
	updated_at   TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS audit_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT,
	kind          TEXT NOT NULL,
	payload_json  TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);
`
// #endregion schema

// #region store-struct
// Store persists sessions, turns, analyses and opponent models in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations. ":memory:" is
// supported.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Pragmas are per connection, and ":memory:" is per connection too.
	db.SetMaxOpenConns(1)
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region sessions
// CreateSession starts a new session for userID.
func (s *Store) CreateSession(userID, name string) (Session, error) {
	now := s.now().UTC()
	sess := Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, user_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, nullIfEmpty(name), formatTime(now), formatTime(now),
	)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// GetSession loads one session.
func (s *Store) GetSession(id string) (Session, error) {
	row := s.db.QueryRow(
		`SELECT session_id, user_id, name, created_at, updated_at FROM sessions WHERE session_id = ?`, id,
	)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns sessions oldest first. An empty userID lists all.
func (s *Store) ListSessions(userID string) ([]Session, error) {
	q := `SELECT session_id, user_id, name, created_at, updated_at FROM sessions`
	var args []any
	if userID != "" {
		q += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	q += ` ORDER BY created_at, rowid`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteSession removes a session and everything recorded under it.
func (s *Store) DeleteSession(id string) error {
	res, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(r scanner) (Session, error) {
	var sess Session
	var name sql.NullString
	var created, updated string
	if err := r.Scan(&sess.ID, &sess.UserID, &name, &created, &updated); err != nil {
		return Session{}, err
	}
	sess.Name = name.String
	sess.CreatedAt = parseTime(created)
	sess.UpdatedAt = parseTime(updated)
	return sess, nil
}
// #endregion sessions

// #region turns
// AppendTurn stores a scored turn at the end of the session and returns it
// with its assigned ID. Scored fields are stored as given. The session's
// opponent model no longer reflects the history and is dropped.
func (s *Store) AppendTurn(sessionID string, turn dialogue.DialogueTurn) (dialogue.DialogueTurn, error) {
	turn.ID = uuid.New().String()
	body, err := json.Marshal(turn)
	if err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("marshal turn: %w", err)
	}
	now := formatTime(s.now().UTC())

	tx, err := s.db.Begin()
	if err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?`, sessionID,
	).Scan(&seq); err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("next seq: %w", err)
	}

	res, err := tx.Exec(`UPDATE sessions SET updated_at = ? WHERE session_id = ?`, now, sessionID)
	if err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dialogue.DialogueTurn{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	_, err = tx.Exec(
		`INSERT INTO turns (turn_id, session_id, seq, speaker, text, conflict_score, turn_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.ID, sessionID, seq, string(turn.Speaker), turn.Text, turn.ConflictScore, string(body), now,
	)
	if err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("insert turn: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM opponent_models WHERE session_id = ?`, sessionID); err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("drop opponent model: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return dialogue.DialogueTurn{}, fmt.Errorf("commit: %w", err)
	}
	return turn, nil
}

// ListTurns returns the session's turns in order.
func (s *Store) ListTurns(sessionID string) ([]dialogue.DialogueTurn, error) {
	rows, err := s.db.Query(
		`SELECT turn_json FROM turns WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	turns := []dialogue.DialogueTurn{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		var t dialogue.DialogueTurn
		if err := json.Unmarshal([]byte(body), &t); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
// #endregion turns

// #region analyses
// SaveAnalysis records an analysis of the session's turns.
func (s *Store) SaveAnalysis(sessionID string, turnCount int, a analysis.ConversationAnalysis) (StoredAnalysis, error) {
	body, err := json.Marshal(a)
	if err != nil {
		return StoredAnalysis{}, fmt.Errorf("marshal analysis: %w", err)
	}
	rec := StoredAnalysis{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		TurnCount: turnCount,
		CreatedAt: s.now().UTC(),
		Analysis:  a,
	}
	_, err = s.db.Exec(
		`INSERT INTO analyses (analysis_id, session_id, turn_count, overall_conflict_score, escalation_probability, trend, analysis_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, sessionID, turnCount, a.OverallConflictScore, a.EscalationProbability, string(a.Trend),
		string(body), formatTime(rec.CreatedAt),
	)
	if err != nil {
		return StoredAnalysis{}, fmt.Errorf("insert analysis: %w", err)
	}
	return rec, nil
}

// LatestAnalysis returns the most recently saved analysis for the session.
func (s *Store) LatestAnalysis(sessionID string) (StoredAnalysis, error) {
	var rec StoredAnalysis
	var body, created string
	err := s.db.QueryRow(
		`SELECT analysis_id, session_id, turn_count, analysis_json, created_at
		 FROM analyses WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, sessionID,
	).Scan(&rec.ID, &rec.SessionID, &rec.TurnCount, &body, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredAnalysis{}, fmt.Errorf("analysis for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return StoredAnalysis{}, fmt.Errorf("latest analysis: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &rec.Analysis); err != nil {
		return StoredAnalysis{}, fmt.Errorf("unmarshal analysis: %w", err)
	}
	rec.CreatedAt = parseTime(created)
	return rec, nil
}
// #endregion analyses

// #region opponent-models
// SaveOpponentModel stores or replaces the session's opponent model.
func (s *Store) SaveOpponentModel(sessionID string, m opponent.Model) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal opponent model: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO opponent_models (session_id, model_json, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET model_json = excluded.model_json, updated_at = excluded.updated_at`,
		sessionID, string(body), formatTime(s.now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("save opponent model: %w", err)
	}
	return nil
}

// GetOpponentModel loads the session's opponent model.
func (s *Store) GetOpponentModel(sessionID string) (opponent.Model, error) {
	var body string
	err := s.db.QueryRow(`SELECT model_json FROM opponent_models WHERE session_id = ?`, sessionID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return opponent.Model{}, fmt.Errorf("opponent model for session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return opponent.Model{}, fmt.Errorf("get opponent model: %w", err)
	}
	var m opponent.Model
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return opponent.Model{}, fmt.Errorf("unmarshal opponent model: %w", err)
	}
	m.CommunicationStyle = opponent.ParseStyle(string(m.CommunicationStyle))
	return m, nil
}
// #endregion opponent-models

// #region helpers
func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
