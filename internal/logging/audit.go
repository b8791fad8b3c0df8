package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const auditTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-decision
// LogDecision writes an audit entry to the audit_log table.
func LogDecision(db *sql.DB, entry AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO audit_log (session_id, kind, payload_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.SessionID),
		entry.Kind,
		nullIfEmpty(entry.PayloadJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(auditTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// LogRecord marshals payload into the entry before writing it.
func LogRecord(db *sql.DB, entry AuditEntry, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	entry.PayloadJSON = string(b)
	return LogDecision(db, entry)
}
// #endregion log-decision

// #region list-decisions
// ListDecisions returns the most recent audit entries, newest first. An empty
// sessionID lists entries for all sessions.
func ListDecisions(db *sql.DB, sessionID string, limit int) ([]AuditEntry, error) {
	q := `SELECT id, session_id, kind, payload_json, decision, reason, created_at FROM audit_log`
	var args []any
	if sessionID != "" {
		q += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	q += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var session, payload, reason sql.NullString
		var created string
		if err := rows.Scan(&e.ID, &session, &e.Kind, &payload, &e.Decision, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.SessionID = session.String
		e.PayloadJSON = payload.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(auditTimeFormat, created)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
