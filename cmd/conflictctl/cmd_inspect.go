package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/logging"
	"github.com/danielpatrickdp/conflict-twin/internal/store"
)

// #region inspect-cmd

func newInspectCmd(a *app) *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "inspect [session-id]",
		Short: "Show sessions, or one session's turns, analysis and audit log",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return runDetailMode(cmd.OutOrStdout(), s, args[0], last, a.flags.jsonOut)
			}
			return runListMode(cmd.OutOrStdout(), s, a.flags.jsonOut)
		}),
	}
	cmd.Flags().IntVar(&last, "last", 20, "Show N most recent audit entries")
	return cmd
}

// #endregion inspect-cmd

// #region list-mode

type listRow struct {
	SessionID  string  `json:"session_id"`
	UserID     string  `json:"user_id"`
	Name       string  `json:"name"`
	Turns      int     `json:"turns"`
	Trend      string  `json:"trend,omitempty"`
	Escalation float64 `json:"escalation"`
	Analyzed   int     `json:"analyzed_turns"`
	UpdatedAt  string  `json:"updated_at"`
}

func runListMode(w io.Writer, s *store.Store, jsonOut bool) error {
	sessions, err := s.ListSessions("")
	if err != nil {
		return err
	}
	rows := make([]listRow, 0, len(sessions))
	for _, sess := range sessions {
		turns, err := s.ListTurns(sess.ID)
		if err != nil {
			return err
		}
		row := listRow{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Name:      sess.Name,
			Turns:     len(turns),
			UpdatedAt: sess.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		}
		rec, err := s.LatestAnalysis(sess.ID)
		switch {
		case err == nil:
			row.Trend = string(rec.Analysis.Trend)
			row.Escalation = rec.Analysis.EscalationProbability
			row.Analyzed = rec.TurnCount
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		rows = append(rows, row)
	}

	if jsonOut {
		return printJSON(w, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "no sessions found")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-10s  %5s  %-13s  %10s  %s\n", "Session", "User", "Turns", "Trend", "Escalation", "Updated")
	fmt.Fprintf(w, "%-36s+-%-10s+-%5s+-%-13s+-%10s+-%s\n",
		"------------------------------------", "----------", "-----", "-------------", "----------", "--------------------")
	for _, r := range rows {
		trend := r.Trend
		if trend == "" {
			trend = "-"
		} else if r.Analyzed < r.Turns {
			trend += "*" // analysis is older than the latest turn
		}
		fmt.Fprintf(w, "%-36s  %-10s  %5d  %-13s  %10.3f  %s\n", r.SessionID, r.UserID, r.Turns, trend, r.Escalation, r.UpdatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detail struct {
	Session  store.Session                  `json:"session"`
	Turns    []dialogue.DialogueTurn        `json:"turns"`
	Analysis *analysis.ConversationAnalysis `json:"analysis,omitempty"`
	Audit    []logging.AuditEntry           `json:"audit"`
}

func runDetailMode(w io.Writer, s *store.Store, sessionID string, last int, jsonOut bool) error {
	sess, err := s.GetSession(sessionID)
	if err != nil {
		return err
	}
	d := detail{Session: sess}
	if d.Turns, err = s.ListTurns(sessionID); err != nil {
		return err
	}
	if rec, err := s.LatestAnalysis(sessionID); err == nil {
		d.Analysis = &rec.Analysis
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if d.Audit, err = logging.ListDecisions(s.DB(), sessionID, last); err != nil {
		return err
	}
	if d.Audit == nil {
		d.Audit = []logging.AuditEntry{}
	}

	if jsonOut {
		return printJSON(w, d)
	}

	fmt.Fprintf(w, "Session: %s\n", sess.ID)
	fmt.Fprintf(w, "User:    %s\n", sess.UserID)
	fmt.Fprintf(w, "Name:    %s\n", sess.Name)
	fmt.Fprintf(w, "Created: %s\n\n", sess.CreatedAt.Format("2006-01-02T15:04:05Z"))

	fmt.Fprintf(w, "%3s  %-11s  %8s  %6s  %6s  %s\n", "#", "Speaker", "Conflict", "Aggr", "PA", "Text")
	for i, t := range d.Turns {
		fmt.Fprintf(w, "%3d  %-11s  %8.3f  %6.3f  %6.3f  %s\n",
			i+1, t.Speaker, t.ConflictScore, t.AggressionScore, t.PassiveAggressionScore, truncate(t.Text, 60))
	}

	if d.Analysis != nil {
		fmt.Fprintln(w)
		printAnalysis(w, *d.Analysis)
	}

	if len(d.Audit) > 0 {
		fmt.Fprintf(w, "\nAudit (newest first):\n")
		for _, e := range d.Audit {
			fmt.Fprintf(w, "  %s  %-15s  %-40s  %s\n",
				e.CreatedAt.Format("2006-01-02T15:04:05Z"), e.Kind, truncate(e.Decision, 40), e.Reason)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// #endregion detail-mode
