package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/engine"
	"github.com/danielpatrickdp/conflict-twin/internal/oracle"
)

const replHelp = `Type a line to record it as your turn, or prefix it with "them:" for the
other party. Commands:
  /analyze           analyze the session so far
  /pipeline          per-turn pipeline view
  /simulate <draft>  predict their reply to a draft
  /quick <draft>     quick thermometer for a draft
  /help              this text
  quit               leave`

// #region repl-cmd

func newReplCmd(a *app) *cobra.Command {
	var user, name, sessionID string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Record a conversation interactively and test drafts against it",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := a.openEngine(ctx, true)
			if err != nil {
				return err
			}
			if sessionID == "" {
				sess, err := e.CreateSession(user, name)
				if err != nil {
					return err
				}
				sessionID = sess.ID
			} else if _, err := e.Turns(sessionID); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Conflict twin ready.")
			fmt.Fprintf(out, "  DB: %s | Oracle: %s | Session: %s\n", a.cfg.Store.Path, a.cfg.Oracle.Addr, sessionID)
			fmt.Fprintln(out, `Type a message (or "/help", "quit"):`)
			return repl(ctx, e, sessionID, cmd.InOrStdin(), out)
		}),
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID for a new session")
	cmd.Flags().StringVar(&name, "name", "", "Name for a new session")
	cmd.Flags().StringVar(&sessionID, "session", "", "Resume an existing session")
	return cmd
}

// #endregion repl-cmd

// #region repl-loop

func repl(ctx context.Context, e *engine.Engine, sessionID string, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" || line == "/quit" {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := replLine(ctx, e, sessionID, line, out); err != nil {
			if oracle.IsUnavailable(err) {
				fmt.Fprintf(out, "oracle unavailable: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func replLine(ctx context.Context, e *engine.Engine, sessionID, line string, out io.Writer) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch cmd {
	case "/help":
		fmt.Fprintln(out, replHelp)
		return nil
	case "/analyze":
		rec, err := e.AnalyzeSession(ctx, sessionID)
		if err != nil {
			return err
		}
		printAnalysis(out, rec.Analysis)
		return nil
	case "/pipeline":
		steps, err := e.Pipeline(sessionID)
		if err != nil {
			return err
		}
		printPipeline(out, steps)
		return nil
	case "/simulate":
		if rest == "" {
			return fmt.Errorf("usage: /simulate <draft>")
		}
		res, err := e.Simulate(ctx, sessionID, rest)
		if err != nil {
			return err
		}
		printSimulation(out, res)
		return nil
	case "/quick":
		q, err := e.QuickScore(ctx, rest)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%.2f): %s\n", q.WarningLevel, q.ConflictScore, q.QuickTip)
		return nil
	}
	if strings.HasPrefix(cmd, "/") {
		return fmt.Errorf("unknown command %s", cmd)
	}

	speaker, text := splitSpeaker(line)
	turn, err := e.AddTurn(ctx, sessionID, text, speaker)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "[%s] conflict=%.3f emotion=%s biases=%d\n",
		turn.Speaker, turn.ConflictScore, turn.DominantEmotion, len(turn.BiasTags))
	return nil
}

// splitSpeaker reads an optional "them:" / "me:" style prefix.
func splitSpeaker(line string) (dialogue.Speaker, string) {
	if prefix, text, ok := strings.Cut(line, ":"); ok && !strings.Contains(prefix, " ") {
		if sp, err := dialogue.ParseSpeaker(prefix); err == nil {
			return sp, strings.TrimSpace(text)
		}
	}
	return dialogue.SpeakerSelf, line
}

// #endregion repl-loop
