package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/export"
	"github.com/danielpatrickdp/conflict-twin/internal/replay"
)

func newExportCmd(a *app) *cobra.Command {
	var dir, fixturePath, importPath, user string
	cmd := &cobra.Command{
		Use:   "export [session-id]",
		Short: "Archive a session, write it as a replay fixture, or import an archive",
		Long: `Export writes <dir>/<session-id>.jsonl.zst holding the session, its turns
and its latest analysis. With --fixture it instead writes a replay fixture
whose expectations pin the session's current analysis, for use as a
regression baseline. With --import it restores an archive as a new session.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if importPath != "" {
				if len(args) > 0 {
					return fmt.Errorf("--import takes no session ID")
				}
				sess, err := export.ImportArchive(s, importPath, user)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, sess.ID)
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("session ID is required")
			}
			sessionID := args[0]

			if fixturePath != "" {
				sess, err := s.GetSession(sessionID)
				if err != nil {
					return err
				}
				turns, err := s.ListTurns(sessionID)
				if err != nil {
					return err
				}
				desc := fmt.Sprintf("session %s %s", sess.ID, sess.Name)
				f := replay.FromTurns(desc, turns, analysis.Analyze(turns))
				if err := replay.WriteFixture(fixturePath, f); err != nil {
					return err
				}
				fmt.Fprintf(out, "Wrote %d turns to %s\n", len(turns), fixturePath)
				return nil
			}

			path, err := export.ExportSession(s, sessionID, dir)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, path)
			return nil
		}),
	}
	f := cmd.Flags()
	f.StringVar(&dir, "dir", "archives", "Archive directory")
	f.StringVar(&fixturePath, "fixture", "", "Write a replay fixture (.yaml or .json) instead of an archive")
	f.StringVar(&importPath, "import", "", "Import this archive as a new session")
	f.StringVar(&user, "user", "", "Owner of the imported session (default: archived owner)")
	return cmd
}
