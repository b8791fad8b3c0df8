package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
)

func newScoreCmd(a *app) *cobra.Command {
	var speaker string
	var quick bool
	cmd := &cobra.Command{
		Use:   "score <text>",
		Short: "Score one utterance for conflict",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			sp, err := dialogue.ParseSpeaker(speaker)
			if err != nil {
				return err
			}
			e, err := a.openEngine(cmd.Context(), false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if quick {
				q, err := e.QuickScore(cmd.Context(), text)
				if err != nil {
					return err
				}
				if a.flags.jsonOut {
					return printJSON(out, q)
				}
				fmt.Fprintf(out, "%s (%.2f, %s): %s\n", q.WarningLevel, q.ConflictScore, q.Color, q.QuickTip)
				return nil
			}

			turn, err := e.ScoreTurn(cmd.Context(), text, sp)
			if err != nil {
				return err
			}
			if a.flags.jsonOut {
				return printJSON(out, turn)
			}
			printTurn(out, turn)
			return nil
		}),
	}
	cmd.Flags().StringVar(&speaker, "speaker", "self", "Speaker: self or counterpart")
	cmd.Flags().BoolVar(&quick, "quick", false, "Print the quick thermometer result only")
	return cmd
}
