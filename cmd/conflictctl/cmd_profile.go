package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profile <user-id>",
		Short: "Show a user's behaviour profile across sessions",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine(cmd.Context(), true)
			if err != nil {
				return err
			}
			d, err := e.UserDashboard(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.flags.jsonOut {
				return printJSON(out, d)
			}
			p := d.Profile
			fmt.Fprintf(out, "User:           %s\n", p.UserID)
			fmt.Fprintf(out, "Sessions:       %d\n", p.TotalConflicts)
			fmt.Fprintf(out, "Style:          %s\n", p.DominantStyle)
			fmt.Fprintf(out, "Blame:          %.0f%%\n", p.BlameFrequency*100)
			fmt.Fprintf(out, "You-statements: %.0f%%\n", p.YouStatementsPercentage*100)
			fmt.Fprintf(out, "Contribution:   %.3f\n", p.EscalationContribution)
			fmt.Fprintf(out, "Improvement:    %.1f%%\n", d.Improvement)
			for _, h := range p.ConflictHistory {
				fmt.Fprintf(out, "  %s  %.3f  %s\n", h.Date.Format("2006-01-02"), h.ConflictScore, h.SessionName)
			}
			for _, in := range d.Insights {
				fmt.Fprintf(out, "  [%s] %s\n", in.Type, in.Message)
			}
			return nil
		}),
	}
}
