package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/conflict-twin/internal/logging"
	"github.com/danielpatrickdp/conflict-twin/internal/replay"
)

type replayOutput struct {
	Fixture string         `json:"fixture"`
	Report  replay.Report  `json:"report"`
	Summary replay.Summary `json:"summary"`
}

func newReplayCmd(a *app) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "replay <fixture>...",
		Short: "Replay fixtures through the analyzer and check expectations",
		Long: `Replay analyzes each fixture turn by turn, the way the conversation
looked after every message, and compares the result with the fixture's
expectations. Fixtures are YAML (.yaml, .yml) or JSON. Exits non-zero when
any expectation fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			logger := logging.New("replay")
			var outputs []replayOutput
			failed := 0
			for _, path := range args {
				f, err := replay.LoadFixture(path)
				if err != nil {
					return err
				}
				rep, err := replay.Run(cmd.Context(), f, logger)
				if err != nil {
					return err
				}
				if !rep.Passed() {
					failed++
				}
				res := replayOutput{Fixture: path, Report: rep, Summary: replay.Summarize(rep.Steps)}
				outputs = append(outputs, res)
				if a.flags.jsonOut {
					continue
				}
				printReplay(cmd, res, verbose)
			}
			if a.flags.jsonOut {
				if err := printJSON(out, outputs); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d fixtures failed", failed, len(args))
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print every step")
	return cmd
}

func printReplay(cmd *cobra.Command, res replayOutput, verbose bool) {
	out := cmd.OutOrStdout()
	status := "PASS"
	if !res.Report.Passed() {
		status = "FAIL"
	}
	s := res.Summary
	fmt.Fprintf(out, "%s  %s  %q\n", status, res.Fixture, res.Report.Description)
	fmt.Fprintf(out, "      turns=%d escalating=%d de-escalating=%d stable=%d peak=%.3f@%d final=%s\n",
		s.TotalTurns, s.Escalating, s.Deescalating, s.Stable, s.PeakEscalation, s.PeakTurn, s.FinalTrend)
	if verbose {
		for _, st := range res.Report.Steps {
			fmt.Fprintf(out, "      %3d %-11s conflict=%.3f overall=%.3f escalation=%.3f %-13s %v\n",
				st.TurnCount, st.Speaker, st.ConflictScore, st.Overall, st.Escalation, st.Trend, st.Categories)
		}
	}
	for _, m := range res.Report.Mismatches {
		fmt.Fprintf(out, "      %s\n", m)
	}
}
