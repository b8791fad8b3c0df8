package main

import (
	"strings"

	"github.com/spf13/cobra"
)

func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate <session-id> <draft>",
		Short: "Predict how the counterpart answers a draft",
		Args:  cobra.MinimumNArgs(2),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine(cmd.Context(), true)
			if err != nil {
				return err
			}
			res, err := e.Simulate(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if a.flags.jsonOut {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printSimulation(cmd.OutOrStdout(), res)
			return nil
		}),
	}
	return cmd
}
