package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/conflict-twin/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write the default config file if none exists",
			Args:  cobra.NoArgs,
			RunE: a.run(func(cmd *cobra.Command, _ []string) error {
				path, err := config.WriteDefault()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: a.run(func(cmd *cobra.Command, _ []string) error {
				if a.flags.jsonOut {
					return printJSON(cmd.OutOrStdout(), a.cfg)
				}
				return toml.NewEncoder(cmd.OutOrStdout()).Encode(a.cfg)
			}),
		},
	)
	return cmd
}
