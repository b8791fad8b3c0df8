package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/opponent"
	"github.com/danielpatrickdp/conflict-twin/internal/profile"
	"github.com/danielpatrickdp/conflict-twin/internal/replay"
	"github.com/danielpatrickdp/conflict-twin/internal/scoring"
	"github.com/danielpatrickdp/conflict-twin/internal/simulate"
)

// schemaTypes are the host-facing documents conflictctl reads or writes.
var schemaTypes = map[string]any{
	"turn":       dialogue.DialogueTurn{},
	"quick":      scoring.QuickResult{},
	"analysis":   analysis.ConversationAnalysis{},
	"opponent":   opponent.Model{},
	"simulation": simulate.Result{},
	"profile":    profile.Dashboard{},
	"fixture":    replay.Fixture{},
}

func schemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for n := range schemaTypes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func newSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "schema [name]",
		Short:     "Print JSON schemas of the documents conflictctl exchanges",
		Long:      "Without a name, lists the available schemas: " + strings.Join(schemaNames(), ", ") + ".",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: schemaNames(),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, n := range schemaNames() {
					fmt.Fprintln(out, n)
				}
				return nil
			}
			v, ok := schemaTypes[args[0]]
			if !ok {
				return fmt.Errorf("unknown schema %q (have %s)", args[0], strings.Join(schemaNames(), ", "))
			}
			r := jsonschema.Reflector{DoNotReference: true}
			return printJSON(out, r.Reflect(v))
		}),
	}
}
