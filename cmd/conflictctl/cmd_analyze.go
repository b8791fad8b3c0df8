package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/conflict-twin/internal/analysis"
	"github.com/danielpatrickdp/conflict-twin/internal/dialogue"
	"github.com/danielpatrickdp/conflict-twin/internal/scoring"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var file string
	var pipeline bool
	cmd := &cobra.Command{
		Use:   "analyze [session-id...]",
		Short: "Analyze stored sessions or a file of utterances",
		Long: `Analyze recomputes and stores the analysis of each session, in parallel.

With --file, utterances are read from a YAML or JSON list of
{speaker, text} entries, scored and analyzed without touching the store.`,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case file != "" && len(args) > 0:
				return fmt.Errorf("give session IDs or --file, not both")
			case file != "":
				items, err := loadUtterances(file)
				if err != nil {
					return err
				}
				e, err := a.openEngine(cmd.Context(), false)
				if err != nil {
					return err
				}
				turns, err := e.ScoreBatch(cmd.Context(), items)
				if err != nil {
					return err
				}
				res := e.AnalyzeConversation(turns)
				if pipeline {
					return emitPipeline(a, cmd, analysis.Pipeline(turns, res))
				}
				if a.flags.jsonOut {
					return printJSON(out, res)
				}
				printAnalysis(out, res)
				return nil
			case len(args) == 0:
				return fmt.Errorf("session ID or --file is required")
			}

			e, err := a.openEngine(cmd.Context(), true)
			if err != nil {
				return err
			}
			results, err := e.AnalyzeSessions(cmd.Context(), args)
			if err != nil {
				return err
			}
			if pipeline {
				for _, r := range results {
					steps, err := e.Pipeline(r.SessionID)
					if err != nil {
						return err
					}
					if err := emitPipeline(a, cmd, steps); err != nil {
						return err
					}
				}
				return nil
			}
			if a.flags.jsonOut {
				return printJSON(out, results)
			}
			for _, r := range results {
				fmt.Fprintf(out, "Session %s (%d turns)\n", r.SessionID, r.Analysis.TurnCount)
				printAnalysis(out, r.Analysis.Analysis)
				fmt.Fprintln(out)
			}
			return nil
		}),
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON list of utterances")
	cmd.Flags().BoolVar(&pipeline, "pipeline", false, "Show the per-turn pipeline view")
	return cmd
}

func emitPipeline(a *app, cmd *cobra.Command, steps []analysis.PipelineStep) error {
	if a.flags.jsonOut {
		return printJSON(cmd.OutOrStdout(), steps)
	}
	printPipeline(cmd.OutOrStdout(), steps)
	return nil
}

// loadUtterances reads a list of {speaker, text}. Speaker aliases such as
// "me" or "them" are accepted.
func loadUtterances(path string) ([]scoring.Utterance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var items []scoring.Utterance
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(bytes.NewReader(data)).Decode(&items)
	default:
		err = json.Unmarshal(data, &items)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i := range items {
		sp, err := dialogue.ParseSpeaker(string(items[i].Speaker))
		if err != nil {
			return nil, fmt.Errorf("%s entry %d: %w", path, i+1, err)
		}
		items[i].Speaker = sp
	}
	return items, nil
}
