package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/conflict-twin/internal/cache"
	"github.com/danielpatrickdp/conflict-twin/internal/config"
	"github.com/danielpatrickdp/conflict-twin/internal/engine"
	"github.com/danielpatrickdp/conflict-twin/internal/logging"
	"github.com/danielpatrickdp/conflict-twin/internal/oracle"
	"github.com/danielpatrickdp/conflict-twin/internal/simulate"
	"github.com/danielpatrickdp/conflict-twin/internal/store"
)

// version is set at build time via -ldflags.
var version = "dev"

// #region root

type rootFlags struct {
	configPath string
	dbPath     string
	oracleAddr string
	logLevel   string
	jsonOut    bool
}

// app carries loaded configuration and lazily opened resources for one
// command invocation.
type app struct {
	flags  *rootFlags
	cfg    config.Config
	logger *slog.Logger

	store   *store.Store
	closers []func() error
}

func newRootCmd() *cobra.Command {
	a := &app{flags: &rootFlags{}}
	root := &cobra.Command{
		Use:   "conflictctl",
		Short: "Conflict scoring, escalation analysis and reply simulation",
		Long: "conflictctl scores conversation turns for conflict, tracks escalation across\n" +
			"a session, models the other party and simulates how they would answer a draft.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/conflict-twin/config.toml)")
	f.StringVar(&a.flags.dbPath, "db", "", "SQLite database path (overrides config)")
	f.StringVar(&a.flags.oracleAddr, "oracle", "", "NLP service address (overrides config)")
	f.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.BoolVar(&a.flags.jsonOut, "json", false, "Output as JSON")

	root.AddCommand(
		newReplCmd(a),
		newScoreCmd(a),
		newSessionCmd(a),
		newAnalyzeCmd(a),
		newSimulateCmd(a),
		newInspectCmd(a),
		newReplayCmd(a),
		newExportCmd(a),
		newProfileCmd(a),
		newSchemaCmd(a),
		newConfigCmd(a),
	)
	return root
}

// #endregion root

// #region wiring

func (a *app) init(stderr io.Writer) error {
	var err error
	if a.flags.configPath != "" {
		a.cfg, err = config.LoadFile(a.flags.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.flags.dbPath != "" {
		a.cfg.Store.Path = a.flags.dbPath
	}
	if a.flags.oracleAddr != "" {
		a.cfg.Oracle.Addr = a.flags.oracleAddr
	}
	if a.flags.logLevel != "" {
		a.cfg.Log.Level = a.flags.logLevel
	}

	level, err := logging.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.Init(level, a.cfg.Log.Format, stderr)
	a.logger = logging.New("cli")
	return nil
}

func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	a.store = nil
	return first
}

// run wraps a command body so resources it opened are closed even when it
// fails.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.close(); err == nil {
				err = cerr
			}
		}()
		return fn(cmd, args)
	}
}

// openStore opens the configured database once per invocation.
func (a *app) openStore() (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.NewStore(a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.cfg.Store.Path, err)
	}
	a.store = s
	a.closers = append(a.closers, s.Close)
	return s, nil
}

// openOracle connects to the NLP service. The first call it serves is
// preceded by a health check, so commands that never score text do not
// depend on the service being up.
func (a *app) openOracle() (*oracle.Client, error) {
	c, err := oracle.NewClient(a.cfg.Oracle.Addr, a.cfg.OracleTimeout(), logging.New("oracle"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, c.Close)
	return c.RequireReady(), nil
}

func (a *app) openCache(ctx context.Context) engine.ModelCache {
	if !a.cfg.Cache.Enabled {
		return nil
	}
	c, client, err := cache.Dial(ctx, a.cfg.Cache.Addr, cache.Config{TTL: a.cfg.CacheTTL()})
	if err != nil {
		a.logger.Warn("cache unavailable, continuing without it", "addr", a.cfg.Cache.Addr, "err", err)
		return nil
	}
	a.closers = append(a.closers, client.Close)
	return c
}

func (a *app) generator() simulate.Generator {
	sc := a.cfg.Simulation
	if !sc.LLMEnabled {
		return nil
	}
	key := os.Getenv(sc.APIKeyEnv)
	if key == "" {
		a.logger.Warn("llm enabled but API key is not set; using templates", "env", sc.APIKeyEnv)
		return nil
	}
	opts := []option.RequestOption{option.WithAPIKey(key)}
	if sc.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(sc.BaseURL))
	}
	client := openai.NewClient(opts...)
	return simulate.NewLLMGenerator(&client, sc.Model, logging.New("llm"))
}

func (a *app) seed() uint64 {
	if a.cfg.Simulation.Seed != 0 {
		return a.cfg.Simulation.Seed
	}
	return uint64(time.Now().UnixNano())
}

// openEngine wires an engine. withStore controls whether session
// operations are available.
func (a *app) openEngine(ctx context.Context, withStore bool) (*engine.Engine, error) {
	o, err := a.openOracle()
	if err != nil {
		return nil, err
	}
	deps := engine.Deps{
		Oracle:    o,
		Templates: simulate.NewTemplateGenerator(a.seed()),
		Generator: a.generator(),
		Logger:    logging.New("engine"),
	}
	if withStore {
		s, err := a.openStore()
		if err != nil {
			return nil, err
		}
		deps.Store = s
		deps.Cache = a.openCache(ctx)
	}
	return engine.New(deps), nil
}

// #endregion wiring

// #region output

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion output
