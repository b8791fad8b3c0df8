package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "conflict-twin"

// Config holds all conflict-twin configuration.
type Config struct {
	Oracle     OracleConfig     `toml:"oracle"`
	Store      StoreConfig      `toml:"store"`
	Cache      CacheConfig      `toml:"cache"`
	Simulation SimulationConfig `toml:"simulation"`
	Log        LogConfig        `toml:"log"`
}

type OracleConfig struct {
	Addr           string `toml:"addr"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type StoreConfig struct {
	Path string `toml:"path"`
}

type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type SimulationConfig struct {
	Seed       uint64 `toml:"seed"` // 0 seeds from the clock
	LLMEnabled bool   `toml:"llm_enabled"`
	Model      string `toml:"model"`
	APIKeyEnv  string `toml:"api_key_env"`
	BaseURL    string `toml:"base_url"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Oracle: OracleConfig{
			Addr:           "localhost:50051",
			TimeoutSeconds: 30,
		},
		Store: StoreConfig{
			Path: "conflict_twin.db",
		},
		Cache: CacheConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			TTLSeconds: 3600,
		},
		Simulation: SimulationConfig{
			Seed:       0,
			LLMEnabled: false,
			Model:      "gpt-4o-mini",
			APIKeyEnv:  "OPENAI_API_KEY",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads config from the standard path, falling back to defaults, then
// applies environment overrides.
func Load() (Config, error) {
	cfg := DefaultConfig()

	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}
	return finish(cfg)
}

// LoadFile reads config from an explicit path. The file must exist.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(expandHome(path), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg Config) (Config, error) {
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Store.Path = expandHome(cfg.Store.Path)
	return cfg, nil
}

// applyEnv lets deployment override the file without editing it.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("CONFLICT_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("ORACLE_ADDR"); v != "" {
		cfg.Oracle.Addr = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Addr = v
		cfg.Cache.Enabled = true
	}
	if v := os.Getenv("SIMULATION_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("SIMULATION_SEED: %w", err)
		}
		cfg.Simulation.Seed = seed
	}
	return nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, appName, "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", appName, "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// OracleTimeout returns the per-call oracle deadline.
func (c Config) OracleTimeout() time.Duration {
	return time.Duration(c.Oracle.TimeoutSeconds) * time.Second
}

// CacheTTL returns how long cached opponent models live.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
