package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"CONFLICT_DB", "ORACLE_ADDR", "REDIS_ADDR", "SIMULATION_SEED"} {
		t.Setenv(k, "")
	}
	return xdg
}

func writeConfig(t *testing.T, xdg, content string) {
	t.Helper()
	dir := filepath.Join(xdg, appName)
	os.MkdirAll(dir, 0o755)
	os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Oracle.Addr != "localhost:50051" {
		t.Errorf("Oracle.Addr = %q", cfg.Oracle.Addr)
	}
	if cfg.OracleTimeout() != 30*time.Second {
		t.Errorf("OracleTimeout = %v", cfg.OracleTimeout())
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled by default")
	}
	if cfg.Simulation.LLMEnabled {
		t.Error("LLM generator should be disabled by default")
	}
}

func TestLoad_NoConfig(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "conflict_twin.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	xdg := isolate(t)
	writeConfig(t, xdg, `
[oracle]
addr = "nlp:9000"
timeout_seconds = 5

[cache]
enabled = true
ttl_seconds = 60

[simulation]
seed = 42
llm_enabled = true
model = "gpt-4.1-mini"

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.Addr != "nlp:9000" || cfg.OracleTimeout() != 5*time.Second {
		t.Errorf("Oracle = %+v", cfg.Oracle)
	}
	if !cfg.Cache.Enabled || cfg.CacheTTL() != time.Minute {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Simulation.Seed != 42 || !cfg.Simulation.LLMEnabled || cfg.Simulation.Model != "gpt-4.1-mini" {
		t.Errorf("Simulation = %+v", cfg.Simulation)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
	// Unset keys keep their defaults.
	if cfg.Store.Path != "conflict_twin.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	xdg := isolate(t)
	writeConfig(t, xdg, `[oracle]
addr = "from-file:1"
`)
	t.Setenv("ORACLE_ADDR", "from-env:2")
	t.Setenv("CONFLICT_DB", "/tmp/env.db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("SIMULATION_SEED", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.Addr != "from-env:2" {
		t.Errorf("Oracle.Addr = %q, want env override", cfg.Oracle.Addr)
	}
	if cfg.Store.Path != "/tmp/env.db" {
		t.Errorf("Store.Path = %q", cfg.Store.Path)
	}
	if !cfg.Cache.Enabled || cfg.Cache.Addr != "redis:6379" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Simulation.Seed != 7 {
		t.Errorf("Simulation.Seed = %d", cfg.Simulation.Seed)
	}
}

func TestLoad_BadSeed(t *testing.T) {
	isolate(t)
	t.Setenv("SIMULATION_SEED", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad SIMULATION_SEED")
	}
}

func TestLoad_ExpandsHome(t *testing.T) {
	xdg := isolate(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeConfig(t, xdg, `[store]
path = "~/data/conflicts.db"
`)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := filepath.Join(home, "data", "conflicts.db")
	if cfg.Store.Path != want {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, want)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	xdg := isolate(t)
	writeConfig(t, xdg, `[oracle
addr = `)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	isolate(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	isolate(t)
	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("round trip mismatch: %+v", cfg)
	}
	again, err := WriteDefault()
	if err != nil || again != path {
		t.Errorf("expected existing path to be returned, got %q, %v", again, err)
	}
}
