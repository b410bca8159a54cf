package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/reduce"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trspo.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
domain_size: 1000
workers: 8
mode: materialized
schedule: static
workload: pi
seed: 42
log:
  level: debug
bench:
  workers: [1, 16]
  repeat: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.DomainSize != 1000 || cfg.Workers != 8 || cfg.Workload != "pi" || cfg.Seed != 42 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ChunkSize != Default().ChunkSize {
		t.Errorf("ChunkSize = %d, want default %d", cfg.ChunkSize, Default().ChunkSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if !reflect.DeepEqual(cfg.Bench.Workers, []int{1, 16}) || cfg.Bench.Repeat != 5 {
		t.Errorf("Bench = %+v", cfg.Bench)
	}
	if !reflect.DeepEqual(cfg.Bench.Modes, Default().Bench.Modes) {
		t.Errorf("Bench.Modes = %v, want defaults", cfg.Bench.Modes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	opts, err := cfg.Options(nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Mode != trspo.Materialized || opts.Schedule != reduce.Static || opts.Workers != 8 {
		t.Errorf("Options() = %+v", opts)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TRSPO_TEST_WORKERS", "3")
	path := writeConfig(t, `
workers: ${TRSPO_TEST_WORKERS}
chunk_size: ${TRSPO_TEST_UNSET_CHUNK:-250}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Workers != 3 || cfg.ChunkSize != 250 {
		t.Errorf("Workers = %d, ChunkSize = %d, want 3, 250", cfg.Workers, cfg.ChunkSize)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"unknown key", "threads: 4\n", "invalid YAML"},
		{"wrong type", "workers: many\n", "invalid YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("Load() error = %v, want %q", err, tt.wantMsg)
			}
			if !errors.Is(err, trspo.ErrInvalidInput) {
				t.Errorf("error %v does not wrap ErrInvalidInput", err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(*cfg, Default()) {
		t.Errorf("empty file should yield defaults, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero domain", func(c *Config) { c.DomainSize = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative chunk", func(c *Config) { c.ChunkSize = -1 }},
		{"mode", func(c *Config) { c.Mode = "buffered" }},
		{"strategy", func(c *Config) { c.Strategy = "fiber" }},
		{"schedule", func(c *Config) { c.Schedule = "guided" }},
		{"workload", func(c *Config) { c.Workload = "fibonacci" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bench workers", func(c *Config) { c.Bench.Workers = []int{1, 0} }},
		{"bench empty", func(c *Config) { c.Bench.Strategies = nil }},
		{"bench strategy", func(c *Config) { c.Bench.Strategies = []string{"fiber"} }},
		{"bench mode", func(c *Config) { c.Bench.Modes = []string{"lazy"} }},
		{"bench repeat", func(c *Config) { c.Bench.Repeat = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, trspo.ErrInvalidInput) {
				t.Errorf("Validate() = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TRSPO_SET", "value")
	t.Setenv("TRSPO_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"${TRSPO_SET}", "value"},
		{"${TRSPO_EMPTY:-fallback}", "fallback"},
		{"${TRSPO_UNSET_VAR}", ""},
		{"${TRSPO_UNSET_VAR:-a b}", "a b"},
		{"x-${TRSPO_SET}-y", "x-value-y"},
		{"$TRSPO_SET", "$TRSPO_SET"},
	}
	for _, tt := range tests {
		if got := ExpandEnv(tt.in); got != tt.want {
			t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
