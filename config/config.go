package config

import (
	"fmt"

	"github.com/zavalska7893/trspo"
	"github.com/zavalska7893/trspo/executor"
	"github.com/zavalska7893/trspo/log"
	"github.com/zavalska7893/trspo/reduce"
	"github.com/zavalska7893/trspo/workload"
)

// Config represents a trspo.yaml configuration file.
// Values missing from the file keep their defaults, and CLI flags
// override both.
type Config struct {
	DomainSize int         `yaml:"domain_size"`
	Workers    int         `yaml:"workers"`
	ChunkSize  int         `yaml:"chunk_size"`
	Mode       string      `yaml:"mode"`
	Strategy   string      `yaml:"strategy"`
	Schedule   string      `yaml:"schedule"`
	Workload   string      `yaml:"workload"`
	Seed       uint64      `yaml:"seed"`
	Log        LogConfig   `yaml:"log"`
	Bench      BenchConfig `yaml:"bench"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// BenchConfig describes a benchmark sweep. Every combination of worker
// count, strategy, and mode is run Repeat times.
type BenchConfig struct {
	Workers    []int    `yaml:"workers"`
	Strategies []string `yaml:"strategies"`
	Modes      []string `yaml:"modes"`
	Repeat     int      `yaml:"repeat"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DomainSize: 100000,
		Workers:    4,
		ChunkSize:  5000,
		Mode:       trspo.Streaming.String(),
		Strategy:   executor.Goroutine.String(),
		Schedule:   reduce.Dynamic.String(),
		Workload:   "collatz",
		Seed:       1,
		Log:        LogConfig{Level: "info"},
		Bench: BenchConfig{
			Workers:    []int{1, 2, 4, 8},
			Strategies: []string{executor.Goroutine.String(), executor.Process.String()},
			Modes:      []string{trspo.Materialized.String(), trspo.Streaming.String()},
			Repeat:     3,
		},
	}
}

// Validate checks all settings. Every error it returns wraps
// trspo.ErrInvalidInput.
func (c *Config) Validate() error {
	if err := trspo.Validate(c.DomainSize, c.Workers, c.ChunkSize); err != nil {
		return err
	}
	if _, err := trspo.ParseMode(c.Mode); err != nil {
		return err
	}
	if _, err := executor.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if _, err := reduce.ParseSchedule(c.Schedule); err != nil {
		return err
	}
	if _, err := workload.Lookup(c.Workload, c.Seed); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", trspo.ErrInvalidInput, err)
	}
	return c.Bench.validate()
}

func (b *BenchConfig) validate() error {
	if len(b.Workers) == 0 || len(b.Strategies) == 0 || len(b.Modes) == 0 {
		return fmt.Errorf("%w: bench needs at least one worker count, strategy, and mode", trspo.ErrInvalidInput)
	}
	for _, w := range b.Workers {
		if w <= 0 {
			return fmt.Errorf("%w: bench worker count %d must be positive", trspo.ErrInvalidInput, w)
		}
	}
	for _, s := range b.Strategies {
		if _, err := executor.ParseStrategy(s); err != nil {
			return err
		}
	}
	for _, m := range b.Modes {
		if _, err := trspo.ParseMode(m); err != nil {
			return err
		}
	}
	if b.Repeat <= 0 {
		return fmt.Errorf("%w: bench repeat %d must be positive", trspo.ErrInvalidInput, b.Repeat)
	}
	return nil
}

// Options converts the configuration into reducer options.
func (c *Config) Options(logger *log.Logger) (reduce.Options, error) {
	mode, err := trspo.ParseMode(c.Mode)
	if err != nil {
		return reduce.Options{}, err
	}
	schedule, err := reduce.ParseSchedule(c.Schedule)
	if err != nil {
		return reduce.Options{}, err
	}
	return reduce.Options{
		DomainSize: c.DomainSize,
		Workers:    c.Workers,
		ChunkSize:  c.ChunkSize,
		Mode:       mode,
		Schedule:   schedule,
		Logger:     logger,
	}, nil
}
