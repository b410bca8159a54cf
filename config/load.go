package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zavalska7893/trspo"
)

// Load reads a YAML config file, expands environment variables, and
// unmarshals it over Default(). Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config file not found: %s", trspo.ErrInvalidInput, path)
		}
		return nil, fmt.Errorf("cannot read config file %q: %w", path, err)
	}
	return Parse([]byte(ExpandEnv(string(data))), path)
}

// Parse unmarshals YAML data over Default(). The name is only used in
// error messages.
func Parse(data []byte, name string) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: invalid YAML in %s: %v", trspo.ErrInvalidInput, name, err)
	}
	return &cfg, nil
}
