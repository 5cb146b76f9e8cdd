package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigExists is returned by Init when the target exists and force is not set.
var ErrConfigExists = errors.New("configuration file already exists")

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	// Defaults on an empty config never fail: every enum parses from "".
	_ = ApplyDefaults(cfg)
	return cfg
}

// Init writes a default configuration file to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}

	cfg := Default()
	// Workers resolve to GOMAXPROCS at load time; leave them unset in the file.
	cfg.Build.Workers = 0

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
