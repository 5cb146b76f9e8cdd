package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Validate checks the configuration after defaults were applied.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateBuild(); err != nil {
		return err
	}
	if err := c.validatePlugins(); err != nil {
		return err
	}
	if err := c.validateDurations(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	content, err := filepath.Abs(c.ContentDir)
	if err != nil {
		return fmt.Errorf("content_dir: %w", err)
	}
	output, err := filepath.Abs(c.OutputDir)
	if err != nil {
		return fmt.Errorf("output_dir: %w", err)
	}
	if content == output {
		return errors.New("output_dir must differ from content_dir")
	}
	if rel, err := filepath.Rel(output, content); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("content_dir %s must not be inside output_dir %s", c.ContentDir, c.OutputDir)
	}
	for _, pattern := range c.Ignore {
		if pattern == "" {
			return errors.New("ignore patterns must not be empty")
		}
	}
	return nil
}

func (c *Config) validateBuild() error {
	if c.Build.ChunkSize > 4096 {
		return fmt.Errorf("build.chunk_size %d too large (max 4096)", c.Build.ChunkSize)
	}
	if c.Recovery.MaxRetries > 5 {
		return fmt.Errorf("recovery.max_retries %d too large (max 5)", c.Recovery.MaxRetries)
	}
	return nil
}

func (c *Config) validatePlugins() error {
	groups := map[string][]PluginSpec{
		"transformers": c.Plugins.Transformers,
		"filters":      c.Plugins.Filters,
		"emitters":     c.Plugins.Emitters,
	}
	for kind, specs := range groups {
		seen := make(map[string]bool, len(specs))
		for i, s := range specs {
			if s.Name == "" {
				return fmt.Errorf("plugins.%s[%d]: name cannot be empty", kind, i)
			}
			if seen[s.Name] {
				return fmt.Errorf("plugins.%s: duplicate plugin name %q", kind, s.Name)
			}
			seen[s.Name] = true
		}
	}
	return nil
}

func (c *Config) validateDurations() error {
	durations := []struct {
		field string
		value string
	}{
		{"recovery.initial_delay", c.Recovery.InitialDelay},
		{"recovery.max_delay", c.Recovery.MaxDelay},
		{"watch.debounce", c.Watch.Debounce},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.field, d.value, err)
		}
		if v < 0 {
			return fmt.Errorf("%s must not be negative", d.field)
		}
	}
	if c.Recovery.MaxDelayDuration() < c.Recovery.InitialDelayDuration() {
		return errors.New("recovery.max_delay must be >= recovery.initial_delay")
	}
	return nil
}
