// Package config loads ownc.toml. The file is optional: without it every
// setting keeps its default, and command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"ownc/internal/registry"
	"ownc/internal/usage"
)

const FileName = "ownc.toml"

const (
	DefaultMaxRounds      = 16
	DefaultMaxDiagnostics = 200
)

type Config struct {
	Engine      Engine      `toml:"engine"`
	Diagnostics Diagnostics `toml:"diagnostics"`
	Calls       Calls       `toml:"calls"`
	Methods     Methods     `toml:"methods"`
	Trace       Trace       `toml:"trace"`

	// Path is the file the config came from; empty for defaults.
	Path string `toml:"-"`
}

type Engine struct {
	Strict    bool `toml:"strict"`
	MaxRounds int  `toml:"max_rounds"`
	// Jobs is the resolution worker count, 0 means GOMAXPROCS.
	Jobs int `toml:"jobs"`
}

type Diagnostics struct {
	Max    int    `toml:"max"`
	Format string `toml:"format"`
}

type Calls struct {
	Void      []string `toml:"void"`
	Consuming []string `toml:"consuming"`
}

type Methods struct {
	Mutating  []string `toml:"mutating"`
	Consuming []string `toml:"consuming"`
	Reading   []string `toml:"reading"`
}

type Trace struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

func Default() Config {
	return Config{
		Engine:      Engine{MaxRounds: DefaultMaxRounds},
		Diagnostics: Diagnostics{Max: DefaultMaxDiagnostics, Format: "pretty"},
		Trace:       Trace{Level: "off"},
	}
}

// Find walks up from startDir looking for ownc.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest ownc.toml above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return Config{}, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load decodes one file on top of the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(names, ", "))
	}
	if meta.IsDefined("engine", "max_rounds") && cfg.Engine.MaxRounds < 1 {
		return Config{}, fmt.Errorf("%s: [engine].max_rounds must be at least 1", path)
	}
	if meta.IsDefined("diagnostics", "max") && cfg.Diagnostics.Max < 1 {
		return Config{}, fmt.Errorf("%s: [diagnostics].max must be at least 1", path)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that flags can also set.
func (c *Config) Validate() error {
	switch c.Diagnostics.Format {
	case "pretty", "json", "short":
	default:
		return fmt.Errorf("unknown diagnostics format %q (want pretty, json or short)", c.Diagnostics.Format)
	}
	if c.Engine.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative")
	}
	if c.Engine.MaxRounds < 1 {
		c.Engine.MaxRounds = DefaultMaxRounds
	}
	if c.Diagnostics.Max < 1 {
		c.Diagnostics.Max = DefaultMaxDiagnostics
	}
	return nil
}

// Usage returns the analyzer tables configured by [calls] and [methods].
func (c *Config) Usage() usage.Options {
	return usage.Options{
		Void:             c.Calls.Void,
		Consuming:        c.Calls.Consuming,
		MutatingMethods:  c.Methods.Mutating,
		ConsumingMethods: c.Methods.Consuming,
		ReadingMethods:   c.Methods.Reading,
	}
}

func (c *Config) Registry() registry.Options {
	opts := registry.Options{}
	if len(c.Calls.Consuming) > 0 {
		opts.Consuming = make(map[string]bool, len(c.Calls.Consuming))
		for _, name := range c.Calls.Consuming {
			opts.Consuming[name] = true
		}
	}
	return opts
}
