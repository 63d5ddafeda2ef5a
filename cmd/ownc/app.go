package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"ownc/internal/config"
)

// appState is filled by setupApp before any command runs.
type appState struct {
	cfg     config.Config
	logger  *log.Logger
	color   bool
	cleanup []func()
}

var app = &appState{logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "ownc"})}

func (a *appState) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}

func setupApp(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()

	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	if verbose {
		app.logger.SetLevel(log.DebugLevel)
	}

	colorFlag, err := flags.GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	if app.color, err = autoMode(colorFlag, os.Stdout); err != nil {
		return fmt.Errorf("--color: %w", err)
	}

	if cmd == versionCmd {
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	app.cfg = cfg

	stopProf, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	app.cleanup = append(app.cleanup, stopProf)

	stopTrace, err := setupTracing(cmd, cfg.Trace)
	if err != nil {
		return err
	}
	app.cleanup = append(app.cleanup, stopTrace)
	return nil
}

// loadConfig reads --config or the discovered ownc.toml and applies the
// persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}

	var cfg config.Config
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Discover(".")
	}
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Path != "" {
		app.logger.Debug("config loaded", "path", cfg.Path)
	} else {
		app.logger.Debug("no ownc.toml found, using defaults")
	}

	if flags.Changed("max-diagnostics") {
		if cfg.Diagnostics.Max, err = flags.GetInt("max-diagnostics"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("trace") {
		if cfg.Trace.Output, err = flags.GetString("trace"); err != nil {
			return config.Config{}, err
		}
		if cfg.Trace.Level == "off" && !flags.Changed("trace-level") {
			// файл трассы без уровня: фазы по умолчанию
			cfg.Trace.Level = "phase"
		}
	}
	if flags.Changed("trace-level") {
		if cfg.Trace.Level, err = flags.GetString("trace-level"); err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
