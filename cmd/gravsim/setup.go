package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gravsim/internal/config"
	"github.com/nvandessel/gravsim/internal/constants"
	"github.com/nvandessel/gravsim/internal/initcond"
	"github.com/nvandessel/gravsim/internal/logging"
	"github.com/nvandessel/gravsim/internal/physics"
	"github.com/nvandessel/gravsim/internal/sanitize"
	"github.com/nvandessel/gravsim/internal/store"
)

// loadConfig loads and validates configuration, honouring --config and
// --log-level.
func loadConfig(cmd *cobra.Command) (*config.GravsimConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the stderr logger for cfg.
func newLogger(cfg *config.GravsimConfig) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, constants.LogFormat(cfg.Logging.Format), os.Stderr)
}

// newTracer opens the tick trace if the log level asks for one.
func newTracer(cfg *config.GravsimConfig) *logging.TickTracer {
	dir := cfg.Logging.TraceDir
	if dir == "" {
		global, err := store.GlobalPath()
		if err != nil {
			return nil
		}
		dir = global
	}
	return logging.NewTickTracer(dir, cfg.Logging.Level)
}

// initialState is everything needed to start a run.
type initialState struct {
	Name   string
	Params physics.Params
	Specs  []physics.Spec
	Seed   uint64
	Layout string
}

// loadInitialState builds the initial bodies from the scenario file if one
// is configured, otherwise from the generator. A scenario's own g and dt
// take precedence over the config.
func loadInitialState(cfg *config.GravsimConfig) (*initialState, error) {
	params := cfg.Params()

	if cfg.Init.ScenarioFile != "" {
		sc, err := initcond.LoadScenario(cfg.Init.ScenarioFile, params.G)
		if err != nil {
			return nil, err
		}
		params.G = sc.G
		if sc.DT > 0 {
			params.DT = sc.DT
		}
		name := sanitize.RunName(sc.Name)
		if name == "" {
			base := filepath.Base(cfg.Init.ScenarioFile)
			name = sanitize.RunName(strings.TrimSuffix(base, filepath.Ext(base)))
		}
		return &initialState{Name: name, Params: params, Specs: sc.Bodies}, nil
	}

	specs, err := initcond.Generate(cfg.GeneratorOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to generate initial conditions: %w", err)
	}
	return &initialState{
		Name:   fmt.Sprintf("%s-%d-seed%d", cfg.Init.Layout, cfg.Init.Count, cfg.Init.Seed),
		Params: params,
		Specs:  specs,
		Seed:   cfg.Init.Seed,
		Layout: cfg.Init.Layout,
	}, nil
}

// applyInitFlags lets commands override the init section from flags.
func applyInitFlags(cmd *cobra.Command, cfg *config.GravsimConfig) {
	flags := cmd.Flags()
	if flags.Changed("count") {
		cfg.Init.Count, _ = flags.GetInt("count")
	}
	if flags.Changed("seed") {
		cfg.Init.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("layout") {
		cfg.Init.Layout, _ = flags.GetString("layout")
	}
	if flags.Changed("scenario") {
		cfg.Init.ScenarioFile, _ = flags.GetString("scenario")
	}
	if flags.Changed("workers") {
		cfg.Simulation.Workers, _ = flags.GetInt("workers")
	}
}

// addInitFlags registers the flags read by applyInitFlags.
func addInitFlags(cmd *cobra.Command) {
	cmd.Flags().Int("count", constants.DefaultBodyCount, "Number of generated bodies")
	cmd.Flags().Uint64("seed", constants.DefaultSeed, "Generator seed")
	cmd.Flags().String("layout", constants.DefaultLayout, "Generator layout: cloud, disk, pair")
	cmd.Flags().String("scenario", "", "YAML scenario file (replaces the generator)")
	cmd.Flags().Int("workers", constants.DefaultWorkers, "Force accumulation workers")
}

// resolveDBPath returns the record database path, defaulting to ~/.gravsim/runs.db.
func resolveDBPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return store.DefaultDBPath()
}
