// Package config provides unified configuration loading for gravsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/gravsim/internal/constants"
	"github.com/nvandessel/gravsim/internal/initcond"
	"github.com/nvandessel/gravsim/internal/physics"
	"gopkg.in/yaml.v3"
)

// GravsimConfig contains all gravsim configuration settings.
type GravsimConfig struct {
	// Simulation holds the physics constants and tick loop settings.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Init controls how the initial body set is produced.
	Init InitConfig `json:"init" yaml:"init"`

	// Logging contains settings for operational logging and tick tracing.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Stream  StreamConfig  `json:"stream" yaml:"stream"`
	Record  RecordConfig  `json:"record" yaml:"record"`
	Publish PublishConfig `json:"publish" yaml:"publish"`
}

// SimulationConfig configures the physics core and the fixed-rate loop.
type SimulationConfig struct {
	// G is the gravitational constant for the run.
	G float32 `json:"g" yaml:"g"`

	// DT is the fixed tick length in simulated seconds.
	DT float32 `json:"dt" yaml:"dt"`

	// Workers sets force accumulation parallelism. 0 or 1 is serial.
	Workers int `json:"workers" yaml:"workers"`

	// TickPeriod is the wall-clock interval between ticks in `run`.
	// Zero means dt seconds.
	TickPeriod time.Duration `json:"tick_period,omitempty" yaml:"tick_period,omitempty"`

	// MaxTicks stops `run` after this many ticks. Zero runs until interrupted.
	MaxTicks uint64 `json:"max_ticks,omitempty" yaml:"max_ticks,omitempty"`
}

// InitConfig configures initial conditions.
type InitConfig struct {
	Count  int    `json:"count" yaml:"count"`
	Seed   uint64 `json:"seed" yaml:"seed"`
	Layout string `json:"layout" yaml:"layout"`

	Radius      float32 `json:"radius" yaml:"radius"`
	MinMass     float32 `json:"min_mass" yaml:"min_mass"`
	MaxMass     float32 `json:"max_mass" yaml:"max_mass"`
	Speed       float32 `json:"speed" yaml:"speed"`
	CentralMass float32 `json:"central_mass" yaml:"central_mass"`

	// ScenarioFile, when set, replaces the generator with a YAML scenario.
	ScenarioFile string `json:"scenario_file,omitempty" yaml:"scenario_file,omitempty"`
}

// LoggingConfig configures gravsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the tick trace in TraceDir.
	// "trace" additionally logs every committed tick.
	Level string `json:"level" yaml:"level"`

	// Format is "text" (default) or "json".
	Format string `json:"format" yaml:"format"`

	// TraceDir is where ticks.jsonl is written. Defaults to ~/.gravsim.
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// StreamConfig configures the websocket position stream.
type StreamConfig struct {
	// Addr is the listen address. Empty disables the stream.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`

	// MaxFPS caps broadcasts per second.
	MaxFPS float64 `json:"max_fps" yaml:"max_fps"`
}

// RecordConfig configures the SQLite trajectory recorder.
type RecordConfig struct {
	// Path is the database file. Empty disables recording.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// Every records one frame per Every ticks.
	Every int `json:"every" yaml:"every"`
}

// PublishConfig configures the memcache latest-frame sink.
type PublishConfig struct {
	// MemcacheAddr is host:port. Empty disables publishing.
	MemcacheAddr string `json:"memcache_addr,omitempty" yaml:"memcache_addr,omitempty"`
	Key          string `json:"key" yaml:"key"`
	Every        int    `json:"every" yaml:"every"`
}

// Default returns a GravsimConfig with sensible defaults.
func Default() *GravsimConfig {
	return &GravsimConfig{
		Simulation: SimulationConfig{
			G:       constants.DefaultG,
			DT:      constants.DefaultDT,
			Workers: constants.DefaultWorkers,
		},
		Init: InitConfig{
			Count:       constants.DefaultBodyCount,
			Seed:        constants.DefaultSeed,
			Layout:      constants.DefaultLayout,
			Radius:      constants.DefaultRadius,
			MinMass:     constants.DefaultMinMass,
			MaxMass:     constants.DefaultMaxMass,
			Speed:       constants.DefaultSpeed,
			CentralMass: constants.DefaultCentralMass,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(constants.LogFormatText),
		},
		Stream: StreamConfig{
			MaxFPS: constants.DefaultMaxFPS,
		},
		Record: RecordConfig{
			Every: constants.DefaultRecordEvery,
		},
		Publish: PublishConfig{
			Key:   constants.DefaultPublishKey,
			Every: constants.DefaultPublishEvery,
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.gravsim/config.yaml -> environment variables
func Load() (*GravsimConfig, error) {
	config := Default()

	// Try to load from default config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, constants.DirName, constants.ConfigFileName)
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadPath loads configuration from path instead of the home file, then
// applies environment overrides. An empty path behaves like Load.
func LoadPath(path string) (*GravsimConfig, error) {
	if path == "" {
		return Load()
	}
	config, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(config)
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
// Fields absent from the file keep their defaults.
func LoadFromFile(path string) (*GravsimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Init.ScenarioFile = expandEnvVars(config.Init.ScenarioFile)
	config.Record.Path = expandEnvVars(config.Record.Path)
	config.Logging.TraceDir = expandEnvVars(config.Logging.TraceDir)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *GravsimConfig) Validate() error {
	if err := initcond.CheckParams(c.Params()); err != nil {
		return err
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Simulation.Workers)
	}
	if c.Simulation.TickPeriod < 0 {
		return fmt.Errorf("tick_period must be non-negative, got %v", c.Simulation.TickPeriod)
	}

	if c.Init.Count < 0 {
		return fmt.Errorf("count must be non-negative, got %d", c.Init.Count)
	}
	if !initcond.ValidLayouts[initcond.Layout(c.Init.Layout)] {
		return fmt.Errorf("invalid layout: %s (valid: cloud, disk, pair)", c.Init.Layout)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	if !constants.LogFormat(c.Logging.Format).Valid() {
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}

	if c.Stream.MaxFPS < 0 {
		return fmt.Errorf("max_fps must be non-negative, got %v", c.Stream.MaxFPS)
	}
	if c.Record.Every < 0 {
		return fmt.Errorf("record.every must be non-negative, got %d", c.Record.Every)
	}
	if c.Publish.Every < 0 {
		return fmt.Errorf("publish.every must be non-negative, got %d", c.Publish.Every)
	}

	return nil
}

// Params returns the physics constants for the run.
func (c *GravsimConfig) Params() physics.Params {
	return physics.Params{G: c.Simulation.G, DT: c.Simulation.DT}
}

// TickPeriod returns the wall-clock tick interval, defaulting to dt seconds.
func (c *GravsimConfig) TickPeriod() time.Duration {
	if c.Simulation.TickPeriod > 0 {
		return c.Simulation.TickPeriod
	}
	return time.Duration(math.Round(float64(c.Simulation.DT) * float64(time.Second)))
}

// GeneratorOptions converts the init section into generator options.
func (c *GravsimConfig) GeneratorOptions() initcond.Options {
	return initcond.Options{
		Count:         c.Init.Count,
		Seed:          c.Init.Seed,
		Layout:        initcond.Layout(c.Init.Layout),
		Radius:        c.Init.Radius,
		MinMass:       c.Init.MinMass,
		MaxMass:       c.Init.MaxMass,
		Speed:         c.Init.Speed,
		CentralMass:   c.Init.CentralMass,
		G:             c.Simulation.G,
		MinSeparation: constants.DefaultMinSeparation,
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *GravsimConfig) {
	if v := os.Getenv("GRAVSIM_G"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			config.Simulation.G = float32(f)
		}
	}
	if v := os.Getenv("GRAVSIM_DT"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			config.Simulation.DT = float32(f)
		}
	}
	if v := os.Getenv("GRAVSIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Workers = n
		}
	}
	if v := os.Getenv("GRAVSIM_TICK_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.Simulation.TickPeriod = d
		}
	}

	if v := os.Getenv("GRAVSIM_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Init.Count = n
		}
	}
	if v := os.Getenv("GRAVSIM_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Init.Seed = n
		}
	}
	if v := os.Getenv("GRAVSIM_LAYOUT"); v != "" {
		config.Init.Layout = v
	}
	if v := os.Getenv("GRAVSIM_SCENARIO_FILE"); v != "" {
		config.Init.ScenarioFile = v
	}

	if v := os.Getenv("GRAVSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("GRAVSIM_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}

	if v := os.Getenv("GRAVSIM_METRICS_ADDR"); v != "" {
		config.Metrics.Addr = v
	}
	if v := os.Getenv("GRAVSIM_STREAM_ADDR"); v != "" {
		config.Stream.Addr = v
	}
	if v := os.Getenv("GRAVSIM_RECORD_PATH"); v != "" {
		config.Record.Path = v
	}
	if v := os.Getenv("GRAVSIM_MEMCACHE_ADDR"); v != "" {
		config.Publish.MemcacheAddr = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
