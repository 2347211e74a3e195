// Package constants provides named constants used throughout the gravsim codebase.
// This centralizes default values so config, generators and commands agree.
package constants

import "time"

// Physics defaults
const (
	// DefaultG is the gravitational constant used when none is configured.
	// The simulation runs in arbitrary units, so 1 keeps the numbers readable.
	DefaultG = 1.0

	// DefaultDT is the default tick length in simulated seconds.
	DefaultDT = 0.01

	// DefaultWorkers is the default force accumulation parallelism.
	// One worker selects the serial accumulator.
	DefaultWorkers = 1
)

// Initial condition defaults
const (
	// DefaultBodyCount is the number of generated bodies when no scenario
	// file is given.
	DefaultBodyCount = 64

	// DefaultSeed seeds the initial condition generator.
	DefaultSeed = 1

	// DefaultLayout is the generator layout name.
	DefaultLayout = "cloud"

	// DefaultRadius bounds generated positions.
	DefaultRadius = 10.0

	// DefaultMinMass and DefaultMaxMass bound generated masses.
	DefaultMinMass = 0.5
	DefaultMaxMass = 2.0

	// DefaultSpeed is the maximum random initial speed.
	DefaultSpeed = 0.1

	// DefaultCentralMass is the disk layout's central mass.
	DefaultCentralMass = 100.0

	// DefaultMinSeparation keeps generated bodies apart so the first ticks
	// are not dominated by near-singular pairs.
	DefaultMinSeparation = 0.05
)

// Loop and output defaults
const (
	// DefaultMaxFPS caps websocket frame broadcasts per second.
	DefaultMaxFPS = 30.0

	// DefaultRecordEvery records every Nth tick.
	DefaultRecordEvery = 10

	// DefaultPublishEvery publishes every Nth tick to memcache.
	DefaultPublishEvery = 5

	// DefaultPublishKey is the memcache key holding the latest frame.
	DefaultPublishKey = "gravsim:frame"

	// DefaultDiagnosticsEvery is how often (in ticks) the run loop logs and
	// traces a diagnostics report.
	DefaultDiagnosticsEvery = 100

	// DefaultShutdownTimeout bounds graceful HTTP server shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// Directory and file names
const (
	// DirName is the per-user directory holding config and traces.
	DirName = ".gravsim"

	// ConfigFileName is the config file inside DirName.
	ConfigFileName = "config.yaml"

	// TraceFileName is the tick trace written at debug level.
	TraceFileName = "ticks.jsonl"
)
