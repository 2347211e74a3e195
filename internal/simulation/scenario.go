package simulation

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/nvandessel/gravsim/internal/diagnostics"
	"github.com/nvandessel/gravsim/internal/physics"
)

// Scenario defines a complete headless run.
type Scenario struct {
	Name   string
	Params physics.Params
	Bodies []physics.Spec

	// Ticks is the number of ticks to run.
	Ticks int

	// Workers is the accumulation parallelism. 0 or 1 is serial.
	Workers int

	// Every samples one frame per Every ticks. 0 samples every tick.
	// The initial state and the final tick are always sampled.
	Every int
}

// Validate checks the scenario shape. Physical preconditions (positive
// masses, distinct positions) are the caller's concern.
func (s Scenario) Validate() error {
	if s.Ticks < 0 {
		return fmt.Errorf("scenario %q: ticks must be non-negative, got %d", s.Name, s.Ticks)
	}
	if s.Params.DT <= 0 {
		return fmt.Errorf("scenario %q: dt must be positive, got %v", s.Name, s.Params.DT)
	}
	if s.Every < 0 {
		return fmt.Errorf("scenario %q: every must be non-negative, got %d", s.Name, s.Every)
	}
	return nil
}

// Sample is one captured frame of a run.
type Sample struct {
	Tick      uint64
	Positions []mgl32.Vec3
	Report    diagnostics.Report
}

// Result holds everything a run produced.
type Result struct {
	Name    string
	Params  physics.Params
	Samples []Sample

	// Final is the body state after the last tick.
	Final []physics.Body
}

// Trajectory returns the sampled positions, one slice per sample.
func (r Result) Trajectory() [][]mgl32.Vec3 {
	out := make([][]mgl32.Vec3, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Positions
	}
	return out
}

// Reports returns the sampled diagnostics in tick order.
func (r Result) Reports() []diagnostics.Report {
	out := make([]diagnostics.Report, len(r.Samples))
	for i, s := range r.Samples {
		out[i] = s.Report
	}
	return out
}

// Last returns the final sample. Results always hold at least the initial one.
func (r Result) Last() Sample {
	return r.Samples[len(r.Samples)-1]
}
