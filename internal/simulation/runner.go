package simulation

import (
	"context"
	"fmt"

	"github.com/nvandessel/gravsim/internal/diagnostics"
	"github.com/nvandessel/gravsim/internal/physics"
)

// Run executes the scenario and returns the collected samples.
// Cancelling ctx stops the run between ticks.
func Run(ctx context.Context, s Scenario) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}

	bodies := physics.NewBodies(s.Bodies, s.Params.DT)
	pipeline := physics.NewPipeline(s.Params, s.Workers)

	every := s.Every
	if every == 0 {
		every = 1
	}

	result := Result{
		Name:    s.Name,
		Params:  s.Params,
		Samples: make([]Sample, 0, s.Ticks/every+2),
	}
	result.Samples = append(result.Samples, sample(0, bodies, s.Params))

	for tick := 1; tick <= s.Ticks; tick++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("scenario %q stopped at tick %d: %w", s.Name, tick-1, err)
		}
		pipeline.Step(bodies)
		if tick%every == 0 || tick == s.Ticks {
			result.Samples = append(result.Samples, sample(uint64(tick), bodies, s.Params))
		}
	}

	result.Final = bodies
	return result, nil
}

func sample(tick uint64, bodies []physics.Body, p physics.Params) Sample {
	return Sample{
		Tick:      tick,
		Positions: physics.Positions(bodies),
		Report:    diagnostics.Compute(tick, bodies, p),
	}
}
