package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// Pipeline runs ticks for a fixed parameter set, optionally spreading the
// force accumulation over several goroutines.
//
// With one worker (or fewer than two bodies per worker) Step is exactly
// the serial Step. With more, rows of the pair triangle are dealt out
// round-robin; every worker sums into its own buffer, and after all
// workers finish the buffers are added to the bodies in worker order.
// The result is deterministic for a given worker count but may differ
// from the serial result in the last bits.
//
// A Pipeline reuses its buffers between ticks and is not safe for
// concurrent use.
type Pipeline struct {
	params  Params
	workers int
	scratch [][]mgl32.Vec3
}

// NewPipeline creates a pipeline. workers <= 1 selects the serial path.
func NewPipeline(p Params, workers int) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	return &Pipeline{params: p, workers: workers}
}

// Params returns the constants the pipeline was built with.
func (p *Pipeline) Params() Params {
	return p.params
}

// Workers returns the configured accumulation parallelism.
func (p *Pipeline) Workers() int {
	return p.workers
}

// Step runs one tick over bodies.
func (p *Pipeline) Step(bodies []Body) {
	if p.workers == 1 || len(bodies) < 2*p.workers {
		Accumulate(bodies, p.params.G)
	} else {
		p.accumulateParallel(bodies)
	}
	Integrate(bodies, p.params.DT)
}

func (p *Pipeline) accumulateParallel(bodies []Body) {
	n := len(bodies)
	p.ensureScratch(n)

	var g errgroup.Group
	for w := 0; w < p.workers; w++ {
		buf := p.scratch[w]
		for i := range buf {
			buf[i] = mgl32.Vec3{}
		}
		g.Go(func() error {
			for i := w; i < n; i += p.workers {
				pi := bodies[i].Position
				mi := bodies[i].Mass
				for j := i + 1; j < n; j++ {
					fum := forcePerUnitMass(pi, bodies[j].Position, p.params.G)
					buf[i] = buf[i].Add(fum.Mul(bodies[j].Mass))
					buf[j] = buf[j].Sub(fum.Mul(mi))
				}
			}
			return nil
		})
	}
	// Barrier: no body is integrated until every pair has been summed.
	_ = g.Wait()

	for w := 0; w < p.workers; w++ {
		buf := p.scratch[w]
		for i := range bodies {
			bodies[i].Acceleration = bodies[i].Acceleration.Add(buf[i])
		}
	}
}

func (p *Pipeline) ensureScratch(n int) {
	if len(p.scratch) == p.workers && len(p.scratch[0]) == n {
		return
	}
	p.scratch = make([][]mgl32.Vec3, p.workers)
	for w := range p.scratch {
		p.scratch[w] = make([]mgl32.Vec3, n)
	}
}
