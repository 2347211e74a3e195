// Package engine drives the physics pipeline at a fixed rate and publishes
// whole-tick frames to readers and observers.
//
// The engine is the single owner of the body slice. Everything else sees
// only committed Frames: immutable copies of positions taken after the
// integrator has finished. A reader calling Latest concurrently with Tick
// gets either the previous frame or the new one, never a mix.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/nvandessel/gravsim/internal/diagnostics"
	"github.com/nvandessel/gravsim/internal/logging"
	"github.com/nvandessel/gravsim/internal/physics"
)

// Frame is one committed tick. Frames are shared between observers and
// must be treated as read-only.
type Frame struct {
	Tick      uint64       `json:"tick"`
	Time      float64      `json:"time"`
	Positions []mgl32.Vec3 `json:"positions"`

	// Elapsed is the wall time the tick took to compute.
	Elapsed time.Duration `json:"-"`
}

// Observer receives every committed frame, in tick order, on the ticking
// goroutine. Implementations must return quickly.
type Observer interface {
	ObserveFrame(f *Frame)
}

// ReportObserver is implemented by observers that also want periodic
// diagnostics reports.
type ReportObserver interface {
	ObserveReport(r diagnostics.Report)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f *Frame)

// ObserveFrame calls fn(f).
func (fn ObserverFunc) ObserveFrame(f *Frame) { fn(f) }

// Options configures an Engine.
type Options struct {
	Params  physics.Params
	Workers int

	// TickPeriod is the wall-clock interval used by Run. Zero means dt seconds.
	TickPeriod time.Duration

	// MaxTicks stops Run once the tick counter reaches it. Zero is unbounded.
	MaxTicks uint64

	// DiagnosticsEvery computes a diagnostics report every N ticks and hands
	// it to report observers, the logger and the tracer. Zero disables it.
	DiagnosticsEvery uint64

	Logger *slog.Logger
	Tracer *logging.TickTracer
}

// Engine owns a body set and advances it one tick at a time.
type Engine struct {
	mu        sync.Mutex
	bodies    []physics.Body
	pipeline  *physics.Pipeline
	tick      uint64
	observers []Observer

	latest atomic.Pointer[Frame]

	opts   Options
	logger *slog.Logger
}

// New creates an engine from initial specs and commits frame 0.
func New(specs []physics.Spec, opts Options, observers ...Observer) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	e := &Engine{
		bodies:    physics.NewBodies(specs, opts.Params.DT),
		pipeline:  physics.NewPipeline(opts.Params, opts.Workers),
		observers: observers,
		opts:      opts,
		logger:    logger,
	}
	e.latest.Store(&Frame{Positions: physics.Positions(e.bodies)})
	return e
}

// AddObserver registers o for subsequent ticks.
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Params returns the run constants.
func (e *Engine) Params() physics.Params {
	return e.opts.Params
}

// BodyCount returns the fixed number of bodies.
func (e *Engine) BodyCount() int {
	return len(e.bodies)
}

// Masses returns a copy of the body masses.
func (e *Engine) Masses() []float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return physics.Masses(e.bodies)
}

// Latest returns the last committed frame. It never blocks on a running tick.
func (e *Engine) Latest() *Frame {
	return e.latest.Load()
}

// Tick runs one accumulate-integrate step, commits the resulting frame
// and notifies observers. Concurrent calls are serialised.
func (e *Engine) Tick() *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stepLocked()
}

// Advance runs n ticks and returns the last committed frame.
func (e *Engine) Advance(n int) *Frame {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.latest.Load()
	for i := 0; i < n; i++ {
		f = e.stepLocked()
	}
	return f
}

func (e *Engine) stepLocked() *Frame {
	start := time.Now()
	e.pipeline.Step(e.bodies)
	e.tick++

	f := &Frame{
		Tick:      e.tick,
		Time:      float64(e.tick) * float64(e.opts.Params.DT),
		Positions: physics.Positions(e.bodies),
		Elapsed:   time.Since(start),
	}
	e.latest.Store(f)

	e.logger.Log(context.Background(), logging.LevelTrace, "tick committed",
		"tick", f.Tick, "elapsed", f.Elapsed)

	for _, o := range e.observers {
		o.ObserveFrame(f)
	}

	if every := e.opts.DiagnosticsEvery; every > 0 && e.tick%every == 0 {
		e.report(diagnostics.Compute(e.tick, e.bodies, e.opts.Params))
	}
	return f
}

func (e *Engine) report(r diagnostics.Report) {
	e.logger.Debug("diagnostics",
		"tick", r.Tick,
		"momentum", r.Momentum.Len(),
		"energy", r.TotalEnergy(),
		"non_finite", r.NonFinite)

	e.opts.Tracer.Log(map[string]any{
		"tick":             r.Tick,
		"momentum":         []float64{r.Momentum[0], r.Momentum[1], r.Momentum[2]},
		"center_of_mass":   []float64{r.CenterOfMass[0], r.CenterOfMass[1], r.CenterOfMass[2]},
		"kinetic_energy":   r.KineticEnergy,
		"potential_energy": r.PotentialEnergy,
		"non_finite":       r.NonFinite,
	})

	for _, o := range e.observers {
		if ro, ok := o.(ReportObserver); ok {
			ro.ObserveReport(r)
		}
	}
}

// Diagnose computes a diagnostics report for the current committed state.
func (e *Engine) Diagnose() diagnostics.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return diagnostics.Compute(e.tick, e.bodies, e.opts.Params)
}

// Period returns the wall-clock tick interval Run uses.
func (e *Engine) Period() time.Duration {
	if e.opts.TickPeriod > 0 {
		return e.opts.TickPeriod
	}
	return time.Duration(float64(e.opts.Params.DT) * float64(time.Second))
}

// Run ticks on a fixed wall-clock period until ctx is cancelled or
// MaxTicks is reached. Cancellation is a clean stop and returns nil.
// Ticks that fall behind are dropped by the ticker rather than queued,
// so simulated time never runs faster than the configured period.
func (e *Engine) Run(ctx context.Context) error {
	period := e.Period()
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	e.logger.Info("engine started",
		"bodies", len(e.bodies),
		"workers", e.pipeline.Workers(),
		"period", period,
		"max_ticks", e.opts.MaxTicks)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopped", "tick", e.Latest().Tick, "reason", ctx.Err())
			return nil
		case <-ticker.C:
			f := e.Tick()
			if e.opts.MaxTicks > 0 && f.Tick >= e.opts.MaxTicks {
				e.logger.Info("engine reached max ticks", "tick", f.Tick)
				return nil
			}
		}
	}
}
