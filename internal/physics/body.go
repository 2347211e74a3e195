package physics

import "github.com/go-gl/mathgl/mgl32"

// Body is a point mass participating in the simulation.
//
// Position is the only field meant for readers outside the tick loop.
// LastPosition stands in for velocity under Verlet integration, and
// Acceleration is scratch space that is zero between ticks.
type Body struct {
	Mass         float32    `json:"mass"`
	Position     mgl32.Vec3 `json:"position"`
	LastPosition mgl32.Vec3 `json:"last_position"`
	Acceleration mgl32.Vec3 `json:"acceleration"`
}

// Spec is the initial state of a body as supplied by whoever builds the
// population: a mass, a starting position and a starting velocity.
type Spec struct {
	Mass     float32    `json:"mass" yaml:"mass"`
	Position mgl32.Vec3 `json:"position" yaml:"position"`
	Velocity mgl32.Vec3 `json:"velocity" yaml:"velocity"`
}

// Params are the per-run constants of the simulation.
type Params struct {
	// G is the gravitational constant.
	G float32 `json:"g" yaml:"g"`

	// DT is the fixed tick length in simulated seconds.
	DT float32 `json:"dt" yaml:"dt"`
}

// NewBody derives a body from its initial state. The velocity is folded
// into LastPosition as position - velocity*dt.
func NewBody(s Spec, dt float32) Body {
	return Body{
		Mass:         s.Mass,
		Position:     s.Position,
		LastPosition: s.Position.Sub(s.Velocity.Mul(dt)),
	}
}

// NewBodies derives the full body set from specs, preserving order.
func NewBodies(specs []Spec, dt float32) []Body {
	bodies := make([]Body, len(specs))
	for i, s := range specs {
		bodies[i] = NewBody(s, dt)
	}
	return bodies
}

// Positions copies the current position of every body into a new slice.
// This is the only view of the bodies handed to presentation code.
func Positions(bodies []Body) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(bodies))
	for i := range bodies {
		out[i] = bodies[i].Position
	}
	return out
}

// Masses copies the mass of every body into a new slice.
func Masses(bodies []Body) []float32 {
	out := make([]float32, len(bodies))
	for i := range bodies {
		out[i] = bodies[i].Mass
	}
	return out
}
