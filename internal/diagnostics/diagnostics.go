// Package diagnostics computes conserved-quantity estimates over a body set.
//
// Verlet integration carries no velocity, so velocities here are backward
// differences (Position - LastPosition) / dt. All sums are done in float64.
package diagnostics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/nvandessel/gravsim/internal/physics"
	"github.com/nvandessel/gravsim/internal/vecmath"
)

// Report is a snapshot of system-wide quantities at one tick.
type Report struct {
	Tick            uint64     `json:"tick"`
	Bodies          int        `json:"bodies"`
	TotalMass       float64    `json:"total_mass"`
	Momentum        mgl64.Vec3 `json:"momentum"`
	CenterOfMass    mgl64.Vec3 `json:"center_of_mass"`
	KineticEnergy   float64    `json:"kinetic_energy"`
	PotentialEnergy float64    `json:"potential_energy"`
	NonFinite       int        `json:"non_finite"`
}

// TotalEnergy returns kinetic plus potential energy.
func (r Report) TotalEnergy() float64 {
	return r.KineticEnergy + r.PotentialEnergy
}

// Compute builds a Report for bodies under params.
func Compute(tick uint64, bodies []physics.Body, p physics.Params) Report {
	return Report{
		Tick:            tick,
		Bodies:          len(bodies),
		TotalMass:       TotalMass(bodies),
		Momentum:        Momentum(bodies, p.DT),
		CenterOfMass:    CenterOfMass(bodies),
		KineticEnergy:   KineticEnergy(bodies, p.DT),
		PotentialEnergy: PotentialEnergy(bodies, p.G),
		NonFinite:       NonFinite(bodies),
	}
}

// Velocity estimates the velocity of b over the last tick.
func Velocity(b physics.Body, dt float32) mgl64.Vec3 {
	return vecmath.Widen(b.Position).Sub(vecmath.Widen(b.LastPosition)).Mul(1 / float64(dt))
}

// TotalMass sums the masses of bodies.
func TotalMass(bodies []physics.Body) float64 {
	var m float64
	for i := range bodies {
		m += float64(bodies[i].Mass)
	}
	return m
}

// Momentum returns the mass-weighted sum of estimated velocities.
func Momentum(bodies []physics.Body, dt float32) mgl64.Vec3 {
	var p mgl64.Vec3
	for i := range bodies {
		p = p.Add(Velocity(bodies[i], dt).Mul(float64(bodies[i].Mass)))
	}
	return p
}

// CenterOfMass returns the mass-weighted mean position, or the zero
// vector for an empty or massless set.
func CenterOfMass(bodies []physics.Body) mgl64.Vec3 {
	total := TotalMass(bodies)
	if total == 0 {
		return mgl64.Vec3{}
	}
	var c mgl64.Vec3
	for i := range bodies {
		c = c.Add(vecmath.Widen(bodies[i].Position).Mul(float64(bodies[i].Mass)))
	}
	return c.Mul(1 / total)
}

// KineticEnergy returns sum(m v^2 / 2) over the estimated velocities.
func KineticEnergy(bodies []physics.Body, dt float32) float64 {
	var k float64
	for i := range bodies {
		v := Velocity(bodies[i], dt)
		k += 0.5 * float64(bodies[i].Mass) * v.Dot(v)
	}
	return k
}

// PotentialEnergy returns the pairwise potential matching the core's
// force law. The accumulator applies a pull of G*m/r, which derives from
// U = G*m_i*m_j*ln(r), not the familiar -G*m_i*m_j/r.
func PotentialEnergy(bodies []physics.Body, g float32) float64 {
	var u float64
	for i := range bodies {
		pi := vecmath.Widen(bodies[i].Position)
		for j := i + 1; j < len(bodies); j++ {
			r := vecmath.Widen(bodies[j].Position).Sub(pi).Len()
			u += float64(g) * float64(bodies[i].Mass) * float64(bodies[j].Mass) * math.Log(r)
		}
	}
	return u
}

// NonFinite counts bodies whose position is NaN or infinite.
func NonFinite(bodies []physics.Body) int {
	n := 0
	for i := range bodies {
		if !vecmath.IsFinite(bodies[i].Position) {
			n++
		}
	}
	return n
}
