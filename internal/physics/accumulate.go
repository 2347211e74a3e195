package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/nvandessel/gravsim/internal/vecmath"
)

// Accumulate adds the gravitational acceleration every body induces on
// every other body. Each unordered pair is visited once and its
// contribution applied to both members with opposite sign, so the
// per-pair terms cancel exactly in the mass-weighted sum.
//
// Acceleration must be zero on every body when Accumulate is called.
// Only Acceleration is written.
func Accumulate(bodies []Body, g float32) {
	for i := range bodies {
		bi := &bodies[i]
		for j := i + 1; j < len(bodies); j++ {
			bj := &bodies[j]
			fum := forcePerUnitMass(bi.Position, bj.Position, g)
			bi.Acceleration = bi.Acceleration.Add(fum.Mul(bj.Mass))
			bj.Acceleration = bj.Acceleration.Sub(fum.Mul(bi.Mass))
		}
	}
}

// forcePerUnitMass returns (pj - pi) * g / |pj - pi|^2, the pull of a unit
// mass at pj on pi. Coincident positions divide by zero.
func forcePerUnitMass(pi, pj mgl32.Vec3, g float32) mgl32.Vec3 {
	delta := pj.Sub(pi)
	distSq := vecmath.LengthSq(delta)
	f := g / distSq
	return delta.Mul(f)
}
