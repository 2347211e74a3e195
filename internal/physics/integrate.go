package physics

import "github.com/go-gl/mathgl/mgl32"

// Integrate advances every body by one tick of length dt using position
// Verlet:
//
//	x(t+dt) = 2x(t) - x(t-dt) + a(t)dt^2
//
// It then clears Acceleration and moves the pre-tick position into
// LastPosition. Non-finite accelerations are carried into Position as is.
func Integrate(bodies []Body, dt float32) {
	dtSq := dt * dt
	for i := range bodies {
		b := &bodies[i]
		next := b.Position.Mul(2).Sub(b.LastPosition).Add(b.Acceleration.Mul(dtSq))
		b.Acceleration = mgl32.Vec3{}
		b.LastPosition = b.Position
		b.Position = next
	}
}

// Step runs one complete tick: Accumulate, then Integrate.
func Step(bodies []Body, p Params) {
	Accumulate(bodies, p.G)
	Integrate(bodies, p.DT)
}
