// Package physics implements the gravitational N-body core: pairwise force
// accumulation and position Verlet integration over an explicitly owned
// slice of bodies.
//
// A tick is Accumulate followed by Integrate. Accumulate expects every
// acceleration to be zero on entry; Integrate consumes the accumulated
// accelerations and resets them, so the pair can be called back to back
// forever without any other bookkeeping:
//
//	bodies := physics.NewBodies(specs, params.DT)
//	for range ticks {
//	    physics.Step(bodies, params)
//	}
//
// Nothing in this package validates its inputs. Two bodies at the same
// position produce a non-finite acceleration that flows into the positions
// unchecked, and a non-positive mass is simply multiplied through. Callers
// that construct bodies own those preconditions (see package initcond).
package physics
