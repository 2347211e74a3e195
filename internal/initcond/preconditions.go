package initcond

import (
	"errors"
	"fmt"
	"math"

	"github.com/nvandessel/gravsim/internal/physics"
	"github.com/nvandessel/gravsim/internal/vecmath"
)

// Precondition violations. The physics core assumes none of these occur
// and does not check for them itself.
var (
	ErrNonPositiveMass  = errors.New("body mass must be positive")
	ErrCoincidentBodies = errors.New("bodies share a position")
	ErrNonFinite        = errors.New("body state is not finite")
	ErrInvalidParams    = errors.New("invalid simulation parameters")
)

// CheckParams verifies that dt is positive and g non-negative, both finite.
// NaN fails both comparisons, so it is rejected along with the infinities.
func CheckParams(p physics.Params) error {
	if err := checkDT(p.DT); err != nil {
		return err
	}
	return checkG(p.G)
}

func checkDT(dt float32) error {
	if !(dt > 0) || math.IsInf(float64(dt), 0) {
		return fmt.Errorf("%w: dt must be positive and finite, got %v", ErrInvalidParams, dt)
	}
	return nil
}

func checkG(g float32) error {
	if !(g >= 0) || math.IsInf(float64(g), 0) {
		return fmt.Errorf("%w: g must be non-negative and finite, got %v", ErrInvalidParams, g)
	}
	return nil
}

// CheckPreconditions verifies that specs can be handed to the core:
// every mass is positive, every position and velocity is finite, and no
// two bodies share a position. It reports the first violation found.
func CheckPreconditions(specs []physics.Spec) error {
	for i, s := range specs {
		if !(s.Mass > 0) {
			return fmt.Errorf("body %d: %w (got %v)", i, ErrNonPositiveMass, s.Mass)
		}
		if !vecmath.IsFinite(s.Position) || !vecmath.IsFinite(s.Velocity) {
			return fmt.Errorf("body %d: %w", i, ErrNonFinite)
		}
	}

	seen := make(map[[3]float32]int, len(specs))
	for i, s := range specs {
		key := [3]float32(s.Position)
		if j, ok := seen[key]; ok {
			return fmt.Errorf("bodies %d and %d: %w at %v", j, i, ErrCoincidentBodies, s.Position)
		}
		seen[key] = i
	}
	return nil
}
