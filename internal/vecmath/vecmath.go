// Package vecmath provides small helpers over mathgl vectors that the
// simulation and its diagnostics share.
package vecmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// LengthSq returns |v|^2 without the square root.
func LengthSq(v mgl32.Vec3) float32 {
	return v.Dot(v)
}

// IsFinite reports whether every component of v is neither NaN nor ±Inf.
func IsFinite(v mgl32.Vec3) bool {
	for _, c := range v {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Widen converts a single-precision vector to double precision.
// Diagnostics accumulate in float64 so that summing many bodies does not
// add its own rounding on top of the simulation's.
func Widen(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}
