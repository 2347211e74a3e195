// Package simtest provides trajectory assertions shared by simulation tests.
package simtest

import (
	"math"
	"testing"

	"github.com/nvandessel/gravsim/internal/simulation"
	"github.com/nvandessel/gravsim/internal/vecmath"
)

// AssertMirror asserts that bodies i and j stay reflected through the
// origin in every sample, within tol per component. A tol of 0 demands
// exact negation.
func AssertMirror(t *testing.T, result simulation.Result, i, j int, tol float32) {
	t.Helper()
	for _, s := range result.Samples {
		a, b := s.Positions[i], s.Positions[j]
		for k := 0; k < 3; k++ {
			if d := float32(math.Abs(float64(a[k] + b[k]))); d > tol {
				t.Errorf("AssertMirror: tick %d: body %d %v is not the mirror of body %d %v (|sum|=%g)", s.Tick, i, a, j, b, d)
				return
			}
		}
	}
}

// AssertMomentumConserved asserts that total momentum never drifts more
// than tol (per component) from its initial value.
func AssertMomentumConserved(t *testing.T, result simulation.Result, tol float64) {
	t.Helper()
	if len(result.Samples) == 0 {
		t.Fatal("AssertMomentumConserved: no samples")
	}
	p0 := result.Samples[0].Report.Momentum
	for _, s := range result.Samples[1:] {
		drift := s.Report.Momentum.Sub(p0)
		for k := 0; k < 3; k++ {
			if math.Abs(drift[k]) > tol {
				t.Errorf("AssertMomentumConserved: tick %d: momentum %v drifted from %v by %g (tol %g)", s.Tick, s.Report.Momentum, p0, drift[k], tol)
				return
			}
		}
	}
}

// AssertIdentical asserts that two runs produced bit-identical trajectories.
// NaN payloads are compared by bits, so non-finite runs can still match.
func AssertIdentical(t *testing.T, a, b simulation.Result) {
	t.Helper()
	if len(a.Samples) != len(b.Samples) {
		t.Fatalf("AssertIdentical: sample counts differ: %d vs %d", len(a.Samples), len(b.Samples))
	}
	for si := range a.Samples {
		pa, pb := a.Samples[si].Positions, b.Samples[si].Positions
		if len(pa) != len(pb) {
			t.Fatalf("AssertIdentical: sample %d: body counts differ: %d vs %d", si, len(pa), len(pb))
		}
		for bi := range pa {
			for k := 0; k < 3; k++ {
				if math.Float32bits(pa[bi][k]) != math.Float32bits(pb[bi][k]) {
					t.Errorf("AssertIdentical: tick %d body %d: %v != %v", a.Samples[si].Tick, bi, pa[bi], pb[bi])
					return
				}
			}
		}
	}
}

// AssertFinite asserts that no sampled position is NaN or infinite.
func AssertFinite(t *testing.T, result simulation.Result) {
	t.Helper()
	for _, s := range result.Samples {
		for bi, p := range s.Positions {
			if !vecmath.IsFinite(p) {
				t.Errorf("AssertFinite: tick %d: body %d position %v is not finite", s.Tick, bi, p)
				return
			}
		}
	}
}
