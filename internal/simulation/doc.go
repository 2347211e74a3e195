// Package simulation runs headless, fixed-length trajectories through the
// physics pipeline and captures sampled positions and diagnostics.
//
// It backs the simulate and drift commands and the property tests. Each
// run owns its body slice; nothing is shared between runs, so two runs of
// the same scenario with the same worker count produce bit-identical
// trajectories.
//
// Usage:
//
//	func TestTwoBodyMirror(t *testing.T) {
//	    result, err := simulation.Run(ctx, simulation.Scenario{
//	        Name:   "two-body",
//	        Params: physics.Params{G: 1, DT: 0.01},
//	        Bodies: []physics.Spec{...},
//	        Ticks:  100,
//	    })
//	    simtest.AssertMirror(t, result, 0, 1, 0)
//	}
package simulation
