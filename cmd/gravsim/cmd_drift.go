package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/nvandessel/gravsim/internal/diagnostics"
	"github.com/nvandessel/gravsim/internal/simulation"
)

// driftPoint is one sampled drift measurement.
type driftPoint struct {
	Tick     uint64  `json:"tick"`
	Momentum float64 `json:"momentum_drift"`
	Energy   float64 `json:"energy_drift"`
}

func newDriftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Plot momentum and energy drift over a headless run",
		Long: `Run the simulation headless, sample diagnostics every --every ticks and
plot how far total momentum and total energy wander from their initial
values.

Momentum drift is |p(t) - p(0)|. Energy drift is (E(t) - E(0)) / |E(0)|,
or the absolute difference when E(0) is zero.

Examples:
  gravsim drift --ticks 5000 --every 50
  gravsim drift --layout disk --count 50 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			ticks, _ := cmd.Flags().GetInt("ticks")
			every, _ := cmd.Flags().GetInt("every")
			height, _ := cmd.Flags().GetInt("height")
			width, _ := cmd.Flags().GetInt("width")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyInitFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			state, err := loadInitialState(cfg)
			if err != nil {
				return err
			}

			result, err := simulation.Run(cmd.Context(), simulation.Scenario{
				Name:    state.Name,
				Params:  state.Params,
				Bodies:  state.Specs,
				Ticks:   ticks,
				Workers: cfg.Simulation.Workers,
				Every:   every,
			})
			if err != nil {
				return err
			}

			points := driftSeries(result.Reports())
			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(points)
			}

			if len(points) < 2 {
				fmt.Fprintln(out, "Not enough samples to plot drift.")
				return nil
			}

			momentum := make([]float64, len(points))
			energy := make([]float64, len(points))
			for i, p := range points {
				momentum[i] = p.Momentum
				energy[i] = p.Energy
			}

			fmt.Fprintf(out, "%s: %d bodies, %d ticks, %d samples\n\n", result.Name, len(result.Final), ticks, len(points))
			fmt.Fprintln(out, asciigraph.Plot(momentum,
				asciigraph.Height(height), asciigraph.Width(width),
				asciigraph.Caption("momentum drift |p(t) - p(0)|")))
			fmt.Fprintln(out)
			fmt.Fprintln(out, asciigraph.Plot(energy,
				asciigraph.Height(height), asciigraph.Width(width),
				asciigraph.Caption("relative energy drift")))

			if len(points) < len(result.Samples) {
				fmt.Fprintf(out, "\nwarning: stopped plotting at tick %d, state became non-finite\n", points[len(points)-1].Tick)
			}
			return nil
		},
	}

	addInitFlags(cmd)
	cmd.Flags().Int("ticks", 2000, "Number of ticks to simulate")
	cmd.Flags().Int("every", 20, "Sample diagnostics every N ticks")
	cmd.Flags().Int("height", 10, "Plot height in rows")
	cmd.Flags().Int("width", 60, "Plot width in columns")

	return cmd
}

// driftSeries converts reports into drift relative to the first report.
// The series ends at the first report with non-finite state, since drift
// is meaningless after that.
func driftSeries(reports []diagnostics.Report) []driftPoint {
	if len(reports) == 0 {
		return nil
	}

	p0 := reports[0].Momentum
	e0 := reports[0].TotalEnergy()

	points := make([]driftPoint, 0, len(reports))
	for _, r := range reports {
		if r.NonFinite > 0 {
			break
		}
		e := r.TotalEnergy()
		energy := e - e0
		if e0 != 0 {
			energy /= math.Abs(e0)
		}
		momentum := r.Momentum.Sub(p0).Len()
		if math.IsNaN(energy) || math.IsInf(energy, 0) || math.IsNaN(momentum) || math.IsInf(momentum, 0) {
			break
		}
		points = append(points, driftPoint{Tick: r.Tick, Momentum: momentum, Energy: energy})
	}
	return points
}
