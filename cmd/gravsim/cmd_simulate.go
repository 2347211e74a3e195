package main

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spf13/cobra"

	"github.com/nvandessel/gravsim/internal/diagnostics"
	"github.com/nvandessel/gravsim/internal/physics"
	"github.com/nvandessel/gravsim/internal/simulation"
)

// simulateResult is the JSON form of a headless run.
type simulateResult struct {
	Name      string             `json:"name"`
	Ticks     int                `json:"ticks"`
	Params    physics.Params     `json:"params"`
	Positions []mgl32.Vec3       `json:"positions"`
	Report    diagnostics.Report `json:"report"`
}

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a fixed number of ticks headless and print the final positions",
		Long: `Advance the initial bodies --ticks times as fast as possible and print
the final positions. The same configuration and seed always produce the
same output.

Examples:
  gravsim simulate --ticks 1000
  gravsim simulate --scenario two-body.yaml --ticks 100 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			ticks, _ := cmd.Flags().GetInt("ticks")

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

			// Only the initial and final states are needed.
			result, err := simulation.Run(cmd.Context(), simulation.Scenario{
				Name:    state.Name,
				Params:  state.Params,
				Bodies:  state.Specs,
				Ticks:   ticks,
				Workers: cfg.Simulation.Workers,
				Every:   max(ticks, 1),
			})
			if err != nil {
				return err
			}

			last := result.Last()
			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(simulateResult{
					Name:      result.Name,
					Ticks:     ticks,
					Params:    result.Params,
					Positions: last.Positions,
					Report:    last.Report,
				})
			}

			fmt.Fprintf(out, "%s: %d bodies after %d ticks (G=%v dt=%v)\n",
				result.Name, len(last.Positions), last.Tick, result.Params.G, result.Params.DT)
			for i, p := range last.Positions {
				fmt.Fprintf(out, "  %4d  %14.6f %14.6f %14.6f\n", i, p.X(), p.Y(), p.Z())
			}
			if last.Report.NonFinite > 0 {
				fmt.Fprintf(out, "warning: %d non-finite positions (coincident bodies?)\n", last.Report.NonFinite)
			}
			return nil
		},
	}

	addInitFlags(cmd)
	cmd.Flags().Int("ticks", 1000, "Number of ticks to simulate")

	return cmd
}
