package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gravsim/internal/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a recorded run as an Arrow IPC stream",
		Long: `Write a recorded run to an Arrow IPC stream file, one record batch per
frame with columns tick, body, x, y, z and mass.

Examples:
  gravsim export --run 3 --out run3.arrow
  gravsim export --run 3 --db ./runs.db --out -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, _ := cmd.Flags().GetInt64("run")
			outPath, _ := cmd.Flags().GetString("out")
			if runID <= 0 {
				return fmt.Errorf("--run is required")
			}

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			traj, err := export.FromStore(cmd.Context(), s, runID)
			if err != nil {
				return fmt.Errorf("loading run %d: %w", runID, err)
			}

			if outPath == "-" {
				w := bufio.NewWriter(cmd.OutOrStdout())
				if err := export.WriteArrow(w, traj); err != nil {
					return err
				}
				return w.Flush()
			}

			f, err := os.Create(outPath)
			if err != nil {
				return fmt.Errorf("creating %s: %w", outPath, err)
			}
			w := bufio.NewWriter(f)
			if err := export.WriteArrow(w, traj); err != nil {
				f.Close()
				return err
			}
			if err := w.Flush(); err != nil {
				f.Close()
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", outPath, err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Exported run %d (%d frames, %d bodies) to %s\n",
				runID, len(traj.Frames), len(traj.Masses), outPath)
			return nil
		},
	}

	cmd.Flags().Int64("run", 0, "Run ID to export (see 'gravsim runs')")
	cmd.Flags().String("out", "trajectory.arrow", "Output file, or - for stdout")
	cmd.Flags().String("db", "", "Trajectory database (default ~/.gravsim/runs.db)")

	return cmd
}
