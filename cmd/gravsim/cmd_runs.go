package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gravsim/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs recorded by 'gravsim run --record', newest first.

Examples:
  gravsim runs
  gravsim runs --db ./runs.db --json
  gravsim runs delete 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.Runs(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if runs == nil {
					runs = []store.Run{}
				}
				return json.NewEncoder(out).Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Fprintf(out, "No recorded runs in %s\n", s.Path())
				return nil
			}

			fmt.Fprintf(out, "%-5s %-28s %7s %7s %9s %10s  %s\n", "ID", "NAME", "BODIES", "FRAMES", "LAST", "DT", "CREATED")
			for _, r := range runs {
				fmt.Fprintf(out, "%-5d %-28s %7d %7d %9d %10v  %s\n",
					r.ID, truncate(r.Name, 28), r.BodyCount, r.Frames, r.LastTick, r.Params.DT,
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.PersistentFlags().String("db", "", "Trajectory database (default ~/.gravsim/runs.db)")
	cmd.AddCommand(newRunsDeleteCmd())

	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded run and its frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q: %w", args[0], err)
			}

			s, err := openRunStore(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteRun(cmd.Context(), runID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %d\n", runID)
			return nil
		},
	}
}

// openRunStore opens the database named by --db. Listing never creates a
// database that does not exist yet.
func openRunStore(cmd *cobra.Command) (*store.TrajectoryStore, error) {
	dbFlag, _ := cmd.Flags().GetString("db")
	path, err := resolveDBPath(dbFlag)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no trajectory database at %s (record one with 'gravsim run --record')", path)
	}
	return store.Open(path)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
