package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gravsim",
		Short: "Fixed-step gravitational N-body simulator",
		Long: `gravsim advances a set of point masses under mutual gravity with a
fixed-step position Verlet integrator.

It can run headless for a fixed number of ticks, drive a fixed-rate loop
that streams positions over websockets, record trajectories to SQLite and
export them as Arrow, or serve the simulation to agents over MCP.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.gravsim/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log level: info, debug, trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(),
		newRunCmd(),
		newSimulateCmd(),
		newDriftCmd(),
		newRunsCmd(),
		newExportCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}
