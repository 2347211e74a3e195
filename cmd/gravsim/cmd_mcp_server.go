package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/mcp"
	"github.com/nvandessel/gravsim/internal/store"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve a simulation to MCP clients over stdio",
		Long: `Start an MCP server over stdio backed by a headless simulation.

The simulation only advances when a client calls gravsim_step. Tools:
  gravsim_step         advance n ticks and return positions
  gravsim_positions    return the latest committed frame
  gravsim_diagnostics  return momentum, energy and centre of mass

Tool calls are appended to ~/.gravsim/audit.jsonl.

Example MCP client configuration:
  {
    "mcpServers": {
      "gravsim": {
        "command": "gravsim",
        "args": ["mcp-server", "--layout", "disk"]
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyInitFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			// stdout belongs to the protocol; logs go to stderr.
			logger := newLogger(cfg)

			state, err := loadInitialState(cfg)
			if err != nil {
				return err
			}

			tracer := newTracer(cfg)
			defer tracer.Close()

			eng := engine.New(state.Specs, engine.Options{
				Params:  state.Params,
				Workers: cfg.Simulation.Workers,
				Logger:  logger,
				Tracer:  tracer,
			})

			auditDir, err := store.EnsureGlobalDir()
			if err != nil {
				logger.Warn("audit log disabled", "error", err)
				auditDir = ""
			}

			server := mcp.NewServer(&mcp.Config{
				Name:     "gravsim",
				Version:  version,
				Engine:   eng,
				AuditDir: auditDir,
				Logger:   logger,
			})
			defer server.Close()

			logger.Info("mcp server starting", "name", state.Name, "bodies", eng.BodyCount())
			return server.Run(cmd.Context())
		},
	}

	addInitFlags(cmd)
	return cmd
}
