package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/gravsim/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show gravsim configuration",
		Long: `View the effective gravsim configuration.

Configuration is read from ~/.gravsim/config.yaml (or --config), then
overridden by GRAVSIM_* environment variables.

Examples:
  gravsim config list                # Show all settings
  gravsim config get simulation.dt   # Get a specific setting`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintln(out, "Simulation:")
			fmt.Fprintf(out, "  simulation.g:            %v\n", cfg.Simulation.G)
			fmt.Fprintf(out, "  simulation.dt:           %v\n", cfg.Simulation.DT)
			fmt.Fprintf(out, "  simulation.workers:      %d\n", cfg.Simulation.Workers)
			fmt.Fprintf(out, "  simulation.tick_period:  %v\n", cfg.TickPeriod())
			fmt.Fprintf(out, "  simulation.max_ticks:    %s\n", uintOrDefault(cfg.Simulation.MaxTicks, "(unbounded)"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Initial conditions:")
			fmt.Fprintf(out, "  init.count:              %d\n", cfg.Init.Count)
			fmt.Fprintf(out, "  init.seed:               %d\n", cfg.Init.Seed)
			fmt.Fprintf(out, "  init.layout:             %s\n", cfg.Init.Layout)
			fmt.Fprintf(out, "  init.radius:             %v\n", cfg.Init.Radius)
			fmt.Fprintf(out, "  init.min_mass:           %v\n", cfg.Init.MinMass)
			fmt.Fprintf(out, "  init.max_mass:           %v\n", cfg.Init.MaxMass)
			fmt.Fprintf(out, "  init.speed:              %v\n", cfg.Init.Speed)
			fmt.Fprintf(out, "  init.central_mass:       %v\n", cfg.Init.CentralMass)
			fmt.Fprintf(out, "  init.scenario_file:      %s\n", valueOrDefault(cfg.Init.ScenarioFile, "(generator)"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging:")
			fmt.Fprintf(out, "  logging.level:           %s\n", valueOrDefault(cfg.Logging.Level, "info"))
			fmt.Fprintf(out, "  logging.format:          %s\n", valueOrDefault(cfg.Logging.Format, "text"))
			fmt.Fprintf(out, "  logging.trace_dir:       %s\n", valueOrDefault(cfg.Logging.TraceDir, "~/.gravsim"))
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sinks:")
			fmt.Fprintf(out, "  metrics.addr:            %s\n", valueOrDefault(cfg.Metrics.Addr, "(disabled)"))
			fmt.Fprintf(out, "  stream.addr:             %s\n", valueOrDefault(cfg.Stream.Addr, "(disabled)"))
			fmt.Fprintf(out, "  stream.max_fps:          %v\n", cfg.Stream.MaxFPS)
			fmt.Fprintf(out, "  record.path:             %s\n", valueOrDefault(cfg.Record.Path, "(disabled)"))
			fmt.Fprintf(out, "  record.every:            %d\n", cfg.Record.Every)
			fmt.Fprintf(out, "  publish.memcache_addr:   %s\n", valueOrDefault(cfg.Publish.MemcacheAddr, "(disabled)"))
			fmt.Fprintf(out, "  publish.key:             %s\n", cfg.Publish.Key)
			fmt.Fprintf(out, "  publish.every:           %d\n", cfg.Publish.Every)

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, err := getConfigValue(cfg, key)
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func getConfigValue(cfg *config.GravsimConfig, key string) (interface{}, error) {
	switch key {
	case "simulation.g":
		return cfg.Simulation.G, nil
	case "simulation.dt":
		return cfg.Simulation.DT, nil
	case "simulation.workers":
		return cfg.Simulation.Workers, nil
	case "simulation.tick_period":
		return cfg.TickPeriod().String(), nil
	case "simulation.max_ticks":
		return cfg.Simulation.MaxTicks, nil
	case "init.count":
		return cfg.Init.Count, nil
	case "init.seed":
		return cfg.Init.Seed, nil
	case "init.layout":
		return cfg.Init.Layout, nil
	case "init.radius":
		return cfg.Init.Radius, nil
	case "init.min_mass":
		return cfg.Init.MinMass, nil
	case "init.max_mass":
		return cfg.Init.MaxMass, nil
	case "init.speed":
		return cfg.Init.Speed, nil
	case "init.central_mass":
		return cfg.Init.CentralMass, nil
	case "init.scenario_file":
		return cfg.Init.ScenarioFile, nil
	case "logging.level":
		return cfg.Logging.Level, nil
	case "logging.format":
		return cfg.Logging.Format, nil
	case "logging.trace_dir":
		return cfg.Logging.TraceDir, nil
	case "metrics.addr":
		return cfg.Metrics.Addr, nil
	case "stream.addr":
		return cfg.Stream.Addr, nil
	case "stream.max_fps":
		return cfg.Stream.MaxFPS, nil
	case "record.path":
		return cfg.Record.Path, nil
	case "record.every":
		return cfg.Record.Every, nil
	case "publish.memcache_addr":
		return cfg.Publish.MemcacheAddr, nil
	case "publish.key":
		return cfg.Publish.Key, nil
	case "publish.every":
		return cfg.Publish.Every, nil
	default:
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
}

func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func uintOrDefault(value uint64, defaultValue string) string {
	if value == 0 {
		return defaultValue
	}
	return fmt.Sprintf("%d", value)
}
