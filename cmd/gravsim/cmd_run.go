package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/gravsim/internal/config"
	"github.com/nvandessel/gravsim/internal/constants"
	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/metrics"
	"github.com/nvandessel/gravsim/internal/publish"
	"github.com/nvandessel/gravsim/internal/store"
	"github.com/nvandessel/gravsim/internal/stream"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fixed-rate simulation loop",
		Long: `Advance the simulation once per tick period until interrupted or
until --max-ticks is reached.

Each committed tick is fanned out to the configured sinks:
  metrics.addr           Prometheus /metrics endpoint
  stream.addr            websocket position stream at /ws
  record.path            SQLite trajectory recording
  publish.memcache_addr  latest frame in memcache

Examples:
  gravsim run --stream-addr :8080
  gravsim run --layout disk --count 200 --record ~/.gravsim/runs.db
  gravsim run --max-ticks 10000 --metrics-addr :9100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			applyInitFlags(cmd, cfg)
			applyRunFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger := newLogger(cfg)
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return runLoop(ctx, cfg, logger)
		},
	}

	addInitFlags(cmd)
	cmd.Flags().Uint64("max-ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	cmd.Flags().Duration("tick-period", 0, "Wall-clock interval between ticks (default dt)")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().String("stream-addr", "", "Serve the websocket position stream on this address")
	cmd.Flags().String("record", "", "Record the trajectory to this SQLite database")
	cmd.Flags().Int("record-every", constants.DefaultRecordEvery, "Record one frame per N ticks")
	cmd.Flags().String("memcache", "", "Publish the latest frame to this memcache server")

	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.GravsimConfig) {
	flags := cmd.Flags()
	if flags.Changed("max-ticks") {
		cfg.Simulation.MaxTicks, _ = flags.GetUint64("max-ticks")
	}
	if flags.Changed("tick-period") {
		cfg.Simulation.TickPeriod, _ = flags.GetDuration("tick-period")
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
	if flags.Changed("stream-addr") {
		cfg.Stream.Addr, _ = flags.GetString("stream-addr")
	}
	if flags.Changed("record") {
		cfg.Record.Path, _ = flags.GetString("record")
	}
	if flags.Changed("record-every") {
		cfg.Record.Every, _ = flags.GetInt("record-every")
	}
	if flags.Changed("memcache") {
		cfg.Publish.MemcacheAddr, _ = flags.GetString("memcache")
	}
}

// signalContext cancels the returned context on a shutdown signal.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, shutdownSignals...)
}

// runLoop builds the engine and its sinks and drives it until ctx ends or
// the tick limit is reached.
func runLoop(ctx context.Context, cfg *config.GravsimConfig, logger *slog.Logger) error {
	state, err := loadInitialState(cfg)
	if err != nil {
		return err
	}

	tracer := newTracer(cfg)
	defer tracer.Close()

	collector := metrics.NewCollector()
	eng := engine.New(state.Specs, engine.Options{
		Params:           state.Params,
		Workers:          cfg.Simulation.Workers,
		TickPeriod:       cfg.Simulation.TickPeriod,
		MaxTicks:         cfg.Simulation.MaxTicks,
		DiagnosticsEvery: constants.DefaultDiagnosticsEvery,
		Logger:           logger,
		Tracer:           tracer,
	}, collector)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		serveHTTP(gctx, g, "metrics", cfg.Metrics.Addr, mux, logger)
	}

	if cfg.Stream.Addr != "" {
		hub := stream.NewHub(cfg.Stream.MaxFPS, logger)
		defer hub.Close()
		mux := http.NewServeMux()
		mux.Handle("/ws", hub)
		serveHTTP(gctx, g, "stream", cfg.Stream.Addr, mux, logger)
		eng.AddObserver(hub)
	}

	if cfg.Record.Path != "" {
		rec, closeStore, err := startRecorder(gctx, cfg, state, eng, logger)
		if err != nil {
			return err
		}
		defer closeStore()
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Warn("recorder close failed", "error", err)
			}
			written, dropped := rec.Stats()
			logger.Info("recording finished", "run_id", rec.RunID(), "written", written, "dropped", dropped)
		}()
	}

	if cfg.Publish.MemcacheAddr != "" {
		sink := publish.NewMemcacheSink(publish.NewClient(cfg.Publish.MemcacheAddr), cfg.Publish.Key, cfg.Publish.Every, logger)
		defer sink.Close()
		eng.AddObserver(sink)
	}

	logger.Info("simulation starting",
		"name", state.Name,
		"bodies", eng.BodyCount(),
		"g", state.Params.G,
		"dt", state.Params.DT,
		"workers", cfg.Simulation.Workers,
		"period", eng.Period())

	g.Go(func() error {
		defer cancel()
		return eng.Run(gctx)
	})

	err = g.Wait()
	final := eng.Diagnose()
	logger.Info("simulation stopped",
		"tick", final.Tick,
		"momentum", final.Momentum.Len(),
		"energy", final.TotalEnergy(),
		"non_finite", final.NonFinite)
	return err
}

// startRecorder opens the trajectory store, registers a run and attaches a
// recorder to the engine. Frame 0 is recorded immediately.
func startRecorder(ctx context.Context, cfg *config.GravsimConfig, state *initialState, eng *engine.Engine, logger *slog.Logger) (*store.Recorder, func(), error) {
	s, err := store.Open(cfg.Record.Path)
	if err != nil {
		return nil, nil, err
	}
	runID, err := s.CreateRun(ctx, store.RunInfo{
		Name:   state.Name,
		Params: state.Params,
		Seed:   state.Seed,
		Layout: state.Layout,
	}, eng.Masses())
	if err != nil {
		s.Close()
		return nil, nil, err
	}

	// The recorder writes with its own context so queued frames still land
	// after the run is cancelled.
	rec := store.NewRecorder(context.Background(), s, runID, cfg.Record.Every, logger)
	rec.ObserveFrame(eng.Latest())
	eng.AddObserver(rec)
	logger.Info("recording trajectory", "path", s.Path(), "run_id", runID, "every", cfg.Record.Every)

	return rec, func() { s.Close() }, nil
}

// serveHTTP runs an HTTP server in g until ctx ends, then shuts it down.
func serveHTTP(ctx context.Context, g *errgroup.Group, name, addr string, h http.Handler, logger *slog.Logger) {
	srv := &http.Server{
		Addr:        addr,
		Handler:     h,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		logger.Info("listening", "server", name, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

