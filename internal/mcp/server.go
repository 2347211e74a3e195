// Package mcp provides an MCP (Model Context Protocol) server that drives a
// headless gravsim engine.
package mcp

import (
	"context"
	"log/slog"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/logging"
	"github.com/nvandessel/gravsim/internal/ratelimit"
)

// Server wraps the MCP SDK server and exposes the engine as tools.
type Server struct {
	server       *sdk.Server
	engine       *engine.Engine
	toolLimiters ratelimit.ToolLimiters
	audit        *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "gravsim")
	Version string // Server version

	// Engine is the simulation the tools operate on. The server ticks it
	// only on request; it never calls Run.
	Engine *engine.Engine

	// AuditDir, when set, receives audit.jsonl with one line per tool call.
	AuditDir string

	Logger *slog.Logger
}

// NewServer creates a new MCP server with gravsim tools.
func NewServer(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		engine:       cfg.Engine,
		toolLimiters: ratelimit.NewToolLimiters(),
		logger:       logger,
	}
	if cfg.AuditDir != "" {
		s.audit = NewAuditLogger(cfg.AuditDir)
	}

	s.registerTools()
	return s
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, shutdownSignals...)
	defer stop()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.audit.Close()
	return err
}

// Close releases resources held by the server.
func (s *Server) Close() error {
	return s.audit.Close()
}
