package mcp

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/ratelimit"
	"github.com/nvandessel/gravsim/internal/vecmath"
)

// maxStepTicks bounds a single gravsim_step call.
const maxStepTicks = 10000

// registerTools registers all gravsim tools with the MCP server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "gravsim_step",
		Description: "Advance the simulation by a number of fixed ticks and return the resulting positions",
	}, s.handleStep)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "gravsim_positions",
		Description: "Return the positions of the latest committed tick without advancing",
	}, s.handlePositions)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "gravsim_diagnostics",
		Description: "Report momentum, centre of mass and energy of the current state",
	}, s.handleDiagnostics)
}

func (s *Server) handleStep(ctx context.Context, req *sdk.CallToolRequest, args StepInput) (_ *sdk.CallToolResult, _ FrameOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("gravsim_step", start, retErr, map[string]string{"ticks": strconv.Itoa(args.Ticks)})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "gravsim_step"); err != nil {
		return nil, FrameOutput{}, err
	}

	n := args.Ticks
	if n == 0 {
		n = 1
	}
	if n < 0 || n > maxStepTicks {
		return nil, FrameOutput{}, fmt.Errorf("ticks must be between 1 and %d, got %d", maxStepTicks, args.Ticks)
	}
	if err := ctx.Err(); err != nil {
		return nil, FrameOutput{}, err
	}

	f := s.engine.Advance(n)
	s.logger.Debug("mcp step", "ticks", n, "tick", f.Tick)

	out, err := frameOutput(f, nil)
	return nil, out, err
}

func (s *Server) handlePositions(ctx context.Context, req *sdk.CallToolRequest, args PositionsInput) (_ *sdk.CallToolResult, _ FrameOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("gravsim_positions", start, retErr, map[string]string{"bodies": strconv.Itoa(len(args.Bodies))})
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "gravsim_positions"); err != nil {
		return nil, FrameOutput{}, err
	}

	out, err := frameOutput(s.engine.Latest(), args.Bodies)
	return nil, out, err
}

func (s *Server) handleDiagnostics(ctx context.Context, req *sdk.CallToolRequest, args DiagnosticsInput) (_ *sdk.CallToolResult, _ DiagnosticsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("gravsim_diagnostics", start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "gravsim_diagnostics"); err != nil {
		return nil, DiagnosticsOutput{}, err
	}

	r := s.engine.Diagnose()
	out := DiagnosticsOutput{
		Tick:      r.Tick,
		Bodies:    r.Bodies,
		TotalMass: r.TotalMass,
		NonFinite: r.NonFinite,
	}
	// JSON cannot carry NaN, so a blown-up state reports only its counts.
	if r.NonFinite == 0 {
		out.Momentum = r.Momentum
		out.CenterOfMass = r.CenterOfMass
		out.KineticEnergy = finiteOrZero(r.KineticEnergy)
		out.PotentialEnergy = finiteOrZero(r.PotentialEnergy)
		out.TotalEnergy = finiteOrZero(r.TotalEnergy())
	}
	return nil, out, nil
}

// frameOutput converts a frame, optionally restricted to some bodies.
func frameOutput(f *engine.Frame, bodies []int) (FrameOutput, error) {
	idx := bodies
	if len(idx) == 0 {
		idx = make([]int, len(f.Positions))
		for i := range idx {
			idx[i] = i
		}
	}

	out := FrameOutput{
		Tick:      f.Tick,
		Time:      f.Time,
		Bodies:    len(f.Positions),
		Positions: make([][3]float32, 0, len(idx)),
	}
	for _, i := range idx {
		if i < 0 || i >= len(f.Positions) {
			return FrameOutput{}, fmt.Errorf("body index %d out of range [0, %d)", i, len(f.Positions))
		}
		p := f.Positions[i]
		if !vecmath.IsFinite(p) {
			return FrameOutput{}, fmt.Errorf("tick %d: body %d has a non-finite position", f.Tick, i)
		}
		out.Positions = append(out.Positions, [3]float32(p))
	}
	return out, nil
}

func finiteOrZero(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
