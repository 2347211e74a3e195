package mcp

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/physics"
	"github.com/nvandessel/gravsim/internal/ratelimit"
)

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	e := engine.New([]physics.Spec{
		{Mass: 1, Position: mgl32.Vec3{-1, 0, 0}},
		{Mass: 1, Position: mgl32.Vec3{1, 0, 0}},
	}, engine.Options{Params: physics.Params{G: 1, DT: 0.01}})

	s := NewServer(&Config{
		Name:     "gravsim-test",
		Version:  "v0.0.0",
		Engine:   e,
		AuditDir: t.TempDir(),
	})
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewServer(t *testing.T) {
	s := setupTestServer(t)
	if s.server == nil {
		t.Error("Server.server is nil")
	}
	if s.engine == nil {
		t.Error("Server.engine is nil")
	}
	if s.audit == nil {
		t.Error("expected audit logger when AuditDir is set")
	}
}

func TestHandleStep(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	req := &sdk.CallToolRequest{}

	_, out, err := s.handleStep(ctx, req, StepInput{Ticks: 10})
	if err != nil {
		t.Fatalf("handleStep() error = %v", err)
	}
	if out.Tick != 10 || out.Bodies != 2 || len(out.Positions) != 2 {
		t.Errorf("output = %+v", out)
	}
	// Mirror symmetry holds exactly for the equal-mass pair.
	if out.Positions[0][0] != -out.Positions[1][0] {
		t.Errorf("positions not mirrored: %v", out.Positions)
	}
	if out.Positions[0][0] <= -1 {
		t.Errorf("body 0 did not move inward: %v", out.Positions[0])
	}

	// Default is one tick.
	_, out, err = s.handleStep(ctx, req, StepInput{})
	if err != nil {
		t.Fatalf("handleStep() error = %v", err)
	}
	if out.Tick != 11 {
		t.Errorf("tick = %d, want 11", out.Tick)
	}
}

func TestHandleStep_Bounds(t *testing.T) {
	s := setupTestServer(t)
	req := &sdk.CallToolRequest{}

	for _, n := range []int{-1, maxStepTicks + 1} {
		if _, _, err := s.handleStep(context.Background(), req, StepInput{Ticks: n}); err == nil {
			t.Errorf("expected error for ticks=%d", n)
		}
	}
	if s.engine.Latest().Tick != 0 {
		t.Error("rejected steps must not advance the engine")
	}
}

func TestHandleStep_RateLimited(t *testing.T) {
	s := setupTestServer(t)
	s.toolLimiters = ratelimit.ToolLimiters{"gravsim_step": ratelimit.NewLimiter(0, 1)}
	req := &sdk.CallToolRequest{}

	if _, _, err := s.handleStep(context.Background(), req, StepInput{Ticks: 1}); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	_, _, err := s.handleStep(context.Background(), req, StepInput{Ticks: 1})
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("expected rate limit error, got %v", err)
	}
}

func TestHandlePositions(t *testing.T) {
	s := setupTestServer(t)
	req := &sdk.CallToolRequest{}

	_, out, err := s.handlePositions(context.Background(), req, PositionsInput{})
	if err != nil {
		t.Fatalf("handlePositions() error = %v", err)
	}
	if out.Tick != 0 || len(out.Positions) != 2 || out.Positions[1] != [3]float32{1, 0, 0} {
		t.Errorf("output = %+v", out)
	}

	_, out, err = s.handlePositions(context.Background(), req, PositionsInput{Bodies: []int{1}})
	if err != nil {
		t.Fatalf("handlePositions() error = %v", err)
	}
	if len(out.Positions) != 1 || out.Positions[0] != [3]float32{1, 0, 0} || out.Bodies != 2 {
		t.Errorf("filtered output = %+v", out)
	}

	if _, _, err := s.handlePositions(context.Background(), req, PositionsInput{Bodies: []int{5}}); err == nil {
		t.Error("expected out of range error")
	}
}

func TestHandleDiagnostics(t *testing.T) {
	s := setupTestServer(t)
	req := &sdk.CallToolRequest{}
	s.engine.Advance(5)

	_, out, err := s.handleDiagnostics(context.Background(), req, DiagnosticsInput{})
	if err != nil {
		t.Fatalf("handleDiagnostics() error = %v", err)
	}
	if out.Tick != 5 || out.Bodies != 2 || out.TotalMass != 2 {
		t.Errorf("output = %+v", out)
	}
	if out.NonFinite != 0 {
		t.Errorf("NonFinite = %d", out.NonFinite)
	}
	if out.KineticEnergy <= 0 {
		t.Errorf("KineticEnergy = %v, want > 0 once the pair is falling", out.KineticEnergy)
	}
	if math.Abs(out.TotalEnergy-(out.KineticEnergy+out.PotentialEnergy)) > 1e-12 {
		t.Errorf("TotalEnergy %v != KE+PE", out.TotalEnergy)
	}
	if _, err := json.Marshal(out); err != nil {
		t.Errorf("output not JSON encodable: %v", err)
	}
}

func TestHandleDiagnostics_NonFinite(t *testing.T) {
	e := engine.New([]physics.Spec{
		{Mass: 1, Position: mgl32.Vec3{0, 0, 0}},
		{Mass: 1, Position: mgl32.Vec3{0, 0, 0}},
	}, engine.Options{Params: physics.Params{G: 1, DT: 0.01}})
	s := NewServer(&Config{Name: "t", Version: "v0", Engine: e})
	defer s.Close()
	e.Tick()

	_, out, err := s.handleDiagnostics(context.Background(), &sdk.CallToolRequest{}, DiagnosticsInput{})
	if err != nil {
		t.Fatalf("handleDiagnostics() error = %v", err)
	}
	if out.NonFinite != 2 {
		t.Errorf("NonFinite = %d, want 2", out.NonFinite)
	}
	if _, err := json.Marshal(out); err != nil {
		t.Errorf("output not JSON encodable: %v", err)
	}

	if _, _, err := s.handlePositions(context.Background(), &sdk.CallToolRequest{}, PositionsInput{}); err == nil {
		t.Error("expected non-finite position error")
	}
}

func TestAudit_WritesEntries(t *testing.T) {
	dir := t.TempDir()
	e := engine.New([]physics.Spec{{Mass: 1}}, engine.Options{Params: physics.Params{G: 1, DT: 0.01}})
	s := NewServer(&Config{Name: "t", Version: "v0", Engine: e, AuditDir: dir})

	req := &sdk.CallToolRequest{}
	_, _, _ = s.handleStep(context.Background(), req, StepInput{Ticks: 3})
	_, _, _ = s.handleStep(context.Background(), req, StepInput{Ticks: -4})
	s.Close()

	data, err := os.ReadFile(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatalf("reading audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d audit lines, want 2", len(lines))
	}

	var ok, bad AuditEntry
	if err := json.Unmarshal([]byte(lines[0]), &ok); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &bad); err != nil {
		t.Fatal(err)
	}
	if ok.Tool != "gravsim_step" || ok.Status != "success" || ok.Tick != 3 || ok.Params["ticks"] != "3" {
		t.Errorf("first entry = %+v", ok)
	}
	if bad.Status != "error" || bad.Error == "" {
		t.Errorf("second entry = %+v", bad)
	}
}

func TestAuditLogger_NilSafety(t *testing.T) {
	var logger *AuditLogger
	logger.Log(AuditEntry{Tool: "test"})
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on nil logger returned error: %v", err)
	}
}
