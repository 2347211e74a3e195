package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/nvandessel/gravsim/internal/physics"
)

func newTestStore(t *testing.T) *TrajectoryStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testInfo() RunInfo {
	return RunInfo{
		Name:   "pair",
		Params: physics.Params{G: 1, DT: 0.01},
		Seed:   42,
		Layout: "pair",
	}
}

func TestOpen_CreatesNestedDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "runs.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestOpen_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.CreateRun(ctx, testInfo(), []float32{1, 1}); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs after reopen, want 1", len(runs))
	}
}

func TestTrajectoryStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRun(ctx, testInfo(), []float32{1, 2.5})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	frames := []RecordedFrame{
		{Tick: 0, Positions: []mgl32.Vec3{{-1, 0, 0}, {1, 0, 0}}},
		{Tick: 10, Positions: []mgl32.Vec3{{-0.5, 0.25, 0}, {0.5, -0.25, 0}}},
		{Tick: 20, Positions: []mgl32.Vec3{{0, 1, 2}, {3, 4, 5}}},
	}
	for _, f := range frames {
		if err := s.AppendFrame(ctx, id, f.Tick, f.Positions); err != nil {
			t.Fatalf("AppendFrame(%d) error = %v", f.Tick, err)
		}
	}

	got, err := s.Frames(ctx, id)
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}
	if len(got) != len(frames) {
		t.Fatalf("got %d frames, want %d", len(got), len(frames))
	}
	for i := range frames {
		if got[i].Tick != frames[i].Tick {
			t.Errorf("frame %d tick = %d, want %d", i, got[i].Tick, frames[i].Tick)
		}
		for b := range frames[i].Positions {
			if got[i].Positions[b] != frames[i].Positions[b] {
				t.Errorf("frame %d body %d = %v, want %v", i, b, got[i].Positions[b], frames[i].Positions[b])
			}
		}
	}

	masses, err := s.Masses(ctx, id)
	if err != nil {
		t.Fatalf("Masses() error = %v", err)
	}
	if len(masses) != 2 || masses[0] != 1 || masses[1] != 2.5 {
		t.Errorf("Masses() = %v, want [1 2.5]", masses)
	}
}

func TestTrajectoryStore_NaNSurvives(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRun(ctx, testInfo(), []float32{1})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	nan := float32(math.NaN())
	if err := s.AppendFrame(ctx, id, 1, []mgl32.Vec3{{nan, 1, nan}}); err != nil {
		t.Fatalf("AppendFrame() error = %v", err)
	}

	got, err := s.Frames(ctx, id)
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}
	p := got[0].Positions[0]
	if !math.IsNaN(float64(p[0])) || p[1] != 1 || !math.IsNaN(float64(p[2])) {
		t.Errorf("position = %v, want [NaN 1 NaN]", p)
	}
}

func TestTrajectoryStore_Runs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.CreateRun(ctx, testInfo(), []float32{1, 1})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	info := testInfo()
	info.Name = "cloud"
	info.Params.G = 2
	second, err := s.CreateRun(ctx, info, []float32{1, 1, 1})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	for _, tick := range []uint64{0, 5, 10} {
		if err := s.AppendFrame(ctx, second, tick, make([]mgl32.Vec3, 3)); err != nil {
			t.Fatalf("AppendFrame() error = %v", err)
		}
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Newest first
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("run order = [%d %d], want [%d %d]", runs[0].ID, runs[1].ID, second, first)
	}

	r := runs[0]
	if r.Name != "cloud" || r.Params.G != 2 || r.Params.DT != 0.01 {
		t.Errorf("run = %+v", r)
	}
	if r.BodyCount != 3 || r.Frames != 3 || r.LastTick != 10 {
		t.Errorf("body_count=%d frames=%d last_tick=%d, want 3/3/10", r.BodyCount, r.Frames, r.LastTick)
	}
	if r.Seed != 42 || r.Layout != "pair" {
		t.Errorf("seed=%d layout=%q", r.Seed, r.Layout)
	}
	if r.CreatedAt.IsZero() {
		t.Error("CreatedAt not parsed")
	}
	if runs[1].Frames != 0 || runs[1].LastTick != 0 {
		t.Errorf("empty run frames=%d last_tick=%d", runs[1].Frames, runs[1].LastTick)
	}
}

func TestTrajectoryStore_RunNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Run(ctx, 99); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Run() error = %v, want ErrRunNotFound", err)
	}
	if _, err := s.Frames(ctx, 99); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Frames() error = %v, want ErrRunNotFound", err)
	}
	if _, err := s.Masses(ctx, 99); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Masses() error = %v, want ErrRunNotFound", err)
	}
	if err := s.DeleteRun(ctx, 99); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("DeleteRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestTrajectoryStore_DeleteRunCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.CreateRun(ctx, testInfo(), []float32{1})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := s.AppendFrame(ctx, id, 0, []mgl32.Vec3{{1, 2, 3}}); err != nil {
		t.Fatalf("AppendFrame() error = %v", err)
	}
	if err := s.DeleteRun(ctx, id); err != nil {
		t.Fatalf("DeleteRun() error = %v", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d positions left after DeleteRun", n)
	}
}

func TestValidateIntegrity(t *testing.T) {
	s := newTestStore(t)
	if err := ValidateIntegrity(context.Background(), s.db); err != nil {
		t.Errorf("ValidateIntegrity() error = %v", err)
	}
}
