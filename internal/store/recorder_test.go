package store

import (
	"context"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/physics"
)

func TestRecorder_RecordsEveryNth(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	specs := []physics.Spec{
		{Mass: 1, Position: mgl32.Vec3{-1, 0, 0}},
		{Mass: 1, Position: mgl32.Vec3{1, 0, 0}},
	}
	id, err := s.CreateRun(ctx, testInfo(), []float32{1, 1})
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	rec := NewRecorder(ctx, s, id, 5, nil)
	e := engine.New(specs, engine.Options{Params: physics.Params{G: 1, DT: 0.01}}, rec)
	rec.ObserveFrame(e.Latest())
	e.Advance(12)

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	frames, err := s.Frames(ctx, id)
	if err != nil {
		t.Fatalf("Frames() error = %v", err)
	}
	wantTicks := []uint64{0, 5, 10}
	if len(frames) != len(wantTicks) {
		t.Fatalf("recorded %d frames, want %d", len(frames), len(wantTicks))
	}
	for i, want := range wantTicks {
		if frames[i].Tick != want {
			t.Errorf("frame %d tick = %d, want %d", i, frames[i].Tick, want)
		}
	}
	if frames[0].Positions[0] != (mgl32.Vec3{-1, 0, 0}) {
		t.Errorf("initial frame = %v", frames[0].Positions)
	}

	written, dropped := rec.Stats()
	if written != 3 || dropped != 0 {
		t.Errorf("Stats() = %d written, %d dropped; want 3/0", written, dropped)
	}
	if rec.RunID() != id {
		t.Errorf("RunID() = %d, want %d", rec.RunID(), id)
	}
}

func TestRecorder_CloseIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecorder(context.Background(), s, 1, 0, nil)
	if err := rec.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestRecorder_ReportsWriteError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Run 77 does not exist, so the foreign key rejects the insert.
	rec := NewRecorder(ctx, s, 77, 1, nil)
	rec.ObserveFrame(&engine.Frame{Tick: 1, Positions: []mgl32.Vec3{{0, 0, 0}}})
	if err := rec.Close(); err == nil {
		t.Error("expected foreign key error from Close()")
	}
}
