// Package export converts recorded trajectories to Apache Arrow IPC streams
// for analysis in columnar tools.
//
// The stream holds one record batch per frame with the columns
// tick (int64), body (int32), x, y, z and mass (float32). Run
// metadata (name, g, dt) travels in the schema metadata.
package export

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/nvandessel/gravsim/internal/physics"
	"github.com/nvandessel/gravsim/internal/store"
)

const (
	metaName = "gravsim.name"
	metaG    = "gravsim.g"
	metaDT   = "gravsim.dt"
)

// Trajectory is a run in exportable form.
type Trajectory struct {
	Name   string
	Params physics.Params
	Masses []float32
	Frames []store.RecordedFrame
}

// FromStore loads a recorded run.
func FromStore(ctx context.Context, s *store.TrajectoryStore, runID int64) (*Trajectory, error) {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	masses, err := s.Masses(ctx, runID)
	if err != nil {
		return nil, err
	}
	frames, err := s.Frames(ctx, runID)
	if err != nil {
		return nil, err
	}
	return &Trajectory{Name: run.Name, Params: run.Params, Masses: masses, Frames: frames}, nil
}

// Schema returns the Arrow schema for a trajectory.
func Schema(t *Trajectory) *arrow.Schema {
	md := arrow.NewMetadata(
		[]string{metaName, metaG, metaDT},
		[]string{
			t.Name,
			strconv.FormatFloat(float64(t.Params.G), 'g', -1, 32),
			strconv.FormatFloat(float64(t.Params.DT), 'g', -1, 32),
		},
	)
	return arrow.NewSchema([]arrow.Field{
		{Name: "tick", Type: arrow.PrimitiveTypes.Int64},
		{Name: "body", Type: arrow.PrimitiveTypes.Int32},
		{Name: "x", Type: arrow.PrimitiveTypes.Float32},
		{Name: "y", Type: arrow.PrimitiveTypes.Float32},
		{Name: "z", Type: arrow.PrimitiveTypes.Float32},
		{Name: "mass", Type: arrow.PrimitiveTypes.Float32},
	}, &md)
}

// WriteArrow writes t to w as an Arrow IPC stream.
func WriteArrow(w io.Writer, t *Trajectory) error {
	mem := memory.NewGoAllocator()
	schema := Schema(t)

	writer := ipc.NewWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for _, f := range t.Frames {
		if len(f.Positions) != len(t.Masses) {
			writer.Close()
			return fmt.Errorf("frame %d has %d positions for %d bodies", f.Tick, len(f.Positions), len(t.Masses))
		}

		ticks := b.Field(0).(*array.Int64Builder)
		bodies := b.Field(1).(*array.Int32Builder)
		xs := b.Field(2).(*array.Float32Builder)
		ys := b.Field(3).(*array.Float32Builder)
		zs := b.Field(4).(*array.Float32Builder)
		ms := b.Field(5).(*array.Float32Builder)

		for i, p := range f.Positions {
			ticks.Append(int64(f.Tick))
			bodies.Append(int32(i))
			xs.Append(p[0])
			ys.Append(p[1])
			zs.Append(p[2])
			ms.Append(t.Masses[i])
		}

		rec := b.NewRecord()
		err := writer.Write(rec)
		rec.Release()
		if err != nil {
			writer.Close()
			return fmt.Errorf("writing frame %d: %w", f.Tick, err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing arrow stream: %w", err)
	}
	return nil
}

// ReadArrow reads a stream written by WriteArrow.
func ReadArrow(r io.Reader) (*Trajectory, error) {
	mem := memory.NewGoAllocator()
	reader, err := ipc.NewReader(r, ipc.WithAllocator(mem))
	if err != nil {
		return nil, fmt.Errorf("opening arrow stream: %w", err)
	}
	defer reader.Release()

	t := &Trajectory{}
	if err := readMetadata(reader.Schema(), t); err != nil {
		return nil, err
	}

	for reader.Next() {
		rec := reader.Record()
		if rec.NumCols() != 6 {
			return nil, fmt.Errorf("unexpected column count %d", rec.NumCols())
		}

		ticks, ok1 := rec.Column(0).(*array.Int64)
		bodies, ok2 := rec.Column(1).(*array.Int32)
		xs, ok3 := rec.Column(2).(*array.Float32)
		ys, ok4 := rec.Column(3).(*array.Float32)
		zs, ok5 := rec.Column(4).(*array.Float32)
		ms, ok6 := rec.Column(5).(*array.Float32)
		if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6) {
			return nil, fmt.Errorf("unexpected column types in schema %s", rec.Schema())
		}

		n := int(rec.NumRows())
		if n == 0 {
			continue
		}
		if t.Masses == nil {
			t.Masses = make([]float32, n)
			for i := 0; i < n; i++ {
				t.Masses[i] = ms.Value(i)
			}
		}
		if n != len(t.Masses) {
			return nil, fmt.Errorf("batch has %d rows for %d bodies", n, len(t.Masses))
		}

		frame := store.RecordedFrame{
			Tick:      uint64(ticks.Value(0)),
			Positions: make([]mgl32.Vec3, n),
		}
		for i := 0; i < n; i++ {
			body := int(bodies.Value(i))
			if body < 0 || body >= n {
				return nil, fmt.Errorf("tick %d: body index %d out of range", frame.Tick, body)
			}
			frame.Positions[body] = mgl32.Vec3{xs.Value(i), ys.Value(i), zs.Value(i)}
		}
		t.Frames = append(t.Frames, frame)
	}
	if err := reader.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading arrow stream: %w", err)
	}
	return t, nil
}

func readMetadata(schema *arrow.Schema, t *Trajectory) error {
	md := schema.Metadata()
	get := func(key string) string {
		if i := md.FindKey(key); i >= 0 {
			return md.Values()[i]
		}
		return ""
	}

	t.Name = get(metaName)
	for _, f := range []struct {
		key string
		dst *float32
	}{{metaG, &t.Params.G}, {metaDT, &t.Params.DT}} {
		v := get(f.key)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("parsing %s metadata %q: %w", f.key, v, err)
		}
		*f.dst = float32(x)
	}
	return nil
}
