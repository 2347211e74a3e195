package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/logging"
)

// recorderQueue bounds how many sampled frames may wait for the writer.
const recorderQueue = 256

// Recorder is an engine observer that writes every Nth frame to a
// TrajectoryStore. Writes happen on a background goroutine so the tick
// never waits on SQLite; if the writer falls behind, frames are dropped
// and counted.
type Recorder struct {
	store *TrajectoryStore
	runID int64
	every uint64

	queue  chan *engine.Frame
	wg     sync.WaitGroup
	once   sync.Once
	logger *slog.Logger

	mu  sync.Mutex
	err error

	written atomic.Uint64
	dropped atomic.Uint64
}

// NewRecorder starts a recorder for runID. every <= 0 records every frame.
func NewRecorder(ctx context.Context, s *TrajectoryStore, runID int64, every int, logger *slog.Logger) *Recorder {
	if every <= 0 {
		every = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	r := &Recorder{
		store:  s,
		runID:  runID,
		every:  uint64(every),
		queue:  make(chan *engine.Frame, recorderQueue),
		logger: logger,
	}
	r.wg.Add(1)
	go r.write(ctx)
	return r
}

func (r *Recorder) write(ctx context.Context) {
	defer r.wg.Done()
	for f := range r.queue {
		if err := r.store.AppendFrame(ctx, r.runID, f.Tick, f.Positions); err != nil {
			r.mu.Lock()
			if r.err == nil {
				r.err = err
				r.logger.Error("recording frame failed", "run", r.runID, "tick", f.Tick, "error", err)
			}
			r.mu.Unlock()
			continue
		}
		r.written.Add(1)
	}
}

// ObserveFrame implements engine.Observer.
func (r *Recorder) ObserveFrame(f *engine.Frame) {
	if f.Tick%r.every != 0 {
		return
	}
	select {
	case r.queue <- f:
	default:
		if r.dropped.Add(1) == 1 {
			r.logger.Warn("recorder falling behind, dropping frames", "run", r.runID, "tick", f.Tick)
		}
	}
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() int64 {
	return r.runID
}

// Stats returns the number of frames written and dropped so far.
func (r *Recorder) Stats() (written, dropped uint64) {
	return r.written.Load(), r.dropped.Load()
}

// Close flushes queued frames and returns the first write error, if any.
// ObserveFrame must not be called after Close.
func (r *Recorder) Close() error {
	r.once.Do(func() { close(r.queue) })
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
