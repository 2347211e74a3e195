package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/gravsim/internal/physics"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// RunInfo describes a run at creation time.
type RunInfo struct {
	Name   string
	Params physics.Params
	Seed   uint64
	Layout string
}

// Run is a recorded run as listed by Runs.
type Run struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Params    physics.Params `json:"params"`
	BodyCount int            `json:"body_count"`
	Seed      uint64         `json:"seed"`
	Layout    string         `json:"layout,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Frames    int            `json:"frames"`
	LastTick  uint64         `json:"last_tick"`
}

// RecordedFrame is one sampled tick of a run.
type RecordedFrame struct {
	Tick      uint64       `json:"tick"`
	Positions []mgl32.Vec3 `json:"positions"`
}

// TrajectoryStore persists sampled trajectories in a SQLite database.
type TrajectoryStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the trajectory database at path.
func Open(path string) (*TrajectoryStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &TrajectoryStore{db: db, dbPath: path}, nil
}

// Path returns the database file path.
func (s *TrajectoryStore) Path() string {
	return s.dbPath
}

// CreateRun registers a new run with its fixed masses and returns its ID.
func (s *TrajectoryStore) CreateRun(ctx context.Context, info RunInfo, masses []float32) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (name, g, dt, body_count, seed, layout, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		info.Name, float64(info.Params.G), float64(info.Params.DT), len(masses),
		int64(info.Seed), info.Layout, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bodies (run_id, body, mass) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare body insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range masses {
		if _, err := stmt.ExecContext(ctx, id, i, float64(m)); err != nil {
			return 0, fmt.Errorf("failed to insert body %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return id, nil
}

// AppendFrame stores the positions of one tick. Positions must be indexed
// by body, in the same order as the masses given to CreateRun.
func (s *TrajectoryStore) AppendFrame(ctx context.Context, runID int64, tick uint64, positions []mgl32.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO positions (run_id, tick, body, x, y, z) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare position insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range positions {
		if _, err := stmt.ExecContext(ctx, runID, int64(tick), i, coord(p[0]), coord(p[1]), coord(p[2])); err != nil {
			return fmt.Errorf("failed to insert position (tick %d, body %d): %w", tick, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit frame %d: %w", tick, err)
	}
	return nil
}

// coord maps NaN to NULL so it survives the round trip.
func coord(v float32) sql.NullFloat64 {
	if math.IsNaN(float64(v)) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(v), Valid: true}
}

func uncoord(v sql.NullFloat64) float32 {
	if !v.Valid {
		return float32(math.NaN())
	}
	return float32(v.Float64)
}

// Frames returns every recorded frame of a run in tick order.
func (s *TrajectoryStore) Frames(ctx context.Context, runID int64) ([]RecordedFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bodyCount int
	err := s.db.QueryRowContext(ctx, `SELECT body_count FROM runs WHERE id = ?`, runID).Scan(&bodyCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up run %d: %w", runID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, body, x, y, z FROM positions WHERE run_id = ? ORDER BY tick, body`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var frames []RecordedFrame
	for rows.Next() {
		var (
			tick    int64
			body    int
			x, y, z sql.NullFloat64
		)
		if err := rows.Scan(&tick, &body, &x, &y, &z); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if len(frames) == 0 || frames[len(frames)-1].Tick != uint64(tick) {
			frames = append(frames, RecordedFrame{
				Tick:      uint64(tick),
				Positions: make([]mgl32.Vec3, bodyCount),
			})
		}
		if body < 0 || body >= bodyCount {
			return nil, fmt.Errorf("run %d tick %d: body index %d out of range", runID, tick, body)
		}
		frames[len(frames)-1].Positions[body] = mgl32.Vec3{uncoord(x), uncoord(y), uncoord(z)}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate positions: %w", err)
	}
	return frames, nil
}

// Masses returns the body masses of a run, indexed by body.
func (s *TrajectoryStore) Masses(ctx context.Context, runID int64) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT mass FROM bodies WHERE run_id = ? ORDER BY body`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query masses: %w", err)
	}
	defer rows.Close()

	var masses []float32
	for rows.Next() {
		var m float64
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("failed to scan mass: %w", err)
		}
		masses = append(masses, float32(m))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate masses: %w", err)
	}
	if len(masses) == 0 {
		if _, err := s.runLocked(ctx, runID); err != nil {
			return nil, err
		}
	}
	return masses, nil
}

const runColumns = `r.id, r.name, r.g, r.dt, r.body_count, r.seed, r.layout, r.created_at,
    (SELECT COUNT(DISTINCT tick) FROM positions p WHERE p.run_id = r.id),
    (SELECT COALESCE(MAX(tick), 0) FROM positions p WHERE p.run_id = r.id)`

// Runs lists every recorded run, newest first.
func (s *TrajectoryStore) Runs(ctx context.Context) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

// Run returns a single run by ID.
func (s *TrajectoryStore) Run(ctx context.Context, runID int64) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runLocked(ctx, runID)
}

func (s *TrajectoryStore) runLocked(ctx context.Context, runID int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r         Run
		g, dt     float64
		seed      sql.NullInt64
		layout    sql.NullString
		createdAt string
		lastTick  int64
	)
	if err := sc.Scan(&r.ID, &r.Name, &g, &dt, &r.BodyCount, &seed, &layout, &createdAt, &r.Frames, &lastTick); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("failed to scan run: %w", err)
	}
	r.Params = physics.Params{G: float32(g), DT: float32(dt)}
	r.Seed = uint64(seed.Int64)
	r.Layout = layout.String
	r.LastTick = uint64(lastTick)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		r.CreatedAt = t
	}
	return r, nil
}

// DeleteRun removes a run and all of its frames.
func (s *TrajectoryStore) DeleteRun(ctx context.Context, runID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run %d: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d: %w", runID, ErrRunNotFound)
	}
	return nil
}

// Close closes the database.
func (s *TrajectoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
