package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/gravsim/internal/export"
	"github.com/nvandessel/gravsim/internal/logging"
	"github.com/nvandessel/gravsim/internal/store"
)

func TestNewRunCmd(t *testing.T) {
	cmd := newRunCmd()
	if cmd.Use != "run" {
		t.Errorf("Use = %q, want %q", cmd.Use, "run")
	}
	for _, flag := range []string{"max-ticks", "tick-period", "metrics-addr", "stream-addr", "record", "record-every", "memcache", "count", "seed", "layout", "scenario", "workers"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}

// TestRecordListExportWorkflow records a short run, lists it and exports it.
func TestRecordListExportWorkflow(t *testing.T) {
	dir := t.TempDir()
	isolateHome(t, dir)
	scenario := writeScenario(t, dir)
	db := filepath.Join(dir, "runs.db")

	_, err := execute(t, []string{
		"run",
		"--scenario", scenario,
		"--max-ticks", "5",
		"--tick-period", "1ms",
		"--record", db,
		"--record-every", "1",
	}, newRunCmd())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	out, err := execute(t, []string{"runs", "--db", db, "--json"}, newRunsCmd())
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	var runs []store.Run
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.Name != "two-body" || run.BodyCount != 2 {
		t.Errorf("run = %+v", run)
	}
	// Frame 0 plus ticks 1..5.
	if run.Frames != 6 || run.LastTick != 5 {
		t.Errorf("frames=%d last_tick=%d, want 6 and 5", run.Frames, run.LastTick)
	}

	text, err := execute(t, []string{"runs", "--db", db}, newRunsCmd())
	if err != nil {
		t.Fatalf("runs text: %v", err)
	}
	if !strings.Contains(text, "two-body") {
		t.Errorf("runs output missing run name:\n%s", text)
	}

	arrowPath := filepath.Join(dir, "run.arrow")
	id := strconv.FormatInt(run.ID, 10)
	if _, err := execute(t, []string{"export", "--db", db, "--run", id, "--out", arrowPath}, newExportCmd()); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := os.Open(arrowPath)
	if err != nil {
		t.Fatalf("opening export: %v", err)
	}
	defer f.Close()
	traj, err := export.ReadArrow(f)
	if err != nil {
		t.Fatalf("ReadArrow: %v", err)
	}
	if traj.Name != "two-body" || len(traj.Frames) != 6 || len(traj.Masses) != 2 {
		t.Errorf("trajectory name=%q frames=%d masses=%d", traj.Name, len(traj.Frames), len(traj.Masses))
	}
	if traj.Params.DT != 0.01 {
		t.Errorf("dt = %v, want 0.01", traj.Params.DT)
	}

	if _, err := execute(t, []string{"runs", "delete", id, "--db", db}, newRunsCmd()); err != nil {
		t.Fatalf("runs delete: %v", err)
	}
	out, err = execute(t, []string{"runs", "--db", db, "--json"}, newRunsCmd())
	if err != nil {
		t.Fatalf("runs after delete: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("runs after delete = %q, want []", out)
	}
}

func TestRunsCmd_MissingDatabase(t *testing.T) {
	dir := t.TempDir()
	isolateHome(t, dir)

	_, err := execute(t, []string{"runs", "--db", filepath.Join(dir, "absent.db")}, newRunsCmd())
	if err == nil || !strings.Contains(err.Error(), "no trajectory database") {
		t.Errorf("err = %v, want missing database error", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "absent.db")); !os.IsNotExist(err) {
		t.Error("listing created the database")
	}
}

func TestExportCmd_RequiresRun(t *testing.T) {
	isolateHome(t, t.TempDir())
	if _, err := execute(t, []string{"export"}, newExportCmd()); err == nil {
		t.Error("expected error without --run")
	}
}

func TestServeHTTP_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	serveHTTP(gctx, g, "test", "127.0.0.1:0", http.NotFoundHandler(), logging.Discard())
	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly-10", 10, "exactly-10"},
		{"much-longer-name", 10, "much-lo..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
