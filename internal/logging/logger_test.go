package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/gravsim/internal/constants"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Trace", "Trace", LevelTrace},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtTrace bool
	}{
		{"info filters debug", "info", false, false},
		{"debug passes debug", "debug", true, false},
		{"trace passes everything", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, constants.LogFormatText, &buf)

			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v (buf: %q)", got, tt.logAtDebug, buf.String())
			}

			buf.Reset()
			logger.Log(t.Context(), LevelTrace, "trace message")
			if got := strings.Contains(buf.String(), "trace message"); got != tt.logAtTrace {
				t.Errorf("trace message visible = %v, want %v (buf: %q)", got, tt.logAtTrace, buf.String())
			}
			if tt.logAtTrace && !strings.Contains(buf.String(), "level=TRACE") {
				t.Errorf("trace level not labelled: %q", buf.String())
			}
		})
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", constants.LogFormatJSON, &buf)
	logger.Info("tick committed", "tick", 42)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "tick committed" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["tick"] != float64(42) {
		t.Errorf("tick = %v", entry["tick"])
	}
}

func TestDiscard(t *testing.T) {
	// Must not panic and must not be nil.
	l := Discard()
	if l == nil {
		t.Fatal("Discard returned nil")
	}
	l.Error("dropped")
}

func TestNewTickTracer_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	tt := NewTickTracer(dir, "info")
	if tt != nil {
		t.Error("expected nil TickTracer at info level")
	}

	// Nil tracer should still be safe to use
	tt.Log(map[string]any{"tick": 1})
	tt.Close()

	if _, err := os.Stat(filepath.Join(dir, constants.TraceFileName)); err == nil {
		t.Error("trace file should not exist at info level")
	}
}

func TestNewTickTracer_DebugLevel(t *testing.T) {
	dir := t.TempDir()
	tt := NewTickTracer(dir, "debug")
	defer tt.Close()

	tt.Log(map[string]any{"tick": 10, "momentum": 0.5})
	tt.Log(map[string]any{"tick": 20})

	data, err := os.ReadFile(filepath.Join(dir, constants.TraceFileName))
	if err != nil {
		t.Fatalf("failed to read trace: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("failed to parse line: %v", err)
	}
	if first["tick"] != float64(10) || first["momentum"] != 0.5 {
		t.Errorf("first entry = %v", first)
	}
	if _, ok := first["time"]; !ok {
		t.Error("expected 'time' field in trace entry")
	}
}

func TestTickTracer_DoesNotMutateCallerMap(t *testing.T) {
	tt := NewTickTracer(t.TempDir(), "trace")
	defer tt.Close()

	event := map[string]any{"tick": 1}
	tt.Log(event)
	if _, ok := event["time"]; ok {
		t.Error("Log() should not mutate caller's map")
	}
}

func TestTickTracer_LogAfterClose(t *testing.T) {
	tt := NewTickTracer(t.TempDir(), "debug")
	tt.Close()
	// Should be a no-op, not panic
	tt.Log(map[string]any{"tick": 1})
	tt.Close()
}

func TestNewTickTracer_CreatesDirWithPermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "dir")
	tt := NewTickTracer(dir, "debug")
	if tt == nil {
		t.Fatal("expected non-nil TickTracer when dir needs creation")
	}
	defer tt.Close()
	tt.Log(map[string]any{"tick": 1})

	info, err := os.Stat(filepath.Join(dir, constants.TraceFileName))
	if err != nil {
		t.Fatalf("trace file should exist: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permissions = %o, want 0600", perm)
	}
}
