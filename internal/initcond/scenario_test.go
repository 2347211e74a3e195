package initcond

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

const binaryScenario = `name: binary
dt: 0.02
bodies:
  - mass: 1
    position: [-1, 0, 0]
    velocity: [0, -0.5, 0]
  - mass: 1
    position: [1, 0, 0]
    velocity: [0, 0.5, 0]
`

func TestLoadScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binary.yaml")
	if err := os.WriteFile(path, []byte(binaryScenario), 0644); err != nil {
		t.Fatal(err)
	}

	sc, err := LoadScenario(path, 2)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.Name != "binary" {
		t.Errorf("Name = %q", sc.Name)
	}
	if sc.G != 2 {
		t.Errorf("G = %v, want fallback 2", sc.G)
	}
	if sc.DT != 0.02 {
		t.Errorf("DT = %v, want 0.02", sc.DT)
	}
	if len(sc.Bodies) != 2 {
		t.Fatalf("len(Bodies) = %d", len(sc.Bodies))
	}
	if sc.Bodies[1].Position != (mgl32.Vec3{1, 0, 0}) || sc.Bodies[1].Velocity != (mgl32.Vec3{0, 0.5, 0}) {
		t.Errorf("body 1 = %+v", sc.Bodies[1])
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	if _, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"), 1); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseScenario_Errors(t *testing.T) {
	const oneBody = "bodies:\n  - mass: 1\n    position: [0, 0, 0]\n"

	tests := []struct {
		name string
		data string
		is   error
	}{
		{"invalid yaml", "bodies: [", nil},
		{"no bodies", "name: empty\n", nil},
		{"zero mass", "bodies:\n  - mass: 0\n    position: [0, 0, 0]\n", ErrNonPositiveMass},
		{
			"coincident",
			"bodies:\n  - mass: 1\n    position: [1, 1, 1]\n  - mass: 1\n    position: [1, 1, 1]\n",
			ErrCoincidentBodies,
		},
		{"negative g", "g: -1\n" + oneBody, ErrInvalidParams},
		{"nan g", "g: .nan\n" + oneBody, ErrInvalidParams},
		{"infinite g", "g: .inf\n" + oneBody, ErrInvalidParams},
		{"negative dt", "dt: -0.01\n" + oneBody, ErrInvalidParams},
		{"nan dt", "dt: .nan\n" + oneBody, ErrInvalidParams},
		{"infinite dt", "dt: .inf\n" + oneBody, ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.data), 1)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("error = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestParseScenario_AutoOrbit(t *testing.T) {
	data := `name: system
g: 1
auto_orbit: true
bodies:
  - mass: 4
    position: [0, 0, 0]
  - mass: 0.1
    position: [2, 0, 0]
  - mass: 0.1
    position: [0, 3, 0]
    velocity: [1, 1, 1]
`
	sc, err := ParseScenario([]byte(data), 5)
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if sc.G != 1 {
		t.Errorf("G = %v, want file value 1", sc.G)
	}
	if want := (mgl32.Vec3{0, 2, 0}); !sc.Bodies[1].Velocity.ApproxEqual(want) {
		t.Errorf("orbiter velocity = %v, want %v", sc.Bodies[1].Velocity, want)
	}
	if want := (mgl32.Vec3{1, 1, 1}); sc.Bodies[2].Velocity != want {
		t.Errorf("explicit velocity overwritten: %v", sc.Bodies[2].Velocity)
	}
	if sc.Bodies[0].Velocity != (mgl32.Vec3{}) {
		t.Errorf("central body should stay at rest, got %v", sc.Bodies[0].Velocity)
	}
}

func TestParseScenario_ZeroParamsDefer(t *testing.T) {
	sc, err := ParseScenario([]byte("bodies:\n  - mass: 1\n    position: [0, 0, 0]\n"), 3)
	if err != nil {
		t.Fatalf("ParseScenario: %v", err)
	}
	if sc.G != 3 || sc.DT != 0 {
		t.Errorf("G = %v, DT = %v, want fallback g 3 and deferred dt 0", sc.G, sc.DT)
	}
}
