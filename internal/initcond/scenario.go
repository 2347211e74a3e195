package initcond

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/gravsim/internal/physics"
)

// ScenarioFile is a hand-written initial population.
//
//	name: binary
//	g: 1.0
//	dt: 0.01
//	bodies:
//	  - mass: 1
//	    position: [-1, 0, 0]
//	    velocity: [0, -0.5, 0]
//	  - mass: 1
//	    position: [1, 0, 0]
//	    velocity: [0, 0.5, 0]
//
// G and DT are optional; zero values defer to the run configuration.
type ScenarioFile struct {
	Name string  `yaml:"name"`
	G    float32 `yaml:"g,omitempty"`
	DT   float32 `yaml:"dt,omitempty"`

	// AutoOrbit gives every body after the first that has no velocity a
	// circular orbit around the first body.
	AutoOrbit bool `yaml:"auto_orbit,omitempty"`

	Bodies []physics.Spec `yaml:"bodies"`
}

// LoadScenario reads and checks a YAML scenario. g is the run's
// gravitational constant, used when the file does not set its own and
// auto_orbit needs one.
func LoadScenario(path string, g float32) (*ScenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	return ParseScenario(data, g)
}

// ParseScenario decodes a scenario from YAML bytes.
func ParseScenario(data []byte, g float32) (*ScenarioFile, error) {
	var sc ScenarioFile
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if len(sc.Bodies) == 0 {
		return nil, fmt.Errorf("scenario %q has no bodies", sc.Name)
	}
	if sc.G == 0 {
		sc.G = g
	}
	if err := checkG(sc.G); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	// Zero dt defers to the run configuration.
	if sc.DT != 0 {
		if err := checkDT(sc.DT); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
	}
	if sc.AutoOrbit {
		SetOrbitalVelocities(sc.Bodies, sc.G)
	}
	if err := CheckPreconditions(sc.Bodies); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return &sc, nil
}

// SetOrbitalVelocities treats specs[0] as the central body and assigns a
// circular orbital velocity to every other spec whose velocity is zero.
func SetOrbitalVelocities(specs []physics.Spec, g float32) {
	if len(specs) == 0 {
		return
	}
	central := specs[0]
	for i := 1; i < len(specs); i++ {
		if specs[i].Velocity != (mgl32.Vec3{}) {
			continue
		}
		specs[i].Velocity = OrbitalVelocity(central.Position, specs[i].Position, central.Mass, g).
			Add(central.Velocity)
	}
}
