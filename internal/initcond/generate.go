// Package initcond builds initial body populations: seeded random layouts,
// YAML scenario files, and the precondition check that guards both.
//
// Everything here runs once, before the first tick. The physics core never
// calls back into this package, so randomness stays out of the tick loop.
package initcond

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/nvandessel/gravsim/internal/physics"
)

// Layout names a generator strategy.
type Layout string

const (
	// LayoutCloud scatters bodies uniformly through a ball.
	LayoutCloud Layout = "cloud"

	// LayoutDisk places a heavy body at the origin and puts the rest on
	// circular orbits around it in the XY plane.
	LayoutDisk Layout = "disk"

	// LayoutPair places bodies in mirrored pairs through the origin with
	// opposite velocities. An odd count leaves one body at rest at the origin.
	LayoutPair Layout = "pair"
)

// ValidLayouts lists every layout Generate accepts.
var ValidLayouts = map[Layout]bool{
	LayoutCloud: true,
	LayoutDisk:  true,
	LayoutPair:  true,
}

// maxPlacementAttempts bounds rejection sampling per body.
const maxPlacementAttempts = 1000

// Options controls Generate.
type Options struct {
	Count  int
	Seed   uint64
	Layout Layout

	// Radius bounds the region bodies are placed in.
	Radius float32

	// MinMass and MaxMass bound the uniformly drawn masses.
	MinMass float32
	MaxMass float32

	// Speed is the maximum random speed for cloud and pair layouts.
	Speed float32

	// CentralMass is the mass of the disk layout's central body.
	CentralMass float32

	// G is used to derive circular orbit speeds for the disk layout.
	G float32

	// MinSeparation rejects candidate positions closer than this to an
	// already placed body.
	MinSeparation float32
}

// Generate returns count body specs derived only from opts. The same
// options always produce the same specs.
func Generate(opts Options) ([]physics.Spec, error) {
	if opts.Count < 0 {
		return nil, fmt.Errorf("count must be non-negative, got %d", opts.Count)
	}
	if opts.Radius <= 0 {
		return nil, fmt.Errorf("radius must be positive, got %v", opts.Radius)
	}
	if opts.MinMass <= 0 || opts.MaxMass < opts.MinMass {
		return nil, fmt.Errorf("invalid mass range [%v, %v]", opts.MinMass, opts.MaxMass)
	}

	g := &generator{
		rng:  rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		opts: opts,
	}

	switch opts.Layout {
	case LayoutCloud, "":
		return g.cloud()
	case LayoutDisk:
		return g.disk()
	case LayoutPair:
		return g.pair()
	default:
		return nil, fmt.Errorf("unknown layout: %s", opts.Layout)
	}
}

type generator struct {
	rng    *rand.Rand
	opts   Options
	placed []mgl32.Vec3
}

func (g *generator) cloud() ([]physics.Spec, error) {
	specs := make([]physics.Spec, 0, g.opts.Count)
	for i := 0; i < g.opts.Count; i++ {
		pos, err := g.place(func() mgl32.Vec3 { return g.inBall(g.opts.Radius) })
		if err != nil {
			return nil, fmt.Errorf("placing body %d: %w", i, err)
		}
		specs = append(specs, physics.Spec{
			Mass:     g.mass(),
			Position: pos,
			Velocity: g.inBall(g.opts.Speed),
		})
	}
	return specs, nil
}

func (g *generator) disk() ([]physics.Spec, error) {
	if g.opts.Count == 0 {
		return []physics.Spec{}, nil
	}
	if g.opts.CentralMass <= 0 {
		return nil, fmt.Errorf("disk layout needs a positive central mass, got %v", g.opts.CentralMass)
	}

	specs := make([]physics.Spec, 0, g.opts.Count)
	specs = append(specs, physics.Spec{Mass: g.opts.CentralMass})
	g.placed = append(g.placed, mgl32.Vec3{})

	inner := 0.2 * g.opts.Radius
	for i := 1; i < g.opts.Count; i++ {
		pos, err := g.place(func() mgl32.Vec3 {
			r := inner + g.rng.Float32()*(g.opts.Radius-inner)
			theta := 2 * math.Pi * g.rng.Float64()
			z := (g.rng.Float32()*2 - 1) * 0.01 * g.opts.Radius
			return mgl32.Vec3{r * float32(math.Cos(theta)), r * float32(math.Sin(theta)), z}
		})
		if err != nil {
			return nil, fmt.Errorf("placing body %d: %w", i, err)
		}
		specs = append(specs, physics.Spec{
			Mass:     g.mass(),
			Position: pos,
			Velocity: OrbitalVelocity(mgl32.Vec3{}, pos, g.opts.CentralMass, g.opts.G),
		})
	}
	return specs, nil
}

func (g *generator) pair() ([]physics.Spec, error) {
	specs := make([]physics.Spec, 0, g.opts.Count)
	if g.opts.Count%2 == 1 {
		specs = append(specs, physics.Spec{Mass: g.mass()})
		g.placed = append(g.placed, mgl32.Vec3{})
	}
	for len(specs) < g.opts.Count {
		pos, err := g.placePair()
		if err != nil {
			return nil, fmt.Errorf("placing body %d: %w", len(specs), err)
		}
		m := g.mass()
		v := g.inBall(g.opts.Speed)
		specs = append(specs,
			physics.Spec{Mass: m, Position: pos, Velocity: v},
			physics.Spec{Mass: m, Position: pos.Mul(-1), Velocity: v.Mul(-1)},
		)
	}
	return specs, nil
}

// placePair finds p such that both p and -p are clear of every placed body
// and of each other.
func (g *generator) placePair() (mgl32.Vec3, error) {
	minSq := g.opts.MinSeparation * g.opts.MinSeparation
	for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
		p := g.inBall(g.opts.Radius)
		twice := p.Mul(2)
		if twice == (mgl32.Vec3{}) || twice.Dot(twice) < minSq {
			continue
		}
		if g.clear(p, minSq) && g.clear(p.Mul(-1), minSq) {
			g.placed = append(g.placed, p, p.Mul(-1))
			return p, nil
		}
	}
	return mgl32.Vec3{}, fmt.Errorf("%w: no free mirrored pair after %d attempts (radius %v, min separation %v)",
		ErrCoincidentBodies, maxPlacementAttempts, g.opts.Radius, g.opts.MinSeparation)
}

// place draws candidates until one keeps MinSeparation from every body
// placed so far, then records it.
func (g *generator) place(draw func() mgl32.Vec3) (mgl32.Vec3, error) {
	minSq := g.opts.MinSeparation * g.opts.MinSeparation
	for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
		p := draw()
		if g.clear(p, minSq) {
			g.placed = append(g.placed, p)
			return p, nil
		}
	}
	return mgl32.Vec3{}, fmt.Errorf("%w: no free position after %d attempts (radius %v, min separation %v)",
		ErrCoincidentBodies, maxPlacementAttempts, g.opts.Radius, g.opts.MinSeparation)
}

func (g *generator) clear(p mgl32.Vec3, minSq float32) bool {
	for _, q := range g.placed {
		d := p.Sub(q)
		// Exact coincidence is rejected even with MinSeparation 0.
		if d == (mgl32.Vec3{}) || d.Dot(d) < minSq {
			return false
		}
	}
	return true
}

func (g *generator) mass() float32 {
	return g.opts.MinMass + g.rng.Float32()*(g.opts.MaxMass-g.opts.MinMass)
}

// inBall returns a point uniformly distributed in a ball of radius r.
func (g *generator) inBall(r float32) mgl32.Vec3 {
	if r == 0 {
		return mgl32.Vec3{}
	}
	for {
		p := mgl32.Vec3{
			g.rng.Float32()*2 - 1,
			g.rng.Float32()*2 - 1,
			g.rng.Float32()*2 - 1,
		}
		if p.Dot(p) <= 1 {
			return p.Mul(r)
		}
	}
}

// OrbitalVelocity returns the velocity of a circular orbit in the XY plane
// around a body of mass m at center. Under the core's G*m/r pull the
// circular speed is sqrt(G*m), independent of radius.
func OrbitalVelocity(center, pos mgl32.Vec3, m, g float32) mgl32.Vec3 {
	dx := pos[0] - center[0]
	dy := pos[1] - center[1]
	r := float32(math.Hypot(float64(dx), float64(dy)))
	if r == 0 {
		return mgl32.Vec3{}
	}
	v := float32(math.Sqrt(float64(g * m)))
	return mgl32.Vec3{-dy / r * v, dx / r * v, 0}
}
