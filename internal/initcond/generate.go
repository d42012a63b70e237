package initcond

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"math/rand"

	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/vec"
)

const (
	KindRandom = "random"
	KindDisk   = "disk"
	KindSolar  = "solar"
	KindKepler = "kepler"
	KindFile   = "file"
)

var ErrUnknownKind = errors.New("initcond: unknown kind")

// Spec selects and parameterizes a generator.
type Spec struct {
	Kind        string  `yaml:"kind" mapstructure:"kind"`
	Count       int     `yaml:"count" mapstructure:"count"`
	CentralMass float64 `yaml:"central_mass" mapstructure:"central_mass"`
	Radius      float64 `yaml:"radius" mapstructure:"radius"`
	File        string  `yaml:"file,omitempty" mapstructure:"file"`
}

func Kinds() []string {
	return []string{KindDisk, KindFile, KindKepler, KindRandom, KindSolar}
}

// Generate builds the bodies described by spec, seeding random generators
// with seed.
func Generate(spec Spec, seed int64) ([]physics.Body, error) {
	rng := rand.New(rand.NewSource(seed))

	switch spec.Kind {
	case KindRandom:
		return RandomSystem(rng, spec.Count, spec.CentralMass, spec.Radius), nil
	case KindDisk:
		return Disk(rng, spec.Count, spec.Radius, spec.CentralMass), nil
	case KindSolar:
		return Solar(), nil
	case KindKepler:
		mass := spec.CentralMass
		if mass <= 0 {
			mass = 1
		}
		return Kepler(mass), nil
	case KindFile:
		return LoadFile(spec.File)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
}

const (
	minBodyMass = 1e-8
	maxBodyMass = 1e-3

	// orbiting bodies start no closer than this fraction of the radius
	innerFraction = 0.1

	diskParticleMass = 1e-6
)

var (
	sunColor   = color.RGBA{R: 253, G: 249, B: 0, A: 255}
	earthColor = color.RGBA{R: 0, G: 121, B: 241, A: 255}
	marsColor  = color.RGBA{R: 230, G: 41, B: 55, A: 255}
)

func randomColor(rng *rand.Rand) color.RGBA {
	return color.RGBA{
		R: uint8(64 + rng.Intn(192)),
		G: uint8(64 + rng.Intn(192)),
		B: uint8(64 + rng.Intn(192)),
		A: 255,
	}
}

// logUniform draws from [lo, hi) with a uniform decimal exponent.
func logUniform(rng *rand.Rand, lo, hi float64) float64 {
	a, b := math.Log10(lo), math.Log10(hi)
	return math.Pow(10, a+rng.Float64()*(b-a))
}

func star(mass float64) physics.Body {
	b := physics.NewBody(mass, vec.Zero, vec.Zero)
	b.Color = sunColor
	return b
}

// orbiting places a body of mass m at distance r and angle phi on a
// circular orbit around a central mass.
func orbiting(m, central, r, phi float64) physics.Body {
	dir := vec.New(math.Cos(phi), math.Sin(phi))
	speed := physics.CircularSpeed(central, r)
	vel := vec.New(-dir.Y, dir.X).Mul(speed)
	return physics.NewBody(m, dir.Mul(r), vel)
}

// RandomSystem places n bodies with log-uniform masses inside radius AU.
// With centralMass > 0 a star sits at the origin, counted in n, and the
// others start on circular orbits around it; otherwise the bodies start with
// small random velocities.
func RandomSystem(rng *rand.Rand, n int, centralMass, radius float64) []physics.Body {
	if n <= 0 {
		return nil
	}
	if radius <= 0 {
		radius = 5
	}

	bodies := make([]physics.Body, 0, n)
	if centralMass > 0 {
		bodies = append(bodies, star(centralMass))
	}

	for len(bodies) < n {
		m := logUniform(rng, minBodyMass, maxBodyMass)
		r := radius * (innerFraction + (1-innerFraction)*rng.Float64())
		phi := 2 * math.Pi * rng.Float64()

		var b physics.Body
		if centralMass > 0 {
			b = orbiting(m, centralMass, r, phi)
		} else {
			pos := vec.New(r*math.Cos(phi), r*math.Sin(phi))
			vel := vec.New(rng.NormFloat64(), rng.NormFloat64()).Mul(0.1)
			b = physics.NewBody(m, pos, vel)
		}
		b.Color = randomColor(rng)
		bodies = append(bodies, b)
	}
	return bodies
}

// Disk builds a rotating disk of n light particles, uniform in area, around
// a central mass. Orbital speeds include the particle mass enclosed by each
// radius.
func Disk(rng *rand.Rand, n int, radius, centralMass float64) []physics.Body {
	if n <= 0 {
		return nil
	}
	if radius <= 0 {
		radius = 5
	}
	if centralMass <= 0 {
		centralMass = 1
	}

	bodies := make([]physics.Body, 0, n)
	bodies = append(bodies, star(centralMass))

	particles := n - 1
	radii := make([]float64, particles)
	for i := range radii {
		u := innerFraction*innerFraction + (1-innerFraction*innerFraction)*rng.Float64()
		radii[i] = radius * math.Sqrt(u)
	}

	for _, r := range radii {
		// expected particle mass inside r for an area-uniform disk
		inside := float64(particles) * diskParticleMass * (r * r) / (radius * radius)
		b := orbiting(diskParticleMass, centralMass+inside, r, 2*math.Pi*rng.Float64())
		b.Color = randomColor(rng)
		bodies = append(bodies, b)
	}
	return bodies
}

// Solar returns the Sun, Earth and Mars on near-circular orbits.
func Solar() []physics.Body {
	sun := star(1.0)

	earth := physics.NewBody(3.0e-6, vec.New(1.0, 0), vec.New(0, 2*math.Pi))
	earth.Color = earthColor

	mars := physics.NewBody(3.2e-7, vec.New(1.52, 0), vec.New(0, 5.08))
	mars.Color = marsColor

	return []physics.Body{sun, earth, mars}
}

// Kepler returns a star of the given mass and an Earth-mass planet on a
// circular orbit at 1 AU.
func Kepler(mass float64) []physics.Body {
	planet := orbiting(3.0e-6, mass, 1, 0)
	planet.Color = earthColor
	return []physics.Body{star(mass), planet}
}
