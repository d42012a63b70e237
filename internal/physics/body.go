package physics

import (
	"image/color"
	"math"

	"github.com/san-kum/gravsim/internal/vec"
)

// Body is one point mass. Radius and Color are presentation only and never
// enter the dynamics.
type Body struct {
	Pos  vec.Vec2 `yaml:"pos"`
	Vel  vec.Vec2 `yaml:"vel"`
	Acc  vec.Vec2 `yaml:"-"`
	Mass float64  `yaml:"mass"`

	Radius float64    `yaml:"radius"`
	Color  color.RGBA `yaml:"-"`
}

func NewBody(mass float64, pos, vel vec.Vec2) Body {
	return Body{
		Pos:    pos,
		Vel:    vel,
		Mass:   mass,
		Radius: RadiusForMass(mass),
		Color:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Kick advances the velocity by the current acceleration over dt.
func (b *Body) Kick(dt float64) {
	b.Vel = b.Vel.Add(b.Acc.Mul(dt))
}

// Drift advances the position by the current velocity over dt.
func (b *Body) Drift(dt float64) {
	b.Pos = b.Pos.Add(b.Vel.Mul(dt))
}

// ApplyForce accumulates f/m into the acceleration. Tracers and bodies with
// a non-positive mass are left untouched.
func (b *Body) ApplyForce(f vec.Vec2) {
	if b.Mass <= 0 {
		return
	}
	b.Acc = b.Acc.Add(f.Div(b.Mass))
}

func (b Body) IsTracer() bool { return b.Mass == 0 }

// IsValid reports whether the dynamical state is finite and the mass is
// usable.
func (b Body) IsValid() bool {
	if math.IsNaN(b.Mass) || math.IsInf(b.Mass, 0) || b.Mass < 0 {
		return false
	}
	return b.Pos.IsFinite() && b.Vel.IsFinite() && b.Acc.IsFinite()
}

func (b Body) KineticEnergy() float64 {
	return 0.5 * b.Mass * b.Vel.LenSq()
}

// RadiusForMass maps a mass onto a display radius in AU, growing with the
// decimal exponent of the mass.
func RadiusForMass(m float64) float64 {
	if m <= 0 {
		return 0.01
	}
	r := 0.02 + 0.005*(math.Log10(m)+8.0)
	return math.Max(r, 0.01)
}
