package metrics

import (
	"math"

	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/vec"
)

// MomentumDrift is the largest change of total linear momentum, relative to
// the sum of the bodies' momentum magnitudes at the first sample.
// Barnes-Hut forces are not pairwise symmetric, so unlike direct summation
// this does not stay at rounding level.
type MomentumDrift struct {
	name     string
	samples  int
	initial  vec.Vec2
	scale    float64
	maxDrift float64
}

func NewMomentumDrift() *MomentumDrift {
	return &MomentumDrift{name: "momentum_drift"}
}

func (m *MomentumDrift) Name() string { return m.name }

func (m *MomentumDrift) Observe(bodies []physics.Body, t float64) {
	p := physics.Momentum(bodies)
	if m.samples == 0 {
		m.initial = p
		for _, b := range bodies {
			m.scale += b.Mass * b.Vel.Len()
		}
	}
	m.samples++

	if m.scale > 0 {
		m.maxDrift = math.Max(m.maxDrift, p.Sub(m.initial).Len()/m.scale)
	}
}

func (m *MomentumDrift) Value() float64 { return m.maxDrift }

func (m *MomentumDrift) Reset() {
	m.samples = 0
	m.initial = vec.Zero
	m.scale = 0
	m.maxDrift = 0
}

// AngularMomentumDrift is the largest relative change of the total angular
// momentum about the origin.
type AngularMomentumDrift struct {
	name     string
	samples  int
	initial  float64
	maxDrift float64
}

func NewAngularMomentumDrift() *AngularMomentumDrift {
	return &AngularMomentumDrift{name: "angular_momentum_drift"}
}

func (a *AngularMomentumDrift) Name() string { return a.name }

func (a *AngularMomentumDrift) Observe(bodies []physics.Body, t float64) {
	l := physics.AngularMomentum(bodies)
	if a.samples == 0 {
		a.initial = l
	}
	a.samples++

	if a.initial != 0 {
		a.maxDrift = math.Max(a.maxDrift, math.Abs(l-a.initial)/math.Abs(a.initial))
	}
}

func (a *AngularMomentumDrift) Value() float64 { return a.maxDrift }

func (a *AngularMomentumDrift) Reset() {
	a.samples = 0
	a.initial = 0
	a.maxDrift = 0
}
