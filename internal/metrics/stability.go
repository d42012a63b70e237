package metrics

import (
	"github.com/san-kum/gravsim/internal/physics"
)

// Stability is the fraction of samples in which every massive body stays
// within radius of the center of mass.
type Stability struct {
	name       string
	radiusSq   float64
	violations int
	samples    int
}

func NewStability(radius float64) *Stability {
	return &Stability{
		name:     "stability",
		radiusSq: radius * radius,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(bodies []physics.Body, t float64) {
	s.samples++

	com, _ := physics.CenterOfMass(bodies)
	for _, b := range bodies {
		if b.Mass > 0 && b.Pos.Sub(com).LenSq() > s.radiusSq {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
