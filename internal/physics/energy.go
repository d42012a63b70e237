package physics

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/gravsim/internal/vec"
)

// Energy returns the total mechanical energy of the system using the same
// Plummer softening the force evaluation uses.
func Energy(bodies []Body, softening float64) float64 {
	n := len(bodies)
	if n == 0 {
		return 0
	}
	eps2 := softening * softening

	terms := make([]float64, 0, n+n*(n-1)/2)
	for i := 0; i < n; i++ {
		terms = append(terms, bodies[i].KineticEnergy())

		for j := i + 1; j < n; j++ {
			mm := bodies[i].Mass * bodies[j].Mass
			if mm == 0 {
				continue
			}
			r := math.Sqrt(bodies[j].Pos.Sub(bodies[i].Pos).LenSq() + eps2)
			if r == 0 {
				continue
			}
			terms = append(terms, -G*mm/r)
		}
	}

	return floats.SumCompensated(terms)
}

func Momentum(bodies []Body) vec.Vec2 {
	p := vec.Zero
	for _, b := range bodies {
		p = p.Add(b.Vel.Mul(b.Mass))
	}
	return p
}

// AngularMomentum returns the z component of the total angular momentum
// about the origin.
func AngularMomentum(bodies []Body) float64 {
	l := 0.0
	for _, b := range bodies {
		l += b.Mass * b.Pos.Cross(b.Vel)
	}
	return l
}

// CenterOfMass returns the mass-weighted mean position and the total mass.
func CenterOfMass(bodies []Body) (vec.Vec2, float64) {
	total := 0.0
	sum := vec.Zero
	for _, b := range bodies {
		total += b.Mass
		sum = sum.Add(b.Pos.Mul(b.Mass))
	}
	if total == 0 {
		return vec.Zero, 0
	}
	return sum.Div(total), total
}
