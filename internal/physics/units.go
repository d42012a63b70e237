package physics

import "math"

const (
	DaysPerYear = 365.25

	// G is the gravitational constant in AU³ / (M☉ · yr²).
	G = 4 * math.Pi * math.Pi

	// TimeStep is 0.01 days expressed in years.
	TimeStep = 1.0 / (DaysPerYear * 100.0)
)

// CircularSpeed returns the speed of a circular orbit at distance r around
// a central mass m.
func CircularSpeed(m, r float64) float64 {
	if r <= 0 {
		return 0
	}
	return math.Sqrt(G * m / r)
}
