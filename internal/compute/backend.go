package compute

import "github.com/san-kum/gravsim/internal/vec"

type Backend interface {
	Name() string
	Accelerations(positions []vec.Vec2, masses []float64, epsilon float64) []vec.Vec2
}
