package viz

import (
	"math"

	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/vec"
)

const (
	minScale = 1e-3
	maxScale = 1e6
)

// Viewport maps world coordinates in AU onto canvas pixels. World y grows
// upwards, pixel y downwards.
type Viewport struct {
	Center vec.Vec2
	// Scale is pixels per AU.
	Scale float64
}

func (v Viewport) ToPixel(p vec.Vec2, pw, ph int) (int, int) {
	d := p.Sub(v.Center).Mul(v.Scale)
	x := float64(pw)/2 + d.X
	y := float64(ph)/2 - d.Y
	return int(math.Floor(x)), int(math.Floor(y))
}

func (v Viewport) ToWorld(x, y, pw, ph int) vec.Vec2 {
	dx := (float64(x) + 0.5 - float64(pw)/2) / v.Scale
	dy := (float64(ph)/2 - float64(y) - 0.5) / v.Scale
	return v.Center.Add(vec.New(dx, dy))
}

func (v *Viewport) Zoom(factor float64) {
	v.Scale = math.Min(maxScale, math.Max(minScale, v.Scale*factor))
}

// Pan moves the center by a fraction of the visible width.
func (v *Viewport) Pan(dx, dy float64, pw int) {
	span := float64(pw) / v.Scale
	v.Center = v.Center.Add(vec.New(dx*span, dy*span))
}

// Fit centers on the massive bodies and scales so they all fit with a
// margin.
func Fit(bodies []physics.Body, pw, ph int) Viewport {
	com, total := physics.CenterOfMass(bodies)
	if total == 0 {
		return Viewport{Scale: float64(min(pw, ph)) / 10}
	}

	extent := 0.0
	for _, b := range bodies {
		if b.Mass <= 0 {
			continue
		}
		d := b.Pos.Sub(com)
		extent = math.Max(extent, math.Max(math.Abs(d.X), math.Abs(d.Y)))
	}
	if extent == 0 {
		extent = 1
	}

	scale := float64(min(pw, ph)) / (2.2 * extent)
	return Viewport{Center: com, Scale: math.Min(maxScale, math.Max(minScale, scale))}
}
