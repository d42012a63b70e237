package quadtree

import (
	"math"

	"github.com/san-kum/gravsim/internal/vec"
)

const (
	// minQuadSize keeps coincident inputs from producing a zero-extent root.
	minQuadSize = 1e-6
	// boundsPadding enlarges the root so points on the edge after a drift
	// still land strictly inside.
	boundsPadding = 1.1
	emptyQuadSize = 10.0
)

// Quad is an axis-aligned square given by its center and side length.
//
// Quadrants are numbered with bit 0 set when x is east of the center and
// bit 1 set when y is north of it:
//
//	2 | 3
//	--+--
//	0 | 1
//
// Points exactly on a center line fall to the west/south side.
type Quad struct {
	Center vec.Vec2
	Size   float64
}

func (q Quad) FindQuadrant(p vec.Vec2) int {
	quadrant := 0
	if p.Y > q.Center.Y {
		quadrant |= 2
	}
	if p.X > q.Center.X {
		quadrant |= 1
	}
	return quadrant
}

// IntoQuadrant returns the child square for the given quadrant.
func (q Quad) IntoQuadrant(quadrant int) Quad {
	child := Quad{Size: q.Size * 0.5}
	dx, dy := -0.5, -0.5
	if quadrant&1 != 0 {
		dx = 0.5
	}
	if quadrant&2 != 0 {
		dy = 0.5
	}
	child.Center = vec.New(q.Center.X+dx*child.Size, q.Center.Y+dy*child.Size)
	return child
}

func (q Quad) Subdivide() [4]Quad {
	return [4]Quad{
		q.IntoQuadrant(0),
		q.IntoQuadrant(1),
		q.IntoQuadrant(2),
		q.IntoQuadrant(3),
	}
}

// Contains reports whether p lies in the closed square.
func (q Quad) Contains(p vec.Vec2) bool {
	h := q.Size * 0.5
	return p.X >= q.Center.X-h && p.X <= q.Center.X+h &&
		p.Y >= q.Center.Y-h && p.Y <= q.Center.Y+h
}

// Bounds accumulates the extent of a point set. The zero value is empty.
type Bounds struct {
	min, max vec.Vec2
	n        int
}

func (b *Bounds) Extend(p vec.Vec2) {
	if b.n == 0 {
		b.min, b.max = p, p
	} else {
		b.min = vec.New(math.Min(b.min.X, p.X), math.Min(b.min.Y, p.Y))
		b.max = vec.New(math.Max(b.max.X, p.X), math.Max(b.max.Y, p.Y))
	}
	b.n++
}

func (b *Bounds) Reset() { *b = Bounds{} }

func (b Bounds) Empty() bool { return b.n == 0 }

// Quad returns the smallest padded square around every extended point.
// An empty Bounds yields a default square at the origin.
func (b Bounds) Quad() Quad {
	if b.n == 0 {
		return Quad{Center: vec.Zero, Size: emptyQuadSize}
	}

	center := vec.New((b.min.X+b.max.X)*0.5, (b.min.Y+b.max.Y)*0.5)
	size := math.Max(b.max.X-b.min.X, b.max.Y-b.min.Y)
	size = math.Max(size*boundsPadding, minQuadSize)

	return Quad{Center: center, Size: size}
}

// Containing is shorthand for extending a Bounds with every point.
func Containing(points []vec.Vec2) Quad {
	var b Bounds
	for _, p := range points {
		b.Extend(p)
	}
	return b.Quad()
}
