package quadtree

import (
	"fmt"
	"math"

	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/vec"
)

const (
	root = 0

	// MaxAccel caps the magnitude factor of a single contribution so a
	// near-singular aggregate cannot blow up the step.
	MaxAccel = 1e10

	// maxDepth bounds the subdivisions one insert may trigger. Two distinct
	// points closer than the float resolution of the root are merged past it.
	maxDepth = 128
)

// Node is one square of the tree. Pos and Mass are the body itself for an
// occupied leaf and the aggregate center of mass for a branch.
type Node struct {
	Children int
	Next     int
	Pos      vec.Vec2
	Mass     float64
	Quad     Quad
}

func (n Node) IsLeaf() bool   { return n.Children == 0 }
func (n Node) IsBranch() bool { return n.Children != 0 }
func (n Node) IsEmpty() bool  { return n.Mass == 0 }

// Tree is a Barnes-Hut quadtree with opening angle theta and Plummer
// softening epsilon.
type Tree struct {
	thetaSq   float64
	epsilonSq float64
	theta     float64
	epsilon   float64

	nodes   []Node
	parents []int
}

func New(theta, epsilon float64) *Tree {
	t := &Tree{}
	t.SetTheta(theta)
	t.SetEpsilon(epsilon)
	t.Clear(Quad{Size: emptyQuadSize})
	return t
}

func (t *Tree) Theta() float64   { return t.theta }
func (t *Tree) Epsilon() float64 { return t.epsilon }

// SetTheta changes the opening angle used by later Acceleration calls.
// Stored masses and positions are not affected.
func (t *Tree) SetTheta(theta float64) {
	t.theta = theta
	t.thetaSq = theta * theta
}

func (t *Tree) SetEpsilon(epsilon float64) {
	t.epsilon = epsilon
	t.epsilonSq = epsilon * epsilon
}

// Reserve grows the node and parent storage for n bodies so a rebuild does
// not allocate.
func (t *Tree) Reserve(n int) {
	if n <= 0 {
		return
	}
	if want := 4*n + 1; want > cap(t.nodes) {
		nodes := make([]Node, len(t.nodes), want)
		copy(nodes, t.nodes)
		t.nodes = nodes
	}
	if n > cap(t.parents) {
		parents := make([]int, len(t.parents), n)
		copy(parents, t.parents)
		t.parents = parents
	}
}

// Clear drops every node and leaves one empty root covering q.
func (t *Tree) Clear(q Quad) {
	t.nodes = t.nodes[:0]
	t.parents = t.parents[:0]
	t.nodes = append(t.nodes, Node{Next: 0, Quad: q})
}

func (t *Tree) subdivide(node int) int {
	t.parents = append(t.parents, node)
	children := len(t.nodes)
	t.nodes[node].Children = children

	nexts := [4]int{
		children + 1,
		children + 2,
		children + 3,
		t.nodes[node].Next,
	}
	quads := t.nodes[node].Quad.Subdivide()

	for i := 0; i < 4; i++ {
		t.nodes = append(t.nodes, Node{Next: nexts[i], Quad: quads[i]})
	}

	return children
}

// Insert adds a point mass. Points bit-identical to an occupied leaf are
// merged into it. Zero masses are ignored since an empty leaf is marked by
// zero mass. Insert panics on a non-finite position.
func (t *Tree) Insert(pos vec.Vec2, mass float64) {
	if !pos.IsFinite() {
		panic(fmt.Sprintf("quadtree: insert at non-finite position %v", pos))
	}
	if mass == 0 {
		return
	}

	node := root
	for t.nodes[node].IsBranch() {
		q := t.nodes[node].Quad.FindQuadrant(pos)
		node = t.nodes[node].Children + q
	}

	if t.nodes[node].IsEmpty() {
		t.nodes[node].Pos = pos
		t.nodes[node].Mass = mass
		return
	}

	existingPos := t.nodes[node].Pos
	existingMass := t.nodes[node].Mass

	if pos.X == existingPos.X && pos.Y == existingPos.Y {
		t.nodes[node].Mass += mass
		return
	}

	for depth := 0; ; depth++ {
		if depth >= maxDepth {
			t.nodes[node].Pos = existingPos.Mul(existingMass).Add(pos.Mul(mass)).Div(existingMass + mass)
			t.nodes[node].Mass = existingMass + mass
			return
		}

		// The branch keeps stale leaf data until Propagate overwrites it.
		children := t.subdivide(node)

		q1 := t.nodes[node].Quad.FindQuadrant(existingPos)
		q2 := t.nodes[node].Quad.FindQuadrant(pos)

		if q1 == q2 {
			node = children + q1
			continue
		}

		n1 := children + q1
		n2 := children + q2
		t.nodes[n1].Pos = existingPos
		t.nodes[n1].Mass = existingMass
		t.nodes[n2].Pos = pos
		t.nodes[n2].Mass = mass
		return
	}
}

// Propagate fills in mass and center of mass for every branch, children
// before parents.
func (t *Tree) Propagate() {
	for k := len(t.parents) - 1; k >= 0; k-- {
		node := t.parents[k]
		i := t.nodes[node].Children
		c := t.nodes[i : i+4 : i+4]

		mass := c[0].Mass + c[1].Mass + c[2].Mass + c[3].Mass
		t.nodes[node].Mass = mass
		if mass > 0 {
			t.nodes[node].Pos = vec.New(
				(c[0].Pos.X*c[0].Mass+c[1].Pos.X*c[1].Mass+c[2].Pos.X*c[2].Mass+c[3].Pos.X*c[3].Mass)/mass,
				(c[0].Pos.Y*c[0].Mass+c[1].Pos.Y*c[1].Mass+c[2].Pos.Y*c[2].Mass+c[3].Pos.Y*c[3].Mass)/mass,
			)
		}
	}
}

// Acceleration returns the gravitational acceleration at pos. Nodes that are
// leaves, or whose squared size is below theta² times the squared distance,
// are taken as a single mass; others are opened.
//
// A leaf holding pos itself has a zero separation and contributes nothing.
func (t *Tree) Acceleration(pos vec.Vec2) vec.Vec2 {
	acc := vec.Zero

	node := root
	for {
		n := &t.nodes[node]

		if n.Mass == 0 {
			if n.Next == 0 {
				break
			}
			node = n.Next
			continue
		}

		d := n.Pos.Sub(pos)
		dSq := d.LenSq()

		if n.IsLeaf() || n.Quad.Size*n.Quad.Size < dSq*t.thetaSq {
			acc = acc.Add(d.Mul(pairFactor(n.Mass, dSq, t.epsilonSq)))

			if n.Next == 0 {
				break
			}
			node = n.Next
		} else {
			node = n.Children
		}
	}

	return acc
}

// pairFactor is G·m / (r² + ε²)^1.5, capped at MaxAccel.
func pairFactor(mass, dSq, epsSq float64) float64 {
	s := dSq + epsSq
	denom := s * math.Sqrt(s)
	if denom <= 0 {
		return 0
	}
	return math.Min(physics.G*mass/denom, MaxAccel)
}

// PairAcceleration is the acceleration at pos due to a point mass at src
// under the same softening and cap the tree applies.
func PairAcceleration(pos, src vec.Vec2, mass, epsilon float64) vec.Vec2 {
	d := src.Sub(pos)
	return d.Mul(pairFactor(mass, d.LenSq(), epsilon*epsilon))
}

func (t *Tree) Len() int { return len(t.nodes) }

// Node returns a copy of node i. It panics if i is out of range.
func (t *Tree) Node(i int) Node { return t.nodes[i] }

func (t *Tree) Root() Node { return t.nodes[root] }

// Walk calls fn for every node in storage order until fn returns false.
func (t *Tree) Walk(fn func(i int, n Node) bool) {
	for i, n := range t.nodes {
		if !fn(i, n) {
			return
		}
	}
}
