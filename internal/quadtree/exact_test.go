package quadtree_test

import (
	"math/rand"
	"testing"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/quadtree"
	"github.com/san-kum/gravsim/internal/vec"
)

func TestTree_ThetaZeroMatchesDirectSum(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	direct := compute.NewCPUBackend(1)

	for _, n := range []int{2, 17, 200} {
		pos := make([]vec.Vec2, n)
		mass := make([]float64, n)
		for i := range pos {
			pos[i] = vec.New(rng.Float64()*20-10, rng.Float64()*20-10)
			mass[i] = rng.Float64()
		}

		tr := quadtree.New(0, 1e-3)
		tr.Clear(quadtree.Containing(pos))
		for i := range pos {
			tr.Insert(pos[i], mass[i])
		}
		tr.Propagate()

		want := direct.Accelerations(pos, mass, 1e-3)
		for i := range pos {
			got := tr.Acceleration(pos[i])
			if diff := got.Sub(want[i]).Len(); diff > 1e-6*want[i].Len() {
				t.Errorf("n=%d body %d: tree %v, direct %v", n, i, got, want[i])
			}
		}
	}
}
