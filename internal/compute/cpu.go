package compute

import (
	"runtime"
	"sync"

	"github.com/san-kum/gravsim/internal/quadtree"
	"github.com/san-kum/gravsim/internal/vec"
)

const parallelThreshold = 16

type CPUBackend struct {
	workers int
}

// NewCPUBackend returns a direct-summation backend using the given number of
// goroutines, or one per CPU when workers < 1.
func NewCPUBackend(workers int) *CPUBackend {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{workers: workers}
}

func (c *CPUBackend) Name() string { return "direct" }

func (c *CPUBackend) Accelerations(positions []vec.Vec2, masses []float64, epsilon float64) []vec.Vec2 {
	n := len(positions)
	acc := make([]vec.Vec2, n)

	if n < parallelThreshold || c.workers == 1 {
		accumulate(positions, masses, epsilon, acc, 0, n)
		return acc
	}

	var wg sync.WaitGroup
	chunkSize := (n + c.workers - 1) / c.workers

	for w := 0; w < c.workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			accumulate(positions, masses, epsilon, acc, s, e)
		}(start, end)
	}

	wg.Wait()
	return acc
}

func accumulate(pos []vec.Vec2, masses []float64, eps float64, acc []vec.Vec2, start, end int) {
	for i := start; i < end; i++ {
		a := vec.Zero
		for j := range pos {
			if i == j || masses[j] == 0 {
				continue
			}
			a = a.Add(quadtree.PairAcceleration(pos[i], pos[j], masses[j], eps))
		}
		acc[i] = a
	}
}
