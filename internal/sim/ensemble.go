package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/gravsim/internal/physics"
)

// Variant is one member of an ensemble: a name and the options its
// simulation is built with.
type Variant struct {
	Name    string
	Options Options
}

// Ensemble runs the same initial bodies under several option sets
// concurrently, each in its own Simulation.
type Ensemble struct {
	bodies   []physics.Body
	variants []Variant
}

func NewEnsemble(bodies []physics.Body, variants []Variant) *Ensemble {
	return &Ensemble{bodies: bodies, variants: variants}
}

func (e *Ensemble) Run(ctx context.Context, cfg RunConfig) ([]*Result, error) {
	results := make([]*Result, len(e.variants))
	errs := make([]error, len(e.variants))

	var wg sync.WaitGroup
	for i, v := range e.variants {
		wg.Add(1)
		go func(idx int, v Variant) {
			defer wg.Done()
			results[idx], errs[idx] = e.runOne(ctx, v, cfg)
		}(i, v)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return results, fmt.Errorf("variant %q: %w", e.variants[i].Name, err)
		}
	}
	return results, nil
}

func (e *Ensemble) runOne(ctx context.Context, v Variant, cfg RunConfig) (*Result, error) {
	s, err := New(v.Options)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if err := s.AddBodies(e.bodies); err != nil {
		return nil, err
	}
	return NewRunner(s).Run(ctx, cfg)
}
