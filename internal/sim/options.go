package sim

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

const (
	DefaultTheta    = 0.5
	DefaultEpsilon  = 1e-3
	DefaultMinChunk = 64
)

type Options struct {
	// Theta is the Barnes-Hut opening angle. Zero gives exact summation.
	Theta float64
	// Epsilon is the Plummer softening length in AU.
	Epsilon float64
	// Workers is the pool size; zero or less uses one worker per CPU.
	Workers int
	// MinChunk is the smallest number of bodies handed to one pool task.
	// Systems with fewer than 2*MinChunk bodies are evaluated on the
	// calling goroutine.
	MinChunk int
	// Validate checks every body for NaN or Inf after each step.
	Validate bool
	Logger   zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		Theta:    DefaultTheta,
		Epsilon:  DefaultEpsilon,
		MinChunk: DefaultMinChunk,
		Validate: true,
		Logger:   zerolog.Nop(),
	}
}

func (o Options) validate() error {
	if err := checkTheta(o.Theta); err != nil {
		return err
	}
	if math.IsNaN(o.Epsilon) || math.IsInf(o.Epsilon, 0) || o.Epsilon < 0 {
		return fmt.Errorf("epsilon must be finite and non-negative, got %v", o.Epsilon)
	}
	if o.MinChunk < 0 {
		return fmt.Errorf("min chunk must not be negative, got %d", o.MinChunk)
	}
	return nil
}

func checkTheta(theta float64) error {
	if math.IsNaN(theta) || math.IsInf(theta, 0) || theta < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTheta, theta)
	}
	return nil
}
