package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState indicates a body whose position or velocity became
	// NaN or Inf during a step.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrInvalidTimestep indicates a non-positive or non-finite dt.
	ErrInvalidTimestep = errors.New("sim: timestep must be positive and finite")

	// ErrInvalidMass indicates a negative or non-finite body mass.
	ErrInvalidMass = errors.New("sim: mass must be finite and non-negative")

	// ErrInvalidTheta indicates a negative or non-finite opening angle.
	ErrInvalidTheta = errors.New("sim: theta must be finite and non-negative")

	// ErrInvalidBody indicates a body added with a non-finite position or
	// velocity.
	ErrInvalidBody = errors.New("sim: body position and velocity must be finite")

	ErrClosed = errors.New("sim: simulation closed")
)

// StepError wraps an error with the step at which it happened. The bodies
// are left as they were before that step.
type StepError struct {
	Step    int
	Time    float64
	Body    int
	Wrapped error
}

func (e *StepError) Error() string {
	if e.Body >= 0 {
		return fmt.Sprintf("step %d (t=%.6f yr) body %d: %v", e.Step, e.Time, e.Body, e.Wrapped)
	}
	return fmt.Sprintf("step %d (t=%.6f yr): %v", e.Step, e.Time, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
