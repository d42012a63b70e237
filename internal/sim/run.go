package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/gravsim/internal/physics"
)

// Metric accumulates a scalar over a run. Observe receives the live body
// slice, which must not be retained or modified.
type Metric interface {
	Name() string
	Observe(bodies []physics.Body, t float64)
	Value() float64
	Reset()
}

// Observer is notified after every completed step. The body slice is live
// and must not be retained or modified.
type Observer interface {
	OnStep(step int, t float64, bodies []physics.Body)
}

type RunConfig struct {
	Steps int
	Dt    float64
	// SampleEvery is the step interval between energy samples and recorded
	// frames. Zero samples only the first and last state.
	SampleEvery int
	// Record keeps a copy of the bodies at every sample.
	Record bool
}

// Frame is the body state at one sampled instant.
type Frame struct {
	Time   float64
	Bodies []physics.Body
}

type Result struct {
	Times       []float64
	Energies    []float64
	Frames      []Frame
	StepsTaken  int
	EnergyDrift float64
	Metrics     map[string]float64
	Elapsed     time.Duration
}

// Runner drives a Simulation for a fixed number of steps.
type Runner struct {
	sim       *Simulation
	metrics   []Metric
	observers []Observer
}

func NewRunner(s *Simulation) *Runner {
	return &Runner{sim: s}
}

func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (cfg RunConfig) validate() error {
	if cfg.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d", cfg.Steps)
	}
	if math.IsNaN(cfg.Dt) || math.IsInf(cfg.Dt, 0) || cfg.Dt <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTimestep, cfg.Dt)
	}
	if cfg.SampleEvery < 0 {
		return fmt.Errorf("sample interval must not be negative, got %d", cfg.SampleEvery)
	}
	return nil
}

// Run advances the simulation cfg.Steps times. On cancellation or a failed
// step it returns the partial result together with the error.
func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := r.sim
	result := &Result{Metrics: make(map[string]float64)}

	for _, m := range r.metrics {
		m.Reset()
	}

	start := time.Now()
	defer func() { result.Elapsed = time.Since(start) }()

	initial := r.sample(result, cfg.Record)
	for _, m := range r.metrics {
		m.Observe(s.bodies, s.time)
	}

	s.log.Info().
		Int("bodies", s.Len()).
		Int("steps", cfg.Steps).
		Float64("dt", cfg.Dt).
		Msg("run started")

	var runErr error
	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		if err := s.Update(cfg.Dt); err != nil {
			runErr = err
			break
		}
		result.StepsTaken++

		for _, m := range r.metrics {
			m.Observe(s.bodies, s.time)
		}
		for _, o := range r.observers {
			o.OnStep(s.steps, s.time, s.bodies)
		}

		if cfg.SampleEvery > 0 && result.StepsTaken%cfg.SampleEvery == 0 && result.StepsTaken != cfg.Steps {
			r.sample(result, cfg.Record)
		}
	}

	final := initial
	if result.StepsTaken > 0 {
		final = r.sample(result, cfg.Record)
	}
	if initial != 0 {
		result.EnergyDrift = math.Abs(final-initial) / math.Abs(initial)
	}

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	ev := s.log.Info()
	if runErr != nil {
		ev = s.log.Warn().Err(runErr)
	}
	ev.Int("steps", result.StepsTaken).Float64("energy_drift", result.EnergyDrift).Msg("run finished")

	return result, runErr
}

func (r *Runner) sample(result *Result, record bool) float64 {
	s := r.sim
	e := s.Energy()
	result.Times = append(result.Times, s.time)
	result.Energies = append(result.Energies, e)
	if record {
		result.Frames = append(result.Frames, Frame{Time: s.time, Bodies: s.Bodies()})
	}
	return e
}
