package sim

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/pool"
	"github.com/san-kum/gravsim/internal/quadtree"
	"github.com/san-kum/gravsim/internal/vec"
)

type Simulation struct {
	log zerolog.Logger

	bodies []physics.Body
	tree   *quadtree.Tree
	bounds quadtree.Bounds
	pool   *pool.Pool
	snaps  bodyPool

	minChunk int
	validate bool

	// stale is set when bodies changed since accelerations were last
	// computed; the next Update recomputes them before its first kick.
	stale bool

	time   float64
	steps  int
	closed bool
}

// New starts the worker pool. The caller must Close the simulation.
func New(opts Options) (*Simulation, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	minChunk := opts.MinChunk
	if minChunk == 0 {
		minChunk = DefaultMinChunk
	}

	s := &Simulation{
		log:      opts.Logger,
		tree:     quadtree.New(opts.Theta, opts.Epsilon),
		pool:     pool.New(opts.Workers),
		minChunk: minChunk,
		validate: opts.Validate,
	}
	s.log.Debug().
		Int("workers", s.pool.Size()).
		Float64("theta", opts.Theta).
		Float64("epsilon", opts.Epsilon).
		Msg("simulation created")
	return s, nil
}

// Close stops the worker pool. Later calls return ErrClosed.
func (s *Simulation) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	if dropped := s.pool.Close(); dropped > 0 {
		s.log.Warn().Int("dropped", dropped).Msg("pool closed with queued tasks")
	}
	return nil
}

func (s *Simulation) Workers() int { return s.pool.Size() }

// Update advances every body by dt years. On error the bodies are restored
// to their state before the call and time does not advance.
func (s *Simulation) Update(dt float64) error {
	if s.closed {
		return ErrClosed
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTimestep, dt)
	}

	if s.stale {
		if i := firstNonFinitePosition(s.bodies); i >= 0 {
			return s.stepError(i, ErrInvalidState)
		}
		s.rebuild()
		s.computeAccelerations()
		s.stale = false
	}

	prev := s.snaps.GetAndCopy(s.bodies)
	defer s.snaps.Put(prev)

	half := dt / 2
	for i := range s.bodies {
		s.bodies[i].Kick(half)
		s.bodies[i].Drift(dt)
	}

	// Insert panics on non-finite positions, so this check is unconditional.
	if i := firstNonFinitePosition(s.bodies); i >= 0 {
		copy(s.bodies, prev)
		return s.stepError(i, ErrInvalidState)
	}

	s.rebuild()
	s.computeAccelerations()

	for i := range s.bodies {
		s.bodies[i].Kick(half)
	}

	if s.validate {
		if i := firstInvalid(s.bodies); i >= 0 {
			copy(s.bodies, prev)
			s.stale = true
			return s.stepError(i, ErrInvalidState)
		}
	}

	s.time += dt
	s.steps++
	return nil
}

func (s *Simulation) stepError(body int, err error) error {
	return &StepError{Step: s.steps, Time: s.time, Body: body, Wrapped: err}
}

func firstNonFinitePosition(bodies []physics.Body) int {
	for i := range bodies {
		if !bodies[i].Pos.IsFinite() {
			return i
		}
	}
	return -1
}

func firstInvalid(bodies []physics.Body) int {
	for i := range bodies {
		if !bodies[i].IsValid() {
			return i
		}
	}
	return -1
}

// rebuild clears the tree to the padded bounding square of the massive
// bodies and inserts them. Tracers are not inserted.
func (s *Simulation) rebuild() {
	s.bounds.Reset()
	for i := range s.bodies {
		if s.bodies[i].Mass > 0 {
			s.bounds.Extend(s.bodies[i].Pos)
		}
	}

	s.tree.Clear(s.bounds.Quad())
	for i := range s.bodies {
		if s.bodies[i].Mass > 0 {
			s.tree.Insert(s.bodies[i].Pos, s.bodies[i].Mass)
		}
	}
	s.tree.Propagate()
}

// computeAccelerations overwrites every body's acceleration from the tree.
func (s *Simulation) computeAccelerations() {
	n := len(s.bodies)
	parts := taskCount(n, s.pool.Size(), s.minChunk)
	if parts == 1 {
		s.accelerate(Range{Start: 0, End: n})
		return
	}

	ranges := Ranges(n, parts)
	for _, r := range ranges {
		s.pool.Enqueue(func() { s.accelerate(r) })
	}
	s.pool.Wait()

	s.log.Debug().Int("bodies", n).Int("nodes", s.tree.Len()).Int("tasks", len(ranges)).Msg("forces computed")
}

func (s *Simulation) accelerate(r Range) {
	for i := r.Start; i < r.End; i++ {
		s.bodies[i].Acc = s.tree.Acceleration(s.bodies[i].Pos)
	}
}

// AddBody appends b and returns its index, which stays valid until the next
// removal or reset. Zero-mass bodies are accepted as tracers.
func (s *Simulation) AddBody(b physics.Body) (int, error) {
	if s.closed {
		return -1, ErrClosed
	}
	if math.IsNaN(b.Mass) || math.IsInf(b.Mass, 0) || b.Mass < 0 {
		return -1, fmt.Errorf("%w: got %v", ErrInvalidMass, b.Mass)
	}
	if !b.Pos.IsFinite() || !b.Vel.IsFinite() {
		return -1, ErrInvalidBody
	}

	b.Acc = vec.Zero
	s.bodies = append(s.bodies, b)
	s.stale = true
	return len(s.bodies) - 1, nil
}

// AddBodies adds every body or none of them.
func (s *Simulation) AddBodies(bodies []physics.Body) error {
	n := len(s.bodies)
	for i, b := range bodies {
		if _, err := s.AddBody(b); err != nil {
			s.bodies = s.bodies[:n]
			return fmt.Errorf("body %d: %w", i, err)
		}
	}
	return nil
}

// RemoveBodyAt removes the most recently added body positioned exactly at p
// and reports whether one was removed.
func (s *Simulation) RemoveBodyAt(p vec.Vec2) bool {
	for i := len(s.bodies) - 1; i >= 0; i-- {
		if s.bodies[i].Pos == p {
			s.RemoveBody(i)
			return true
		}
	}
	return false
}

// Pick returns the index of the most recently added body whose display disc
// contains p, or -1.
func (s *Simulation) Pick(p vec.Vec2) int {
	for i := len(s.bodies) - 1; i >= 0; i-- {
		b := &s.bodies[i]
		if b.Pos.Sub(p).LenSq() <= b.Radius*b.Radius {
			return i
		}
	}
	return -1
}

// RemoveBody removes the body at index i, keeping the order of the rest.
func (s *Simulation) RemoveBody(i int) {
	s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
	s.stale = true
}

// Reset removes every body and rewinds the clock.
func (s *Simulation) Reset() {
	s.bodies = s.bodies[:0]
	s.time = 0
	s.steps = 0
	s.stale = true
}

// SetTheta changes the opening angle for later force evaluations only.
func (s *Simulation) SetTheta(theta float64) error {
	if err := checkTheta(theta); err != nil {
		return err
	}
	s.tree.SetTheta(theta)
	return nil
}

func (s *Simulation) Theta() float64   { return s.tree.Theta() }
func (s *Simulation) Epsilon() float64 { return s.tree.Epsilon() }

func (s *Simulation) Time() float64 { return s.time }
func (s *Simulation) Steps() int    { return s.steps }
func (s *Simulation) Len() int      { return len(s.bodies) }

// Body returns a copy of body i.
func (s *Simulation) Body(i int) physics.Body { return s.bodies[i] }

// Bodies returns a copy of every body in insertion order.
func (s *Simulation) Bodies() []physics.Body {
	out := make([]physics.Body, len(s.bodies))
	copy(out, s.bodies)
	return out
}

// Tree exposes the tree built by the last step for read-only use, such as
// drawing a wireframe. It is rebuilt by every Update.
func (s *Simulation) Tree() *quadtree.Tree { return s.tree }

func (s *Simulation) Energy() float64 {
	return physics.Energy(s.bodies, s.tree.Epsilon())
}

// Snapshot is a copy of the simulation state at one instant.
type Snapshot struct {
	Time   float64
	Steps  int
	Bodies []physics.Body
}

func (s *Simulation) Snapshot() Snapshot {
	return Snapshot{Time: s.time, Steps: s.steps, Bodies: s.Bodies()}
}

// Restore replaces the state with snap. The snapshot is copied.
func (s *Simulation) Restore(snap Snapshot) {
	s.bodies = append(s.bodies[:0], snap.Bodies...)
	s.time = snap.Time
	s.steps = snap.Steps
	s.stale = true
}
