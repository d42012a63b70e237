// Package clock turns real elapsed time into a budget of fixed simulation
// steps.
//
// A frame loop calls Advance with the real time since the previous frame and
// then runs one fixed step per ShouldStep/Consume pair:
//
//	c.Advance(frame)
//	for c.ShouldStep() {
//	    sim.Update(c.Step())
//	    c.Consume()
//	}
package clock

import (
	"math"
	"time"
)

const (
	// DefaultTimeScale is simulated years per real second.
	DefaultTimeScale = 0.05

	// MaxFrame caps the real time credited for one frame so a stall does
	// not queue an unbounded number of steps.
	MaxFrame = 250 * time.Millisecond
)

type Clock struct {
	step        float64
	scale       float64
	accumulator float64
	paused      bool
	single      bool
	last        time.Time
}

// New returns a running clock that issues steps of step years.
func New(step float64) *Clock {
	return &Clock{step: step, scale: DefaultTimeScale}
}

func (c *Clock) Step() float64 { return c.step }

// Advance credits elapsed real time, clamped to MaxFrame and multiplied by
// the time scale. Paused clocks ignore it.
func (c *Clock) Advance(elapsed time.Duration) {
	if c.paused || elapsed <= 0 {
		return
	}
	if elapsed > MaxFrame {
		elapsed = MaxFrame
	}
	c.accumulator += elapsed.Seconds() * c.scale
}

// Tick advances by the time since the previous Tick. The first call only
// records now.
func (c *Clock) Tick(now time.Time) {
	if !c.last.IsZero() {
		c.Advance(now.Sub(c.last))
	}
	c.last = now
}

// ShouldStep reports whether a full step is due, or a single step was
// requested while paused.
func (c *Clock) ShouldStep() bool {
	return c.single || c.accumulator >= c.step
}

// Consume takes one step out of the budget.
func (c *Clock) Consume() {
	if c.single {
		c.single = false
		return
	}
	c.accumulator -= c.step
}

// Pending is the number of whole steps currently in the budget.
func (c *Clock) Pending() int {
	if c.step <= 0 {
		return 0
	}
	return int(math.Floor(c.accumulator / c.step))
}

// StepOnce queues exactly one step. It only has an effect while paused.
func (c *Clock) StepOnce() {
	if c.paused {
		c.single = true
	}
}

func (c *Clock) TimeScale() float64 { return c.scale }

// SetTimeScale sets simulated years per real second; negative values are
// clamped to zero.
func (c *Clock) SetTimeScale(scale float64) {
	c.scale = math.Max(0, scale)
}

func (c *Clock) Faster(factor float64) { c.SetTimeScale(c.scale * factor) }
func (c *Clock) Slower(factor float64) { c.SetTimeScale(c.scale / factor) }

func (c *Clock) Paused() bool { return c.paused }

// TogglePause pauses or resumes. Resuming forgets the time spent paused.
func (c *Clock) TogglePause() {
	c.paused = !c.paused
	c.single = false
	c.last = time.Time{}
}

// Discard drops whole steps from the budget, keeping the remainder. Frame
// loops that cannot keep up call it so the backlog does not grow.
func (c *Clock) Discard() {
	if c.step > 0 {
		c.accumulator = math.Mod(c.accumulator, c.step)
	}
}

// Reset empties the budget and keeps the scale and pause state.
func (c *Clock) Reset() {
	c.accumulator = 0
	c.single = false
	c.last = time.Time{}
}
