package metrics

import (
	"math"

	"github.com/san-kum/gravsim/internal/physics"
)

// Energy is the mean total energy over the observed samples.
type Energy struct {
	name      string
	softening float64
	samples   int
	total     float64
}

func NewEnergy(softening float64) *Energy {
	return &Energy{name: "energy", softening: softening}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(bodies []physics.Body, t float64) {
	e.total += physics.Energy(bodies, e.softening)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *Energy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift tracks the largest relative deviation of the total energy
// from its first sample. Energy is O(n²), so only every stride-th
// observation is evaluated.
type EnergyDrift struct {
	name      string
	softening float64
	stride    int

	calls         int
	samples       int
	initialEnergy float64
	maxDrift      float64
}

func NewEnergyDrift(softening float64, stride int) *EnergyDrift {
	if stride < 1 {
		stride = 1
	}
	return &EnergyDrift{
		name:      "energy_drift",
		softening: softening,
		stride:    stride,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(bodies []physics.Body, t float64) {
	e.calls++
	if (e.calls-1)%e.stride != 0 {
		return
	}

	energy := physics.Energy(bodies, e.softening)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.calls = 0
	e.samples = 0
	e.initialEnergy = 0
	e.maxDrift = 0
}
