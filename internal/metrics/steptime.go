package metrics

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/gravsim/internal/physics"
)

// StepTime records the wall-clock time between consecutive observations.
// Value is the mean in seconds.
type StepTime struct {
	name string
	now  func() time.Time

	last      time.Time
	durations []float64
}

func NewStepTime() *StepTime {
	return &StepTime{name: "step_time", now: time.Now}
}

func (s *StepTime) Name() string { return s.name }

func (s *StepTime) Observe(_ []physics.Body, _ float64) {
	now := s.now()
	if !s.last.IsZero() {
		s.durations = append(s.durations, now.Sub(s.last).Seconds())
	}
	s.last = now
}

func (s *StepTime) Value() float64 {
	mean, _ := s.MeanStdDev()
	return mean
}

// MeanStdDev returns the mean and sample standard deviation in seconds.
func (s *StepTime) MeanStdDev() (mean, std float64) {
	switch len(s.durations) {
	case 0:
		return 0, 0
	case 1:
		return s.durations[0], 0
	}
	return stat.MeanStdDev(s.durations, nil)
}

func (s *StepTime) Samples() int { return len(s.durations) }

func (s *StepTime) Reset() {
	s.last = time.Time{}
	s.durations = s.durations[:0]
}
