package sim_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/sim"
)

func ctx() context.Context { return context.Background() }

type countingMetric struct {
	observed int
}

func (m *countingMetric) Name() string                     { return "count" }
func (m *countingMetric) Observe([]physics.Body, float64) { m.observed++ }
func (m *countingMetric) Value() float64                   { return float64(m.observed) }
func (m *countingMetric) Reset()                           { m.observed = 0 }

type stepRecorder struct {
	steps []int
}

func (o *stepRecorder) OnStep(step int, _ float64, _ []physics.Body) {
	o.steps = append(o.steps, step)
}

var _ = Describe("Runner", func() {
	var (
		s      *sim.Simulation
		runner *sim.Runner
	)

	BeforeEach(func() {
		s = newSim(nil)
		Expect(s.AddBodies(randomBodies(11, 12))).To(Succeed())
		runner = sim.NewRunner(s)
	})

	It("rejects invalid configs", func() {
		_, err := runner.Run(ctx(), sim.RunConfig{Steps: 10, Dt: 0})
		Expect(err).To(MatchError(sim.ErrInvalidTimestep))

		_, err = runner.Run(ctx(), sim.RunConfig{Steps: -1, Dt: 0.01})
		Expect(err).To(HaveOccurred())
	})

	It("feeds metrics and observers", func() {
		metric := &countingMetric{}
		observer := &stepRecorder{}
		runner.AddMetric(metric)
		runner.AddObserver(observer)

		res, err := runner.Run(ctx(), sim.RunConfig{Steps: 25, Dt: physics.TimeStep})
		Expect(err).NotTo(HaveOccurred())

		Expect(res.StepsTaken).To(Equal(25))
		Expect(res.Metrics).To(HaveKeyWithValue("count", 26.0))
		Expect(observer.steps).To(HaveLen(25))
		Expect(observer.steps[0]).To(Equal(1))
		Expect(observer.steps[24]).To(Equal(25))
	})

	It("samples and records at the requested interval", func() {
		res, err := runner.Run(ctx(), sim.RunConfig{
			Steps:       30,
			Dt:          physics.TimeStep,
			SampleEvery: 10,
			Record:      true,
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(res.Times).To(HaveLen(4))
		Expect(res.Energies).To(HaveLen(4))
		Expect(res.Frames).To(HaveLen(4))
		Expect(res.Times[0]).To(BeZero())
		Expect(res.Frames[3].Bodies).To(Equal(s.Bodies()))
		Expect(res.Elapsed).To(BeNumerically(">", 0))
	})

	It("stops on cancellation", func() {
		c, cancel := context.WithCancel(ctx())
		cancel()

		res, err := runner.Run(c, sim.RunConfig{Steps: 100, Dt: physics.TimeStep})
		Expect(err).To(MatchError(context.Canceled))
		Expect(res).NotTo(BeNil())
		Expect(res.StepsTaken).To(BeZero())
		Expect(s.Steps()).To(BeZero())
	})

	It("returns the partial result of a failing step", func() {
		res, err := runner.Run(ctx(), sim.RunConfig{Steps: 3, Dt: 1e308})
		Expect(err).To(MatchError(sim.ErrInvalidState))
		Expect(res.StepsTaken).To(BeZero())
	})
})

var _ = Describe("Ensemble", func() {
	It("runs every variant on the same bodies", func() {
		variants := make([]sim.Variant, 0, 3)
		for _, theta := range []float64{0, 0.5, 1} {
			opts := sim.DefaultOptions()
			opts.Theta = theta
			opts.Workers = 1
			variants = append(variants, sim.Variant{Name: "theta", Options: opts})
		}

		results, err := sim.NewEnsemble(randomBodies(12, 30), variants).
			Run(ctx(), sim.RunConfig{Steps: 20, Dt: physics.TimeStep})
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for _, r := range results {
			Expect(r.StepsTaken).To(Equal(20))
			Expect(r.Energies).To(HaveLen(2))
			Expect(r.Energies[0]).To(Equal(results[0].Energies[0]))
		}
	})

	It("reports a failing variant by name", func() {
		opts := sim.DefaultOptions()
		opts.Theta = -1
		_, err := sim.NewEnsemble(randomBodies(13, 3), []sim.Variant{{Name: "bad", Options: opts}}).
			Run(ctx(), sim.RunConfig{Steps: 1, Dt: physics.TimeStep})
		Expect(err).To(MatchError(ContainSubstring(`variant "bad"`)))
		Expect(err).To(MatchError(sim.ErrInvalidTheta))
	})
})

var _ = Describe("Ranges", func() {
	DescribeTable("partitions without gaps or overlaps",
		func(n, parts int) {
			ranges := sim.Ranges(n, parts)

			want := parts
			if want > n {
				want = n
			}
			if want < 1 {
				want = 1
			}
			Expect(ranges).To(HaveLen(want))

			seen := make([]int, n)
			next := 0
			for _, r := range ranges {
				Expect(r.Start).To(Equal(next))
				Expect(r.Len()).To(BeNumerically(">", 0))
				Expect(r.Len()).To(BeNumerically("<=", ranges[0].Len()))
				Expect(ranges[0].Len() - r.Len()).To(BeNumerically("<=", 1))
				for i := r.Start; i < r.End; i++ {
					seen[i]++
				}
				next = r.End
			}
			Expect(next).To(Equal(n))
			for i, c := range seen {
				Expect(c).To(Equal(1), "index %d", i)
			}
		},
		Entry("single body", 1, 1),
		Entry("even split", 100, 4),
		Entry("uneven split", 101, 4),
		Entry("one per worker", 8, 8),
		Entry("more parts than bodies", 3, 16),
		Entry("prime count", 997, 7),
		Entry("zero parts", 10, 0),
	)

	It("is empty for no bodies", func() {
		Expect(sim.Ranges(0, 4)).To(BeEmpty())
	})
})
