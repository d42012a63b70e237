package sim_test

import (
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/pool"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/vec"
)

func newSim(mutate func(*sim.Options)) *sim.Simulation {
	opts := sim.DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	s, err := sim.New(opts)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() {
		_ = s.Close()
	})
	return s
}

func randomBodies(seed int64, n int) []physics.Body {
	rng := rand.New(rand.NewSource(seed))
	bodies := make([]physics.Body, n)
	for i := range bodies {
		pos := vec.New(rng.Float64()*20-10, rng.Float64()*20-10)
		vel := vec.New(rng.NormFloat64(), rng.NormFloat64())
		bodies[i] = physics.NewBody(1e-4+rng.Float64()*1e-2, pos, vel)
	}
	return bodies
}

func kepler() []physics.Body {
	return []physics.Body{
		physics.NewBody(1, vec.Zero, vec.Zero),
		physics.NewBody(3e-6, vec.New(1, 0), vec.New(0, physics.CircularSpeed(1, 1))),
	}
}

var _ = Describe("Simulation", func() {
	Describe("construction", func() {
		It("rejects a negative theta", func() {
			opts := sim.DefaultOptions()
			opts.Theta = -0.1
			_, err := sim.New(opts)
			Expect(err).To(MatchError(sim.ErrInvalidTheta))
		})

		It("rejects a non-finite softening", func() {
			opts := sim.DefaultOptions()
			opts.Epsilon = math.NaN()
			_, err := sim.New(opts)
			Expect(err).To(HaveOccurred())
		})

		It("sizes the pool from the CPU count by default", func() {
			s := newSim(nil)
			Expect(s.Workers()).To(Equal(pool.DefaultSize()))
			Expect(s.Theta()).To(Equal(sim.DefaultTheta))
			Expect(s.Epsilon()).To(Equal(sim.DefaultEpsilon))
		})
	})

	Describe("AddBody", func() {
		var s *sim.Simulation

		BeforeEach(func() {
			s = newSim(nil)
		})

		It("returns sequential indices", func() {
			for i := 0; i < 3; i++ {
				idx, err := s.AddBody(physics.NewBody(1, vec.New(float64(i), 0), vec.Zero))
				Expect(err).NotTo(HaveOccurred())
				Expect(idx).To(Equal(i))
			}
			Expect(s.Len()).To(Equal(3))
		})

		DescribeTable("rejects unusable masses",
			func(mass float64) {
				_, err := s.AddBody(physics.NewBody(mass, vec.Zero, vec.Zero))
				Expect(err).To(MatchError(sim.ErrInvalidMass))
				Expect(s.Len()).To(BeZero())
			},
			Entry("negative", -1.0),
			Entry("NaN", math.NaN()),
			Entry("infinite", math.Inf(1)),
		)

		It("rejects non-finite positions", func() {
			_, err := s.AddBody(physics.NewBody(1, vec.New(math.Inf(1), 0), vec.Zero))
			Expect(err).To(MatchError(sim.ErrInvalidBody))
		})

		It("adds all bodies or none", func() {
			bodies := randomBodies(1, 4)
			bodies[2].Mass = -1
			err := s.AddBodies(bodies)
			Expect(err).To(MatchError(sim.ErrInvalidMass))
			Expect(s.Len()).To(BeZero())
		})

		It("returns copies from the accessors", func() {
			Expect(s.AddBodies(randomBodies(2, 3))).To(Succeed())
			bodies := s.Bodies()
			bodies[0].Mass = 99
			Expect(s.Body(0).Mass).NotTo(Equal(99.0))
		})
	})

	Describe("removal", func() {
		var s *sim.Simulation

		BeforeEach(func() {
			s = newSim(nil)
			Expect(s.AddBodies([]physics.Body{
				physics.NewBody(1, vec.New(1, 0), vec.Zero),
				physics.NewBody(2, vec.New(2, 0), vec.Zero),
			})).To(Succeed())
		})

		It("removes only the matching body", func() {
			Expect(s.RemoveBodyAt(vec.New(1, 0))).To(BeTrue())
			Expect(s.Len()).To(Equal(1))
			Expect(s.Body(0).Pos).To(Equal(vec.New(2, 0)))
		})

		It("ignores positions with no body", func() {
			Expect(s.RemoveBodyAt(vec.New(5, 5))).To(BeFalse())
			Expect(s.Len()).To(Equal(2))
		})

		It("removes the most recently added match", func() {
			_, err := s.AddBody(physics.NewBody(3, vec.New(1, 0), vec.Zero))
			Expect(err).NotTo(HaveOccurred())

			Expect(s.RemoveBodyAt(vec.New(1, 0))).To(BeTrue())
			Expect(s.Len()).To(Equal(2))
			Expect(s.Body(0).Mass).To(Equal(1.0))
			Expect(s.Body(1).Mass).To(Equal(2.0))
		})

		It("picks bodies by their display radius", func() {
			r := s.Body(1).Radius
			Expect(s.Pick(vec.New(2, r/2))).To(Equal(1))
			Expect(s.Pick(vec.New(10, 10))).To(Equal(-1))
		})

		It("resets to an empty system", func() {
			Expect(s.Update(physics.TimeStep)).To(Succeed())
			s.Reset()
			Expect(s.Len()).To(BeZero())
			Expect(s.Time()).To(BeZero())
			Expect(s.Steps()).To(BeZero())
			Expect(s.Update(physics.TimeStep)).To(Succeed())
		})
	})

	Describe("Update", func() {
		It("rejects bad timesteps without touching the bodies", func() {
			s := newSim(nil)
			Expect(s.AddBodies(kepler())).To(Succeed())
			before := s.Bodies()

			for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
				Expect(s.Update(dt)).To(MatchError(sim.ErrInvalidTimestep))
			}
			Expect(s.Bodies()).To(Equal(before))
			Expect(s.Steps()).To(BeZero())
		})

		It("rolls back a step that produces non-finite positions", func() {
			s := newSim(nil)
			Expect(s.AddBodies([]physics.Body{
				physics.NewBody(1, vec.Zero, vec.Zero),
				physics.NewBody(1e-3, vec.New(1, 0), vec.New(10, 0)),
			})).To(Succeed())
			Expect(s.Update(physics.TimeStep)).To(Succeed())
			before := s.Bodies()

			err := s.Update(1e308)
			Expect(err).To(MatchError(sim.ErrInvalidState))

			var stepErr *sim.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(1))

			Expect(s.Bodies()).To(Equal(before))
			Expect(s.Steps()).To(Equal(1))
			Expect(s.Time()).To(Equal(physics.TimeStep))

			Expect(s.Update(physics.TimeStep)).To(Succeed())
		})

		It("advances time and the step counter", func() {
			s := newSim(nil)
			Expect(s.AddBodies(kepler())).To(Succeed())
			for i := 0; i < 10; i++ {
				Expect(s.Update(0.001)).To(Succeed())
			}
			Expect(s.Steps()).To(Equal(10))
			Expect(s.Time()).To(BeNumerically("~", 0.01, 1e-12))
		})

		It("leaves the tree with the total mass", func() {
			s := newSim(nil)
			bodies := randomBodies(3, 50)
			Expect(s.AddBodies(bodies)).To(Succeed())
			Expect(s.Update(physics.TimeStep)).To(Succeed())

			total := 0.0
			for _, b := range bodies {
				total += b.Mass
			}
			Expect(s.Tree().Root().Mass).To(BeNumerically("~", total, 1e-9*total))
		})

		It("moves tracers without letting them pull", func() {
			s := newSim(nil)
			Expect(s.AddBodies([]physics.Body{
				physics.NewBody(1, vec.Zero, vec.Zero),
				physics.NewBody(0, vec.New(1, 0), vec.Zero),
			})).To(Succeed())
			Expect(s.Update(physics.TimeStep)).To(Succeed())

			star, tracer := s.Body(0), s.Body(1)
			Expect(star.Acc).To(Equal(vec.Zero))
			Expect(star.Pos).To(Equal(vec.Zero))
			Expect(tracer.Acc.X).To(BeNumerically("~", -physics.G, 1e-3*physics.G))
			Expect(tracer.Vel.X).To(BeNumerically("<", 0))
		})

		It("matches direct summation with theta zero", func() {
			s := newSim(func(o *sim.Options) {
				o.Theta = 0
				o.MinChunk = 1
			})
			Expect(s.AddBodies(randomBodies(4, 200))).To(Succeed())
			Expect(s.Update(physics.TimeStep)).To(Succeed())

			bodies := s.Bodies()
			positions := make([]vec.Vec2, len(bodies))
			masses := make([]float64, len(bodies))
			for i, b := range bodies {
				positions[i], masses[i] = b.Pos, b.Mass
			}
			exact := compute.NewCPUBackend(1).Accelerations(positions, masses, s.Epsilon())

			for i, b := range bodies {
				Expect(b.Acc.Sub(exact[i]).Len()).To(BeNumerically("<=", 1e-6*exact[i].Len()), "body %d", i)
			}
		})

		It("writes the tree's acceleration for every body", func() {
			s := newSim(func(o *sim.Options) { o.MinChunk = 1 })
			Expect(s.AddBodies(randomBodies(5, 300))).To(Succeed())
			Expect(s.Update(physics.TimeStep)).To(Succeed())

			for i := 0; i < s.Len(); i++ {
				b := s.Body(i)
				Expect(b.Acc).To(Equal(s.Tree().Acceleration(b.Pos)))
			}
		})
	})

	Describe("parallel determinism", func() {
		It("gives identical states for every pool size", func() {
			bodies := randomBodies(6, 400)

			run := func(workers int) []physics.Body {
				s := newSim(func(o *sim.Options) {
					o.Workers = workers
					o.MinChunk = 1
				})
				Expect(s.AddBodies(bodies)).To(Succeed())
				for i := 0; i < 5; i++ {
					Expect(s.Update(physics.TimeStep)).To(Succeed())
				}
				return s.Bodies()
			}

			serial := run(1)
			for _, workers := range []int{2, 3, 4, 7, pool.DefaultSize()} {
				Expect(run(workers)).To(Equal(serial), "workers %d", workers)
			}
		})
	})

	Describe("Kepler orbit", func() {
		It("closes after one year", func() {
			s := newSim(nil)
			Expect(s.AddBodies(kepler())).To(Succeed())
			start := s.Body(1).Pos

			steps := int(math.Round(1 / physics.TimeStep))
			for i := 0; i < steps; i++ {
				Expect(s.Update(physics.TimeStep)).To(Succeed())
			}

			Expect(s.Time()).To(BeNumerically("~", 1, 1e-9))
			Expect(s.Body(1).Pos.Sub(start).Len()).To(BeNumerically("<", 1e-2))
		})

		It("conserves energy over ten orbits", func() {
			s := newSim(nil)
			Expect(s.AddBodies(kepler())).To(Succeed())

			res, err := sim.NewRunner(s).Run(ctx(), sim.RunConfig{
				Steps:       36525,
				Dt:          10 * physics.TimeStep,
				SampleEvery: 1000,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(36525))

			for _, e := range res.Energies {
				Expect(math.Abs(e-res.Energies[0]) / math.Abs(res.Energies[0])).To(BeNumerically("<", 0.01))
			}
			Expect(res.EnergyDrift).To(BeNumerically("<", 0.01))
		})
	})

	Describe("theta", func() {
		It("rejects invalid values and keeps the old one", func() {
			s := newSim(nil)
			Expect(s.SetTheta(-1)).To(MatchError(sim.ErrInvalidTheta))
			Expect(s.SetTheta(math.NaN())).To(MatchError(sim.ErrInvalidTheta))
			Expect(s.Theta()).To(Equal(sim.DefaultTheta))

			Expect(s.SetTheta(0.8)).To(Succeed())
			Expect(s.Theta()).To(Equal(0.8))
		})
	})

	Describe("snapshots", func() {
		It("restores bodies and time", func() {
			s := newSim(nil)
			Expect(s.AddBodies(randomBodies(7, 20))).To(Succeed())
			Expect(s.Update(physics.TimeStep)).To(Succeed())

			snap := s.Snapshot()
			for i := 0; i < 10; i++ {
				Expect(s.Update(physics.TimeStep)).To(Succeed())
			}
			s.Restore(snap)

			Expect(s.Time()).To(Equal(snap.Time))
			Expect(s.Steps()).To(Equal(1))
			Expect(s.Bodies()).To(Equal(snap.Bodies))
		})
	})

	Describe("Close", func() {
		It("refuses further work", func() {
			opts := sim.DefaultOptions()
			s, err := sim.New(opts)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Close()).To(Succeed())
			Expect(s.Close()).To(MatchError(sim.ErrClosed))
			Expect(s.Update(physics.TimeStep)).To(MatchError(sim.ErrClosed))
			_, err = s.AddBody(physics.NewBody(1, vec.Zero, vec.Zero))
			Expect(err).To(MatchError(sim.ErrClosed))
		})
	})
})
