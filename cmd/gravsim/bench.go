package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/gravsim/internal/compute"
	"github.com/san-kum/gravsim/internal/initcond"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/vec"
)

var (
	benchSizes  []int
	benchSteps  int
	benchThetas []float64
	benchSeed   int64
	benchJobs   int
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "compare barnes-hut against direct summation",
		Args:  cobra.NoArgs,
		RunE:  runBench,
	}
	cmd.Flags().IntSliceVar(&benchSizes, "sizes", []int{256, 1024, 4096}, "body counts")
	cmd.Flags().IntVar(&benchSteps, "steps", 20, "steps per measurement")
	cmd.Flags().Float64SliceVar(&benchThetas, "thetas", nil, "also sweep these opening angles on the largest size")
	cmd.Flags().IntVar(&benchJobs, "workers", 0, "worker threads (0 = one per CPU)")
	cmd.Flags().Int64Var(&benchSeed, "seed", 42, "random seed")
	return cmd
}

func benchBodies(n int) []physics.Body {
	rng := rand.New(rand.NewSource(benchSeed))
	return initcond.RandomSystem(rng, n, 1, 10)
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchSteps < 1 {
		return fmt.Errorf("steps must be positive, got %d", benchSteps)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BODIES\tMETHOD\tMEAN\tSTDDEV\tSTEPS/SEC")

	for _, n := range benchSizes {
		bodies := benchBodies(n)

		mean, std, err := benchTree(bodies)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%d\tbarnes-hut\t%v\t%v\t%.1f\n", n, seconds(mean), seconds(std), 1/mean)

		mean, std = benchDirect(bodies)
		fmt.Fprintf(w, "%d\tdirect\t%v\t%v\t%.1f\n", n, seconds(mean), seconds(std), 1/mean)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(benchThetas) == 0 || len(benchSizes) == 0 {
		return nil
	}
	return benchThetaSweep(benchBodies(benchSizes[len(benchSizes)-1]))
}

// benchTree times full simulation steps, tree rebuild included.
func benchTree(bodies []physics.Body) (mean, std float64, err error) {
	opts := sim.DefaultOptions()
	opts.Workers = benchJobs
	opts.Validate = false

	s, err := sim.New(opts)
	if err != nil {
		return 0, 0, err
	}
	defer s.Close()

	if err := s.AddBodies(bodies); err != nil {
		return 0, 0, err
	}

	timer := metrics.NewStepTime()
	runner := sim.NewRunner(s)
	runner.AddMetric(timer)

	if _, err := runner.Run(context.Background(), sim.RunConfig{Steps: benchSteps, Dt: physics.TimeStep}); err != nil {
		return 0, 0, err
	}
	mean, std = timer.MeanStdDev()
	return mean, std, nil
}

// benchDirect times the O(n²) acceleration pass alone.
func benchDirect(bodies []physics.Body) (mean, std float64) {
	backend := compute.NewCPUBackend(benchJobs)
	positions := make([]vec.Vec2, len(bodies))
	masses := make([]float64, len(bodies))
	for i, b := range bodies {
		positions[i] = b.Pos
		masses[i] = b.Mass
	}

	samples := make([]float64, benchSteps)
	for i := range samples {
		start := time.Now()
		backend.Accelerations(positions, masses, sim.DefaultEpsilon)
		samples[i] = time.Since(start).Seconds()
	}
	return stat.MeanStdDev(samples, nil)
}

func benchThetaSweep(bodies []physics.Body) error {
	variants := make([]sim.Variant, len(benchThetas))
	for i, th := range benchThetas {
		opts := sim.DefaultOptions()
		opts.Theta = th
		opts.Workers = 1
		opts.Logger = zerolog.Nop()
		variants[i] = sim.Variant{Name: fmt.Sprintf("theta=%.2f", th), Options: opts}
	}

	fmt.Printf("\ntheta sweep, %d bodies, %d steps\n\n", len(bodies), benchSteps)

	results, err := sim.NewEnsemble(bodies, variants).Run(context.Background(),
		sim.RunConfig{Steps: benchSteps, Dt: physics.TimeStep})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tELAPSED\tENERGY DRIFT")
	for i, r := range results {
		fmt.Fprintf(w, "%s\t%v\t%.3e\n", variants[i].Name, r.Elapsed.Round(time.Microsecond), r.EnergyDrift)
	}
	return w.Flush()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Microsecond)
}
