package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/gravsim/internal/clock"
	"github.com/san-kum/gravsim/internal/config"
	"github.com/san-kum/gravsim/internal/export"
	"github.com/san-kum/gravsim/internal/initcond"
	"github.com/san-kum/gravsim/internal/logging"
	"github.com/san-kum/gravsim/internal/metrics"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/storage"
	"github.com/san-kum/gravsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	logLevel   string
	preset     string

	dt          float64
	steps       int
	sampleEvery int
	theta       float64
	epsilon     float64
	workers     int
	seed        int64
	initKind    string
	numBodies   int
	radius      float64
	bodyFile    string

	record    bool
	runName   string
	timeScale float64
	fullDump  bool
	svgPath   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gravsim",
		Short:        "barnes-hut gravity simulator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a simulation and save the result",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&record, "record", false, "record body positions at every sample")
	runCmd.Flags().StringVar(&runName, "name", "", "run name (default: preset or init kind)")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().Float64Var(&timeScale, "time-scale", clock.DefaultTimeScale, "simulated years per second")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the energy history of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata, or the whole run with --full",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().BoolVar(&fullDump, "full", false, "include energy samples and recorded frames")
	exportCmd.Flags().StringVar(&svgPath, "svg", "", "write recorded trajectories to an svg file")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tINIT\tBODIES\tSTEPS\tDT\tTHETA")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.3g\t%.2f\n",
					name, p.Init.Kind, p.Init.Count, p.Steps, p.Dt, p.Theta)
			}
			return w.Flush()
		},
	}

	initConfigCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a config file with default or preset values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	initConfigCmd.Flags().StringVar(&preset, "preset", "", "start from a preset")

	generateCmd := &cobra.Command{
		Use:   "generate [path]",
		Short: "write the initial bodies of a configuration to a yaml file",
		Args:  cobra.ExactArgs(1),
		RunE:  generateBodies,
	}
	addSimFlags(generateCmd)

	benchCmd := newBenchCmd()

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, presetsCmd,
		initConfigCmd, generateCmd, benchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", d.Dt, "timestep in years")
	cmd.Flags().IntVar(&steps, "steps", d.Steps, "number of steps")
	cmd.Flags().IntVar(&sampleEvery, "sample-every", d.SampleEvery, "steps between energy samples")
	cmd.Flags().Float64Var(&theta, "theta", d.Theta, "barnes-hut opening angle")
	cmd.Flags().Float64Var(&epsilon, "epsilon", d.Epsilon, "softening length in AU")
	cmd.Flags().IntVar(&workers, "workers", d.Workers, "worker threads (0 = one per CPU)")
	cmd.Flags().Int64Var(&seed, "seed", d.Seed, "random seed")
	cmd.Flags().StringVar(&initKind, "init", d.Init.Kind, fmt.Sprintf("initial conditions %v", initcond.Kinds()))
	cmd.Flags().IntVar(&numBodies, "bodies", d.Init.Count, "number of bodies (random, disk)")
	cmd.Flags().Float64Var(&radius, "radius", d.Init.Radius, "system radius in AU (random, disk)")
	cmd.Flags().StringVar(&bodyFile, "file", "", "bodies file (init=file)")
}

// loadConfig resolves a preset or the config file, then applies any flags
// that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	} else {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("sample-every") {
		cfg.SampleEvery = sampleEvery
	}
	if flags.Changed("theta") {
		cfg.Theta = theta
	}
	if flags.Changed("epsilon") {
		cfg.Epsilon = epsilon
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("init") {
		cfg.Init.Kind = initKind
	}
	if flags.Changed("bodies") {
		cfg.Init.Count = numBodies
	}
	if flags.Changed("radius") {
		cfg.Init.Radius = radius
	}
	if flags.Changed("file") {
		cfg.Init.File = bodyFile
		if !flags.Changed("init") {
			cfg.Init.Kind = initcond.KindFile
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logging.New(os.Stderr, cfg.LogLevel, true)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	bodies, err := initcond.Generate(cfg.Init, cfg.Seed)
	if err != nil {
		return err
	}

	s, err := sim.New(cfg.SimOptions(log))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.AddBodies(bodies); err != nil {
		return err
	}

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	runner := sim.NewRunner(s)
	runner.AddMetric(metrics.NewEnergyDrift(cfg.Epsilon, max(cfg.SampleEvery, 1)))
	runner.AddMetric(metrics.NewMomentumDrift())
	runner.AddMetric(metrics.NewAngularMomentumDrift())
	runner.AddMetric(metrics.NewStability(stabilityRadius(cfg)))
	runner.AddMetric(metrics.NewStepTime())

	rc := cfg.RunConfig()
	rc.Record = record

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("running %d bodies for %d steps...\n", len(bodies), rc.Steps)

	result, runErr := runner.Run(ctx, rc)
	if result == nil {
		return runErr
	}

	name := runName
	if name == "" {
		name = preset
	}
	if name == "" {
		name = cfg.Init.Kind
	}

	runID, err := st.Save(storage.RunMetadata{
		Name:     name,
		Seed:     cfg.Seed,
		InitKind: cfg.Init.Kind,
		Bodies:   len(bodies),
		Dt:       cfg.Dt,
		Steps:    cfg.Steps,
		Theta:    cfg.Theta,
		Epsilon:  cfg.Epsilon,
		Workers:  s.Workers(),
	}, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", result.Elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("energy drift: %.3e\n", result.EnergyDrift)
	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for n := range result.Metrics {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Printf("  %s: %.6g\n", n, result.Metrics[n])
	}

	return runErr
}

// stabilityRadius is the distance from the center of mass beyond which a
// massive body counts as escaped.
func stabilityRadius(cfg *config.Config) float64 {
	if cfg.Init.Radius > 0 {
		return 10 * cfg.Init.Radius
	}
	return 100
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	bodies, err := initcond.Generate(cfg.Init, cfg.Seed)
	if err != nil {
		return err
	}

	// the terminal belongs to the view
	s, err := sim.New(cfg.SimOptions(zerolog.Nop()))
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.AddBodies(bodies); err != nil {
		return err
	}

	c := clock.New(cfg.Dt)
	c.SetTimeScale(timeScale)

	title := preset
	if title == "" {
		title = cfg.Init.Kind
	}
	return viz.Run(viz.NewModel(s, c, bodies, title))
}

func generateBodies(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	bodies, err := initcond.Generate(cfg.Init, cfg.Seed)
	if err != nil {
		return err
	}
	if err := initcond.SaveFile(args[0], bodies); err != nil {
		return err
	}
	fmt.Printf("wrote %d bodies to %s\n", len(bodies), args[0])
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTIME\tBODIES\tSTEPS\tDT\tTHETA\tDRIFT")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%.3g\t%.2f\t%.2e\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Bodies,
			run.StepsTaken,
			run.Steps,
			run.Dt,
			run.Theta,
			run.EnergyDrift,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	times, energies, err := st.LoadEnergy(runID)
	if err != nil {
		return err
	}
	if len(energies) < 2 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("bodies: %d\n", meta.Bodies)
	fmt.Printf("samples: %d over %.3f yr\n\n", len(energies), times[len(times)-1]-times[0])

	fmt.Println(asciigraph.Plot(energies,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("total energy"),
	))
	fmt.Println()

	if e0 := energies[0]; e0 != 0 {
		drift := make([]float64, len(energies))
		for i, e := range energies {
			drift[i] = (e - e0) / math.Abs(e0)
		}
		fmt.Println(asciigraph.Plot(drift,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("relative energy drift"),
		))
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	if svgPath != "" {
		frames, err := st.LoadTrajectory(runID)
		if err != nil {
			return fmt.Errorf("run %s has no recorded trajectory (run with --record): %w", runID, err)
		}
		f, err := os.Create(svgPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := export.Trajectories(f, frames, 800, 800); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
		return nil
	}

	if fullDump {
		return st.ExportJSON(os.Stdout, runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
