package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/gravsim/internal/initcond"
	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	DefaultDt          = physics.TimeStep
	DefaultSteps       = 36525
	DefaultSampleEvery = 100
	DefaultTheta       = sim.DefaultTheta
	DefaultEpsilon     = sim.DefaultEpsilon
	DefaultMinChunk    = sim.DefaultMinChunk
	DefaultBodies      = 25
	DefaultRadius      = 5.0
	DefaultLogLevel    = "info"
	DefaultDataDir     = "runs"

	// EnvPrefix prefixes environment overrides, e.g. GRAVSIM_THETA or
	// GRAVSIM_INIT_COUNT.
	EnvPrefix = "GRAVSIM"
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Dt            float64       `yaml:"dt" mapstructure:"dt"`
	Steps         int           `yaml:"steps" mapstructure:"steps"`
	SampleEvery   int           `yaml:"sample_every" mapstructure:"sample_every"`
	Theta         float64       `yaml:"theta" mapstructure:"theta"`
	Epsilon       float64       `yaml:"epsilon" mapstructure:"epsilon"`
	Workers       int           `yaml:"workers" mapstructure:"workers"`
	MinChunk      int           `yaml:"min_chunk" mapstructure:"min_chunk"`
	ValidateState bool          `yaml:"validate_state" mapstructure:"validate_state"`
	Seed          int64         `yaml:"seed" mapstructure:"seed"`
	Init          initcond.Spec `yaml:"init" mapstructure:"init"`
	LogLevel      string        `yaml:"log_level" mapstructure:"log_level"`
	DataDir       string        `yaml:"data_dir" mapstructure:"data_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Dt:            DefaultDt,
		Steps:         DefaultSteps,
		SampleEvery:   DefaultSampleEvery,
		Theta:         DefaultTheta,
		Epsilon:       DefaultEpsilon,
		MinChunk:      DefaultMinChunk,
		ValidateState: true,
		Seed:          1,
		Init: initcond.Spec{
			Kind:        initcond.KindRandom,
			Count:       DefaultBodies,
			CentralMass: 1,
			Radius:      DefaultRadius,
		},
		LogLevel: DefaultLogLevel,
		DataDir:  DefaultDataDir,
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("dt", d.Dt)
	v.SetDefault("steps", d.Steps)
	v.SetDefault("sample_every", d.SampleEvery)
	v.SetDefault("theta", d.Theta)
	v.SetDefault("epsilon", d.Epsilon)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("min_chunk", d.MinChunk)
	v.SetDefault("validate_state", d.ValidateState)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("init.kind", d.Init.Kind)
	v.SetDefault("init.count", d.Init.Count)
	v.SetDefault("init.central_mass", d.Init.CentralMass)
	v.SetDefault("init.radius", d.Init.Radius)
	v.SetDefault("init.file", d.Init.File)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("data_dir", d.DataDir)
}

// Load reads defaults, then the YAML file at path if path is not empty, then
// GRAVSIM_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func (c *Config) Validate() error {
	switch {
	case !finite(c.Dt) || c.Dt <= 0:
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalid, c.Dt)
	case c.Steps < 0:
		return fmt.Errorf("%w: steps must not be negative, got %d", ErrInvalid, c.Steps)
	case c.SampleEvery < 0:
		return fmt.Errorf("%w: sample_every must not be negative, got %d", ErrInvalid, c.SampleEvery)
	case !finite(c.Theta) || c.Theta < 0:
		return fmt.Errorf("%w: theta must not be negative, got %v", ErrInvalid, c.Theta)
	case !finite(c.Epsilon) || c.Epsilon < 0:
		return fmt.Errorf("%w: epsilon must not be negative, got %v", ErrInvalid, c.Epsilon)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalid, c.Workers)
	case c.MinChunk < 0:
		return fmt.Errorf("%w: min_chunk must not be negative, got %d", ErrInvalid, c.MinChunk)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level %q", ErrInvalid, c.LogLevel)
	}

	switch c.Init.Kind {
	case initcond.KindRandom, initcond.KindDisk:
		if c.Init.Count <= 0 {
			return fmt.Errorf("%w: init.count must be positive for %s, got %d", ErrInvalid, c.Init.Kind, c.Init.Count)
		}
		if !finite(c.Init.Radius) || c.Init.Radius < 0 {
			return fmt.Errorf("%w: init.radius must not be negative, got %v", ErrInvalid, c.Init.Radius)
		}
	case initcond.KindSolar, initcond.KindKepler:
	case initcond.KindFile:
		if c.Init.File == "" {
			return fmt.Errorf("%w: init.file is required for kind file", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: init.kind %q (want one of %s)", ErrInvalid, c.Init.Kind, strings.Join(initcond.Kinds(), ", "))
	}

	if !finite(c.Init.CentralMass) || c.Init.CentralMass < 0 {
		return fmt.Errorf("%w: init.central_mass must not be negative, got %v", ErrInvalid, c.Init.CentralMass)
	}
	return nil
}

// SimOptions maps the config onto simulation options.
func (c *Config) SimOptions(log zerolog.Logger) sim.Options {
	return sim.Options{
		Theta:    c.Theta,
		Epsilon:  c.Epsilon,
		Workers:  c.Workers,
		MinChunk: c.MinChunk,
		Validate: c.ValidateState,
		Logger:   log,
	}
}

func (c *Config) RunConfig() sim.RunConfig {
	return sim.RunConfig{
		Steps:       c.Steps,
		Dt:          c.Dt,
		SampleEvery: c.SampleEvery,
	}
}
