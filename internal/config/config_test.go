package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/san-kum/gravsim/internal/initcond"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Theta != 0.5 {
		t.Errorf("expected theta 0.5, got %v", cfg.Theta)
	}
	if cfg.Workers != 0 {
		t.Errorf("expected automatic worker count, got %d", cfg.Workers)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gravsim.yaml")
	data := []byte(`theta: 0.8
steps: 500
init:
  kind: disk
  count: 300
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Theta != 0.8 || cfg.Steps != 500 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Init.Kind != initcond.KindDisk || cfg.Init.Count != 300 {
		t.Errorf("nested values not applied: %+v", cfg.Init)
	}
	if cfg.Epsilon != DefaultEpsilon || cfg.Init.Radius != DefaultRadius {
		t.Errorf("defaults lost for unset keys: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GRAVSIM_THETA", "1.2")
	t.Setenv("GRAVSIM_INIT_COUNT", "42")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Theta != 1.2 {
		t.Errorf("expected theta from env, got %v", cfg.Theta)
	}
	if cfg.Init.Count != 42 {
		t.Errorf("expected init.count from env, got %d", cfg.Init.Count)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("theta: -1\n"), 0644)
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")

	cfg := GetPreset("disk")
	cfg.Seed = 99
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip changed config:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"nan dt", func(c *Config) { c.Dt = math.NaN() }},
		{"negative steps", func(c *Config) { c.Steps = -1 }},
		{"negative theta", func(c *Config) { c.Theta = -0.1 }},
		{"infinite epsilon", func(c *Config) { c.Epsilon = math.Inf(1) }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"unknown init", func(c *Config) { c.Init.Kind = "spiral" }},
		{"empty random", func(c *Config) { c.Init.Count = 0 }},
		{"file without path", func(c *Config) { c.Init = initcond.Spec{Kind: initcond.KindFile} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("kepler")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Init.Kind != initcond.KindKepler {
		t.Errorf("expected kepler init, got %s", cfg.Init.Kind)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset should be valid: %v", err)
	}

	cfg.Theta = 3
	if Presets["kepler"].Theta == 3 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	want := []string{"cluster", "disk", "kepler", "solar"}
	if got := ListPresets(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	for _, name := range want {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestSimOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Theta = 0.3
	cfg.Workers = 2

	opts := cfg.SimOptions(zerolog.Nop())
	if opts.Theta != 0.3 || opts.Workers != 2 || opts.Epsilon != cfg.Epsilon {
		t.Errorf("unexpected options %+v", opts)
	}
	run := cfg.RunConfig()
	if run.Steps != cfg.Steps || run.Dt != cfg.Dt {
		t.Errorf("unexpected run config %+v", run)
	}
}
