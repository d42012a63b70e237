package config

import (
	"sort"

	"github.com/san-kum/gravsim/internal/initcond"
)

var Presets = map[string]*Config{
	"kepler": {
		Dt: DefaultDt, Steps: 36525, SampleEvery: 365, Theta: 0.5, Epsilon: 1e-3,
		Init: initcond.Spec{Kind: initcond.KindKepler, CentralMass: 1},
	},
	"solar": {
		Dt: DefaultDt, Steps: 2 * 36525, SampleEvery: 365, Theta: 0.5, Epsilon: 1e-3,
		Init: initcond.Spec{Kind: initcond.KindSolar},
	},
	"cluster": {
		Dt: 1e-3, Steps: 5000, SampleEvery: 50, Theta: 0.7, Epsilon: 1e-2,
		Init: initcond.Spec{Kind: initcond.KindRandom, Count: 500, Radius: 10},
	},
	"disk": {
		Dt: 1e-3, Steps: 5000, SampleEvery: 50, Theta: 0.7, Epsilon: 1e-2,
		Init: initcond.Spec{Kind: initcond.KindDisk, Count: 2000, CentralMass: 1, Radius: 5},
	},
}

// GetPreset returns a copy of the named preset with the remaining fields
// taken from DefaultConfig, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	d := DefaultConfig()
	cfg := *p
	cfg.Workers = d.Workers
	cfg.MinChunk = d.MinChunk
	cfg.ValidateState = d.ValidateState
	cfg.Seed = d.Seed
	cfg.LogLevel = d.LogLevel
	cfg.DataDir = d.DataDir
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
