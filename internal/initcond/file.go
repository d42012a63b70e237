package initcond

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/vec"
)

type fileBody struct {
	Pos    vec.Vec2 `yaml:"pos"`
	Vel    vec.Vec2 `yaml:"vel"`
	Mass   float64  `yaml:"mass"`
	Radius float64  `yaml:"radius,omitempty"`
	Color  string   `yaml:"color,omitempty"`
}

type bodyFile struct {
	Bodies []fileBody `yaml:"bodies"`
}

// LoadFile reads a YAML body list. Missing radii are derived from the mass
// and missing colors default to white.
func LoadFile(path string) ([]physics.Body, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f bodyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	bodies := make([]physics.Body, 0, len(f.Bodies))
	for i, fb := range f.Bodies {
		b := physics.NewBody(fb.Mass, fb.Pos, fb.Vel)
		if fb.Radius > 0 {
			b.Radius = fb.Radius
		}
		if fb.Color != "" {
			c, err := parseColor(fb.Color)
			if err != nil {
				return nil, fmt.Errorf("%s: body %d: %w", path, i, err)
			}
			b.Color = c
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

func SaveFile(path string, bodies []physics.Body) error {
	f := bodyFile{Bodies: make([]fileBody, len(bodies))}
	for i, b := range bodies {
		f.Bodies[i] = fileBody{
			Pos:    b.Pos,
			Vel:    b.Vel,
			Mass:   b.Mass,
			Radius: b.Radius,
			Color:  formatColor(b.Color),
		}
	}

	data, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func formatColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func parseColor(s string) (color.RGBA, error) {
	var c color.RGBA
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("color %q: want #rrggbb", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("color %q: %w", s, err)
	}
	c.A = 255
	return c, nil
}
