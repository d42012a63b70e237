// Package export renders recorded runs as SVG.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/san-kum/gravsim/internal/sim"
)

var ErrNoFrames = errors.New("export: need at least two recorded frames")

const background = "#0a0a0a"

type bounds struct {
	minX, maxX, minY, maxY float64
}

func frameBounds(frames []sim.Frame) bounds {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, f := range frames {
		for _, body := range f.Bodies {
			b.minX = math.Min(b.minX, body.Pos.X)
			b.maxX = math.Max(b.maxX, body.Pos.X)
			b.minY = math.Min(b.minY, body.Pos.Y)
			b.maxY = math.Max(b.maxY, body.Pos.Y)
		}
	}

	// square it so orbits keep their shape, then pad by 10%
	span := math.Max(b.maxX-b.minX, b.maxY-b.minY)
	if span == 0 {
		span = 1
	}
	cx, cy := (b.minX+b.maxX)/2, (b.minY+b.maxY)/2
	half := span * 0.6
	return bounds{cx - half, cx + half, cy - half, cy + half}
}

func (b bounds) project(x, y float64, width, height int) (float64, float64) {
	px := (x - b.minX) / (b.maxX - b.minX) * float64(width)
	py := float64(height) - (y-b.minY)/(b.maxY-b.minY)*float64(height)
	return px, py
}

func hex(c color.RGBA) string {
	if c == (color.RGBA{}) {
		return "#00ff00"
	}
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Trajectories writes one path per body through every recorded frame, and
// marks the final positions. Bodies are matched by index, so the body count
// must not change between frames.
func Trajectories(w io.Writer, frames []sim.Frame, width, height int) error {
	if len(frames) < 2 {
		return ErrNoFrames
	}
	n := len(frames[0].Bodies)
	for i, f := range frames {
		if len(f.Bodies) != n {
			return fmt.Errorf("export: frame %d has %d bodies, want %d", i, len(f.Bodies), n)
		}
	}

	b := frameBounds(frames)
	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)

	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1" d="`, hex(frames[0].Bodies[i].Color))
		for j, f := range frames {
			x, y := b.project(f.Bodies[i].Pos.X, f.Bodies[i].Pos.Y, width, height)
			if j == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	last := frames[len(frames)-1]
	for _, body := range last.Bodies {
		x, y := b.project(body.Pos.X, body.Pos.Y, width, height)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="2" fill="%s"/>`+"\n", x, y, hex(body.Color))
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
