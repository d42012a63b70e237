package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/gravsim/internal/sim"
)

type ExportData struct {
	Run      RunMetadata   `json:"run"`
	Times    []float64     `json:"times"`
	Energies []float64     `json:"energies"`
	Frames   []ExportFrame `json:"frames"`
}

type ExportFrame struct {
	Time   float64      `json:"time"`
	Bodies []ExportBody `json:"bodies"`
}

type ExportBody struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	VX   float64 `json:"vx"`
	VY   float64 `json:"vy"`
	Mass float64 `json:"mass"`
}

func exportFrames(frames []sim.Frame) []ExportFrame {
	out := make([]ExportFrame, len(frames))
	for i, f := range frames {
		bodies := make([]ExportBody, len(f.Bodies))
		for j, b := range f.Bodies {
			bodies[j] = ExportBody{X: b.Pos.X, Y: b.Pos.Y, VX: b.Vel.X, VY: b.Vel.Y, Mass: b.Mass}
		}
		out[i] = ExportFrame{Time: f.Time, Bodies: bodies}
	}
	return out
}

// ExportJSON writes a stored run as one indented JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	times, energies, err := s.LoadEnergy(runID)
	if err != nil {
		return err
	}
	frames, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		Run:      *meta,
		Times:    times,
		Energies: energies,
		Frames:   exportFrames(frames),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
