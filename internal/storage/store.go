// Package storage keeps finished runs on disk, one directory per run:
//
//	<base>/<run id>/metadata.json   run parameters and metrics
//	<base>/<run id>/energy.csv      sampled total energy
//	<base>/<run id>/states.csv.zst  recorded frames, zstd compressed
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/DataDog/zstd"

	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/vec"
)

const (
	metadataFile = "metadata.json"
	energyFile   = "energy.csv"
	statesFile   = "states.csv.zst"

	compressionLevel = 3
)

var ErrCorrupt = errors.New("storage: malformed run data")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	InitKind    string             `json:"init_kind"`
	Bodies      int                `json:"bodies"`
	Dt          float64            `json:"dt"`
	Steps       int                `json:"steps"`
	StepsTaken  int                `json:"steps_taken"`
	Theta       float64            `json:"theta"`
	Epsilon     float64            `json:"epsilon"`
	Workers     int                `json:"workers"`
	EnergyDrift float64            `json:"energy_drift"`
	ElapsedSec  float64            `json:"elapsed_sec"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes a run and returns its ID. ID, Timestamp and the result-derived
// fields of meta are filled in.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Name, now.UnixNano())
	meta.Timestamp = now
	meta.StepsTaken = result.StepsTaken
	meta.EnergyDrift = result.EnergyDrift
	meta.ElapsedSec = result.Elapsed.Seconds()
	meta.Metrics = result.Metrics

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeEnergy(filepath.Join(runDir, energyFile), result); err != nil {
		return "", err
	}
	if err := writeFrames(filepath.Join(runDir, statesFile), result.Frames); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func writeEnergy(path string, result *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "energy"}); err != nil {
		return err
	}
	for i := range result.Times {
		if err := w.Write([]string{formatFloat(result.Times[i]), formatFloat(result.Energies[i])}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

var frameHeader = []string{"time", "body", "x", "y", "vx", "vy", "mass"}

func writeFrames(path string, frames []sim.Frame) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zstd.NewWriterLevel(f, compressionLevel)
	w := csv.NewWriter(zw)

	if err := w.Write(frameHeader); err != nil {
		zw.Close()
		return err
	}
	for _, fr := range frames {
		t := formatFloat(fr.Time)
		for i, b := range fr.Bodies {
			row := []string{
				t,
				strconv.Itoa(i),
				formatFloat(b.Pos.X),
				formatFloat(b.Pos.Y),
				formatFloat(b.Vel.X),
				formatFloat(b.Vel.Y),
				formatFloat(b.Mass),
			}
			if err := w.Write(row); err != nil {
				zw.Close()
				return err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// List returns the metadata of every stored run, oldest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadEnergy returns the sampled times and energies of a run.
func (s *Store) LoadEnergy(runID string) ([]float64, []float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, energyFile))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	energies := make([]float64, 0, len(records)-1)
	for i, rec := range records[1:] {
		vals, err := parseFloats(rec)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: energy row %d: %v", ErrCorrupt, i+1, err)
		}
		times = append(times, vals[0])
		energies = append(energies, vals[1])
	}
	return times, energies, nil
}

// LoadTrajectory decodes the recorded frames of a run.
func (s *Store) LoadTrajectory(runID string) ([]sim.Frame, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr := zstd.NewReader(f)
	defer zr.Close()

	return readFrames(zr)
}

func readFrames(r io.Reader) ([]sim.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(frameHeader)

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return []sim.Frame{}, nil
		}
		return nil, err
	}

	frames := make([]sim.Frame, 0)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		idx, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, line, err)
		}
		vals, err := parseFloats([]string{rec[0], rec[2], rec[3], rec[4], rec[5], rec[6]})
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, line, err)
		}

		// a frame starts at body 0
		if idx == 0 {
			frames = append(frames, sim.Frame{Time: vals[0]})
		}
		if len(frames) == 0 || idx != len(frames[len(frames)-1].Bodies) {
			return nil, fmt.Errorf("%w: line %d: body %d out of order", ErrCorrupt, line, idx)
		}

		b := physics.NewBody(vals[5], vec.New(vals[1], vals[2]), vec.New(vals[3], vals[4]))
		last := &frames[len(frames)-1]
		last.Bodies = append(last.Bodies, b)
	}
	return frames, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
