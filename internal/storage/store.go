package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/pushctl/internal/config"
	"github.com/san-kum/pushctl/internal/metrics"
	"github.com/san-kum/pushctl/internal/recorder"
	"github.com/san-kum/pushctl/internal/task"
)

// ErrNotFound indicates an unknown run id.
var ErrNotFound = errors.New("storage: run not found")

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
	ID        string             `json:"id"`
	Impl      string             `json:"impl"`
	Variant   string             `json:"variant"`
	Trial     int                `json:"trial"`
	Timestamp time.Time          `json:"timestamp"`
	Status    task.Status        `json:"status"`
	Total     float64            `json:"total"`
	Finished  bool               `json:"finished"`
	Finish    float64            `json:"finish"`
	Ticks     int                `json:"ticks"`
	Line      string             `json:"line"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Record rebuilds the trial record, reading samples from disk.
func (m RunMetadata) Record(samples []recorder.Sample) recorder.TrialRecord {
	return recorder.TrialRecord{
		Impl:     m.Impl,
		Trial:    m.Trial,
		Total:    m.Total,
		Status:   m.Status,
		Finished: m.Finished,
		Finish:   m.Finish,
		Samples:  samples,
	}
}

// Run is everything persisted for one trial.
type Run struct {
	Record  recorder.TrialRecord
	Config  *config.Config
	Metrics map[string]float64
	Ticks   []metrics.TickInfo
}

// Save writes metadata.json, config.yaml, samples.csv and ticks.csv into a
// new run directory and returns its id.
func (s *Store) Save(run Run) (string, error) {
	rec := run.Record
	runID := fmt.Sprintf("%s_%d_%s", rec.Impl, rec.Trial, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Impl:      rec.Impl,
		Trial:     rec.Trial,
		Timestamp: time.Now(),
		Status:    rec.Status,
		Total:     rec.Total,
		Finished:  rec.Finished,
		Finish:    rec.Finish,
		Ticks:     len(run.Ticks),
		Line:      recorder.Format(rec),
		Metrics:   run.Metrics,
	}
	if run.Config != nil {
		meta.Variant = run.Config.Variant
		if err := config.Save(filepath.Join(runDir, "config.yaml"), run.Config); err != nil {
			return "", err
		}
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, "samples.csv"), sampleRows(rec.Samples)); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, "ticks.csv"), tickRows(run.Ticks)); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func sampleRows(samples []recorder.Sample) [][]string {
	rows := [][]string{{"at", "error"}}
	for _, s := range samples {
		rows = append(rows, []string{ff(s.At), ff(s.Error)})
	}
	return rows
}

var tickHeader = []string{
	"tick", "elapsed", "phase", "error",
	"object_x", "object_y", "effector_x", "effector_y", "effector_z",
	"delta_x", "delta_y", "delta_z", "contact", "solver_iterations",
}

func tickRows(ticks []metrics.TickInfo) [][]string {
	rows := [][]string{tickHeader}
	for _, t := range ticks {
		rows = append(rows, []string{
			strconv.Itoa(t.Tick), ff(t.Elapsed), t.Phase.String(), ff(t.Error.Magnitude),
			ff(t.Obs.Object.X), ff(t.Obs.Object.Y),
			ff(t.Obs.EndEffector.X), ff(t.Obs.EndEffector.Y), ff(t.Obs.EndEffector.Z),
			ff(t.Delta.X), ff(t.Delta.Y), ff(t.Delta.Z),
			ff(t.Contact), strconv.Itoa(t.SolverIterations),
		})
	}
	return rows
}

// List returns every readable run, newest first.
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig reads the config snapshot saved with the run.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, "config.yaml"))
}

func (s *Store) LoadSamples(runID string) ([]recorder.Sample, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "samples.csv"))
	if err != nil {
		return nil, err
	}
	samples := make([]recorder.Sample, 0, len(records))
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		at, err1 := strconv.ParseFloat(rec[0], 64)
		e, err2 := strconv.ParseFloat(rec[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		samples = append(samples, recorder.Sample{At: at, Error: e})
	}
	return samples, nil
}

// TickRow is one row of ticks.csv.
type TickRow struct {
	Tick     int
	Elapsed  float64
	Phase    string
	Error    float64
	Object   [2]float64
	Effector [3]float64
	Delta    [3]float64
	Contact  float64
	Solver   int
}

func (s *Store) LoadTicks(runID string) ([]TickRow, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "ticks.csv"))
	if err != nil {
		return nil, err
	}
	rows := make([]TickRow, 0, len(records))
	for _, rec := range records {
		if len(rec) < len(tickHeader) {
			continue
		}
		var (
			r    TickRow
			vals [10]float64
			bad  bool
		)
		r.Tick, _ = strconv.Atoi(rec[0])
		r.Phase = rec[2]
		for i, col := range []int{1, 3, 4, 5, 6, 7, 8, 9, 10, 11} {
			v, err := strconv.ParseFloat(rec[col], 64)
			if err != nil {
				bad = true
				break
			}
			vals[i] = v
		}
		if bad {
			continue
		}
		r.Elapsed, r.Error = vals[0], vals[1]
		r.Object = [2]float64{vals[2], vals[3]}
		r.Effector = [3]float64{vals[4], vals[5], vals[6]}
		r.Delta = [3]float64{vals[7], vals[8], vals[9]}
		r.Contact, _ = strconv.ParseFloat(rec[12], 64)
		r.Solver, _ = strconv.Atoi(rec[13])
		rows = append(rows, r)
	}
	return rows, nil
}

// readCSV returns the data rows, header dropped.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}
