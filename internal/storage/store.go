package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/odestep/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	traceFile    = "trace.csv"
)

// ErrInvalidRunID is returned for IDs that are not a single path element.
var ErrInvalidRunID = errors.New("storage: run id must be a plain directory name")

func checkID(id string) error {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, id)
	}
	return nil
}

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
	Problem   string             `json:"problem"`
	Stepper   string             `json:"stepper"`
	Timestamp time.Time          `json:"timestamp"`
	XStart    float64            `json:"x_start"`
	XEnd      float64            `json:"x_end"`
	Steps     int                `json:"steps"`
	InitState []float64          `json:"init_state"`
	Params    map[string]float64 `json:"params,omitempty"`

	Adaptive  bool    `json:"adaptive"`
	Tolerance float64 `json:"tolerance,omitempty"`
	MinStep   float64 `json:"min_step,omitempty"`
	MaxSteps  int     `json:"max_steps,omitempty"`

	Completed   bool               `json:"completed"`
	Truncated   bool               `json:"truncated"`
	Accepted    int                `json:"accepted"`
	Rejected    int                `json:"rejected"`
	Grown       int                `json:"grown"`
	FloorHits   int                `json:"floor_hits"`
	Evaluations int                `json:"evaluations"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Describe fills in the run statistics from a finished trace. Non-finite
// metric values are dropped since JSON cannot carry them.
func (m *RunMetadata) Describe(tr *dynamo.Trace) {
	m.Completed = tr.Completed
	m.Truncated = tr.Truncated
	m.Accepted = tr.Accepted
	m.Rejected = tr.Rejected
	m.Grown = tr.Grown
	m.FloorHits = tr.FloorHits
	m.Evaluations = tr.Evaluations
	m.Metrics = make(map[string]float64, len(tr.Metrics))
	for k, v := range tr.Metrics {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			m.Metrics[k] = v
		}
	}
}

// Save writes meta and the trace samples under a new run directory and
// returns the run ID.
func (s *Store) Save(meta RunMetadata, tr *dynamo.Trace) (string, error) {
	now := time.Now()
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", meta.Problem, now.UnixNano())
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = now
	}
	if err := checkID(meta.ID); err != nil {
		return "", err
	}
	meta.Describe(tr)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	// The trace goes first: List only sees runs whose metadata exists.
	if err := writeFile(filepath.Join(runDir, traceFile), func(w io.Writer) error {
		return WriteCSV(w, tr)
	}); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// writeFile removes the file again if fill or Close fails.
func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = errors.Join(fill(f), f.Close())
	if err != nil {
		os.Remove(path)
	}
	return err
}

// List returns every readable run, oldest first.
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
	if err := checkID(runID); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadTrace reads the samples of a run back. Run statistics come from the
// metadata and are not restored here, apart from the floor hit count.
func (s *Store) LoadTrace(runID string) (*dynamo.Trace, error) {
	if err := checkID(runID); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.baseDir, runID, traceFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	tr, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return tr, nil
}

// WriteCSV writes one row per sample with header x,h,floor,u0..u{n-1}.
func WriteCSV(out io.Writer, tr *dynamo.Trace) error {
	w := csv.NewWriter(out)

	if len(tr.Samples) == 0 {
		w.Flush()
		return w.Error()
	}

	header := []string{"x", "h", "floor"}
	for i := range tr.Samples[0].State {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, smp := range tr.Samples {
		floor := "0"
		if smp.FloorHit {
			floor = "1"
		}
		row := []string{formatFloat(smp.X), formatFloat(smp.H), floor}
		for _, v := range smp.State {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

var errMalformed = errors.New("malformed trace csv")

func ReadCSV(in io.Reader) (*dynamo.Trace, error) {
	r := csv.NewReader(in)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tr := &dynamo.Trace{}
	if len(records) < 2 {
		return tr, nil
	}
	if len(records[0]) < 4 || records[0][0] != "x" {
		return nil, fmt.Errorf("%w: unexpected header %v", errMalformed, records[0])
	}

	tr.Samples = make([]dynamo.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %d: %v", errMalformed, i+1, j, err)
			}
			vals[j] = v
		}
		smp := dynamo.Sample{
			X:        vals[0],
			H:        vals[1],
			FloorHit: vals[2] != 0,
			State:    dynamo.State(vals[3:]),
		}
		if smp.FloorHit {
			tr.FloorHits++
		}
		tr.Samples = append(tr.Samples, smp)
	}

	tr.Final = tr.Samples[len(tr.Samples)-1]
	return tr, nil
}

type ExportData struct {
	Run     RunMetadata `json:"run"`
	X       []float64   `json:"x"`
	H       []float64   `json:"h"`
	Floor   []bool      `json:"floor"`
	States  [][]float64 `json:"states"`
	Samples int         `json:"samples"`
}

func ExportJSON(w io.Writer, meta RunMetadata, tr *dynamo.Trace) error {
	data := ExportData{
		Run:     meta,
		X:       tr.Xs(),
		H:       make([]float64, len(tr.Samples)),
		Floor:   make([]bool, len(tr.Samples)),
		States:  make([][]float64, len(tr.Samples)),
		Samples: len(tr.Samples),
	}
	for i, smp := range tr.Samples {
		data.H[i] = smp.H
		data.Floor[i] = smp.FloorHit
		data.States[i] = smp.State
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
