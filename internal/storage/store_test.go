package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/odestep/internal/dynamo"
)

func sampleTrace() *dynamo.Trace {
	tr := &dynamo.Trace{
		Samples: []dynamo.Sample{
			{X: 0, State: dynamo.State{1, 0}},
			{X: 0.1, H: 0.1, State: dynamo.State{0.995004165278026, -0.0998334166468282}},
			{X: 0.15, H: 0.05, State: dynamo.State{0.98877, -0.14944}, FloorHit: true},
		},
		Completed:   true,
		Accepted:    2,
		Rejected:    1,
		FloorHits:   1,
		Evaluations: 36,
		Metrics: map[string]float64{
			"max_error":    1.5e-9,
			"energy_drift": math.NaN(),
		},
	}
	tr.Final = tr.Samples[2]
	return tr
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	meta := RunMetadata{
		Problem:   "oscillator",
		Stepper:   "rk4",
		XStart:    0,
		XEnd:      0.15,
		Steps:     2,
		InitState: []float64{1, 0},
		Adaptive:  true,
		Tolerance: 1e-5,
	}
	runID, err := st.Save(meta, sampleTrace())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(runID, "oscillator_"))

	got, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, got.ID)
	assert.Equal(t, "oscillator", got.Problem)
	assert.True(t, got.Completed)
	assert.Equal(t, 2, got.Accepted)
	assert.Equal(t, 1, got.Rejected)
	assert.Equal(t, 1, got.FloorHits)
	assert.Equal(t, 36, got.Evaluations)
	assert.Equal(t, 1.5e-9, got.Metrics["max_error"])
	assert.NotContains(t, got.Metrics, "energy_drift")
	assert.False(t, got.Timestamp.IsZero())

	tr, err := st.LoadTrace(runID)
	require.NoError(t, err)
	require.Len(t, tr.Samples, 3)
	assert.Equal(t, sampleTrace().Samples, tr.Samples)
	assert.Equal(t, 1, tr.FloorHits)
	assert.Equal(t, 0.15, tr.Final.X)
}

func TestStoreFileStructure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	require.NoError(t, st.Init())

	runID, err := st.Save(RunMetadata{Problem: "exponential"}, sampleTrace())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, runID, "metadata.json"))
	assert.FileExists(t, filepath.Join(dir, runID, "trace.csv"))

	data, err := os.ReadFile(filepath.Join(dir, runID, "trace.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "x,h,floor,u0,u1", lines[0])
	assert.Equal(t, "0,0,0,1,0", lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "0.15,0.05,1,"))
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, st.Init())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		_, err := st.Save(RunMetadata{ID: id, Problem: "cubic", Timestamp: base.Add(time.Duration(i) * time.Hour)}, sampleTrace())
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(st.baseDir, "stray.txt"), []byte("x"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(st.baseDir, "empty"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "a", runs[1].ID)
	assert.Equal(t, "b", runs[2].ID)
}

func TestSaveRejectsUnsafeIDs(t *testing.T) {
	root := t.TempDir()
	st := New(filepath.Join(root, "data"))
	require.NoError(t, st.Init())

	for _, id := range []string{"../escaped", "a/b", "..", "."} {
		_, err := st.Save(RunMetadata{ID: id, Problem: "cubic"}, sampleTrace())
		assert.ErrorIs(t, err, ErrInvalidRunID, "id %q", id)
	}
	assert.NoDirExists(t, filepath.Join(root, "escaped"))

	_, err := st.Load("../data")
	assert.ErrorIs(t, err, ErrInvalidRunID)
	_, err = st.LoadTrace("x/../../y")
	assert.ErrorIs(t, err, ErrInvalidRunID)
}

func TestSaveFailedTraceIsNotListed(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	// a directory in place of trace.csv makes the trace write fail
	require.NoError(t, os.MkdirAll(filepath.Join(st.baseDir, "broken", "trace.csv"), 0755))

	_, err := st.Save(RunMetadata{ID: "broken", Problem: "cubic"}, sampleTrace())
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(st.baseDir, "broken", "metadata.json"))

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLoadMissing(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Load("nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = st.LoadTrace("nope")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadCSVMalformed(t *testing.T) {
	tests := []string{
		"time,x0\n0,1\n",
		"x,h,floor,u0\n0,0,0,abc\n",
	}
	for _, in := range tests {
		_, err := ReadCSV(strings.NewReader(in))
		assert.ErrorIs(t, err, errMalformed, in)
	}

	tr, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, tr.Samples)
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	meta := RunMetadata{ID: "run1", Problem: "oscillator"}
	meta.Describe(sampleTrace())

	require.NoError(t, ExportJSON(&buf, meta, sampleTrace()))

	var got ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run1", got.Run.ID)
	assert.Equal(t, 3, got.Samples)
	assert.Equal(t, []float64{0, 0.1, 0.15}, got.X)
	assert.Equal(t, []float64{0, 0.1, 0.05}, got.H)
	assert.Equal(t, []bool{false, false, true}, got.Floor)
	assert.Equal(t, []float64{1, 0}, got.States[0])
}
