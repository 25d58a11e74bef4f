package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rcpsp/core/cqm"
	"github.com/kilianp07/rcpsp/core/factory"
	"github.com/kilianp07/rcpsp/core/solver"
)

func TestSaveLoadSolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.json")
	ss := solver.NewSampleSet([]solver.Candidate{
		{Sample: cqm.Sample{"task_1_time_0": 1}, Energy: 3, NumOccurrences: 1},
		{Sample: cqm.Sample{"task_1_time_1": 1}, Energy: 1, NumOccurrences: 4},
	}, map[string]any{"problem_id": "abc"})
	require.NoError(t, Save(path, ss))

	gw, err := solver.New(factory.ModuleConfig{Type: "replay", Conf: map[string]any{"path": path}})
	require.NoError(t, err)
	got, err := gw.Solve(context.Background(), solver.Request{})
	require.NoError(t, err)
	assert.Equal(t, ss, got)

	first, err := got.First()
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.Energy)
}

func TestLoad_OrdersByEnergy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"samples":[
		{"sample":{"a":0},"energy":7,"num_occurrences":1},
		{"sample":{"a":1},"energy":2,"num_occurrences":1}]}`), 0o600))
	ss, err := Load(path)
	require.NoError(t, err)
	first, err := ss.First()
	require.NoError(t, err)
	assert.Equal(t, 2.0, first.Energy)
}

func TestErrors(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	dir := t.TempDir()
	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "replay")

	gw, err := New(Config{Path: bad})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.Solve(ctx, solver.Request{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.json")
	ss := solver.NewSampleSet([]solver.Candidate{{Sample: cqm.Sample{"a": 1}, Energy: 2, NumOccurrences: 1}}, nil)
	gw := Recorder(path)(&solver.Fixed{Set: ss})

	got, err := gw.Solve(context.Background(), solver.Request{})
	require.NoError(t, err)
	assert.Equal(t, ss, got)
	saved, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ss, saved)

	boom := errors.New("boom")
	other := filepath.Join(t.TempDir(), "none.json")
	_, err = Recorder(other)(&solver.Fixed{Err: boom}).Solve(context.Background(), solver.Request{})
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, other)
}
