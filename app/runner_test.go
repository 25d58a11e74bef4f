package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rcpsp/core/bounds"
	"github.com/kilianp07/rcpsp/core/cqm"
	"github.com/kilianp07/rcpsp/core/metrics"
	"github.com/kilianp07/rcpsp/core/model"
	"github.com/kilianp07/rcpsp/core/monitoring"
	"github.com/kilianp07/rcpsp/core/solver"
	"github.com/kilianp07/rcpsp/infra/runlog"
	"github.com/kilianp07/rcpsp/internal/eventbus"
	"github.com/kilianp07/rcpsp/internal/fixtures"
	"github.com/kilianp07/rcpsp/pkg/export"
)

type recordingSink struct {
	mu      sync.Mutex
	models  []metrics.ModelEvent
	solves  []metrics.SolveEvent
	batches []metrics.BatchEvent
}

func (s *recordingSink) RecordModel(ev metrics.ModelEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = append(s.models, ev)
	return nil
}

func (s *recordingSink) RecordSolve(ev metrics.SolveEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solves = append(s.solves, ev)
	return nil
}

func (s *recordingSink) RecordBatch(ev metrics.BatchEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, ev)
	return nil
}

func writeInstance(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

// chainAnswer is a sampleset holding the only feasible schedule of the chain.
func chainAnswer(t *testing.T) solver.SampleSet {
	t.Helper()
	b, err := bounds.Propagate(fixtures.Chain())
	require.NoError(t, err)
	enc, err := cqm.Encode(b, cqm.Options{})
	require.NoError(t, err)
	s, err := enc.Assignment(fixtures.ChainSchedule())
	require.NoError(t, err)
	return solver.NewSampleSet([]solver.Candidate{{Sample: s, Energy: 5, NumOccurrences: 1}}, nil)
}

// undecodedAnswer is chainAnswer with the terminal task left without a start.
func undecodedAnswer(t *testing.T) solver.SampleSet {
	t.Helper()
	ss := chainAnswer(t)
	best, err := ss.First()
	require.NoError(t, err)
	s := make(cqm.Sample, len(best.Sample))
	for k, v := range best.Sample {
		s[k] = v
	}
	s[cqm.BinaryLabel(3, 5)] = 0
	return solver.NewSampleSet([]solver.Candidate{{Sample: s, Energy: 7, NumOccurrences: 1}}, nil)
}

func TestRun_Chain(t *testing.T) {
	dir := t.TempDir()
	path := writeInstance(t, dir, "chain.rcp", fixtures.ChainRCP)
	store, err := runlog.NewJSONLStore(filepath.Join(dir, "runs.jsonl"))
	require.NoError(t, err)
	defer store.Close()
	sink := &recordingSink{}
	gw := &solver.Fixed{Set: chainAnswer(t)}

	r := NewRunner(gw, WithSink(sink), WithStore(store), WithRelaxation(100))
	rep, err := r.Run(context.Background(), Job{Path: path, TimeLimit: 5 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, "chain.rcp", rep.Instance)
	assert.Equal(t, 6, rep.Horizon)
	assert.Equal(t, 6, rep.CriticalPath)
	assert.Equal(t, 3, rep.Tasks)
	assert.Equal(t, "binary", rep.Encoding)
	assert.True(t, rep.Result.Feasible)
	assert.Equal(t, 5, rep.Result.Makespan)
	require.NotNil(t, rep.RelaxBound)
	assert.InDelta(t, 5.0, *rep.RelaxBound, 1e-6)

	reqs := gw.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "PSP name=chain.rcp, limit=5s", reqs[0].Label)
	assert.Equal(t, 5*time.Second, reqs[0].TimeLimit)

	require.Len(t, sink.models, 1)
	assert.Equal(t, rep.Stats.Variables, sink.models[0].Variables)
	require.Len(t, sink.solves, 1)
	assert.Equal(t, "feasible", sink.solves[0].Outcome())

	recs, err := store.Query(context.Background(), runlog.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 5, recs[0].Makespan)
	assert.False(t, recs[0].Failed())
}

func TestRun_StageErrors(t *testing.T) {
	dir := t.TempDir()
	cyclic := writeInstance(t, dir, "cyclic.rcp", "2 1\n5\n1 1 0 2\n1 1 0 1\n")
	chain := writeInstance(t, dir, "chain.rcp", fixtures.ChainRCP)

	gwErr := errors.New("unauthorized")
	tests := []struct {
		name    string
		path    string
		horizon int
		gw      solver.Gateway
		stage   string
		check   func(t *testing.T, err error)
	}{
		{"missing file", filepath.Join(dir, "nope.rcp"), 0, &solver.Fixed{}, StageRead, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, os.ErrNotExist)
		}},
		{"cycle", cyclic, 0, &solver.Fixed{}, StagePropagate, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, bounds.ErrCyclicPrecedence)
		}},
		{"horizon too short", chain, 4, &solver.Fixed{}, StageEncode, func(t *testing.T, err error) {
			var we *model.InfeasibleWindowError
			assert.ErrorAs(t, err, &we)
		}},
		{"gateway", chain, 0, &solver.Fixed{Err: gwErr}, StageSolve, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, gwErr)
		}},
		{"empty answer", chain, 0, &solver.Fixed{}, StageDecode, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, solver.ErrEmptySampleSet)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			_, err := NewRunner(tt.gw, WithSink(sink)).Run(context.Background(), Job{Path: tt.path, Horizon: tt.horizon})
			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
			tt.check(t, err)
			if tt.stage == StageSolve || tt.stage == StageDecode {
				require.Len(t, sink.solves, 1)
				assert.Equal(t, "error", sink.solves[0].Outcome())
			} else {
				assert.Empty(t, sink.solves)
			}
		})
	}
}

func TestRun_UndecodedMakespan(t *testing.T) {
	dir := t.TempDir()
	path := writeInstance(t, dir, "chain.rcp", fixtures.ChainRCP)
	store, err := runlog.NewJSONLStore(filepath.Join(dir, "runs.jsonl"))
	require.NoError(t, err)
	defer store.Close()
	sink := &recordingSink{}

	rep, err := NewRunner(&solver.Fixed{Set: undecodedAnswer(t)}, WithSink(sink), WithStore(store)).
		Run(context.Background(), Job{Path: path})
	require.ErrorIs(t, err, ErrMakespanUndecoded)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDecode, se.Stage)
	assert.Equal(t, []int{3}, rep.Result.Undecoded)

	require.Len(t, sink.solves, 1)
	assert.Equal(t, "error", sink.solves[0].Outcome())
	recs, err := store.Query(context.Background(), runlog.Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Failed())
	assert.Equal(t, StageDecode, recs[0].Stage)
}

func TestRun_PublishesEvents(t *testing.T) {
	path := writeInstance(t, t.TempDir(), "chain.rcp", fixtures.ChainRCP)
	bus := eventbus.New[RunEvent]()
	sub := bus.Subscribe()

	_, err := NewRunner(&solver.Fixed{Set: chainAnswer(t)}, WithBus(bus)).Run(context.Background(), Job{Path: path})
	require.NoError(t, err)
	bus.Close()

	var stages []string
	for ev := range sub {
		stages = append(stages, ev.Stage)
	}
	assert.Equal(t, []string{StageRead, StagePropagate, StageEncode, StageSolve, StageDone}, stages)
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	chain := writeInstance(t, dir, "chain.rcp", fixtures.ChainRCP)
	missing := filepath.Join(dir, "missing.rcp")
	sink := &recordingSink{}
	var csv bytes.Buffer
	rows := export.NewStatsWriter(&csv)

	r := NewRunner(&solver.Fixed{Set: chainAnswer(t)}, WithSink(sink), WithWorkers(2))
	jobs := Jobs([]string{chain, missing}, []time.Duration{0, 50 * time.Second})
	require.Len(t, jobs, 4)

	sum := r.RunBatch(context.Background(), jobs, rows)
	assert.Equal(t, 4, sum.Jobs)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 2, sum.Feasible)
	assert.Len(t, sum.Failures, 2)
	assert.Equal(t, 5.0, sum.MeanMakespan)
	assert.Equal(t, 0.0, sum.StdMakespan)
	assert.Equal(t, 2, rows.Rows())

	lines := strings.Split(strings.TrimSpace(csv.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(export.Header, ","), lines[0])
	assert.ElementsMatch(t, []string{
		"chain.rcp,3,1,6,5,,true",
		"chain.rcp,3,1,6,5,50,true",
	}, lines[1:])

	require.Len(t, sink.batches, 1)
	assert.Equal(t, 2, sink.batches[0].Failed)
}

func TestRunBatch_EnergyResult(t *testing.T) {
	chain := writeInstance(t, t.TempDir(), "chain.rcp", fixtures.ChainRCP)
	var csv bytes.Buffer
	rows := export.NewStatsWriter(&csv)

	r := NewRunner(&solver.Fixed{Set: chainAnswer(t)}, WithEnergyResult(true))
	sum := r.RunBatch(context.Background(), Jobs([]string{chain}, nil), rows)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Contains(t, csv.String(), "chain.rcp,3,1,6,5,,true")
}

func TestRunBatch_UndecodedMakespan(t *testing.T) {
	chain := writeInstance(t, t.TempDir(), "chain.rcp", fixtures.ChainRCP)
	tests := []struct {
		name      string
		energy    bool
		succeeded int
		rows      int
	}{
		{"makespan", false, 0, 0},
		{"energy", true, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var csv bytes.Buffer
			rows := export.NewStatsWriter(&csv)
			r := NewRunner(&solver.Fixed{Set: undecodedAnswer(t)}, WithEnergyResult(tt.energy))
			sum := r.RunBatch(context.Background(), Jobs([]string{chain}, nil), rows)
			assert.Equal(t, tt.succeeded, sum.Succeeded)
			assert.Equal(t, 1-tt.succeeded, sum.Failed)
			assert.Equal(t, tt.rows, rows.Rows())
		})
	}
}

func TestRunBatch_RecoversPanics(t *testing.T) {
	mon := &capturingMonitor{}
	monitoring.Init(mon)
	defer monitoring.Init(nil)

	chain := writeInstance(t, t.TempDir(), "chain.rcp", fixtures.ChainRCP)
	answer := chainAnswer(t)
	gw := solver.GatewayFunc(func(_ context.Context, req solver.Request) (solver.SampleSet, error) {
		if req.TimeLimit == time.Second {
			panic("solver crashed")
		}
		return answer, nil
	})

	sum := NewRunner(gw, WithWorkers(2)).RunBatch(context.Background(), Jobs([]string{chain}, []time.Duration{0, time.Second}), nil)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, time.Second, sum.Failures[0].Job.TimeLimit)
	assert.EqualError(t, sum.Failures[0].Err, "job panicked: solver crashed")
	assert.Equal(t, []any{"solver crashed"}, mon.panics)
}

func TestRunBatch_Cancelled(t *testing.T) {
	chain := writeInstance(t, t.TempDir(), "chain.rcp", fixtures.ChainRCP)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum := NewRunner(&solver.Fixed{Set: chainAnswer(t)}).RunBatch(ctx, Jobs([]string{chain, chain}, nil), nil)
	assert.Equal(t, 2, sum.Skipped)
	assert.Zero(t, sum.Succeeded)
}

func TestPrintProgress(t *testing.T) {
	ch := make(chan RunEvent, 3)
	ch <- RunEvent{Stage: StageEncode, Instance: "a"}
	ch <- RunEvent{Stage: StageDone, Instance: "a", Limit: 5 * time.Second, Report: &Report{}}
	ch <- RunEvent{Stage: StageFailed, Instance: "b", Err: errors.New("boom")}
	close(ch)

	var out bytes.Buffer
	PrintProgress(&out, ch)
	assert.Equal(t, "[1] a limit=5s makespan=? feasible=false energy=0\n[2] b limit=default failed: boom\n", out.String())
}

type capturingMonitor struct {
	monitoring.NopMonitor
	mu     sync.Mutex
	tags   []map[string]string
	panics []any
}

func (m *capturingMonitor) CaptureException(_ error, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags = append(m.tags, tags)
}

func (m *capturingMonitor) CapturePanic(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics = append(m.panics, v)
}

func TestRun_ReportsFailures(t *testing.T) {
	mon := &capturingMonitor{}
	monitoring.Init(mon)
	defer monitoring.Init(nil)

	path := writeInstance(t, t.TempDir(), "chain.rcp", fixtures.ChainRCP)
	_, err := NewRunner(&solver.Fixed{Err: errors.New("timeout")}).Run(context.Background(), Job{Path: path})
	require.Error(t, err)
	require.Len(t, mon.tags, 1)
	assert.Equal(t, map[string]string{"instance": "chain.rcp", "stage": StageSolve}, mon.tags[0])
}
