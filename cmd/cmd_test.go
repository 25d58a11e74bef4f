package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/rcpsp/app"
	"github.com/kilianp07/rcpsp/core/bounds"
	"github.com/kilianp07/rcpsp/core/cqm"
	"github.com/kilianp07/rcpsp/core/model"
	"github.com/kilianp07/rcpsp/core/solver"
	"github.com/kilianp07/rcpsp/infra/solver/replay"
	"github.com/kilianp07/rcpsp/internal/fixtures"
	"github.com/kilianp07/rcpsp/pkg/rcp"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitFailure},
		{&app.StageError{Stage: app.StageRead, Err: &rcp.ParseError{Line: 2, Msg: "x"}}, ExitMalformed},
		{&app.StageError{Stage: app.StageRead, Err: &model.ValidationError{}}, ExitMalformed},
		{&app.StageError{Stage: app.StagePropagate, Err: fmt.Errorf("%w: 1, 2", bounds.ErrCyclicPrecedence)}, ExitInfeasible},
		{&app.StageError{Stage: app.StageEncode, Err: &model.InfeasibleWindowError{Task: 3}}, ExitInfeasible},
		{&app.StageError{Stage: app.StageSolve, Err: &solver.GatewayError{Status: 401}}, ExitGateway},
		{&app.StageError{Stage: app.StageSolve, Err: errors.New("dial tcp: refused")}, ExitGateway},
		{&app.StageError{Stage: app.StageDecode, Err: solver.ErrEmptySampleSet}, ExitFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

// replayConfig writes the chain instance and a config replaying its only
// feasible schedule, returning both paths.
func replayConfig(t *testing.T, dir string) (inst, conf string) {
	t.Helper()
	inst = filepath.Join(dir, "chain.rcp")
	require.NoError(t, os.WriteFile(inst, []byte(fixtures.ChainRCP), 0o600))

	b, err := bounds.Propagate(fixtures.Chain())
	require.NoError(t, err)
	enc, err := cqm.Encode(b, cqm.Options{})
	require.NoError(t, err)
	s, err := enc.Assignment(fixtures.ChainSchedule())
	require.NoError(t, err)
	answer := filepath.Join(dir, "answer.json")
	require.NoError(t, replay.Save(answer, solver.NewSampleSet([]solver.Candidate{{Sample: s, Energy: 5, NumOccurrences: 1}}, nil)))

	conf = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(conf, []byte(fmt.Sprintf(`solver:
  type: replay
  conf:
    path: %q
runlog:
  type: jsonl
  path: %q
`, answer, filepath.Join(dir, "runs.jsonl"))), 0o600))
	return inst, conf
}

func TestSolveWithReplay(t *testing.T) {
	dir := t.TempDir()
	inst, conf := replayConfig(t, dir)

	chartPath := filepath.Join(dir, "profile.html")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"solve", inst, "--config", conf, "--chart", chartPath})
	require.NoError(t, Execute())

	assert.Contains(t, out.String(), "result:      makespan=5 feasible=true energy=5")
	assert.Contains(t, out.String(), "task 3 starts at 5")
	assert.Contains(t, out.String(), "precedence and capacity respected")
	assert.FileExists(t, chartPath)

	out.Reset()
	rootCmd.SetArgs([]string{"history", "--config", conf, "--format", "csv"})
	require.NoError(t, Execute())
	assert.Equal(t, "instance,num_of_tasks,num_of_resources,max_length,result,limit,feasible\nchain.rcp,3,1,6,5,,true\n", out.String())
}

func TestBatchPrintsEveryJob(t *testing.T) {
	dir := t.TempDir()
	inst, conf := replayConfig(t, dir)

	limits := make([]string, 100)
	for i := range limits {
		limits[i] = strconv.Itoa(i)
	}
	stats := filepath.Join(dir, "stats.csv")
	var out, progress bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&progress)
	defer rootCmd.SetErr(nil)
	rootCmd.SetArgs([]string{"batch", inst, "--config", conf, "--limits", strings.Join(limits, ","), "--stats", stats, "--workers", "8"})
	require.NoError(t, Execute())

	assert.Contains(t, out.String(), "100 jobs: 100 ok")
	lines := strings.Split(strings.TrimSpace(progress.String()), "\n")
	require.Len(t, lines, 100)
	assert.True(t, strings.HasPrefix(lines[99], "[100] chain.rcp limit="), lines[99])

	data, err := os.ReadFile(stats)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 101)
}
